package kube

import (
	"context"
	"net/http"

	"github.com/gantryio/gantry"
	"github.com/pkg/errors"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
)

// normalizeError classifies an error returned by a cluster call into the
// uniform taxonomy. Credential rejections are distinguished from ordinary
// platform rejections so callers know whether to fix their request or their
// credentials. A platform-reported 4xx status is mirrored for rejections;
// transport failures, deadlines, and cancellations surface as the platform
// being unavailable.
func normalizeError(err error) error {
	if err == nil {
		return nil
	}
	if gerr, ok := gantry.AsError(err); ok {
		return gerr
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return gantry.WrapError(gantry.ErrorKindPlatformUnavailable, err, "platform call exceeded its deadline")
	}
	if errors.Is(err, context.Canceled) {
		return gantry.WrapError(gantry.ErrorKindPlatformUnavailable, err, "platform call canceled")
	}

	switch {
	case apierrors.IsUnauthorized(err):
		return gantry.WrapError(gantry.ErrorKindAuthentication, err, "cluster rejected the supplied credentials")
	case apierrors.IsForbidden(err):
		return gantry.WrapError(gantry.ErrorKindAuthentication, err, "cluster denied access").
			SetStatus(http.StatusForbidden)
	case apierrors.IsTimeout(err), apierrors.IsServerTimeout(err), apierrors.IsServiceUnavailable(err), apierrors.IsTooManyRequests(err):
		return gantry.WrapError(gantry.ErrorKindPlatformUnavailable, err, "cluster could not serve the request")
	}

	var status apierrors.APIStatus
	if errors.As(err, &status) {
		code := int(status.Status().Code)
		if code >= 400 && code < 500 {
			return gantry.WrapError(gantry.ErrorKindPlatformRejected, err, "cluster rejected the request").
				SetStatus(code)
		}
		if code >= 500 {
			return gantry.WrapError(gantry.ErrorKindPlatformUnavailable, err, "cluster-side failure")
		}
		return gantry.WrapError(gantry.ErrorKindPlatformRejected, err, "cluster rejected the request")
	}

	return gantry.WrapError(gantry.ErrorKindPlatformUnavailable, err, "could not reach cluster")
}
