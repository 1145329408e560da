package ecs

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/service/ecs/types"
	"github.com/aws/smithy-go"
	"github.com/evergreen-ci/utility"
	"github.com/gantryio/gantry"
	"github.com/pkg/errors"
)

// normalizeError classifies an error returned by an ECS call into the
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

	status := 0
	var respErr *awshttp.ResponseError
	if errors.As(err, &respErr) {
		status = respErr.HTTPStatusCode()
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		if isAuthenticationErrorCode(apiErr.ErrorCode()) {
			gerr := gantry.WrapError(gantry.ErrorKindAuthentication, err, "platform rejected the supplied credentials")
			if status == http.StatusForbidden {
				gerr.SetStatus(http.StatusForbidden)
			}
			return gerr
		}

		if apiErr.ErrorFault() == smithy.FaultServer {
			return gantry.WrapError(gantry.ErrorKindPlatformUnavailable, err, "platform-side failure")
		}

		gerr := gantry.WrapError(gantry.ErrorKindPlatformRejected, err, "platform rejected the request")
		if status >= 400 && status < 500 {
			gerr.SetStatus(status)
		}
		return gerr
	}

	return gantry.WrapError(gantry.ErrorKindPlatformUnavailable, err, "could not reach platform")
}

// isAuthenticationErrorCode returns whether the error code indicates the
// platform rejected the caller's credentials rather than the request
// itself.
func isAuthenticationErrorCode(code string) bool {
	switch code {
	case "AccessDeniedException",
		"AccessDenied",
		"UnrecognizedClientException",
		"InvalidClientTokenId",
		"InvalidSignatureException",
		"SignatureDoesNotMatch",
		"ExpiredToken",
		"ExpiredTokenException",
		"MissingAuthenticationToken",
		"IncompleteSignature":
		return true
	default:
		return false
	}
}

// ConvertFailureToError converts a failure reported inline by ECS into a
// formatted error.
func ConvertFailureToError(f types.Failure) error {
	var parts []string
	if arn := utility.FromStringPtr(f.Arn); arn != "" {
		parts = append(parts, fmt.Sprintf("resource '%s'", arn))
	}
	if reason := utility.FromStringPtr(f.Reason); reason != "" {
		parts = append(parts, fmt.Sprintf("reason: '%s'", reason))
	}
	if detail := utility.FromStringPtr(f.Detail); detail != "" {
		parts = append(parts, fmt.Sprintf("detail: '%s'", detail))
	}
	if len(parts) == 0 {
		return errors.New("ECS reported a failure without any details")
	}
	return errors.New(strings.Join(parts, ", "))
}
