// Package kubeutil resolves caller-supplied cluster credential material into
// Kubernetes client configuration.
package kubeutil

import (
	"encoding/base64"
	"strings"
	"unicode"

	"github.com/gantryio/gantry"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
)

// RESTConfig resolves cluster credentials into a client configuration for
// the cluster's control plane. The credential blob may be base64-encoded or
// raw kubeconfig YAML. Any decode or parse failure is a credential error;
// whether the configuration actually authenticates is discovered lazily, on
// the first call made with it. The blob itself never appears in a returned
// error.
func RESTConfig(creds *gantry.ClusterCredentials) (*rest.Config, error) {
	if creds == nil {
		return nil, gantry.NewError(gantry.ErrorKindCredential, "missing cluster credentials")
	}
	if err := creds.Validate(); err != nil {
		return nil, gantry.WrapError(gantry.ErrorKindCredential, err, "invalid cluster credentials")
	}

	kubeconfig := creds.Kubeconfig
	if decoded, ok := decodeBlob(kubeconfig); ok {
		kubeconfig = decoded
	}

	config, err := clientcmd.RESTConfigFromKubeConfig(kubeconfig)
	if err != nil {
		return nil, gantry.WrapError(gantry.ErrorKindCredential, err, "parsing cluster configuration")
	}

	return config, nil
}

// decodeBlob attempts a strict base64 decode of the blob, tolerating
// whitespace such as line wrapping and trailing newlines. The second return
// is false when the blob is not base64, in which case the caller should
// treat it as raw configuration.
func decodeBlob(blob []byte) ([]byte, bool) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, string(blob))

	decoded, err := base64.StdEncoding.DecodeString(compact)
	if err != nil {
		return nil, false
	}

	return decoded, true
}
