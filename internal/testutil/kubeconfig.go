package testutil

import "encoding/base64"

// Kubeconfig returns a syntactically valid kubeconfig for a cluster that
// does not exist. Tests can resolve it into client configuration, but any
// call made with it would fail.
func Kubeconfig() []byte {
	return []byte(`apiVersion: v1
kind: Config
clusters:
- cluster:
    server: https://cluster.gantry.test:6443
  name: test
contexts:
- context:
    cluster: test
    user: tester
  name: test
current-context: test
users:
- name: tester
  user:
    token: not-a-real-token
`)
}

// Base64Kubeconfig returns the same kubeconfig as Kubeconfig, base64-encoded
// the way callers typically submit it.
func Base64Kubeconfig() []byte {
	return []byte(base64.StdEncoding.EncodeToString(Kubeconfig()))
}
