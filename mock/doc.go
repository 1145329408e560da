/*
Package mock provides mock implementations of interfaces for testing
purposes.

The ECSClient and KubernetesClient can be used for running tests without
relying on a real cluster or any infrastructure in AWS to be set up. Both
record their inputs and count their calls so tests can assert on dispatch
sequencing.
*/
package mock
