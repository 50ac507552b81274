// Package provisioning creates and removes the Kubernetes objects that back a
// workspace: a persistent volume claim, a pod running code-server, and a
// ClusterIP service in front of it.
//
// Object construction lives in pure builder functions so it can be tested
// without an API server. The Provisioner applies them through a
// controller-runtime client, sets the workspace as controller owner, and treats
// an object that already exists as success so a repeated reconciliation is a
// no-op.
package provisioning
