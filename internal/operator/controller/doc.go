// Package controller implements the Kubernetes controller for DevWorkspace
// custom resources.
//
// Each reconciliation derives a lifecycle event from the object itself:
// a deletion timestamp means delete, a missing last-handled-spec annotation
// means create, and an annotation that differs from the current spec means
// update. The annotation is rewritten after every handled create or update.
//
// Create provisions a volume claim, a pod, and a service, waits for the pod to
// run, and resolves the service URL. Update recreates the pod and the service
// when the overrides changed, keeping the volume claim. Delete removes what the
// status recorded. Retryable failures leave the workspace in Provisioning and
// requeue; the next pass resumes the idempotent create sequence.
package controller
