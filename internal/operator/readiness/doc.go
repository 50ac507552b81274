// Package readiness waits for a workspace pod to start and resolves the
// in-cluster address of its service.
//
// Both operations are bounded polls on a retry.Policy. The waiter reports
// failure kinds from the failure package so the reconciler can tell a pod that
// will never run from one that simply needs more time. The resolver never
// fails: it falls back to the Unknown sentinel.
package readiness
