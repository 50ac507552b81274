// Package retry provides retry helpers for operations against the cluster API.
//
// [WithExponentialBackoff] retries an operation with growing delays and stops on
// errors wrapped with [Fatal]. It is used for status writes.
//
// [Policy] is a bounded polling policy: a fixed number of attempts at a fixed
// interval, with each observation classified as [Continue], [Succeed] or [Fail].
// Sleeping goes through a [k8s.io/utils/clock.Clock] so callers can substitute a
// fake clock in tests.
package retry
