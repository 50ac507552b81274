package readiness

import (
	"context"
	"errors"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	"github.com/kubesphere/devworkspace-operator/internal/operator/failure"
	"github.com/kubesphere/devworkspace-operator/internal/util/retry"
)

const (
	// DefaultReadinessAttempts is how many times the pod phase is checked
	DefaultReadinessAttempts = 30
	// DefaultReadinessInterval is the pause between pod phase checks
	DefaultReadinessInterval = 10 * time.Second
)

// Waiter waits for a pod to reach the Running phase.
type Waiter struct {
	reader client.Reader
	policy retry.Policy
}

// NewWaiter creates a waiter reading pods through r.
func NewWaiter(r client.Reader, policy retry.Policy) *Waiter {
	return &Waiter{reader: r, policy: policy}
}

// WaitRunning returns nil once the pod is Running. A pod in Failed or Unknown
// phase yields a permanent error. Exhausting the policy yields a retryable one.
// Read errors, including a pod that is not visible yet, are retried.
func (w *Waiter) WaitRunning(ctx context.Context, namespace, name string) error {
	logger := log.FromContext(ctx).WithValues("pod", name)

	err := w.policy.Poll(ctx, func(ctx context.Context, attempt int) (retry.Outcome, error) {
		pod := &corev1.Pod{}
		if err := w.reader.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, pod); err != nil {
			logger.Info("error reading pod status", "attempt", attempt, "error", err.Error())
			return retry.Continue, err
		}

		switch pod.Status.Phase {
		case corev1.PodRunning:
			logger.Info("pod is running", "attempt", attempt)
			return retry.Succeed, nil
		case corev1.PodFailed, corev1.PodUnknown:
			return retry.Fail, failure.NewPermanent("pod %s entered %s phase", name, pod.Status.Phase)
		}

		logger.Info("waiting for pod to become ready",
			"phase", pod.Status.Phase,
			"attempt", attempt,
			"maxAttempts", w.policy.MaxAttempts,
		)
		return retry.Continue, nil
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, retry.ErrExhausted) {
		return failure.AsRetryable(fmt.Errorf("pod %s did not become ready in time: %w", name, err))
	}
	return err
}
