package readiness

import (
	"context"
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	devworkspacev1alpha1 "github.com/kubesphere/devworkspace-operator/api/v1alpha1"
	"github.com/kubesphere/devworkspace-operator/internal/util/retry"
)

const (
	// DefaultEndpointAttempts is how many times the service is read
	DefaultEndpointAttempts = 10
	// DefaultEndpointInterval is the pause between service reads
	DefaultEndpointInterval = 2 * time.Second
)

// Resolver turns a service into an http URL.
type Resolver struct {
	reader client.Reader
	policy retry.Policy
}

// NewResolver creates a resolver reading services through r.
func NewResolver(r client.Reader, policy retry.Policy) *Resolver {
	return &Resolver{reader: r, policy: policy}
}

// ResolveURL returns http://<clusterIP>:<first port>, or
// devworkspacev1alpha1.URLUnknown when no address was assigned in time.
func (r *Resolver) ResolveURL(ctx context.Context, namespace, name string) string {
	logger := log.FromContext(ctx).WithValues("service", name)

	url := devworkspacev1alpha1.URLUnknown
	err := r.policy.Poll(ctx, func(ctx context.Context, attempt int) (retry.Outcome, error) {
		svc := &corev1.Service{}
		if err := r.reader.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, svc); err != nil {
			logger.Info("error reading service", "attempt", attempt, "error", err.Error())
			return retry.Continue, err
		}

		if u, ok := serviceURL(svc); ok {
			url = u
			return retry.Succeed, nil
		}
		logger.V(1).Info("service has no address yet", "attempt", attempt)
		return retry.Continue, nil
	})
	if err != nil {
		logger.Error(err, "could not resolve service address")
		return devworkspacev1alpha1.URLUnknown
	}
	return url
}

func serviceURL(svc *corev1.Service) (string, bool) {
	ip := svc.Spec.ClusterIP
	if ip == "" || ip == corev1.ClusterIPNone || len(svc.Spec.Ports) == 0 {
		return "", false
	}
	return fmt.Sprintf("http://%s:%d", ip, svc.Spec.Ports[0].Port), true
}
