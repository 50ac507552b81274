package provisioning

import (
	"context"
	"errors"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/log"

	devworkspacev1alpha1 "github.com/kubesphere/devworkspace-operator/api/v1alpha1"
	"github.com/kubesphere/devworkspace-operator/internal/operator/failure"
	"github.com/kubesphere/devworkspace-operator/internal/util/retry"
)

// Provisioner creates and deletes the objects that make up a workspace.
type Provisioner struct {
	client client.Client
	// reader is used while waiting for a pod to go away
	reader client.Reader
	scheme *runtime.Scheme
	opts   Options
}

// NewProvisioner creates a provisioner. Zero option fields take their defaults.
func NewProvisioner(c client.Client, scheme *runtime.Scheme, opts Options) *Provisioner {
	return &Provisioner{
		client: c,
		reader: c,
		scheme: scheme,
		opts:   opts.withDefaults(),
	}
}

// WithReader makes AwaitComputeUnitDeleted read pods through reader, usually
// the manager's uncached API reader.
func (p *Provisioner) WithReader(reader client.Reader) *Provisioner {
	if reader != nil {
		p.reader = reader
	}
	return p
}

// EnsureStorageClaim creates the workspace volume claim and returns its name.
func (p *Provisioner) EnsureStorageClaim(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, cfg devworkspacev1alpha1.WorkspaceConfig) (string, error) {
	pvc, err := BuildStorageClaim(ws, cfg, p.opts)
	if err != nil {
		return "", err
	}
	if err := p.create(ctx, ws, pvc, "PersistentVolumeClaim"); err != nil {
		return "", err
	}
	return pvc.Name, nil
}

// EnsureComputeUnit creates the workspace pod mounting claimName and returns its name.
func (p *Provisioner) EnsureComputeUnit(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, cfg devworkspacev1alpha1.WorkspaceConfig, claimName string) (string, error) {
	pod := BuildPod(ws, cfg, claimName, p.opts)
	if err := p.create(ctx, ws, pod, "Pod"); err != nil {
		return "", err
	}
	return pod.Name, nil
}

// EnsureNetworkEndpoint creates the workspace service and returns its name.
func (p *Provisioner) EnsureNetworkEndpoint(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, cfg devworkspacev1alpha1.WorkspaceConfig) (string, error) {
	svc := BuildService(ws, cfg, p.opts)
	if err := p.create(ctx, ws, svc, "Service"); err != nil {
		return "", err
	}
	return svc.Name, nil
}

// DeleteComputeUnit deletes the named pod. A missing pod is not an error.
func (p *Provisioner) DeleteComputeUnit(ctx context.Context, namespace, name string) error {
	pod := &corev1.Pod{}
	pod.Name, pod.Namespace = name, namespace
	return p.delete(ctx, pod, "Pod")
}

// DeleteNetworkEndpoint deletes the named service. A missing service is not an error.
func (p *Provisioner) DeleteNetworkEndpoint(ctx context.Context, namespace, name string) error {
	svc := &corev1.Service{}
	svc.Name, svc.Namespace = name, namespace
	return p.delete(ctx, svc, "Service")
}

// DeleteStorageClaim deletes the named volume claim. A missing claim is not an error.
func (p *Provisioner) DeleteStorageClaim(ctx context.Context, namespace, name string) error {
	pvc := &corev1.PersistentVolumeClaim{}
	pvc.Name, pvc.Namespace = name, namespace
	return p.delete(ctx, pvc, "PersistentVolumeClaim")
}

// AwaitComputeUnitDeleted polls until the named pod is gone. Running out of
// attempts is retryable: the pod may still be terminating.
func (p *Provisioner) AwaitComputeUnitDeleted(ctx context.Context, namespace, name string) error {
	logger := log.FromContext(ctx)

	err := p.opts.DeletionWait.Poll(ctx, func(ctx context.Context, attempt int) (retry.Outcome, error) {
		pod := &corev1.Pod{}
		err := p.reader.Get(ctx, client.ObjectKey{Namespace: namespace, Name: name}, pod)
		switch {
		case apierrors.IsNotFound(err):
			return retry.Succeed, nil
		case err != nil:
			logger.V(1).Info("error reading pod while waiting for deletion", "pod", name, "attempt", attempt, "error", err.Error())
			return retry.Continue, err
		}
		logger.V(1).Info("waiting for pod to terminate", "pod", name, "attempt", attempt)
		return retry.Continue, nil
	})
	if err == nil {
		return nil
	}
	if errors.Is(err, retry.ErrExhausted) {
		return failure.AsRetryable(fmt.Errorf("pod %s is still terminating: %w", name, err))
	}
	return err
}

func (p *Provisioner) create(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, obj client.Object, kind string) error {
	logger := log.FromContext(ctx)

	if p.scheme != nil {
		if err := controllerutil.SetControllerReference(ws, obj, p.scheme); err != nil {
			return fmt.Errorf("failed to set owner reference on %s %s: %w", kind, obj.GetName(), err)
		}
	}

	if err := p.client.Create(ctx, obj); err != nil {
		if apierrors.IsAlreadyExists(err) {
			logger.Info("object already exists", "kind", kind, "name", obj.GetName())
			return nil
		}
		return classify(fmt.Errorf("failed to create %s %s: %w", kind, obj.GetName(), err), err)
	}

	logger.Info("created object", "kind", kind, "name", obj.GetName())
	return nil
}

func (p *Provisioner) delete(ctx context.Context, obj client.Object, kind string) error {
	logger := log.FromContext(ctx)

	if err := p.client.Delete(ctx, obj); err != nil {
		if apierrors.IsNotFound(err) {
			logger.V(1).Info("object already gone", "kind", kind, "name", obj.GetName())
			return nil
		}
		return classify(fmt.Errorf("failed to delete %s %s: %w", kind, obj.GetName(), err), err)
	}

	logger.Info("deleted object", "kind", kind, "name", obj.GetName())
	return nil
}

// classify marks wrapped as retryable when the API error is transient.
func classify(wrapped, apiErr error) error {
	if IsTransient(apiErr) {
		return failure.AsRetryable(wrapped)
	}
	return wrapped
}

// IsTransient reports whether an API error is expected to clear on its own.
func IsTransient(err error) bool {
	return apierrors.IsServerTimeout(err) ||
		apierrors.IsTimeout(err) ||
		apierrors.IsTooManyRequests(err) ||
		apierrors.IsServiceUnavailable(err)
}
