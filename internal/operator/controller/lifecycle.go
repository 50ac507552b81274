package controller

import (
	"context"
	"errors"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	devworkspacev1alpha1 "github.com/kubesphere/devworkspace-operator/api/v1alpha1"
	"github.com/kubesphere/devworkspace-operator/internal/operator/failure"
	"github.com/kubesphere/devworkspace-operator/internal/operator/merge"
	"github.com/kubesphere/devworkspace-operator/internal/util/naming"
)

const (
	messageCreating   = "Creating resources..."
	messageRecreating = "Recreating workspace pod and service..."
	messageReady      = "Workspace is ready"
	messageUpdated    = "Workspace is updated"
)

// managedObjects are the names of the objects backing a workspace.
type managedObjects struct {
	pvcName     string
	podName     string
	serviceName string
	url         string
}

// handleCreate provisions a new workspace. It returns a retryable error when
// the attempt should be repeated later and nil otherwise.
func (r *DevWorkspaceReconciler) handleCreate(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace) error {
	logger := log.FromContext(ctx)
	logger.Info("creating workspace", "template", ws.Spec.TemplateRef)

	r.setPhase(ctx, ws, devworkspacev1alpha1.PhaseProvisioning, messageCreating)
	r.recordEvent(ws, corev1.EventTypeNormal, ReasonProvisioning,
		fmt.Sprintf("Provisioning workspace from template %s", ws.Spec.TemplateRef))

	return r.provision(ctx, ws, "", messageReady)
}

// handleResume repeats the create sequence for a workspace left in
// Provisioning by an earlier retryable failure.
func (r *DevWorkspaceReconciler) handleResume(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace) error {
	logger := log.FromContext(ctx)
	logger.Info("resuming workspace provisioning", "message", ws.Status.Message)

	// A recreate may have been interrupted while the old pod was terminating.
	terminating, err := r.computeUnitTerminating(ctx, ws)
	if err != nil {
		return r.handleProvisionError(ctx, ws, failure.AsRetryable(err), "Failed to create workspace")
	}
	if terminating {
		if err := r.provisioner.AwaitComputeUnitDeleted(ctx, ws.Namespace, r.podName(ws)); err != nil {
			return r.handleProvisionError(ctx, ws, err, "Failed to create workspace")
		}
	}

	return r.provision(ctx, ws, ws.Status.PVCName, messageReady)
}

// handleUpdate recreates the pod and the service when the overrides changed.
// The volume claim is kept. pending reports a retryable failure that happened
// before the new pod was created; the update must then be handled again.
func (r *DevWorkspaceReconciler) handleUpdate(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, changes []fieldChange) (pending bool, err error) {
	logger := log.FromContext(ctx)
	logger.Info("handling workspace update", "changes", changeStrings(changes))

	if ws.Status.Phase == devworkspacev1alpha1.PhaseFailed {
		logger.Info("workspace is failed, ignoring update")
		return false, nil
	}

	cfg, err := r.resolveConfig(ctx, ws)
	if err != nil {
		err = r.handleProvisionError(ctx, ws, err, "Failed to get workspace config")
		return err != nil, err
	}

	if !overridesChanged(changes) {
		logger.Info("no significant changes detected")
		return false, nil
	}

	logger.Info("overrides changed, recreating pod and service")
	r.setPhase(ctx, ws, devworkspacev1alpha1.PhaseProvisioning, messageRecreating)
	r.recordEvent(ws, corev1.EventTypeNormal, ReasonRecreating, "Overrides changed, recreating pod and service")
	r.recordRecreation()

	pvcName := ws.Status.PVCName
	if pvcName == "" {
		return false, r.handleProvisionError(ctx, ws,
			failure.NewPermanent("no volume claim recorded in status"), "Failed to update workspace")
	}

	podName := r.podName(ws)
	if err := r.provisioner.DeleteComputeUnit(ctx, ws.Namespace, podName); err != nil {
		logger.Error(err, "failed to delete pod", "pod", podName)
	}
	if err := r.provisioner.DeleteNetworkEndpoint(ctx, ws.Namespace, r.serviceName(ws)); err != nil {
		logger.Error(err, "failed to delete service", "service", r.serviceName(ws))
	}
	if err := r.provisioner.AwaitComputeUnitDeleted(ctx, ws.Namespace, podName); err != nil {
		err = r.handleProvisionError(ctx, ws, err, "Failed to update workspace")
		return err != nil, err
	}

	objs, err := r.materialize(ctx, ws, cfg, pvcName)
	if err != nil {
		// Once the new pod exists a resume finishes the recreate.
		err = r.handleProvisionError(ctx, ws, err, "Failed to update workspace")
		return err != nil && objs.podName == "", err
	}

	r.markRunning(ctx, ws, objs, messageUpdated)
	return false, nil
}

// handleDelete removes the objects recorded in status. Each removal is best
// effort; failures are logged and do not block the others.
func (r *DevWorkspaceReconciler) handleDelete(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace) {
	logger := log.FromContext(ctx)

	if !ws.Status.HasStatus() {
		logger.Info("workspace has no status, nothing to clean up")
		return
	}

	logger.Info("deleting workspace resources")
	steps := []struct {
		kind string
		name string
		del  func(ctx context.Context, namespace, name string) error
	}{
		{"pod", ws.Status.PodName, r.provisioner.DeleteComputeUnit},
		{"service", ws.Status.ServiceName, r.provisioner.DeleteNetworkEndpoint},
		{"persistentvolumeclaim", ws.Status.PVCName, r.provisioner.DeleteStorageClaim},
	}
	for _, step := range steps {
		if step.name == "" {
			continue
		}
		if err := step.del(ctx, ws.Namespace, step.name); err != nil {
			logger.Error(err, "failed to delete workspace object", "kind", step.kind, "name", step.name)
		}
	}
}

// refreshURL retries address resolution for a running workspace whose URL is unknown.
func (r *DevWorkspaceReconciler) refreshURL(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace) ctrl.Result {
	url := r.resolver.ResolveURL(ctx, ws.Namespace, r.serviceName(ws))
	r.recordURLResolution(url != devworkspacev1alpha1.URLUnknown)

	if url == devworkspacev1alpha1.URLUnknown {
		log.FromContext(ctx).Info("service address still unknown", "retryAfter", r.settings.RetryDelay)
		return ctrl.Result{RequeueAfter: r.settings.RetryDelay}
	}

	r.patchStatus(ctx, ws, func(s *devworkspacev1alpha1.DevWorkspaceStatus) {
		s.URL = url
	})
	r.recordEvent(ws, corev1.EventTypeNormal, ReasonRunning, fmt.Sprintf("Workspace is reachable at %s", url))
	return ctrl.Result{}
}

// provision resolves the configuration and runs the create sequence.
func (r *DevWorkspaceReconciler) provision(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, claimName, readyMessage string) error {
	cfg, err := r.resolveConfig(ctx, ws)
	if err != nil {
		return r.handleProvisionError(ctx, ws, err, "Failed to get workspace config")
	}

	objs, err := r.materialize(ctx, ws, cfg, claimName)
	if err != nil {
		return r.handleProvisionError(ctx, ws, err, "Failed to create workspace")
	}

	r.markRunning(ctx, ws, objs, readyMessage)
	return nil
}

// materialize ensures the claim, the pod, and the service, waits for the pod
// to run, and resolves the URL. An empty claimName creates the claim.
func (r *DevWorkspaceReconciler) materialize(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, cfg devworkspacev1alpha1.WorkspaceConfig, claimName string) (managedObjects, error) {
	objs := managedObjects{pvcName: claimName}

	var err error
	if objs.pvcName == "" {
		if objs.pvcName, err = r.provisioner.EnsureStorageClaim(ctx, ws, cfg); err != nil {
			return objs, err
		}
	}
	if objs.podName, err = r.provisioner.EnsureComputeUnit(ctx, ws, cfg, objs.pvcName); err != nil {
		return objs, err
	}
	if objs.serviceName, err = r.provisioner.EnsureNetworkEndpoint(ctx, ws, cfg); err != nil {
		return objs, err
	}
	r.recordObjects(ctx, ws, objs)

	start := r.clock.Now()
	err = r.waiter.WaitRunning(ctx, ws.Namespace, objs.podName)
	r.recordReadinessWait(waitResult(err), r.clock.Since(start).Seconds())
	if err != nil {
		return objs, err
	}

	objs.url = r.resolver.ResolveURL(ctx, ws.Namespace, objs.serviceName)
	r.recordURLResolution(objs.url != devworkspacev1alpha1.URLUnknown)
	return objs, nil
}

// resolveConfig reads the referenced template and merges the overrides into it.
func (r *DevWorkspaceReconciler) resolveConfig(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace) (devworkspacev1alpha1.WorkspaceConfig, error) {
	var cfg devworkspacev1alpha1.WorkspaceConfig

	if ws.Spec.TemplateRef == "" {
		return cfg, failure.NewValidation("no templateRef specified")
	}

	tmpl := &devworkspacev1alpha1.DevWorkspaceTemplate{}
	if err := r.Get(ctx, client.ObjectKey{Name: ws.Spec.TemplateRef}, tmpl); err != nil {
		if apierrors.IsNotFound(err) {
			return cfg, failure.NewValidation("template %q not found", ws.Spec.TemplateRef)
		}
		return cfg, failure.AsRetryable(fmt.Errorf("failed to get template %q: %w", ws.Spec.TemplateRef, err))
	}

	cfg = merge.Merge(tmpl.Spec, ws.Spec.Overrides)
	if err := merge.Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// handleProvisionError records the outcome of a failed attempt and returns
// the error only when the attempt should be repeated.
func (r *DevWorkspaceReconciler) handleProvisionError(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, err error, action string) error {
	logger := log.FromContext(ctx)

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	switch failure.KindOf(err) {
	case failure.Retryable:
		logger.Info("retryable failure, will retry", "error", err.Error(), "retryAfter", r.settings.RetryDelay)
		message := fmt.Sprintf("%s, will retry: %v", action, err)
		r.setPhase(ctx, ws, devworkspacev1alpha1.PhaseProvisioning, message)
		r.recordEvent(ws, corev1.EventTypeWarning, ReasonRetryScheduled, message)
		return err
	case failure.Validation, failure.Permanent:
		r.markFailed(ctx, ws, fmt.Sprintf("%s: %v", action, err))
		return nil
	default:
		logger.Error(err, "unexpected error", "action", action)
		r.markFailed(ctx, ws, fmt.Sprintf("An unexpected error occurred: %v", err))
		return nil
	}
}

func (r *DevWorkspaceReconciler) computeUnitTerminating(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace) (bool, error) {
	pod := &corev1.Pod{}
	err := r.apiReader.Get(ctx, client.ObjectKey{Namespace: ws.Namespace, Name: r.podName(ws)}, pod)
	if apierrors.IsNotFound(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get pod %s: %w", r.podName(ws), err)
	}
	return !pod.DeletionTimestamp.IsZero(), nil
}

func waitResult(err error) string {
	switch {
	case err == nil:
		return "running"
	case failure.IsRetryable(err):
		return "timeout"
	default:
		return "failed"
	}
}

func (r *DevWorkspaceReconciler) podName(ws *devworkspacev1alpha1.DevWorkspace) string {
	if ws.Status.PodName != "" {
		return ws.Status.PodName
	}
	return naming.Pod(ws.Name)
}

func (r *DevWorkspaceReconciler) serviceName(ws *devworkspacev1alpha1.DevWorkspace) string {
	if ws.Status.ServiceName != "" {
		return ws.Status.ServiceName
	}
	return naming.Service(ws.Name)
}
