package controller

import (
	"context"
	"fmt"

	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/log"

	devworkspacev1alpha1 "github.com/kubesphere/devworkspace-operator/api/v1alpha1"
	"github.com/kubesphere/devworkspace-operator/internal/util/retry"
)

// Event reasons
const (
	ReasonProvisioning   = "Provisioning"
	ReasonRunning        = "Running"
	ReasonRecreating     = "Recreating"
	ReasonRetryScheduled = "RetryScheduled"
	ReasonFailed         = "Failed"
)

// patchStatus applies mutate to the status and merge-patches the status
// subresource. Only changed fields are sent. Failures are logged.
func (r *DevWorkspaceReconciler) patchStatus(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, mutate func(s *devworkspacev1alpha1.DevWorkspaceStatus)) {
	logger := log.FromContext(ctx)

	before := ws.DeepCopy()
	mutate(&ws.Status)
	ws.Status.ObservedGeneration = ws.Generation

	err := retry.WithExponentialBackoff(ctx, func() error {
		err := r.Status().Patch(ctx, ws, client.MergeFrom(before))
		if apierrors.IsNotFound(err) {
			return retry.Fatal(err)
		}
		return err
	}, retry.WithClock(r.clock))
	if err != nil {
		logger.Error(err, "failed to patch status", "phase", ws.Status.Phase)
		return
	}

	if ws.Status.Phase != before.Status.Phase && ws.Status.Phase != "" {
		r.recordPhaseTransition(string(ws.Status.Phase))
	}
}

func (r *DevWorkspaceReconciler) setPhase(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, phase devworkspacev1alpha1.WorkspacePhase, message string) {
	r.patchStatus(ctx, ws, func(s *devworkspacev1alpha1.DevWorkspaceStatus) {
		s.Phase = phase
		s.Message = message
	})
}

func (r *DevWorkspaceReconciler) markFailed(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, message string) {
	log.FromContext(ctx).Info("workspace failed", "reason", message)
	r.setPhase(ctx, ws, devworkspacev1alpha1.PhaseFailed, message)
	r.recordEvent(ws, corev1.EventTypeWarning, ReasonFailed, message)
}

// recordObjects stores the names of created objects while the pod starts.
func (r *DevWorkspaceReconciler) recordObjects(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, objs managedObjects) {
	r.patchStatus(ctx, ws, func(s *devworkspacev1alpha1.DevWorkspaceStatus) {
		s.Phase = devworkspacev1alpha1.PhaseProvisioning
		s.Message = "Waiting for workspace pod to become ready"
		s.PVCName = objs.pvcName
		s.PodName = objs.podName
		s.ServiceName = objs.serviceName
	})
}

func (r *DevWorkspaceReconciler) markRunning(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, objs managedObjects, message string) {
	r.patchStatus(ctx, ws, func(s *devworkspacev1alpha1.DevWorkspaceStatus) {
		s.Phase = devworkspacev1alpha1.PhaseRunning
		s.Message = message
		s.PVCName = objs.pvcName
		s.PodName = objs.podName
		s.ServiceName = objs.serviceName
		s.URL = objs.url
	})
	r.recordEvent(ws, corev1.EventTypeNormal, ReasonRunning, fmt.Sprintf("%s at %s", message, objs.url))
}

func (r *DevWorkspaceReconciler) recordEvent(ws *devworkspacev1alpha1.DevWorkspace, eventType, reason, message string) {
	if r.Recorder != nil {
		r.Recorder.Event(ws, eventType, reason, message)
	}
}

// recordHandledSpec writes the current spec to the last-handled annotation.
func (r *DevWorkspaceReconciler) recordHandledSpec(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace) error {
	encoded, err := encodeSpec(ws.Spec)
	if err != nil {
		return err
	}

	before := ws.DeepCopy()
	if ws.Annotations == nil {
		ws.Annotations = map[string]string{}
	}
	ws.Annotations[AnnotationLastHandledSpec] = encoded

	if err := r.Patch(ctx, ws, client.MergeFrom(before)); err != nil {
		return fmt.Errorf("failed to patch %s annotation: %w", AnnotationLastHandledSpec, err)
	}
	return nil
}

func (r *DevWorkspaceReconciler) ensureFinalizer(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace) error {
	if controllerutil.ContainsFinalizer(ws, FinalizerName) {
		return nil
	}
	before := ws.DeepCopy()
	controllerutil.AddFinalizer(ws, FinalizerName)
	if err := r.Patch(ctx, ws, client.MergeFrom(before)); err != nil {
		return fmt.Errorf("failed to add finalizer: %w", err)
	}
	return nil
}

func (r *DevWorkspaceReconciler) removeFinalizer(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace) error {
	before := ws.DeepCopy()
	controllerutil.RemoveFinalizer(ws, FinalizerName)
	if err := r.Patch(ctx, ws, client.MergeFrom(before)); err != nil {
		if apierrors.IsNotFound(err) {
			return nil
		}
		return fmt.Errorf("failed to remove finalizer: %w", err)
	}
	return nil
}
