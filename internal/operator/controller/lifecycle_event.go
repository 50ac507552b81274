package controller

import (
	"context"

	"sigs.k8s.io/controller-runtime/pkg/log"

	devworkspacev1alpha1 "github.com/kubesphere/devworkspace-operator/api/v1alpha1"
)

const (
	// AnnotationLastHandledSpec stores the JSON spec of the last handled create or update
	AnnotationLastHandledSpec = "devworkspace.kubesphere.io/last-handled-spec"

	// FinalizerName guards cleanup of the objects recorded in status
	FinalizerName = "devworkspace.kubesphere.io/finalizer"
)

type eventKind string

const (
	eventNone       eventKind = "none"
	eventCreate     eventKind = "create"
	eventUpdate     eventKind = "update"
	eventResume     eventKind = "resume"
	eventRefreshURL eventKind = "refresh-url"
	eventDelete     eventKind = "delete"
)

// workspaceEvent is what a reconciliation has to handle.
type workspaceEvent struct {
	kind    eventKind
	changes []fieldChange
}

// deriveEvent classifies the current state of ws into a lifecycle event.
func deriveEvent(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace) workspaceEvent {
	logger := log.FromContext(ctx)

	if !ws.DeletionTimestamp.IsZero() {
		return workspaceEvent{kind: eventDelete}
	}

	last, ok := ws.Annotations[AnnotationLastHandledSpec]
	if !ok {
		return workspaceEvent{kind: eventCreate}
	}

	changes, err := diffSpecs(last, ws.Spec)
	if err != nil {
		logger.Error(err, "last handled spec is unreadable, handling as create")
		return workspaceEvent{kind: eventCreate}
	}
	if len(changes) > 0 {
		return workspaceEvent{kind: eventUpdate, changes: changes}
	}

	switch ws.Status.Phase {
	case devworkspacev1alpha1.PhaseProvisioning, "":
		return workspaceEvent{kind: eventResume}
	case devworkspacev1alpha1.PhaseRunning:
		if ws.Status.URL == devworkspacev1alpha1.URLUnknown {
			return workspaceEvent{kind: eventRefreshURL}
		}
	}
	return workspaceEvent{kind: eventNone}
}
