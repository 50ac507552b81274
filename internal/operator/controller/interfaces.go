package controller

import (
	"context"

	devworkspacev1alpha1 "github.com/kubesphere/devworkspace-operator/api/v1alpha1"
)

// workspaceProvisioner manages the objects backing a workspace.
// It is implemented by provisioning.Provisioner.
type workspaceProvisioner interface {
	EnsureStorageClaim(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, cfg devworkspacev1alpha1.WorkspaceConfig) (string, error)
	EnsureComputeUnit(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, cfg devworkspacev1alpha1.WorkspaceConfig, claimName string) (string, error)
	EnsureNetworkEndpoint(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, cfg devworkspacev1alpha1.WorkspaceConfig) (string, error)

	DeleteComputeUnit(ctx context.Context, namespace, name string) error
	DeleteNetworkEndpoint(ctx context.Context, namespace, name string) error
	DeleteStorageClaim(ctx context.Context, namespace, name string) error

	// AwaitComputeUnitDeleted blocks until the pod is gone or the wait budget is spent.
	AwaitComputeUnitDeleted(ctx context.Context, namespace, name string) error
}

// readinessWaiter waits for a workspace pod to run.
type readinessWaiter interface {
	WaitRunning(ctx context.Context, namespace, name string) error
}

// endpointResolver resolves a service URL, or devworkspacev1alpha1.URLUnknown.
type endpointResolver interface {
	ResolveURL(ctx context.Context, namespace, name string) string
}
