package controller

import (
	"context"
	"sync"

	devworkspacev1alpha1 "github.com/kubesphere/devworkspace-operator/api/v1alpha1"
	"github.com/kubesphere/devworkspace-operator/internal/util/naming"
)

// MockProvisioner is a mock implementation of workspaceProvisioner for testing.
type MockProvisioner struct {
	mu sync.Mutex

	// Configurable responses
	EnsureStorageClaimFunc      func(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, cfg devworkspacev1alpha1.WorkspaceConfig) (string, error)
	EnsureComputeUnitFunc       func(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, cfg devworkspacev1alpha1.WorkspaceConfig, claimName string) (string, error)
	EnsureNetworkEndpointFunc   func(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, cfg devworkspacev1alpha1.WorkspaceConfig) (string, error)
	DeleteComputeUnitFunc       func(ctx context.Context, namespace, name string) error
	DeleteNetworkEndpointFunc   func(ctx context.Context, namespace, name string) error
	DeleteStorageClaimFunc      func(ctx context.Context, namespace, name string) error
	AwaitComputeUnitDeletedFunc func(ctx context.Context, namespace, name string) error

	// Call tracking, in order
	Calls []string
	// Configs seen by EnsureComputeUnit
	ComputeUnitConfigs []devworkspacev1alpha1.WorkspaceConfig
}

func (m *MockProvisioner) track(call string) {
	m.mu.Lock()
	m.Calls = append(m.Calls, call)
	m.mu.Unlock()
}

func (m *MockProvisioner) EnsureStorageClaim(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, cfg devworkspacev1alpha1.WorkspaceConfig) (string, error) {
	m.track("EnsureStorageClaim")
	if m.EnsureStorageClaimFunc != nil {
		return m.EnsureStorageClaimFunc(ctx, ws, cfg)
	}
	return naming.StorageClaim(ws.Name), nil
}

func (m *MockProvisioner) EnsureComputeUnit(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, cfg devworkspacev1alpha1.WorkspaceConfig, claimName string) (string, error) {
	m.track("EnsureComputeUnit:" + claimName)
	m.mu.Lock()
	m.ComputeUnitConfigs = append(m.ComputeUnitConfigs, cfg)
	m.mu.Unlock()
	if m.EnsureComputeUnitFunc != nil {
		return m.EnsureComputeUnitFunc(ctx, ws, cfg, claimName)
	}
	return naming.Pod(ws.Name), nil
}

func (m *MockProvisioner) EnsureNetworkEndpoint(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, cfg devworkspacev1alpha1.WorkspaceConfig) (string, error) {
	m.track("EnsureNetworkEndpoint")
	if m.EnsureNetworkEndpointFunc != nil {
		return m.EnsureNetworkEndpointFunc(ctx, ws, cfg)
	}
	return naming.Service(ws.Name), nil
}

func (m *MockProvisioner) DeleteComputeUnit(ctx context.Context, namespace, name string) error {
	m.track("DeleteComputeUnit:" + name)
	if m.DeleteComputeUnitFunc != nil {
		return m.DeleteComputeUnitFunc(ctx, namespace, name)
	}
	return nil
}

func (m *MockProvisioner) DeleteNetworkEndpoint(ctx context.Context, namespace, name string) error {
	m.track("DeleteNetworkEndpoint:" + name)
	if m.DeleteNetworkEndpointFunc != nil {
		return m.DeleteNetworkEndpointFunc(ctx, namespace, name)
	}
	return nil
}

func (m *MockProvisioner) DeleteStorageClaim(ctx context.Context, namespace, name string) error {
	m.track("DeleteStorageClaim:" + name)
	if m.DeleteStorageClaimFunc != nil {
		return m.DeleteStorageClaimFunc(ctx, namespace, name)
	}
	return nil
}

func (m *MockProvisioner) AwaitComputeUnitDeleted(ctx context.Context, namespace, name string) error {
	m.track("AwaitComputeUnitDeleted:" + name)
	if m.AwaitComputeUnitDeletedFunc != nil {
		return m.AwaitComputeUnitDeletedFunc(ctx, namespace, name)
	}
	return nil
}

// MockWaiter is a mock implementation of readinessWaiter.
type MockWaiter struct {
	mu    sync.Mutex
	Err   error
	Calls []string
}

func (m *MockWaiter) WaitRunning(_ context.Context, _, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, name)
	return m.Err
}

// MockResolver is a mock implementation of endpointResolver.
type MockResolver struct {
	mu    sync.Mutex
	URL   string
	Calls []string
}

func (m *MockResolver) ResolveURL(_ context.Context, _, name string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls = append(m.Calls, name)
	if m.URL == "" {
		return devworkspacev1alpha1.URLUnknown
	}
	return m.URL
}
