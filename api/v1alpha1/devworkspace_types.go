package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// DevWorkspaceSpec defines the desired state of a workspace instance.
type DevWorkspaceSpec struct {
	// TemplateRef is the name of the cluster-scoped DevWorkspaceTemplate
	// +kubebuilder:validation:MinLength=1
	TemplateRef string `json:"templateRef"`

	// Overrides are merged on top of the template spec
	// +optional
	Overrides *ConfigOverrides `json:"overrides,omitempty"`
}

// DevWorkspaceStatus defines the observed state of DevWorkspace.
// It is the only durable memory of the operator.
type DevWorkspaceStatus struct {
	// Phase is the coarse lifecycle state
	// +kubebuilder:validation:Enum=Provisioning;Running;Failed
	// +optional
	Phase WorkspacePhase `json:"phase,omitempty"`

	// Message is a free-text diagnostic for the current phase
	// +optional
	Message string `json:"message,omitempty"`

	// PodName is the name of the workspace pod
	// +optional
	PodName string `json:"podName,omitempty"`

	// PVCName is the name of the workspace volume claim
	// +optional
	PVCName string `json:"pvcName,omitempty"`

	// ServiceName is the name of the service exposing the pod
	// +optional
	ServiceName string `json:"serviceName,omitempty"`

	// URL is the in-cluster address of the workspace, or Unknown
	// +optional
	URL string `json:"url,omitempty"`

	// ObservedGeneration is the last generation handled by the operator
	// +optional
	ObservedGeneration int64 `json:"observedGeneration,omitempty"`
}

// WorkspacePhase represents the lifecycle state of a workspace.
type WorkspacePhase string

const (
	// PhaseProvisioning means managed objects are being created or awaited
	PhaseProvisioning WorkspacePhase = "Provisioning"
	// PhaseRunning means the pod is running and the service is resolved
	PhaseRunning WorkspacePhase = "Running"
	// PhaseFailed means the workspace will not be provisioned until it is recreated
	PhaseFailed WorkspacePhase = "Failed"
)

// URLUnknown is recorded when the service address could not be resolved in time.
const URLUnknown = "Unknown"

// HasStatus reports whether the operator has recorded anything for this workspace.
func (s *DevWorkspaceStatus) HasStatus() bool {
	return s.Phase != "" || s.PodName != "" || s.PVCName != "" || s.ServiceName != ""
}

// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope=Namespaced,shortName=dws
// +kubebuilder:printcolumn:name="Phase",type=string,JSONPath=`.status.phase`
// +kubebuilder:printcolumn:name="Template",type=string,JSONPath=`.spec.templateRef`
// +kubebuilder:printcolumn:name="URL",type=string,JSONPath=`.status.url`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// DevWorkspace is the Schema for the devworkspaces API.
type DevWorkspace struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec   DevWorkspaceSpec   `json:"spec,omitempty"`
	Status DevWorkspaceStatus `json:"status,omitempty"`
}

// +kubebuilder:object:root=true

// DevWorkspaceList contains a list of DevWorkspace.
type DevWorkspaceList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []DevWorkspace `json:"items"`
}
