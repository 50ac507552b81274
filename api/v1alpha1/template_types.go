package v1alpha1

import (
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// +kubebuilder:object:root=true
// +kubebuilder:resource:scope=Cluster,shortName=dwt
// +kubebuilder:printcolumn:name="Image",type=string,JSONPath=`.spec.environment.image`
// +kubebuilder:printcolumn:name="Storage",type=string,JSONPath=`.spec.storage.size`
// +kubebuilder:printcolumn:name="Age",type=date,JSONPath=`.metadata.creationTimestamp`

// DevWorkspaceTemplate is a reusable, cluster-scoped base configuration
// referenced by DevWorkspace instances.
type DevWorkspaceTemplate struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec WorkspaceConfig `json:"spec,omitempty"`
}

// +kubebuilder:object:root=true

// DevWorkspaceTemplateList contains a list of DevWorkspaceTemplate.
type DevWorkspaceTemplateList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []DevWorkspaceTemplate `json:"items"`
}
