package v1alpha1

import (
	corev1 "k8s.io/api/core/v1"
)

// WorkspaceConfig is the workload description shared by templates and the
// effective configuration computed for an instance.
type WorkspaceConfig struct {
	// Environment describes the container that serves the workspace
	// +optional
	Environment EnvironmentSpec `json:"environment,omitempty"`

	// Resources are the compute requests and limits of the workspace container
	// +optional
	Resources ResourceSpec `json:"resources,omitempty"`

	// Storage describes the persistent volume claim backing /workspace
	// +optional
	Storage StorageSpec `json:"storage,omitempty"`

	// Ports are published by the container and exposed by the service
	// +optional
	Ports []PortSpec `json:"ports,omitempty"`
}

// ConfigOverrides has the shape of WorkspaceConfig with every section optional.
// A nil section leaves the template section untouched.
type ConfigOverrides struct {
	// +optional
	Environment *EnvironmentSpec `json:"environment,omitempty"`

	// +optional
	Resources *ResourceSpec `json:"resources,omitempty"`

	// +optional
	Storage *StorageSpec `json:"storage,omitempty"`

	// +optional
	Ports []PortSpec `json:"ports,omitempty"`
}

// EnvironmentSpec describes the workspace container image and environment.
type EnvironmentSpec struct {
	// Image is the code-server container image (e.g., codercom/code-server:4.20.0)
	// +optional
	Image string `json:"image,omitempty"`

	// ImagePullPolicy overrides the cluster default pull policy
	// +kubebuilder:validation:Enum=Always;IfNotPresent;Never
	// +optional
	ImagePullPolicy corev1.PullPolicy `json:"imagePullPolicy,omitempty"`

	// Env is passed verbatim to the workspace container
	// +optional
	Env []corev1.EnvVar `json:"env,omitempty"`
}

// ResourceSpec holds requests and limits keyed by resource name.
type ResourceSpec struct {
	// +optional
	Requests corev1.ResourceList `json:"requests,omitempty"`

	// +optional
	Limits corev1.ResourceList `json:"limits,omitempty"`
}

// StorageSpec describes the workspace volume claim.
type StorageSpec struct {
	// Size is the requested capacity (default: 10Gi)
	// +optional
	Size string `json:"size,omitempty"`

	// StorageClassName selects the storage class; empty uses the cluster default
	// +optional
	StorageClassName string `json:"storageClassName,omitempty"`

	// AccessModes defaults to ReadWriteOnce
	// +optional
	AccessModes []corev1.PersistentVolumeAccessMode `json:"accessModes,omitempty"`
}

// PortSpec describes one port published by the workspace.
type PortSpec struct {
	// Name defaults to port-<containerPort>
	// +optional
	Name string `json:"name,omitempty"`

	// ContainerPort is used for both the container port and the service port
	// +kubebuilder:validation:Minimum=1
	// +kubebuilder:validation:Maximum=65535
	ContainerPort int32 `json:"containerPort"`

	// Protocol defaults to TCP
	// +kubebuilder:validation:Enum=TCP;UDP;SCTP
	// +optional
	Protocol corev1.Protocol `json:"protocol,omitempty"`
}
