package labels

import (
	"k8s.io/apimachinery/pkg/labels"
)

const (
	// KeyApp carries the workload label shared by all workspaces
	KeyApp = "app"

	// KeyInstance carries the workspace name
	KeyInstance = "instance"

	// KeyManagedBy identifies the management system
	KeyManagedBy = "app.kubernetes.io/managed-by"
)

const (
	// DefaultWorkloadLabel is the value of the app label
	DefaultWorkloadLabel = "devworkspace"

	// ManagedByOperator is the value of the managed-by label
	ManagedByOperator = "devworkspace-operator"
)

// LabelBuilder builds label sets for a single workspace.
type LabelBuilder struct {
	workload string
	instance string
	extra    map[string]string
}

// NewLabelBuilder creates a builder for the given workload label and workspace.
// An empty workload falls back to DefaultWorkloadLabel.
func NewLabelBuilder(workload, instance string) *LabelBuilder {
	if workload == "" {
		workload = DefaultWorkloadLabel
	}
	return &LabelBuilder{
		workload: workload,
		instance: instance,
		extra:    map[string]string{KeyManagedBy: ManagedByOperator},
	}
}

// Merge adds extra labels. The selector pair cannot be overridden.
func (lb *LabelBuilder) Merge(extra map[string]string) *LabelBuilder {
	for k, v := range extra {
		lb.extra[k] = v
	}
	return lb
}

// Selector returns exactly the binding pair.
func (lb *LabelBuilder) Selector() map[string]string {
	return map[string]string{
		KeyApp:      lb.workload,
		KeyInstance: lb.instance,
	}
}

// Build returns the selector pair plus any extra labels.
func (lb *LabelBuilder) Build() map[string]string {
	result := make(map[string]string, len(lb.extra)+2)
	for k, v := range lb.extra {
		result[k] = v
	}
	for k, v := range lb.Selector() {
		result[k] = v
	}
	return result
}

// Matches reports whether set carries the binding pair.
func (lb *LabelBuilder) Matches(set map[string]string) bool {
	return labels.SelectorFromSet(lb.Selector()).Matches(labels.Set(set))
}
