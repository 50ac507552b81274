package merge

import (
	"k8s.io/apimachinery/pkg/api/resource"

	devworkspacev1alpha1 "github.com/kubesphere/devworkspace-operator/api/v1alpha1"
	"github.com/kubesphere/devworkspace-operator/internal/operator/failure"
	"github.com/kubesphere/devworkspace-operator/internal/util/naming"
)

// Validate checks that an effective configuration can be provisioned. All
// returned errors are of kind failure.Validation.
func Validate(cfg devworkspacev1alpha1.WorkspaceConfig) error {
	if cfg.Environment.Image == "" {
		return failure.NewValidation("no image specified in template or overrides")
	}

	if cfg.Storage.Size != "" {
		if _, err := resource.ParseQuantity(cfg.Storage.Size); err != nil {
			return failure.NewValidation("invalid storage size %q: %v", cfg.Storage.Size, err)
		}
	}

	names := make(map[string]bool, len(cfg.Ports))
	numbers := make(map[int32]bool, len(cfg.Ports))
	for _, port := range cfg.Ports {
		if port.ContainerPort < 1 || port.ContainerPort > 65535 {
			return failure.NewValidation("invalid container port %d", port.ContainerPort)
		}
		if numbers[port.ContainerPort] {
			return failure.NewValidation("duplicate container port %d", port.ContainerPort)
		}
		numbers[port.ContainerPort] = true

		name := port.Name
		if name == "" {
			name = naming.PortName(port.ContainerPort)
		}
		if names[name] {
			return failure.NewValidation("duplicate port name %q", name)
		}
		names[name] = true
	}

	return nil
}
