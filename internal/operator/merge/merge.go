// Package merge computes the effective configuration of a workspace from its
// template and the instance overrides, and validates the result.
//
// Only resources.requests, resources.limits and storage are merged key by key.
// Every other override section replaces the template section wholesale. Merge
// never fails; Validate is called separately before anything is created.
package merge

import (
	"dario.cat/mergo"
	corev1 "k8s.io/api/core/v1"
	logf "sigs.k8s.io/controller-runtime/pkg/log"

	devworkspacev1alpha1 "github.com/kubesphere/devworkspace-operator/api/v1alpha1"
)

var logger = logf.Log.WithName("merge")

// mergeStorage merges the non-empty fields of src into dst (for testing injection).
var mergeStorage = func(dst *devworkspacev1alpha1.StorageSpec, src devworkspacev1alpha1.StorageSpec) error {
	return mergo.Merge(dst, src, mergo.WithOverride)
}

// Merge returns base with overrides applied. Neither input is modified and a
// nil overrides yields a copy of base.
func Merge(base devworkspacev1alpha1.WorkspaceConfig, overrides *devworkspacev1alpha1.ConfigOverrides) devworkspacev1alpha1.WorkspaceConfig {
	result := *base.DeepCopy()
	if overrides == nil {
		return result
	}

	if overrides.Environment != nil {
		result.Environment = *overrides.Environment.DeepCopy()
	}

	if overrides.Resources != nil {
		result.Resources.Requests = mergeResourceList(result.Resources.Requests, overrides.Resources.Requests)
		result.Resources.Limits = mergeResourceList(result.Resources.Limits, overrides.Resources.Limits)
	}

	if overrides.Storage != nil {
		storage := *result.Storage.DeepCopy()
		if err := mergeStorage(&storage, *overrides.Storage.DeepCopy()); err != nil {
			logger.Error(err, "failed to merge storage overrides, using them as is")
			storage = *overrides.Storage.DeepCopy()
		}
		result.Storage = storage
	}

	if overrides.Ports != nil {
		result.Ports = append([]devworkspacev1alpha1.PortSpec(nil), overrides.Ports...)
	}

	return result
}

func mergeResourceList(base, override corev1.ResourceList) corev1.ResourceList {
	if len(override) == 0 {
		return base
	}
	out := make(corev1.ResourceList, len(base)+len(override))
	for name, qty := range base {
		out[name] = qty.DeepCopy()
	}
	for name, qty := range override {
		out[name] = qty.DeepCopy()
	}
	return out
}
