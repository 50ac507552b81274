package handlers

import (
	"fmt"
	"io"
	"os"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/yaml"

	devworkspacev1alpha1 "github.com/kubesphere/devworkspace-operator/api/v1alpha1"
	"github.com/kubesphere/devworkspace-operator/internal/operator/merge"
	"github.com/kubesphere/devworkspace-operator/internal/operator/provisioning"
	"github.com/kubesphere/devworkspace-operator/internal/util/naming"
)

// readFile reads a manifest (for testing injection).
var readFile = os.ReadFile

// Render merges the workspace overrides into the template and writes the
// effective configuration to out. With objects set, the managed objects the
// operator would create are written instead.
func Render(out io.Writer, templatePath, workspacePath string, objects bool) error {
	tmpl := &devworkspacev1alpha1.DevWorkspaceTemplate{}
	if err := loadManifest(templatePath, tmpl); err != nil {
		return err
	}
	ws := &devworkspacev1alpha1.DevWorkspace{}
	if err := loadManifest(workspacePath, ws); err != nil {
		return err
	}

	if ws.Spec.TemplateRef != "" && ws.Spec.TemplateRef != tmpl.Name {
		return fmt.Errorf("workspace %s references template %q, got %q", ws.Name, ws.Spec.TemplateRef, tmpl.Name)
	}
	if ws.Namespace == "" {
		ws.Namespace = metav1.NamespaceDefault
	}

	cfg := merge.Merge(tmpl.Spec, ws.Spec.Overrides)
	if err := merge.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration for workspace %s: %w", ws.Name, err)
	}

	if !objects {
		return writeYAML(out, cfg)
	}
	return renderObjects(out, ws, cfg)
}

func renderObjects(out io.Writer, ws *devworkspacev1alpha1.DevWorkspace, cfg devworkspacev1alpha1.WorkspaceConfig) error {
	opts := provisioning.DefaultOptions()

	pvc, err := provisioning.BuildStorageClaim(ws, cfg, opts)
	if err != nil {
		return err
	}
	pvc.TypeMeta = metav1.TypeMeta{APIVersion: "v1", Kind: "PersistentVolumeClaim"}

	pod := provisioning.BuildPod(ws, cfg, naming.StorageClaim(ws.Name), opts)
	pod.TypeMeta = metav1.TypeMeta{APIVersion: "v1", Kind: "Pod"}

	svc := provisioning.BuildService(ws, cfg, opts)
	svc.TypeMeta = metav1.TypeMeta{APIVersion: "v1", Kind: "Service"}

	for i, obj := range []any{pvc, pod, svc} {
		if i > 0 {
			if _, err := io.WriteString(out, "---\n"); err != nil {
				return err
			}
		}
		if err := writeYAML(out, obj); err != nil {
			return err
		}
	}
	return nil
}

// loadManifest decodes a YAML manifest into obj using its JSON field names.
func loadManifest(path string, obj any) error {
	data, err := readFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.UnmarshalStrict(data, obj); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func writeYAML(out io.Writer, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal: %w", err)
	}
	_, err = out.Write(data)
	return err
}
