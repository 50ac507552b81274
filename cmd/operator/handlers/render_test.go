package handlers

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"
	"sigs.k8s.io/yaml"

	devworkspacev1alpha1 "github.com/kubesphere/devworkspace-operator/api/v1alpha1"
)

const templateManifest = `apiVersion: devworkspace.kubesphere.io/v1alpha1
kind: DevWorkspaceTemplate
metadata:
  name: python-dev
spec:
  environment:
    image: codercom/code-server:4.20.0
  resources:
    requests:
      cpu: 500m
      memory: 1Gi
  storage:
    size: 10Gi
  ports:
  - name: http
    containerPort: 8080
`

const workspaceManifest = `apiVersion: devworkspace.kubesphere.io/v1alpha1
kind: DevWorkspace
metadata:
  name: alice
  namespace: dev
spec:
  templateRef: python-dev
  overrides:
    resources:
      requests:
        memory: 4Gi
    storage:
      size: 50Gi
`

func writeManifests(t *testing.T, template, workspace string) (string, string) {
	t.Helper()
	dir := t.TempDir()
	tmplPath := filepath.Join(dir, "template.yaml")
	wsPath := filepath.Join(dir, "workspace.yaml")
	require.NoError(t, os.WriteFile(tmplPath, []byte(template), 0o600))
	require.NoError(t, os.WriteFile(wsPath, []byte(workspace), 0o600))
	return tmplPath, wsPath
}

func TestRender_EffectiveConfig(t *testing.T) {
	tmplPath, wsPath := writeManifests(t, templateManifest, workspaceManifest)

	var out bytes.Buffer
	require.NoError(t, Render(&out, tmplPath, wsPath, false))

	var cfg devworkspacev1alpha1.WorkspaceConfig
	require.NoError(t, yaml.Unmarshal(out.Bytes(), &cfg))

	assert.Equal(t, "codercom/code-server:4.20.0", cfg.Environment.Image)
	assert.Equal(t, "50Gi", cfg.Storage.Size)
	cpu := cfg.Resources.Requests[corev1.ResourceCPU]
	mem := cfg.Resources.Requests[corev1.ResourceMemory]
	assert.Equal(t, "500m", cpu.String())
	assert.Equal(t, "4Gi", mem.String())
	require.Len(t, cfg.Ports, 1)
	assert.Equal(t, int32(8080), cfg.Ports[0].ContainerPort)
}

func TestRender_Objects(t *testing.T) {
	tmplPath, wsPath := writeManifests(t, templateManifest, workspaceManifest)

	var out bytes.Buffer
	require.NoError(t, Render(&out, tmplPath, wsPath, true))

	docs := strings.Split(out.String(), "---\n")
	require.Len(t, docs, 3)

	var pvc corev1.PersistentVolumeClaim
	require.NoError(t, yaml.Unmarshal([]byte(docs[0]), &pvc))
	assert.Equal(t, "PersistentVolumeClaim", pvc.Kind)
	assert.Equal(t, "alice-pvc", pvc.Name)
	assert.Equal(t, "dev", pvc.Namespace)
	storage := pvc.Spec.Resources.Requests[corev1.ResourceStorage]
	assert.Equal(t, "50Gi", storage.String())

	var pod corev1.Pod
	require.NoError(t, yaml.Unmarshal([]byte(docs[1]), &pod))
	assert.Equal(t, "Pod", pod.Kind)
	assert.Equal(t, "alice", pod.Name)
	require.Len(t, pod.Spec.Volumes, 1)
	assert.Equal(t, "alice-pvc", pod.Spec.Volumes[0].PersistentVolumeClaim.ClaimName)

	var svc corev1.Service
	require.NoError(t, yaml.Unmarshal([]byte(docs[2]), &svc))
	assert.Equal(t, "Service", svc.Kind)
	require.Len(t, svc.Spec.Ports, 1)
	assert.Equal(t, int32(8080), svc.Spec.Ports[0].Port)
}

func TestRender_Errors(t *testing.T) {
	tests := []struct {
		name      string
		template  string
		workspace string
		wantErr   string
	}{
		{
			name:      "template mismatch",
			template:  templateManifest,
			workspace: strings.Replace(workspaceManifest, "templateRef: python-dev", "templateRef: go-dev", 1),
			wantErr:   `references template "go-dev"`,
		},
		{
			name:      "missing image",
			template:  strings.Replace(templateManifest, "image: codercom/code-server:4.20.0", "imagePullPolicy: Always", 1),
			workspace: workspaceManifest,
			wantErr:   "no image specified",
		},
		{
			name:      "unknown field",
			template:  templateManifest + "  gpu: true\n",
			workspace: workspaceManifest,
			wantErr:   "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tmplPath, wsPath := writeManifests(t, tt.template, tt.workspace)

			err := Render(&bytes.Buffer{}, tmplPath, wsPath, false)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestRender_MissingFile(t *testing.T) {
	err := Render(&bytes.Buffer{}, filepath.Join(t.TempDir(), "absent.yaml"), "workspace.yaml", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to read")
}
