package provisioning

import (
	"fmt"
	"time"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"k8s.io/utils/ptr"

	devworkspacev1alpha1 "github.com/kubesphere/devworkspace-operator/api/v1alpha1"
	"github.com/kubesphere/devworkspace-operator/internal/operator/failure"
	"github.com/kubesphere/devworkspace-operator/internal/util/labels"
	"github.com/kubesphere/devworkspace-operator/internal/util/naming"
	"github.com/kubesphere/devworkspace-operator/internal/util/retry"
)

const (
	// DefaultContainerName is the name of the code-server container
	DefaultContainerName = "vscode-server"
	// DefaultVolumeName is the pod volume bound to the workspace claim
	DefaultVolumeName = "workspace-storage"
	// DefaultMountPath is where the claim is mounted and code-server opens
	DefaultMountPath = "/workspace"
	// DefaultServerPort is the port code-server binds to
	DefaultServerPort int32 = 8080
	// DefaultStorageSize is used when neither template nor overrides set a size
	DefaultStorageSize = "10Gi"
	// DefaultServicePort is exposed when the configuration declares no ports
	DefaultServicePort int32 = 8080
	// DefaultServicePortName names the fallback service port
	DefaultServicePortName = "http"
)

// Options controls how workspace objects are shaped.
type Options struct {
	WorkloadLabel      string
	ContainerName      string
	VolumeName         string
	MountPath          string
	ServerPort         int32
	DefaultStorageSize string
	DefaultServicePort int32

	// DeletionWait bounds how long AwaitComputeUnitDeleted polls.
	DeletionWait retry.Policy
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		WorkloadLabel:      labels.DefaultWorkloadLabel,
		ContainerName:      DefaultContainerName,
		VolumeName:         DefaultVolumeName,
		MountPath:          DefaultMountPath,
		ServerPort:         DefaultServerPort,
		DefaultStorageSize: DefaultStorageSize,
		DefaultServicePort: DefaultServicePort,
		DeletionWait:       retry.NewPolicy(30, 2*time.Second),
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.WorkloadLabel == "" {
		o.WorkloadLabel = d.WorkloadLabel
	}
	if o.ContainerName == "" {
		o.ContainerName = d.ContainerName
	}
	if o.VolumeName == "" {
		o.VolumeName = d.VolumeName
	}
	if o.MountPath == "" {
		o.MountPath = d.MountPath
	}
	if o.ServerPort == 0 {
		o.ServerPort = d.ServerPort
	}
	if o.DefaultStorageSize == "" {
		o.DefaultStorageSize = d.DefaultStorageSize
	}
	if o.DefaultServicePort == 0 {
		o.DefaultServicePort = d.DefaultServicePort
	}
	if o.DeletionWait.MaxAttempts == 0 {
		o.DeletionWait = d.DeletionWait
	}
	return o
}

// BuildStorageClaim returns the volume claim for a workspace.
func BuildStorageClaim(ws *devworkspacev1alpha1.DevWorkspace, cfg devworkspacev1alpha1.WorkspaceConfig, opts Options) (*corev1.PersistentVolumeClaim, error) {
	opts = opts.withDefaults()

	size := cfg.Storage.Size
	if size == "" {
		size = opts.DefaultStorageSize
	}
	quantity, err := resource.ParseQuantity(size)
	if err != nil {
		return nil, failure.NewValidation("invalid storage size %q: %v", size, err)
	}

	accessModes := append([]corev1.PersistentVolumeAccessMode(nil), cfg.Storage.AccessModes...)
	if len(accessModes) == 0 {
		accessModes = []corev1.PersistentVolumeAccessMode{corev1.ReadWriteOnce}
	}

	pvc := &corev1.PersistentVolumeClaim{
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.StorageClaim(ws.Name),
			Namespace: ws.Namespace,
			Labels:    labels.NewLabelBuilder(opts.WorkloadLabel, ws.Name).Build(),
		},
		Spec: corev1.PersistentVolumeClaimSpec{
			AccessModes: accessModes,
			Resources: corev1.VolumeResourceRequirements{
				Requests: corev1.ResourceList{corev1.ResourceStorage: quantity},
			},
		},
	}
	if cfg.Storage.StorageClassName != "" {
		pvc.Spec.StorageClassName = ptr.To(cfg.Storage.StorageClassName)
	}
	return pvc, nil
}

// BuildPod returns the code-server pod for a workspace, mounting claimName.
func BuildPod(ws *devworkspacev1alpha1.DevWorkspace, cfg devworkspacev1alpha1.WorkspaceConfig, claimName string, opts Options) *corev1.Pod {
	opts = opts.withDefaults()

	var env []corev1.EnvVar
	for i := range cfg.Environment.Env {
		env = append(env, *cfg.Environment.Env[i].DeepCopy())
	}

	container := corev1.Container{
		Name:            opts.ContainerName,
		Image:           cfg.Environment.Image,
		ImagePullPolicy: cfg.Environment.ImagePullPolicy,
		Command:         serverCommand(opts),
		Env:             env,
		Ports:           containerPorts(cfg.Ports),
		Resources: corev1.ResourceRequirements{
			Requests: cfg.Resources.Requests.DeepCopy(),
			Limits:   cfg.Resources.Limits.DeepCopy(),
		},
		VolumeMounts: []corev1.VolumeMount{{
			Name:      opts.VolumeName,
			MountPath: opts.MountPath,
		}},
	}

	return &corev1.Pod{
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.Pod(ws.Name),
			Namespace: ws.Namespace,
			Labels:    labels.NewLabelBuilder(opts.WorkloadLabel, ws.Name).Build(),
		},
		Spec: corev1.PodSpec{
			Containers: []corev1.Container{container},
			Volumes: []corev1.Volume{{
				Name: opts.VolumeName,
				VolumeSource: corev1.VolumeSource{
					PersistentVolumeClaim: &corev1.PersistentVolumeClaimVolumeSource{
						ClaimName: claimName,
					},
				},
			}},
		},
	}
}

// BuildService returns the ClusterIP service selecting the workspace pod.
func BuildService(ws *devworkspacev1alpha1.DevWorkspace, cfg devworkspacev1alpha1.WorkspaceConfig, opts Options) *corev1.Service {
	opts = opts.withDefaults()
	lb := labels.NewLabelBuilder(opts.WorkloadLabel, ws.Name)

	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      naming.Service(ws.Name),
			Namespace: ws.Namespace,
			Labels:    lb.Build(),
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: lb.Selector(),
			Ports:    servicePorts(cfg.Ports, opts.DefaultServicePort),
		},
	}
}

func serverCommand(opts Options) []string {
	return []string{
		"code-server",
		"--bind-addr", fmt.Sprintf("0.0.0.0:%d", opts.ServerPort),
		"--auth", "none",
		opts.MountPath,
	}
}

func portName(p devworkspacev1alpha1.PortSpec) string {
	if p.Name != "" {
		return p.Name
	}
	return naming.PortName(p.ContainerPort)
}

func portProtocol(p devworkspacev1alpha1.PortSpec) corev1.Protocol {
	if p.Protocol != "" {
		return p.Protocol
	}
	return corev1.ProtocolTCP
}

func containerPorts(ports []devworkspacev1alpha1.PortSpec) []corev1.ContainerPort {
	if len(ports) == 0 {
		return nil
	}
	result := make([]corev1.ContainerPort, 0, len(ports))
	for _, p := range ports {
		result = append(result, corev1.ContainerPort{
			Name:          portName(p),
			ContainerPort: p.ContainerPort,
			Protocol:      portProtocol(p),
		})
	}
	return result
}

// servicePorts maps every container port to the same service port number.
func servicePorts(ports []devworkspacev1alpha1.PortSpec, fallback int32) []corev1.ServicePort {
	if len(ports) == 0 {
		return []corev1.ServicePort{{
			Name:       DefaultServicePortName,
			Port:       fallback,
			TargetPort: intstr.FromInt32(fallback),
			Protocol:   corev1.ProtocolTCP,
		}}
	}
	result := make([]corev1.ServicePort, 0, len(ports))
	for _, p := range ports {
		result = append(result, corev1.ServicePort{
			Name:       portName(p),
			Port:       p.ContainerPort,
			TargetPort: intstr.FromInt32(p.ContainerPort),
			Protocol:   portProtocol(p),
		})
	}
	return result
}
