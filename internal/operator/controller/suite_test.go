//go:build integration

// Package controller contains integration tests using envtest.
//
// Envtest runs a real kube-apiserver and etcd but no kubelet, so workspace
// pods never leave Pending. The suite uses short readiness budgets to drive
// the retry path and checks the objects the controller writes.
//
// Run these tests with:
//
//	KUBEBUILDER_ASSETS="$(setup-envtest use -p path)" go test -v -tags=integration ./internal/operator/controller/...
package controller

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/rest"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/envtest"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	devworkspacev1alpha1 "github.com/kubesphere/devworkspace-operator/api/v1alpha1"
	"github.com/kubesphere/devworkspace-operator/internal/util/retry"
)

var (
	cfg       *rest.Config
	k8sClient client.Client
	testEnv   *envtest.Environment
	ctx       context.Context
	cancel    context.CancelFunc
)

// TestControllerIntegration is the entry point for Ginkgo tests.
func TestControllerIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Controller Integration Suite")
}

var _ = BeforeSuite(func() {
	logf.SetLogger(zap.New(zap.WriteTo(GinkgoWriter), zap.UseDevMode(true)))

	ctx, cancel = context.WithCancel(context.Background())

	By("bootstrapping test environment with real kube-apiserver and etcd")
	testEnv = &envtest.Environment{
		CRDDirectoryPaths:     []string{filepath.Join("..", "..", "..", "config", "crd", "bases")},
		ErrorIfCRDPathMissing: true,
	}

	var err error
	cfg, err = testEnv.Start()
	Expect(err).NotTo(HaveOccurred())
	Expect(cfg).NotTo(BeNil())

	k8sClient, err = client.New(cfg, client.Options{Scheme: devworkspacev1alpha1.Scheme})
	Expect(err).NotTo(HaveOccurred())

	k8sManager, err := ctrl.NewManager(cfg, ctrl.Options{
		Scheme:  devworkspacev1alpha1.Scheme,
		Metrics: metricsserver.Options{BindAddress: "0"},
	})
	Expect(err).NotTo(HaveOccurred())

	settings := DefaultSettings()
	settings.Readiness = retry.NewPolicy(3, 100*time.Millisecond)
	settings.Endpoint = retry.NewPolicy(3, 100*time.Millisecond)
	settings.Provisioning.DeletionWait = retry.NewPolicy(20, 250*time.Millisecond)
	// Keep retries out of the way of assertions
	settings.RetryDelay = time.Hour

	err = NewDevWorkspaceReconciler(
		k8sManager.GetClient(),
		k8sManager.GetScheme(),
		k8sManager.GetEventRecorderFor("devworkspace-controller"),
		WithSettings(settings),
		WithAPIReader(k8sManager.GetAPIReader()),
		WithMetrics(false),
	).SetupWithManager(k8sManager)
	Expect(err).NotTo(HaveOccurred())

	go func() {
		defer GinkgoRecover()
		err = k8sManager.Start(ctx)
		Expect(err).NotTo(HaveOccurred())
	}()

	By("waiting for manager cache to sync")
	Eventually(func() bool {
		return k8sManager.GetCache().WaitForCacheSync(ctx)
	}, time.Second*30, time.Millisecond*500).Should(BeTrue(), "timed out waiting for cache sync")
})

var _ = AfterSuite(func() {
	cancel()
	By("tearing down the test environment")
	err := testEnv.Stop()
	Expect(err).NotTo(HaveOccurred())
})

var _ = Describe("DevWorkspace Controller", func() {
	const (
		timeout   = time.Second * 30
		interval  = time.Millisecond * 250
		namespace = "default"
	)

	var (
		workspaceName string
		templateName  string
		seq           int
	)

	BeforeEach(func() {
		seq++
		workspaceName = fmt.Sprintf("ws-%d-%d", GinkgoRandomSeed()%10000, seq)
		templateName = fmt.Sprintf("tmpl-%d-%d", GinkgoRandomSeed()%10000, seq)

		tmpl := &devworkspacev1alpha1.DevWorkspaceTemplate{
			ObjectMeta: metav1.ObjectMeta{Name: templateName},
			Spec: devworkspacev1alpha1.WorkspaceConfig{
				Environment: devworkspacev1alpha1.EnvironmentSpec{Image: "codercom/code-server:4.20.0"},
				Storage:     devworkspacev1alpha1.StorageSpec{Size: "1Gi"},
				Ports:       []devworkspacev1alpha1.PortSpec{{Name: "http", ContainerPort: 8080}},
			},
		}
		Expect(k8sClient.Create(ctx, tmpl)).To(Succeed())
	})

	AfterEach(func() {
		ws := &devworkspacev1alpha1.DevWorkspace{}
		if err := k8sClient.Get(ctx, types.NamespacedName{Name: workspaceName, Namespace: namespace}, ws); err == nil {
			ws.Finalizers = nil
			_ = k8sClient.Update(ctx, ws)
			_ = k8sClient.Delete(ctx, ws)
		}
		_ = k8sClient.Delete(ctx, &devworkspacev1alpha1.DevWorkspaceTemplate{ObjectMeta: metav1.ObjectMeta{Name: templateName}})
	})

	createWorkspace := func(templateRef string) {
		ws := &devworkspacev1alpha1.DevWorkspace{
			ObjectMeta: metav1.ObjectMeta{Name: workspaceName, Namespace: namespace},
			Spec:       devworkspacev1alpha1.DevWorkspaceSpec{TemplateRef: templateRef},
		}
		Expect(k8sClient.Create(ctx, ws)).To(Succeed())
	}

	getStatus := func() devworkspacev1alpha1.DevWorkspaceStatus {
		ws := &devworkspacev1alpha1.DevWorkspace{}
		if err := k8sClient.Get(ctx, types.NamespacedName{Name: workspaceName, Namespace: namespace}, ws); err != nil {
			return devworkspacev1alpha1.DevWorkspaceStatus{}
		}
		return ws.Status
	}

	Context("Template resolution", func() {
		It("should fail a workspace whose template does not exist", func() {
			createWorkspace("does-not-exist")

			Eventually(func() devworkspacev1alpha1.WorkspacePhase {
				return getStatus().Phase
			}, timeout, interval).Should(Equal(devworkspacev1alpha1.PhaseFailed))
			Expect(getStatus().Message).To(ContainSubstring("does-not-exist"))
		})
	})

	Context("Workspace creation", func() {
		It("should create owned objects and schedule a retry while the pod is pending", func() {
			createWorkspace(templateName)

			By("waiting for the readiness budget to run out")
			Eventually(func() string {
				return getStatus().Message
			}, timeout, interval).Should(ContainSubstring("will retry"))

			status := getStatus()
			Expect(status.Phase).To(Equal(devworkspacev1alpha1.PhaseProvisioning))
			Expect(status.PVCName).To(Equal(workspaceName + "-pvc"))
			Expect(status.PodName).To(Equal(workspaceName))
			Expect(status.ServiceName).To(Equal(workspaceName))

			By("verifying the managed objects are owned by the workspace")
			pod := &corev1.Pod{}
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: workspaceName, Namespace: namespace}, pod)).To(Succeed())
			Expect(pod.OwnerReferences).To(HaveLen(1))
			Expect(pod.OwnerReferences[0].Name).To(Equal(workspaceName))

			svc := &corev1.Service{}
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: workspaceName, Namespace: namespace}, svc)).To(Succeed())
			Expect(svc.Spec.Ports).To(HaveLen(1))
			Expect(svc.Spec.Ports[0].Port).To(Equal(int32(8080)))

			pvc := &corev1.PersistentVolumeClaim{}
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: workspaceName + "-pvc", Namespace: namespace}, pvc)).To(Succeed())
		})
	})

	Context("Workspace deletion", func() {
		It("should remove managed objects and release the finalizer", func() {
			createWorkspace(templateName)

			Eventually(func() string {
				return getStatus().PodName
			}, timeout, interval).ShouldNot(BeEmpty())

			ws := &devworkspacev1alpha1.DevWorkspace{}
			Expect(k8sClient.Get(ctx, types.NamespacedName{Name: workspaceName, Namespace: namespace}, ws)).To(Succeed())
			Expect(ws.Finalizers).To(ContainElement(FinalizerName))
			Expect(k8sClient.Delete(ctx, ws)).To(Succeed())

			Eventually(func() bool {
				err := k8sClient.Get(ctx, types.NamespacedName{Name: workspaceName, Namespace: namespace}, &devworkspacev1alpha1.DevWorkspace{})
				return errors.IsNotFound(err)
			}, timeout, interval).Should(BeTrue())

			Eventually(func() bool {
				err := k8sClient.Get(ctx, types.NamespacedName{Name: workspaceName, Namespace: namespace}, &corev1.Service{})
				return errors.IsNotFound(err)
			}, timeout, interval).Should(BeTrue())
		})
	})
})
