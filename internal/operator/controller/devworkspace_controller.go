package controller

import (
	"context"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/tools/record"
	"k8s.io/utils/clock"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/builder"
	"sigs.k8s.io/controller-runtime/pkg/client"
	ctrlcontroller "sigs.k8s.io/controller-runtime/pkg/controller"
	"sigs.k8s.io/controller-runtime/pkg/controller/controllerutil"
	"sigs.k8s.io/controller-runtime/pkg/event"
	"sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/predicate"

	devworkspacev1alpha1 "github.com/kubesphere/devworkspace-operator/api/v1alpha1"
	"github.com/kubesphere/devworkspace-operator/internal/operator/failure"
	"github.com/kubesphere/devworkspace-operator/internal/operator/provisioning"
	"github.com/kubesphere/devworkspace-operator/internal/operator/readiness"
)

// DevWorkspaceReconciler reconciles a DevWorkspace object.
type DevWorkspaceReconciler struct {
	client.Client
	Scheme   *runtime.Scheme
	Recorder record.EventRecorder

	// apiReader bypasses the cache for polling pods and services
	apiReader client.Reader

	provisioner workspaceProvisioner
	waiter      readinessWaiter
	resolver    endpointResolver

	settings      Settings
	clock         clock.Clock
	enableMetrics bool
}

// Option configures a DevWorkspaceReconciler.
type Option func(*DevWorkspaceReconciler)

// WithSettings replaces the default settings.
func WithSettings(s Settings) Option {
	return func(r *DevWorkspaceReconciler) {
		r.settings = s
	}
}

// WithAPIReader sets the uncached reader used for readiness polling.
func WithAPIReader(reader client.Reader) Option {
	return func(r *DevWorkspaceReconciler) {
		r.apiReader = reader
	}
}

// WithProvisioner sets a custom provisioner (useful for testing).
func WithProvisioner(p workspaceProvisioner) Option {
	return func(r *DevWorkspaceReconciler) {
		r.provisioner = p
	}
}

// WithReadinessWaiter sets a custom readiness waiter (useful for testing).
func WithReadinessWaiter(w readinessWaiter) Option {
	return func(r *DevWorkspaceReconciler) {
		r.waiter = w
	}
}

// WithEndpointResolver sets a custom URL resolver (useful for testing).
func WithEndpointResolver(res endpointResolver) Option {
	return func(r *DevWorkspaceReconciler) {
		r.resolver = res
	}
}

// WithMetrics enables or disables Prometheus metrics.
func WithMetrics(enabled bool) Option {
	return func(r *DevWorkspaceReconciler) {
		r.enableMetrics = enabled
	}
}

// WithClock sets the clock used for polling and durations.
func WithClock(c clock.Clock) Option {
	return func(r *DevWorkspaceReconciler) {
		r.clock = c
	}
}

// NewDevWorkspaceReconciler creates a new DevWorkspaceReconciler. Collaborators
// that were not injected are built from the client and the settings.
func NewDevWorkspaceReconciler(c client.Client, scheme *runtime.Scheme, recorder record.EventRecorder, opts ...Option) *DevWorkspaceReconciler {
	r := &DevWorkspaceReconciler{
		Client:        c,
		Scheme:        scheme,
		Recorder:      recorder,
		settings:      DefaultSettings(),
		clock:         clock.RealClock{},
		enableMetrics: true,
	}

	for _, opt := range opts {
		opt(r)
	}

	if r.apiReader == nil {
		r.apiReader = c
	}
	if r.provisioner == nil {
		popts := r.settings.Provisioning
		popts.DeletionWait = popts.DeletionWait.WithClock(r.clock)
		r.provisioner = provisioning.NewProvisioner(c, scheme, popts).WithReader(r.apiReader)
	}
	if r.waiter == nil {
		r.waiter = readiness.NewWaiter(r.apiReader, r.settings.Readiness.WithClock(r.clock))
	}
	if r.resolver == nil {
		r.resolver = readiness.NewResolver(r.apiReader, r.settings.Endpoint.WithClock(r.clock))
	}

	return r
}

// +kubebuilder:rbac:groups=devworkspace.kubesphere.io,resources=devworkspaces,verbs=get;list;watch;update;patch
// +kubebuilder:rbac:groups=devworkspace.kubesphere.io,resources=devworkspaces/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=devworkspace.kubesphere.io,resources=devworkspaces/finalizers,verbs=update
// +kubebuilder:rbac:groups=devworkspace.kubesphere.io,resources=devworkspacetemplates,verbs=get;list;watch
// +kubebuilder:rbac:groups="",resources=pods,verbs=get;list;watch;create;delete
// +kubebuilder:rbac:groups="",resources=services,verbs=get;list;watch;create;delete
// +kubebuilder:rbac:groups="",resources=persistentvolumeclaims,verbs=get;list;watch;create;delete
// +kubebuilder:rbac:groups="",resources=events,verbs=create;patch
// +kubebuilder:rbac:groups=coordination.k8s.io,resources=leases,verbs=get;create;update

// Reconcile handles the reconciliation loop for DevWorkspace resources.
func (r *DevWorkspaceReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	logger := log.FromContext(ctx)
	start := r.clock.Now()

	ws := &devworkspacev1alpha1.DevWorkspace{}
	if err := r.Get(ctx, req.NamespacedName, ws); err != nil {
		if apierrors.IsNotFound(err) {
			// Object deleted, nothing to do
			return ctrl.Result{}, nil
		}
		logger.Error(err, "unable to fetch DevWorkspace")
		return ctrl.Result{}, err
	}

	evt := deriveEvent(ctx, ws)
	logger = logger.WithValues("event", string(evt.kind))
	ctx = log.IntoContext(ctx, logger)

	result, err := r.dispatch(ctx, ws, evt)

	r.recordReconcile(string(evt.kind), resultLabel(result, err), r.clock.Since(start).Seconds())
	return result, err
}

func (r *DevWorkspaceReconciler) dispatch(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, evt workspaceEvent) (ctrl.Result, error) {
	if evt.kind == eventDelete {
		if !controllerutil.ContainsFinalizer(ws, FinalizerName) {
			return ctrl.Result{}, nil
		}
		r.handleDelete(ctx, ws)
		return ctrl.Result{}, r.removeFinalizer(ctx, ws)
	}

	if err := r.ensureFinalizer(ctx, ws); err != nil {
		return ctrl.Result{}, err
	}

	switch evt.kind {
	case eventCreate:
		return r.finishHandled(ctx, ws, r.handleCreate(ctx, ws))
	case eventUpdate:
		pending, err := r.handleUpdate(ctx, ws, evt.changes)
		if pending {
			// The last handled spec stays as is so the next pass sees the same update.
			return r.requeueFor(err)
		}
		return r.finishHandled(ctx, ws, err)
	case eventResume:
		return r.requeueFor(r.handleResume(ctx, ws))
	case eventRefreshURL:
		return r.refreshURL(ctx, ws), nil
	}

	log.FromContext(ctx).V(1).Info("nothing to do")
	return ctrl.Result{}, nil
}

// finishHandled records the handled spec and maps the handler outcome to a result.
func (r *DevWorkspaceReconciler) finishHandled(ctx context.Context, ws *devworkspacev1alpha1.DevWorkspace, handlerErr error) (ctrl.Result, error) {
	if err := r.recordHandledSpec(ctx, ws); err != nil {
		log.FromContext(ctx).Error(err, "failed to record handled spec")
		return ctrl.Result{}, err
	}
	return r.requeueFor(handlerErr)
}

func (r *DevWorkspaceReconciler) requeueFor(err error) (ctrl.Result, error) {
	switch {
	case err == nil:
		return ctrl.Result{}, nil
	case failure.IsRetryable(err):
		return ctrl.Result{RequeueAfter: r.settings.RetryDelay}, nil
	default:
		return ctrl.Result{}, err
	}
}

func resultLabel(result ctrl.Result, err error) string {
	switch {
	case err != nil:
		return "error"
	case result.RequeueAfter > 0:
		return "requeue"
	default:
		return "success"
	}
}

// deletionRequested passes updates that set a deletion timestamp, which do not
// always bump the generation.
var deletionRequested = predicate.Funcs{
	UpdateFunc: func(e event.UpdateEvent) bool {
		return !e.ObjectNew.GetDeletionTimestamp().IsZero()
	},
}

// SetupWithManager sets up the controller with the Manager. Status and
// annotation writes do not retrigger reconciliation.
func (r *DevWorkspaceReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&devworkspacev1alpha1.DevWorkspace{}, builder.WithPredicates(
			predicate.Or[client.Object](predicate.GenerationChangedPredicate{}, deletionRequested),
		)).
		WithOptions(ctrlcontroller.Options{MaxConcurrentReconciles: r.settings.MaxConcurrentReconciles}).
		Named("devworkspace").
		Complete(r)
}
