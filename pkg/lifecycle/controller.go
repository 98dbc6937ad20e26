// Package lifecycle is the Lifecycle Controller (§4.6): it reconciles
// a declared set of ModelGroups against what exists in the cluster —
// delete anything live but no longer declared, then for each declared
// group stage artifacts, resolve the launch plan, and build and apply
// the object graph.
package lifecycle

import (
	"context"

	"github.com/hashicorp/go-multierror"
	kedav1alpha1 "github.com/kedacore/keda/v2/apis/keda/v1alpha1"
	"github.com/pkg/errors"
	monitoringv1 "github.com/prometheus-operator/prometheus-operator/pkg/apis/monitoring/v1"
	istiov1beta1 "istio.io/client-go/pkg/apis/networking/v1beta1"
	appsv1 "k8s.io/api/apps/v1"
	autoscalingv2 "k8s.io/api/autoscaling/v2"
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
	schedulingv1 "k8s.io/api/scheduling/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/modelfleet/fleetctl/pkg/config"
	"github.com/modelfleet/fleetctl/pkg/fleeterr"
	"github.com/modelfleet/fleetctl/pkg/instancecatalog"
	"github.com/modelfleet/fleetctl/pkg/k8sapply"
	"github.com/modelfleet/fleetctl/pkg/k8sutil"
	"github.com/modelfleet/fleetctl/pkg/logging"
	"github.com/modelfleet/fleetctl/pkg/modelstager"
	"github.com/modelfleet/fleetctl/pkg/runtimeplanner"
	"github.com/modelfleet/fleetctl/pkg/workload"
)

// Store is the modelstore surface both the stager and the runtime
// planner depend on.
type Store interface {
	modelstager.Store
	runtimeplanner.Store
}

// Controller reconciles a configuration document's declared model
// groups against the cluster.
type Controller struct {
	client         client.Client
	store          Store
	stager         *modelstager.Stager
	namespace      string
	bucket         string
	prometheusOn   bool
	serviceAccount string
	logger         logging.Interface
}

// New builds a Controller.
func New(c client.Client, store Store, stager *modelstager.Stager, namespace, bucket, serviceAccount string, prometheusOn bool, logger logging.Interface) *Controller {
	return &Controller{
		client:         c,
		store:          store,
		stager:         stager,
		namespace:      namespace,
		bucket:         bucket,
		serviceAccount: serviceAccount,
		prometheusOn:   prometheusOn,
		logger:         logger,
	}
}

// Reconcile applies doc's declared groups and deletes orphans. Orphan
// deletion runs before apply (§5's ordering invariant): a name reused
// across reconciles with a different shape must see the old instance
// gone before the new one is created, to avoid label-selector
// collisions across Deployments.
func (c *Controller) Reconcile(ctx context.Context, doc *config.Document) error {
	declared := declaredNames(doc.AWS)

	if err := c.deleteOrphans(ctx, declared); err != nil {
		c.logger.Warnf("orphan cleanup encountered errors: %v", err)
	}

	var result *multierror.Error
	for _, g := range doc.AWS.ModelGroups {
		if err := c.reconcileModelGroup(ctx, g); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "group %s", g.Name))
		}
	}
	for _, g := range doc.AWS.MixedModelGroups {
		if err := c.reconcileMixedModelGroup(ctx, g); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "group %s", g.Name))
		}
	}
	return result.ErrorOrNil()
}

func declaredNames(aws *config.AWSConfig) map[string]bool {
	names := make(map[string]bool, len(aws.ModelGroups)+len(aws.MixedModelGroups))
	for _, g := range aws.ModelGroups {
		names[k8sutil.KubifyName(g.Name)] = true
	}
	for _, g := range aws.MixedModelGroups {
		names[k8sutil.KubifyName(g.Name)] = true
	}
	return names
}

func (c *Controller) reconcileModelGroup(ctx context.Context, g config.ModelGroup) error {
	log := c.logger.WithGroup(g.Name)
	log.Debug("reconciling model group")

	if g.Model != nil {
		if _, err := c.stager.Stage(ctx, g.Name, g.Model); err != nil {
			return err
		}
	}

	entry, ok := instancecatalog.Lookup(g.NodeType)
	if !ok {
		return fleeterr.New(fleeterr.ConfigInvalid, "lifecycle.reconcileModelGroup", instancecatalog.Err(g.NodeType)).WithGroup(g.Name).WithField("nodeType")
	}
	_, _, gpuCount := entry.Available()
	spec := runtimeplanner.FromModelGroup(g, gpuCount)

	plan, err := runtimeplanner.NewPlanner(runtimeplanner.Classify(g.Runtime.Image)).Plan(ctx, spec, workload.DefaultContainerPort(), c.store)
	if err != nil {
		return err
	}

	resources := resolveResources(entry, g.ResourceRequest, g.GPU != nil && g.GPU.Enabled)
	pod := workload.BuildPodTemplate(workload.PodParams{
		GroupName:          g.Name,
		Namespace:          c.namespace,
		Image:              g.Runtime.Image,
		Plan:               plan,
		Resources:          resources,
		UseModelStore:      g.Model != nil && g.Model.UseModelStore,
		Bucket:             c.bucket,
		ServiceAccountName: c.serviceAccount,
	})

	dep := workload.BuildDeployment(g.Name, c.namespace, g.Name, int32(g.MinInstances), pod, "")
	if err := k8sapply.Apply(ctx, c.client, k8sapply.WrapDeployment(dep)); err != nil {
		return err
	}

	if err := k8sapply.Apply(ctx, c.client, k8sapply.WrapService(workload.BuildService(g.Name, c.namespace))); err != nil {
		return err
	}

	if err := c.applyAutoscaler(ctx, g.Name, dep.Name, int32(g.MinInstances), int32(g.MaxInstances), g.AutoScaleTriggers); err != nil {
		return err
	}

	if c.prometheusOn {
		if err := k8sapply.Apply(ctx, c.client, k8sapply.WrapServiceMonitor(workload.BuildServiceMonitor(g.Name, c.namespace))); err != nil {
			return err
		}
	}

	if g.IsPublic {
		if err := k8sapply.Apply(ctx, c.client, k8sapply.WrapVirtualService(workload.BuildVirtualService(g.Name, c.namespace))); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) reconcileMixedModelGroup(ctx context.Context, g config.MixedModelGroup) error {
	log := c.logger.WithGroup(g.Name)
	log.Debug("reconciling mixed model group")

	if g.Model != nil {
		if _, err := c.stager.Stage(ctx, g.Name, g.Model); err != nil {
			return err
		}
	}

	entry, ok := instancecatalog.Lookup(g.NodeType)
	if !ok {
		return fleeterr.New(fleeterr.ConfigInvalid, "lifecycle.reconcileMixedModelGroup", instancecatalog.Err(g.NodeType)).WithGroup(g.Name).WithField("nodeType")
	}
	_, _, gpuCount := entry.Available()
	spec := runtimeplanner.FromMixedModelGroup(g, gpuCount)

	plan, err := runtimeplanner.NewPlanner(runtimeplanner.Classify(g.Runtime.Image)).Plan(ctx, spec, workload.DefaultContainerPort(), c.store)
	if err != nil {
		return err
	}

	resources := resolveResources(entry, g.ResourceRequest, g.GPU != nil && g.GPU.Enabled)
	useModelStore := g.Model != nil && g.Model.UseModelStore

	baselinePod := workload.BuildPodTemplate(workload.PodParams{
		GroupName: g.Name, Namespace: c.namespace, Image: g.Runtime.Image, Plan: plan,
		Resources: resources, UseModelStore: useModelStore, Bucket: c.bucket,
		ServiceAccountName: c.serviceAccount, Affinity: workload.OnDemandAffinity(),
	})
	autoScaledPod := workload.BuildPodTemplate(workload.PodParams{
		GroupName: g.Name, Namespace: c.namespace, Image: g.Runtime.Image, Plan: plan,
		Resources: resources, UseModelStore: useModelStore, Bucket: c.bucket,
		ServiceAccountName: c.serviceAccount, Affinity: workload.SpotAffinity(),
	})

	params := workload.MixedCapacityParams{
		GroupName:        g.Name,
		Namespace:        c.namespace,
		BaselinePod:      baselinePod,
		AutoScaledPod:    autoScaledPod,
		BaseInstances:    int32(g.BaseInstances),
		SpotMinInstances: int32(g.Spot.MinInstances),
	}

	pc := &schedulingv1.PriorityClass{
		ObjectMeta: metav1.ObjectMeta{Name: workload.FailSafePriorityClassName},
		Value:      workload.FailSafePriorityValue,
	}
	if err := c.client.Create(ctx, pc); err != nil && !apierrors.IsAlreadyExists(err) {
		return fleeterr.New(fleeterr.ApiUnavailable, "lifecycle.reconcileMixedModelGroup.PriorityClass", err).WithGroup(g.Name)
	}

	baseline := workload.BuildBaselineDeployment(params)
	if err := k8sapply.Apply(ctx, c.client, k8sapply.WrapDeployment(baseline)); err != nil {
		return err
	}

	elastic := workload.BuildAutoScaledDeployment(params)
	if err := k8sapply.Apply(ctx, c.client, k8sapply.WrapDeployment(elastic)); err != nil {
		return err
	}

	if err := k8sapply.Apply(ctx, c.client, k8sapply.WrapService(workload.BuildService(g.Name, c.namespace))); err != nil {
		return err
	}

	if err := k8sapply.Apply(ctx, c.client, k8sapply.WrapPDB(workload.BuildDisruptionBudget(g.Name, c.namespace))); err != nil {
		return err
	}

	maxReplicas := workload.MaxReplicaCount(g.MaxOnDemandInstances, g.Spot.MaxInstances)
	so := workload.BuildScaledObject(g.Name, c.namespace, elastic.Name, int32(g.Spot.MinInstances), maxReplicas, g.AutoScaleTriggers)
	if err := k8sapply.Apply(ctx, c.client, k8sapply.WrapScaledObject(so)); err != nil {
		return err
	}

	if c.prometheusOn {
		if err := k8sapply.Apply(ctx, c.client, k8sapply.WrapServiceMonitor(workload.BuildServiceMonitor(g.Name, c.namespace))); err != nil {
			return err
		}
	}

	if g.IsPublic {
		if err := k8sapply.Apply(ctx, c.client, k8sapply.WrapVirtualService(workload.BuildVirtualService(g.Name, c.namespace))); err != nil {
			return err
		}
	}
	return nil
}

func (c *Controller) applyAutoscaler(ctx context.Context, groupName, deploymentName string, min, max int32, triggers []config.AutoScaleTrigger) error {
	if len(triggers) == 0 {
		return k8sapply.Apply(ctx, c.client, k8sapply.WrapHPA(workload.BuildHPA(groupName, c.namespace, deploymentName, min, max)))
	}
	return k8sapply.Apply(ctx, c.client, k8sapply.WrapScaledObject(workload.BuildScaledObject(groupName, c.namespace, deploymentName, min, max, triggers)))
}

func resolveResources(entry instancecatalog.Entry, rr *config.ResourceRequest, gpuEnabled bool) workload.Resources {
	milliCPU, memBytes, catalogGPU := entry.Available()

	res := workload.Resources{MilliCPU: milliCPU, MemoryBytes: memBytes}
	if gpuEnabled {
		res.GPUCount = catalogGPU
	}
	if rr != nil {
		if q, err := resource.ParseQuantity(rr.CPU); err == nil {
			res.MilliCPU = q.MilliValue()
		}
		if q, err := resource.ParseQuantity(rr.Memory); err == nil {
			res.MemoryBytes = q.Value()
		}
		if rr.GPU > 0 {
			res.GPUCount = int64(rr.GPU)
		}
	}
	return res
}

// deleteOrphans lists every live Deployment carrying the model-group
// app label and deletes the ones whose kubified name is not in
// declared, along with their Service/HPA/ScaledObject/ServiceMonitor/
// VirtualService/PodDisruptionBudget siblings (§4.6).
func (c *Controller) deleteOrphans(ctx context.Context, declared map[string]bool) error {
	var deployments appsv1.DeploymentList
	selector := labels.SelectorFromSet(labels.Set{workload.LabelApp: workload.LabelAppValue})
	if err := c.client.List(ctx, &deployments, client.InNamespace(c.namespace), client.MatchingLabelsSelector{Selector: selector}); err != nil {
		return fleeterr.New(fleeterr.ApiUnavailable, "lifecycle.deleteOrphans.List", err)
	}

	var result *multierror.Error
	for i := range deployments.Items {
		dep := &deployments.Items[i]
		name := dep.Labels[workload.LabelModel]
		if declared[name] {
			continue
		}
		if err := c.deleteGroupObjects(ctx, name); err != nil {
			result = multierror.Append(result, errors.Wrapf(err, "orphan %s", name))
		}
	}
	return result.ErrorOrNil()
}

func (c *Controller) deleteGroupObjects(ctx context.Context, name string) error {
	var result *multierror.Error

	deleteOne := func(obj client.Object) {
		if err := k8sapply.Delete(ctx, c.client, obj); err != nil {
			result = multierror.Append(result, err)
		}
	}

	deleteOne(&appsv1.Deployment{ObjectMeta: objectMeta(name, c.namespace)})
	deleteOne(&appsv1.Deployment{ObjectMeta: objectMeta(name+"-baseline", c.namespace)})
	deleteOne(&corev1.Service{ObjectMeta: objectMeta(name, c.namespace)})
	deleteOne(&autoscalingv2.HorizontalPodAutoscaler{ObjectMeta: objectMeta(name, c.namespace)})
	deleteOne(&policyv1.PodDisruptionBudget{ObjectMeta: objectMeta(name, c.namespace)})
	deleteOne(&kedav1alpha1.ScaledObject{ObjectMeta: objectMeta(name, c.namespace)})
	deleteOne(&monitoringv1.ServiceMonitor{ObjectMeta: objectMeta(name, c.namespace)})
	deleteOne(&istiov1beta1.VirtualService{ObjectMeta: objectMeta(name, c.namespace)})

	return result.ErrorOrNil()
}

func objectMeta(name, namespace string) metav1.ObjectMeta {
	return metav1.ObjectMeta{Name: name, Namespace: namespace}
}
