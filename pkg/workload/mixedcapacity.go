package workload

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/modelfleet/fleetctl/pkg/k8sutil"
)

// FailSafePriorityClassName and FailSafePriorityValue are the priority
// class the baseline Deployment runs under, ensured to exist by the
// Lifecycle Controller before the Deployment is applied (§4.5).
const (
	FailSafePriorityClassName = "fail-safe"
	FailSafePriorityValue     = 100000

	lifecycleOnDemand = "on-demand"
	lifecycleSpot     = "spot"

	disruptionBudgetMaxUnavailablePercent = 30
)

// MixedCapacityParams is the shared input to the two Deployments and
// the PodDisruptionBudget of a mixed-capacity model group.
type MixedCapacityParams struct {
	GroupName      string
	Namespace      string
	BaselinePod    corev1.PodTemplateSpec
	AutoScaledPod  corev1.PodTemplateSpec
	BaseInstances  int32
	SpotMinInstances int32
}

// BuildBaselineDeployment builds "<name>-baseline": a fixed-size
// Deployment on required on-demand affinity and fail-safe priority,
// never touched by the autoscaler.
func BuildBaselineDeployment(p MixedCapacityParams) *appsv1.Deployment {
	name := p.GroupName + "-baseline"
	return BuildDeployment(name, p.Namespace, p.GroupName, p.BaseInstances, p.BaselinePod, FailSafePriorityClassName)
}

// BuildAutoScaledDeployment builds the elastic Deployment: starts at
// spot.minInstances, preferred (not required) spot affinity already
// applied to the supplied pod template.
func BuildAutoScaledDeployment(p MixedCapacityParams) *appsv1.Deployment {
	return BuildDeployment(p.GroupName, p.Namespace, p.GroupName, p.SpotMinInstances, p.AutoScaledPod, "")
}

// BuildDisruptionBudget builds the PodDisruptionBudget that caps
// voluntary disruption at 30% unavailable across both Deployments'
// pods, trading scale-down speed for survivability against correlated
// spot terminations (§4.5).
func BuildDisruptionBudget(groupName, namespace string) *policyv1.PodDisruptionBudget {
	maxUnavailable := intstr.FromString("30%")
	return &policyv1.PodDisruptionBudget{
		ObjectMeta: metav1.ObjectMeta{
			Name:      k8sutil.KubifyName(groupName),
			Namespace: namespace,
			Labels:    Labels(groupName),
		},
		Spec: policyv1.PodDisruptionBudgetSpec{
			MaxUnavailable: &maxUnavailable,
			Selector:       &metav1.LabelSelector{MatchLabels: Labels(groupName)},
		},
	}
}

// OnDemandAffinity is the required node-affinity shape for the baseline
// Deployment's pod template.
func OnDemandAffinity() NodeAffinity {
	return NodeAffinity{LifecycleRequired: lifecycleOnDemand}
}

// SpotAffinity is the preferred node-affinity shape for the
// auto-scaled Deployment's pod template: falls back to on-demand nodes
// if the spot pool is empty.
func SpotAffinity() NodeAffinity {
	return NodeAffinity{LifecyclePreferred: lifecycleSpot}
}
