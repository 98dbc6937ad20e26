package workload

import (
	kedav1alpha1 "github.com/kedacore/keda/v2/apis/keda/v1alpha1"
	autoscalingv2 "k8s.io/api/autoscaling/v2"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/modelfleet/fleetctl/pkg/config"
	"github.com/modelfleet/fleetctl/pkg/k8sutil"
)

const defaultCPUTargetPercent = 50

// BuildHPA builds a HorizontalPodAutoscaler scaling deploymentName on
// CPU utilization at 50%. Used when a group declares no autoScaleTriggers
// and is not a mixed-capacity group (§4.4).
func BuildHPA(groupName, namespace, deploymentName string, min, max int32) *autoscalingv2.HorizontalPodAutoscaler {
	target := int32(defaultCPUTargetPercent)
	return &autoscalingv2.HorizontalPodAutoscaler{
		ObjectMeta: metav1.ObjectMeta{
			Name:      k8sutil.KubifyName(groupName),
			Namespace: namespace,
			Labels:    Labels(groupName),
		},
		Spec: autoscalingv2.HorizontalPodAutoscalerSpec{
			ScaleTargetRef: autoscalingv2.CrossVersionObjectReference{
				APIVersion: "apps/v1",
				Kind:       "Deployment",
				Name:       k8sutil.KubifyName(deploymentName),
			},
			MinReplicas: &min,
			MaxReplicas: max,
			Metrics: []autoscalingv2.MetricSpec{{
				Type: autoscalingv2.ResourceMetricSourceType,
				Resource: &autoscalingv2.ResourceMetricSource{
					Name: "cpu",
					Target: autoscalingv2.MetricTarget{
						Type:               autoscalingv2.UtilizationMetricType,
						AverageUtilization: &target,
					},
				},
			}},
		},
	}
}

const pollingIntervalSeconds = 15

// BuildScaledObject builds a KEDA ScaledObject targeting deploymentName,
// passing every declared trigger through verbatim (§4.4). Used when a
// group declares autoScaleTriggers, or unconditionally for the
// mixed-capacity auto-scaled Deployment (§4.5).
func BuildScaledObject(groupName, namespace, deploymentName string, min, max int32, triggers []config.AutoScaleTrigger) *kedav1alpha1.ScaledObject {
	interval := int32(pollingIntervalSeconds)
	minReplicas := min

	so := &kedav1alpha1.ScaledObject{
		ObjectMeta: metav1.ObjectMeta{
			Name:      k8sutil.KubifyName(groupName),
			Namespace: namespace,
			Labels:    Labels(groupName),
		},
		Spec: kedav1alpha1.ScaledObjectSpec{
			ScaleTargetRef: &kedav1alpha1.ScaleTarget{
				Name: k8sutil.KubifyName(deploymentName),
			},
			PollingInterval: &interval,
			MinReplicaCount: &minReplicas,
			MaxReplicaCount: &max,
		},
	}

	for _, t := range triggers {
		so.Spec.Triggers = append(so.Spec.Triggers, kedav1alpha1.ScaleTriggers{
			Type:     t.Type,
			Metadata: t.Metadata,
		})
	}

	return so
}

// MaxReplicaCount reproduces the mixed-capacity scaler bound of §4.5
// verbatim, including the over-provisioning ambiguity flagged as an
// open question in spec.md §9(a): it is not "fixed" to
// max(maxOnDemand - base, spot.max) or similar, it is max(a, b) as the
// source computes it.
func MaxReplicaCount(maxOnDemandInstances, spotMaxInstances int) int32 {
	if maxOnDemandInstances > spotMaxInstances {
		return int32(maxOnDemandInstances)
	}
	return int32(spotMaxInstances)
}
