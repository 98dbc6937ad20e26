package workload

import (
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/modelfleet/fleetctl/pkg/k8sutil"
)

// BuildDeployment builds a Deployment selecting on the model group's
// label pair. Name equals the kubified group name for the standard
// shape, or "<name>-baseline"/"<name>" for the mixed-capacity pair
// (§4.5); callers pass the name they want. priorityClass, when
// non-empty, is set on the pod template (the baseline Deployment's
// fail-safe priority class).
func BuildDeployment(name, namespace, groupName string, replicas int32, template corev1.PodTemplateSpec, priorityClass string) *appsv1.Deployment {
	labels := Labels(groupName)

	if priorityClass != "" {
		template.Spec.PriorityClassName = priorityClass
	}

	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      k8sutil.KubifyName(name),
			Namespace: namespace,
			Labels:    labels,
		},
		Spec: appsv1.DeploymentSpec{
			Replicas: int32Ptr(replicas),
			Selector: &metav1.LabelSelector{MatchLabels: labels},
			Template: template,
		},
	}
}

func int32Ptr(v int32) *int32 { return &v }
