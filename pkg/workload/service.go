package workload

import (
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"

	"github.com/modelfleet/fleetctl/pkg/k8sutil"
)

// BuildService builds the ClusterIP Service for a model group: port 80
// routed to the container port, plus a side port for sidecar metrics
// scraping.
func BuildService(groupName, namespace string) *corev1.Service {
	labels := Labels(groupName)
	return &corev1.Service{
		ObjectMeta: metav1.ObjectMeta{
			Name:      k8sutil.KubifyName(groupName),
			Namespace: namespace,
			Labels:    labels,
		},
		Spec: corev1.ServiceSpec{
			Type:     corev1.ServiceTypeClusterIP,
			Selector: labels,
			Ports: []corev1.ServicePort{
				{
					Name:       "http",
					Port:       servicePort,
					TargetPort: intstr.FromInt32(containerPort),
				},
				{
					Name:       "metrics",
					Port:       sidecarMetricsPort,
					TargetPort: intstr.FromInt32(sidecarMetricsPort),
				},
			},
		},
	}
}
