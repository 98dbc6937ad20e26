package workload

import (
	monitoringv1 "github.com/prometheus-operator/prometheus-operator/pkg/apis/monitoring/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/modelfleet/fleetctl/pkg/k8sutil"
)

const metricsScrapeInterval = "15s"

// BuildServiceMonitor builds a two-endpoint ServiceMonitor for a model
// group: one endpoint scraping the sidecar metrics port, one scraping
// the model container's /metrics (§4.4). Only emitted when cluster-level
// Prometheus is enabled.
func BuildServiceMonitor(groupName, namespace string) *monitoringv1.ServiceMonitor {
	labels := Labels(groupName)
	return &monitoringv1.ServiceMonitor{
		ObjectMeta: metav1.ObjectMeta{
			Name:      k8sutil.KubifyName(groupName),
			Namespace: namespace,
			Labels:    labels,
		},
		Spec: monitoringv1.ServiceMonitorSpec{
			Selector: metav1.LabelSelector{MatchLabels: labels},
			Endpoints: []monitoringv1.Endpoint{
				{
					Port:     "metrics",
					Interval: metricsScrapeInterval,
				},
				{
					Port:     "http",
					Path:     "/metrics",
					Interval: metricsScrapeInterval,
				},
			},
		},
	}
}
