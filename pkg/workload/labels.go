// Package workload builds the Kubernetes object graph for one model
// group: Pod template, Deployment(s), Service, autoscaler,
// ServiceMonitor, and ingress VirtualService. Every object carries the
// {app: "model-group", model: <name>} label pair that the Lifecycle
// Controller uses both to select an owned object graph and to find
// orphans.
package workload

import "github.com/modelfleet/fleetctl/pkg/k8sutil"

const (
	// LabelApp is the fixed app label every emitted object carries.
	LabelApp = "app"
	// LabelAppValue is the fixed value of LabelApp.
	LabelAppValue = "model-group"
	// LabelModel carries the model group's kubified name.
	LabelModel = "model"

	// sidecarMetricsPort is the side port scraped for sidecar metrics.
	sidecarMetricsPort = 15090
	// containerPort is the default container port the inference server
	// listens on; it is also the port the Runtime Planner resolves argv
	// against.
	containerPort = 8000
	// servicePort is the Service's externally-facing port.
	servicePort = 80

	modelDataVolumeName = "model-data"
)

// DefaultContainerPort is the port the Runtime Planner resolves argv
// against and the Pod template exposes.
func DefaultContainerPort() int { return containerPort }

// Labels returns the fixed ownership label pair for a model group,
// using its DNS-1123-normalized name.
func Labels(groupName string) map[string]string {
	return map[string]string{
		LabelApp:   LabelAppValue,
		LabelModel: k8sutil.KubifyName(groupName),
	}
}
