// Package k8sapply is the K8s Apply Engine (§4.7): a generic
// create-or-replace operation over a closed set of resource kinds, used
// by the Lifecycle Controller to push a declared object graph without
// per-kind reconciler boilerplate.
package k8sapply

import (
	kedav1alpha1 "github.com/kedacore/keda/v2/apis/keda/v1alpha1"
	monitoringv1 "github.com/prometheus-operator/prometheus-operator/pkg/apis/monitoring/v1"
	istioclientv1beta1 "istio.io/client-go/pkg/apis/networking/v1beta1"
	"k8s.io/apimachinery/pkg/runtime"
	utilruntime "k8s.io/apimachinery/pkg/util/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
)

// NewScheme builds the runtime.Scheme covering every resource kind the
// Lifecycle Controller can apply: the built-in kinds (Deployment,
// Service, HorizontalPodAutoscaler, PodDisruptionBudget, ServiceAccount,
// Secret, ConfigMap, Role, RoleBinding) plus the three CRDs the domain
// stack wires in (ScaledObject, ServiceMonitor, VirtualService).
func NewScheme() *runtime.Scheme {
	scheme := runtime.NewScheme()
	utilruntime.Must(clientgoscheme.AddToScheme(scheme))
	utilruntime.Must(kedav1alpha1.AddToScheme(scheme))
	utilruntime.Must(monitoringv1.AddToScheme(scheme))
	utilruntime.Must(istioclientv1beta1.AddToScheme(scheme))
	return scheme
}
