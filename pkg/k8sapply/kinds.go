package k8sapply

import (
	kedav1alpha1 "github.com/kedacore/keda/v2/apis/keda/v1alpha1"
	monitoringv1 "github.com/prometheus-operator/prometheus-operator/pkg/apis/monitoring/v1"
	istiov1beta1 "istio.io/client-go/pkg/apis/networking/v1beta1"
	appsv1 "k8s.io/api/apps/v1"
	autoscalingv2 "k8s.io/api/autoscaling/v2"
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
	"k8s.io/apimachinery/pkg/runtime"
)

// The wrapper types below are the closed set of resource kinds the
// Apply Engine understands (§4.7). Each wraps the real typed object and
// adds applySpec(), the field Apply's semantic diff compares, and a
// DeepCopyObject override so the wrapper (not the bare embedded type)
// is what round-trips through Get/Create/Update.

// Deployment wraps *appsv1.Deployment.
type Deployment struct{ *appsv1.Deployment }

func WrapDeployment(d *appsv1.Deployment) Deployment { return Deployment{d} }
func (d Deployment) applySpec() any                  { return d.Spec }
func (d Deployment) DeepCopyObject() runtime.Object  { return Deployment{d.Deployment.DeepCopy()} }

// Service wraps *corev1.Service.
type Service struct{ *corev1.Service }

func WrapService(s *corev1.Service) Service      { return Service{s} }
func (s Service) applySpec() any                 { return s.Spec }
func (s Service) DeepCopyObject() runtime.Object { return Service{s.Service.DeepCopy()} }

// HorizontalPodAutoscaler wraps *autoscalingv2.HorizontalPodAutoscaler.
type HorizontalPodAutoscaler struct{ *autoscalingv2.HorizontalPodAutoscaler }

func WrapHPA(h *autoscalingv2.HorizontalPodAutoscaler) HorizontalPodAutoscaler {
	return HorizontalPodAutoscaler{h}
}
func (h HorizontalPodAutoscaler) applySpec() any { return h.Spec }
func (h HorizontalPodAutoscaler) DeepCopyObject() runtime.Object {
	return HorizontalPodAutoscaler{h.HorizontalPodAutoscaler.DeepCopy()}
}

// PodDisruptionBudget wraps *policyv1.PodDisruptionBudget.
type PodDisruptionBudget struct{ *policyv1.PodDisruptionBudget }

func WrapPDB(p *policyv1.PodDisruptionBudget) PodDisruptionBudget { return PodDisruptionBudget{p} }
func (p PodDisruptionBudget) applySpec() any                      { return p.Spec }
func (p PodDisruptionBudget) DeepCopyObject() runtime.Object {
	return PodDisruptionBudget{p.PodDisruptionBudget.DeepCopy()}
}

// ScaledObject wraps *kedav1alpha1.ScaledObject.
type ScaledObject struct{ *kedav1alpha1.ScaledObject }

func WrapScaledObject(s *kedav1alpha1.ScaledObject) ScaledObject { return ScaledObject{s} }
func (s ScaledObject) applySpec() any                            { return s.Spec }
func (s ScaledObject) DeepCopyObject() runtime.Object {
	return ScaledObject{s.ScaledObject.DeepCopy()}
}

// ServiceMonitor wraps *monitoringv1.ServiceMonitor.
type ServiceMonitor struct{ *monitoringv1.ServiceMonitor }

func WrapServiceMonitor(s *monitoringv1.ServiceMonitor) ServiceMonitor { return ServiceMonitor{s} }
func (s ServiceMonitor) applySpec() any                                { return s.Spec }
func (s ServiceMonitor) DeepCopyObject() runtime.Object {
	return ServiceMonitor{s.ServiceMonitor.DeepCopy()}
}

// VirtualService wraps *istiov1beta1.VirtualService.
type VirtualService struct{ *istiov1beta1.VirtualService }

func WrapVirtualService(v *istiov1beta1.VirtualService) VirtualService { return VirtualService{v} }
func (v VirtualService) applySpec() any                                 { return v.Spec }
func (v VirtualService) DeepCopyObject() runtime.Object {
	return VirtualService{v.VirtualService.DeepCopy()}
}
