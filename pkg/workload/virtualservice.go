package workload

import (
	istionetworking "istio.io/api/networking/v1beta1"
	istiov1beta1 "istio.io/client-go/pkg/apis/networking/v1beta1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/modelfleet/fleetctl/pkg/k8sutil"
)

// knativeIngressGateway is the shared ingress gateway every public
// model group routes through.
const knativeIngressGateway = "knative-serving/knative-ingress-gateway"

// BuildVirtualService builds the ingress route for a public model
// group: matches on authority prefix equal to the group name and routes
// to the group's Service (§4.4).
func BuildVirtualService(groupName, namespace string) *istiov1beta1.VirtualService {
	name := k8sutil.KubifyName(groupName)
	return &istiov1beta1.VirtualService{
		ObjectMeta: metav1.ObjectMeta{
			Name:      name,
			Namespace: namespace,
			Labels:    Labels(groupName),
		},
		Spec: istionetworking.VirtualService{
			Gateways: []string{knativeIngressGateway},
			Hosts:    []string{"*"},
			Http: []*istionetworking.HTTPRoute{{
				Match: []*istionetworking.HTTPMatchRequest{{
					Authority: &istionetworking.StringMatch{
						MatchType: &istionetworking.StringMatch_Prefix{Prefix: name},
					},
				}},
				Route: []*istionetworking.HTTPRouteDestination{{
					Destination: &istionetworking.Destination{
						Host: name + "." + namespace + ".svc.cluster.local",
						Port: &istionetworking.PortSelector{Number: servicePort},
					},
				}},
			}},
		},
	}
}
