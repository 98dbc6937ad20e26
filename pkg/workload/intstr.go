package workload

import "k8s.io/apimachinery/pkg/util/intstr"

func intstrFromInt(v int32) intstr.IntOrString {
	return intstr.FromInt32(v)
}
