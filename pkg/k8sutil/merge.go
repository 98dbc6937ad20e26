// Package k8sutil collects the small, generic Kubernetes object-graph
// helpers the Workload Builder shares: appending env vars/ports/volumes
// without duplicating, and a GPU-resource check. None of it is
// fleetctl-specific; it is the same flavor of "functional-style
// container operations, used sparingly" the teacher's pkg/utils
// carries.
package k8sutil

import (
	v1 "k8s.io/api/core/v1"
)

// AppendEnvVarIfNotExists appends each of elems whose Name is not
// already present in slice.
func AppendEnvVarIfNotExists(slice []v1.EnvVar, elems ...v1.EnvVar) []v1.EnvVar {
	for _, elem := range elems {
		exists := false
		for _, item := range slice {
			if item.Name == elem.Name {
				exists = true
				break
			}
		}
		if !exists {
			slice = append(slice, elem)
		}
	}
	return slice
}

// AppendPortIfNotExists appends each of elems whose Name is not already
// present in slice.
func AppendPortIfNotExists(slice []v1.ContainerPort, elems ...v1.ContainerPort) []v1.ContainerPort {
	for _, elem := range elems {
		exists := false
		for _, item := range slice {
			if item.Name == elem.Name {
				exists = true
				break
			}
		}
		if !exists {
			slice = append(slice, elem)
		}
	}
	return slice
}

// AppendVolumeIfNotExists appends volume unless a volume with the same
// name is already present in slice.
func AppendVolumeIfNotExists(slice []v1.Volume, volume v1.Volume) []v1.Volume {
	for i := range slice {
		if slice[i].Name == volume.Name {
			return slice
		}
	}
	return append(slice, volume)
}

// IsGPUEnabled reports whether requirements asks for at least one
// nvidia.com/gpu.
func IsGPUEnabled(requirements v1.ResourceRequirements) bool {
	_, ok := requirements.Limits["nvidia.com/gpu"]
	return ok
}
