package runtimeplanner

import "github.com/modelfleet/fleetctl/pkg/config"

// Spec is the planner's view of a model group: the fields that matter
// for launch-command resolution, collapsed from either ModelGroup shape
// (standard or mixed-capacity) so the planner doesn't need to know which
// variant it was given.
type Spec struct {
	Name       string
	GPUEnabled bool
	GPUCount   int64
	Model      *config.Model
	Runtime    config.Runtime
}

// FromModelGroup builds a Spec from a standard ModelGroup. gpuCount is
// the instance catalog's GPU count for the group's node type, used when
// resourceRequest.gpu is not set.
func FromModelGroup(g config.ModelGroup, gpuCount int64) Spec {
	s := Spec{Name: g.Name, Model: g.Model, Runtime: g.Runtime}
	if g.GPU != nil && g.GPU.Enabled {
		s.GPUEnabled = true
		s.GPUCount = gpuCount
		if g.ResourceRequest != nil && g.ResourceRequest.GPU > 0 {
			s.GPUCount = int64(g.ResourceRequest.GPU)
		}
	}
	return s
}

// FromMixedModelGroup builds a Spec from a mixed-capacity ModelGroup.
func FromMixedModelGroup(g config.MixedModelGroup, gpuCount int64) Spec {
	s := Spec{Name: g.Name, Model: g.Model, Runtime: g.Runtime}
	if g.GPU != nil && g.GPU.Enabled {
		s.GPUEnabled = true
		s.GPUCount = gpuCount
		if g.ResourceRequest != nil && g.ResourceRequest.GPU > 0 {
			s.GPUCount = int64(g.ResourceRequest.GPU)
		}
	}
	return s
}
