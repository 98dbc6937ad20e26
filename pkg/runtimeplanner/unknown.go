package runtimeplanner

import (
	"context"
	"fmt"

	"github.com/modelfleet/fleetctl/pkg/fleeterr"
)

// unknownPlanner refuses to synthesize a launch command for an
// unrecognized runtime image family. The user must supply a complete
// command and, since the planner has no family-specific default, must
// also supply readiness/liveness probe paths explicitly.
type unknownPlanner struct{}

func (unknownPlanner) Plan(ctx context.Context, spec Spec, port int, store Store) (*LaunchPlan, error) {
	if len(spec.Runtime.Command) == 0 {
		return nil, fleeterr.New(fleeterr.NoModelResolvable, "runtimeplanner.unknown",
			fmt.Errorf("runtime image for group %s is not a recognized family; runtime.command is required", spec.Name)).WithGroup(spec.Name)
	}
	if spec.Runtime.ReadinessProbe == nil || spec.Runtime.LivenessProbe == nil {
		return nil, fleeterr.New(fleeterr.ConfigInvalid, "runtimeplanner.unknown",
			fmt.Errorf("runtime image for group %s is not a recognized family; readinessProbe and livenessProbe are required", spec.Name)).WithGroup(spec.Name)
	}

	var mounts []Mount
	if spec.Model != nil && spec.Model.UseModelStore {
		mounts = []Mount{modelDataMount()}
	}

	return &LaunchPlan{
		Argv:      injectPort(spec.Runtime.Command, port),
		Env:       envMap(spec.Runtime.Env),
		Mounts:    mounts,
		ReadyPath: spec.Runtime.ReadinessProbe.Path,
		LivePath:  spec.Runtime.LivenessProbe.Path,
	}, nil
}
