package runtimeplanner

import (
	"context"
	"fmt"
	"strconv"

	"github.com/modelfleet/fleetctl/pkg/fleeterr"
)

type vllmPlanner struct{}

func (vllmPlanner) Plan(ctx context.Context, spec Spec, port int, store Store) (*LaunchPlan, error) {
	plan := &LaunchPlan{
		Env:       envMap(spec.Runtime.Env),
		ReadyPath: "/health",
		LivePath:  "/health",
	}

	argv, mounts, err := resolveVllmArgv(ctx, spec, store)
	if err != nil {
		return nil, err
	}
	plan.Argv = injectPort(argv, port)
	plan.Mounts = mounts
	return plan, nil
}

func resolveVllmArgv(ctx context.Context, spec Spec, store Store) ([]string, []Mount, error) {
	if len(spec.Runtime.Command) > 0 && commandReferencesModel(spec.Runtime.Command) {
		return spec.Runtime.Command, nil, nil
	}

	baseline := defaultVllmArgv(spec)
	if len(spec.Runtime.Command) > 0 {
		baseline = spec.Runtime.Command
	}

	if spec.Model == nil {
		return baseline, nil, nil
	}

	if spec.Model.UseModelStore {
		modelPath, err := resolveObjectStoreWeights(ctx, store, spec.Name, "*")
		if err != nil {
			return nil, nil, err
		}
		return append(baseline, "--model", modelPath), []Mount{modelDataMount()}, nil
	}

	if spec.Model.HFRepoID != "" {
		return append(baseline, "--model", spec.Model.HFRepoID), nil, nil
	}

	return nil, nil, fleeterr.New(fleeterr.NoModelResolvable, "runtimeplanner.vllm",
		fmt.Errorf("model group %s has no resolvable model location", spec.Name)).WithGroup(spec.Name)
}

// defaultVllmArgv starts vllm's OpenAI-compatible API server, adding
// tensor-parallel sharding when more than one GPU is attached.
func defaultVllmArgv(spec Spec) []string {
	argv := []string{
		"python3", "-O", "-u",
		"-m", "vllm.entrypoints.api_server",
		"--host", "0.0.0.0",
	}
	if spec.GPUEnabled && spec.GPUCount > 1 {
		argv = append(argv, "--tensor-parallel-size", strconv.FormatInt(spec.GPUCount, 10))
	}
	return argv
}
