package runtimeplanner

import (
	"context"
	"fmt"

	"github.com/modelfleet/fleetctl/pkg/fleeterr"
)

type llamaCppPlanner struct{}

func (llamaCppPlanner) Plan(ctx context.Context, spec Spec, port int, store Store) (*LaunchPlan, error) {
	plan := &LaunchPlan{
		Env:       envMap(spec.Runtime.Env),
		ReadyPath: "/health",
		LivePath:  "/health",
	}

	argv, mounts, err := resolveLlamaCppArgv(ctx, spec, store)
	if err != nil {
		return nil, err
	}
	plan.Argv = injectPort(argv, port)
	plan.Mounts = mounts
	return plan, nil
}

func resolveLlamaCppArgv(ctx context.Context, spec Spec, store Store) ([]string, []Mount, error) {
	// Strategy 1: user knows best.
	if len(spec.Runtime.Command) > 0 && commandReferencesModel(spec.Runtime.Command) {
		return spec.Runtime.Command, nil, nil
	}

	baseline := defaultLlamaCppArgv(spec)

	if len(spec.Runtime.Command) > 0 {
		// User supplied a command that doesn't reference a model location;
		// still honor it verbatim rather than silently discarding it, but
		// it must resolve to a location below.
		baseline = spec.Runtime.Command
	}

	if spec.Model == nil {
		// Embedded-in-image case: nothing more to resolve.
		return baseline, nil, nil
	}

	if spec.Model.UseModelStore {
		var candidates []string
		for _, pattern := range []string{"*.gguf", "*.ggml"} {
			matches, err := matchesFor(ctx, store, spec.Name, pattern)
			if err != nil {
				return nil, nil, err
			}
			candidates = append(candidates, matches...)
		}
		switch len(candidates) {
		case 0:
			return nil, nil, fleeterr.New(fleeterr.NoModelResolvable, "runtimeplanner.llamacpp",
				fmt.Errorf("no .gguf or .ggml file staged for group %s", spec.Name)).WithGroup(spec.Name)
		case 1:
			modelPath := mountedPath(candidates[0])
			return append(baseline, "--model", modelPath), []Mount{modelDataMount()}, nil
		default:
			return nil, nil, fleeterr.New(fleeterr.AmbiguousArtifact, "runtimeplanner.llamacpp",
				fmt.Errorf("%d candidates matched *.gguf/*.ggml: %v", len(candidates), candidates)).WithGroup(spec.Name)
		}
	}

	if spec.Model.HFRepoID != "" {
		argv := append(baseline, "--hf-repo", spec.Model.HFRepoID)
		if file, ok := firstFile(spec.Model.Files); ok {
			argv = append(argv, "--hf-file", file)
		}
		return argv, nil, nil
	}

	return nil, nil, fleeterr.New(fleeterr.NoModelResolvable, "runtimeplanner.llamacpp",
		fmt.Errorf("model group %s has no resolvable model location", spec.Name)).WithGroup(spec.Name)
}

func matchesFor(ctx context.Context, store Store, groupName, pattern string) ([]string, error) {
	if store == nil {
		return nil, fleeterr.New(fleeterr.StoreUnavailable, "runtimeplanner.matchesFor", fmt.Errorf("no store configured"))
	}
	return store.Glob(ctx, groupName, pattern)
}

// defaultLlamaCppArgv is the baseline argv synthesized when the user
// supplies no runtime.command: continuous batching, fixed context size,
// embeddings, flash attention, metrics, single-request parallelism, and
// full GPU offload when a GPU is attached.
func defaultLlamaCppArgv(spec Spec) []string {
	argv := []string{
		"--cont-batching",
		"--ctx-size", "4096",
		"--embedding",
		"--flash-attn",
		"--metrics",
		"--parallel", "1",
		"--host", "0.0.0.0",
	}
	if spec.GPUEnabled {
		argv = append(argv, "--n-gpu-layers", "999")
	}
	return argv
}
