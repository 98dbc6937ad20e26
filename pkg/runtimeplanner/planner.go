package runtimeplanner

import (
	"context"
	"fmt"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/modelfleet/fleetctl/pkg/fleeterr"
)

// Store is the subset of the Model Store the planner needs to resolve
// the object-store location strategy: listing what has already been
// staged for a group.
type Store interface {
	Glob(ctx context.Context, dir, pattern string) ([]string, error)
}

// Mount describes a volume the launch plan expects to already be
// mounted by the Workload Builder (the stager's model-data emptyDir).
type Mount struct {
	Name      string
	MountPath string
}

// LaunchPlan is the planner's output: everything the Workload Builder
// needs to fill in the inference container's spec.
type LaunchPlan struct {
	Argv      []string
	Env       map[string]string
	Mounts    []Mount
	ReadyPath string
	LivePath  string
}

// Planner resolves a Spec and port into a LaunchPlan. Each Family has
// its own implementation; Unknown refuses to synthesize anything.
type Planner interface {
	Plan(ctx context.Context, spec Spec, port int, store Store) (*LaunchPlan, error)
}

// NewPlanner returns the Planner for family.
func NewPlanner(family Family) Planner {
	switch family {
	case LlamaCpp:
		return llamaCppPlanner{}
	case Vllm:
		return vllmPlanner{}
	default:
		return unknownPlanner{}
	}
}

const modelDataMountPath = "/data"

var (
	modelFlagPattern   = regexp.MustCompile(`^(--model|-m)$`)
	hfRepoFlagPattern  = regexp.MustCompile(`^--hf-repo$`)
	modelURLPattern    = regexp.MustCompile(`^(--model-url|-mu)$`)
	portFlagPattern    = regexp.MustCompile(`^--port$`)
)

// commandReferencesModel reports whether argv already names a model
// location via one of the three recognized flag forms, in which case
// the planner leaves the user's command untouched (strategy 1).
func commandReferencesModel(argv []string) bool {
	for _, arg := range argv {
		if modelFlagPattern.MatchString(arg) || hfRepoFlagPattern.MatchString(arg) || modelURLPattern.MatchString(arg) {
			return true
		}
	}
	return false
}

// injectPort ensures argv contains exactly one --port flag set to port,
// replacing an existing value in place or appending a new pair.
func injectPort(argv []string, port int) []string {
	for i, arg := range argv {
		if portFlagPattern.MatchString(arg) && i+1 < len(argv) {
			out := make([]string, len(argv))
			copy(out, argv)
			out[i+1] = strconv.Itoa(port)
			return out
		}
	}
	return append(append([]string{}, argv...), "--port", strconv.Itoa(port))
}

// resolveObjectStoreWeights implements strategy 2: glob the group's
// prefix in the store for files matching weightsPattern, requiring
// exactly one hit.
func resolveObjectStoreWeights(ctx context.Context, store Store, groupName, weightsPattern string) (string, error) {
	if store == nil {
		return "", fleeterr.New(fleeterr.StoreUnavailable, "runtimeplanner.resolveObjectStoreWeights", fmt.Errorf("no store configured"))
	}
	matches, err := store.Glob(ctx, groupName, weightsPattern)
	if err != nil {
		return "", err
	}
	if len(matches) == 0 {
		return "", fleeterr.New(fleeterr.NoModelResolvable, "runtimeplanner.resolveObjectStoreWeights",
			fmt.Errorf("no file under models/%s matching %s", groupName, weightsPattern)).WithGroup(groupName)
	}
	if len(matches) > 1 {
		return "", fleeterr.New(fleeterr.AmbiguousArtifact, "runtimeplanner.resolveObjectStoreWeights",
			fmt.Errorf("%d candidates matched %s: %v", len(matches), weightsPattern, matches)).WithGroup(groupName)
	}
	return path.Join(modelDataMountPath, path.Base(matches[0])), nil
}

func modelDataMount() Mount {
	return Mount{Name: "model-data", MountPath: modelDataMountPath}
}

// mountedPath rewrites a store-relative path ("group/weights.gguf") to
// where the stager's init container will have placed it on the
// model-data volume.
func mountedPath(storePath string) string {
	return path.Join(modelDataMountPath, path.Base(storePath))
}

func envMap(kv map[string]string) map[string]string {
	out := make(map[string]string, len(kv))
	for k, v := range kv {
		out[k] = v
	}
	return out
}

// firstFile returns the first entry of model.Files, trimmed, for the
// HF-live strategy's --hf-file argument; any later entries are ignored.
// It reports false when files is empty.
func firstFile(files []string) (string, bool) {
	if len(files) == 0 {
		return "", false
	}
	return strings.TrimSpace(files[0]), true
}
