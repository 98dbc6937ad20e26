// Package runtimeplanner decides, for a model group and a target
// container port, the argv/env/mounts/probe paths the inference
// container is launched with. It classifies the runtime image into a
// closed set of known families and refuses to synthesize a command for
// anything it doesn't recognize.
package runtimeplanner

import "strings"

// Family is a closed tagged variant. New runtimes are added here, never
// inferred dynamically from a heuristic scattered through call sites.
type Family string

const (
	LlamaCpp Family = "llama.cpp"
	Vllm     Family = "vllm"
	Unknown  Family = "unknown"
)

// Classify maps a runtime image reference to a Family by substring
// match, the same coarse signal spec.md's planner uses, concentrated
// into one pure function instead of scattered string checks.
func Classify(image string) Family {
	lower := strings.ToLower(image)
	switch {
	case strings.Contains(lower, "llama.cpp") || strings.Contains(lower, "llama-cpp") || strings.Contains(lower, "ggerganov"):
		return LlamaCpp
	case strings.Contains(lower, "vllm"):
		return Vllm
	default:
		return Unknown
	}
}
