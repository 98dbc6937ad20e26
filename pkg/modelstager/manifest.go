package modelstager

// Manifest is the durable, self-describing record written to
// models/{name}/manifest.yml after every artifact of a group lands
// successfully (spec.md §3, §4.2). Its presence marks a completed
// staging; the Stager's own idempotence check does not look for it and
// skips a group as soon as any object exists under the group's prefix.
type Manifest struct {
	Name               string         `yaml:"name"`
	Files              []ManifestFile `yaml:"files"`
	Quantization       string         `yaml:"quantization,omitempty"`
	PromptTemplateName string         `yaml:"prompt_template_name,omitempty"`
	PromptTemplateStr  string         `yaml:"prompt_template_str,omitempty"`
	// MainModel names the group's main weights file. The Stager does
	// not set it, and the Runtime Planner does not read the manifest:
	// more than one matching candidate is still AmbiguousArtifact.
	MainModel string `yaml:"main_model,omitempty"`
}

// ManifestFile is one staged artifact's entry in the manifest.
type ManifestFile struct {
	Name   string `yaml:"name"`
	Sha256 string `yaml:"sha256,omitempty"`
}
