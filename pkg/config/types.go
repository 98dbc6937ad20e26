// Package config defines the declared configuration document fleetctl
// operates from: a cluster shape plus one or more model groups. It is
// decoded with viper and validated with validator/v10 struct tags, the
// way the teacher's pkg/ociobjectstore/config.go validates its own
// provider configs.
package config

// Document is the top-level configuration document. Only the aws
// provider is defined; other top-level provider keys are reserved for
// future cloud backends.
type Document struct {
	AWS *AWSConfig `mapstructure:"aws" validate:"required"`
}

// AWSConfig is the aws-provider configuration block.
type AWSConfig struct {
	Cluster           Cluster           `mapstructure:"cluster" validate:"required"`
	ModelGroups       []ModelGroup      `mapstructure:"modelGroups" validate:"dive"`
	MixedModelGroups  []MixedModelGroup `mapstructure:"mixedModelGroups" validate:"dive"`
	VectorStore       map[string]any    `mapstructure:"vectorStore"`
	Job               map[string]any    `mapstructure:"job"`
	Prometheus        *PrometheusConfig `mapstructure:"prometheus"`
	Tracing           map[string]any    `mapstructure:"tracing"`
}

// PrometheusConfig toggles ServiceMonitor emission in the Workload Builder.
type PrometheusConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// Cluster describes the cluster shape the lifecycle controller targets.
// Bring-up of the cluster itself is out of scope; this is read-only
// context.
type Cluster struct {
	Name             string `mapstructure:"name" validate:"required"`
	Region           string `mapstructure:"region" validate:"required"`
	Namespace        string `mapstructure:"namespace" validate:"required"`
	NodeType         string `mapstructure:"nodeType" validate:"required"`
	MinNodes         int    `mapstructure:"minNodes" validate:"gte=0"`
	MaxNodes         int    `mapstructure:"maxNodes" validate:"gtefield=MinNodes"`
	LogRetentionDays int    `mapstructure:"logRetentionDays" validate:"gte=0"`
}

// GPU describes GPU acquisition for a model group's workload.
type GPU struct {
	Enabled  bool `mapstructure:"enabled"`
	DiskSize int  `mapstructure:"diskSize"`
}

// ResourceRequest is an explicit resource override. When omitted on a
// ModelGroup, values are derived from the instance catalog instead.
type ResourceRequest struct {
	CPU    string `mapstructure:"cpu" validate:"omitempty,cpuquantity"`
	Memory string `mapstructure:"memory" validate:"omitempty,k8squantity"`
	GPU    int    `mapstructure:"gpu" validate:"gte=0"`
}

// Model describes where the group's weights come from.
type Model struct {
	UseModelStore bool     `mapstructure:"useModelStore"`
	HFRepoID      string   `mapstructure:"hfRepoId" validate:"omitempty,hfrepoid"`
	Files         []string `mapstructure:"files"`
}

// Probe mirrors the subset of a corev1.Probe an operator may override.
type Probe struct {
	Path                string `mapstructure:"path"`
	InitialDelaySeconds int32  `mapstructure:"initialDelaySeconds"`
	PeriodSeconds       int32  `mapstructure:"periodSeconds"`
	FailureThreshold    int32  `mapstructure:"failureThreshold"`
}

// Runtime describes the inference container.
type Runtime struct {
	Image           string            `mapstructure:"image" validate:"required"`
	Command         []string          `mapstructure:"command"`
	Env             map[string]string `mapstructure:"env"`
	VolumeMounts    []string          `mapstructure:"volumeMounts"`
	ReadinessProbe  *Probe            `mapstructure:"readinessProbe"`
	LivenessProbe   *Probe            `mapstructure:"livenessProbe"`
}

// AutoScaleTrigger is a KEDA trigger passed through verbatim.
type AutoScaleTrigger struct {
	Type     string            `mapstructure:"type" validate:"required"`
	Metadata map[string]string `mapstructure:"metadata"`
}

// ModelGroup is the standard (non-mixed-capacity) declared group shape.
type ModelGroup struct {
	Name              string             `mapstructure:"name" validate:"required,modelgroupname"`
	NodeType          string             `mapstructure:"nodeType" validate:"required"`
	DiskSize          int                `mapstructure:"diskSize"`
	GPU               *GPU               `mapstructure:"gpu"`
	MinInstances      int                `mapstructure:"minInstances" validate:"gte=1"`
	MaxInstances      int                `mapstructure:"maxInstances" validate:"gtefield=MinInstances"`
	ResourceRequest   *ResourceRequest   `mapstructure:"resourceRequest"`
	Model             *Model             `mapstructure:"model"`
	Runtime           Runtime            `mapstructure:"runtime" validate:"required"`
	AutoScaleTriggers []AutoScaleTrigger `mapstructure:"autoScaleTriggers"`
	IsPublic          bool               `mapstructure:"isPublic"`
}

// SpotEnvelope is the preemptible-capacity scaling range of a mixed
// capacity group.
type SpotEnvelope struct {
	MinInstances int `mapstructure:"minInstances" validate:"gte=0"`
	MaxInstances int `mapstructure:"maxInstances" validate:"gtefield=MinInstances"`
}

// MixedModelGroup is the mixed-capacity variant: a reserved-capacity
// floor (BaseInstances) plus a preemptible elastic envelope (Spot).
type MixedModelGroup struct {
	Name                 string             `mapstructure:"name" validate:"required,modelgroupname"`
	NodeType             string             `mapstructure:"nodeType" validate:"required"`
	DiskSize             int                `mapstructure:"diskSize"`
	GPU                  *GPU               `mapstructure:"gpu"`
	BaseInstances        int                `mapstructure:"baseInstances" validate:"gte=0"`
	MaxOnDemandInstances int                `mapstructure:"maxOnDemandInstances" validate:"gtefield=BaseInstances"`
	Spot                 SpotEnvelope       `mapstructure:"spot" validate:"required"`
	ResourceRequest      *ResourceRequest   `mapstructure:"resourceRequest"`
	Model                *Model             `mapstructure:"model"`
	Runtime              Runtime            `mapstructure:"runtime" validate:"required"`
	AutoScaleTriggers    []AutoScaleTrigger `mapstructure:"autoScaleTriggers"`
	IsPublic             bool               `mapstructure:"isPublic"`
}
