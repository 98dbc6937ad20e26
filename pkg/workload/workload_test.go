package workload

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	corev1 "k8s.io/api/core/v1"

	"github.com/modelfleet/fleetctl/pkg/config"
	"github.com/modelfleet/fleetctl/pkg/runtimeplanner"
)

func samplePlan() *runtimeplanner.LaunchPlan {
	return &runtimeplanner.LaunchPlan{
		Argv:     []string{"--host", "0.0.0.0", "--port", "8000"},
		Env:      map[string]string{"FOO": "bar"},
		Mounts:   []runtimeplanner.Mount{{Name: "model-data", MountPath: "/data"}},
		ReadyPath: "/health",
		LivePath:  "/health",
	}
}

func TestBuildPodTemplateRequiredAffinityAndTolerations(t *testing.T) {
	tmpl := BuildPodTemplate(PodParams{
		GroupName: "llama-7b",
		Namespace: "default",
		Image:     "ghcr.io/example/llama:latest",
		Plan:      samplePlan(),
		Resources: Resources{MilliCPU: 2000, MemoryBytes: 4 << 30, GPUCount: 1},
	})

	req := tmpl.Spec.Affinity.NodeAffinity.RequiredDuringSchedulingIgnoredDuringExecution
	require.Len(t, req.NodeSelectorTerms, 1)
	assert.Len(t, req.NodeSelectorTerms[0].MatchExpressions, 2)

	require.Len(t, tmpl.Spec.Tolerations, 3)
	assert.Equal(t, "nvidia.com/gpu", tmpl.Spec.Tolerations[2].Key)
	require.Len(t, tmpl.Spec.Containers, 1)
	container := tmpl.Spec.Containers[0]
	assert.Equal(t, "runtime", container.Name)
	assert.NotNil(t, container.Resources.Limits[corev1.ResourceName("nvidia.com/gpu")])
	assert.Contains(t, container.Env, corev1.EnvVar{Name: "FLEET_GROUP", Value: "llama-7b"})
	assert.NotNil(t, container.ReadinessProbe)
	assert.Equal(t, int32(60), container.ReadinessProbe.InitialDelaySeconds)
	assert.NotNil(t, container.LivenessProbe)
	assert.Equal(t, int32(240), container.LivenessProbe.InitialDelaySeconds)
	assert.Empty(t, tmpl.Spec.InitContainers)
}

func TestBuildPodTemplateAddsStageModelInitContainerWhenUseModelStore(t *testing.T) {
	tmpl := BuildPodTemplate(PodParams{
		GroupName:     "llama-7b",
		Namespace:     "default",
		Image:         "ghcr.io/example/llama:latest",
		Plan:          samplePlan(),
		UseModelStore: true,
		Bucket:        "my-bucket",
	})

	require.Len(t, tmpl.Spec.InitContainers, 1)
	init := tmpl.Spec.InitContainers[0]
	assert.Equal(t, "stage-model", init.Name)
	assert.Contains(t, init.Args, "s3://my-bucket/models/llama-7b/")
}

func TestBuildPodTemplateNoGPULimitWhenGPUCountZero(t *testing.T) {
	tmpl := BuildPodTemplate(PodParams{
		GroupName: "cpu-only",
		Namespace: "default",
		Image:     "ghcr.io/example/cpu:latest",
		Plan:      samplePlan(),
		Resources: Resources{MilliCPU: 1000, MemoryBytes: 1 << 30},
	})
	assert.Nil(t, tmpl.Spec.Containers[0].Resources.Limits)
}

func TestBuildDeploymentSelectorMatchesLabels(t *testing.T) {
	tmpl := BuildPodTemplate(PodParams{GroupName: "llama-7b", Namespace: "default", Image: "x", Plan: samplePlan()})
	dep := BuildDeployment("llama-7b", "default", "llama-7b", 3, tmpl, "")

	assert.Equal(t, "llama-7b", dep.Name)
	assert.Equal(t, int32(3), *dep.Spec.Replicas)
	assert.Equal(t, Labels("llama-7b"), dep.Spec.Selector.MatchLabels)
	assert.Empty(t, dep.Spec.Template.Spec.PriorityClassName)
}

func TestBuildDeploymentSetsPriorityClassWhenSupplied(t *testing.T) {
	tmpl := BuildPodTemplate(PodParams{GroupName: "llama-7b", Namespace: "default", Image: "x", Plan: samplePlan()})
	dep := BuildDeployment("llama-7b-baseline", "default", "llama-7b", 2, tmpl, FailSafePriorityClassName)
	assert.Equal(t, FailSafePriorityClassName, dep.Spec.Template.Spec.PriorityClassName)
}

func TestBuildServicePorts(t *testing.T) {
	svc := BuildService("llama-7b", "default")
	require.Len(t, svc.Spec.Ports, 2)
	assert.Equal(t, "http", svc.Spec.Ports[0].Name)
	assert.Equal(t, int32(80), svc.Spec.Ports[0].Port)
	assert.Equal(t, "metrics", svc.Spec.Ports[1].Name)
}

func TestBuildHPATargetsCPUUtilization(t *testing.T) {
	hpa := BuildHPA("llama-7b", "default", "llama-7b", 1, 4)
	require.Len(t, hpa.Spec.Metrics, 1)
	assert.Equal(t, int32(50), *hpa.Spec.Metrics[0].Resource.Target.AverageUtilization)
	assert.Equal(t, int32(1), *hpa.Spec.MinReplicas)
	assert.Equal(t, int32(4), hpa.Spec.MaxReplicas)
}

func TestBuildScaledObjectPassesTriggersVerbatim(t *testing.T) {
	triggers := []config.AutoScaleTrigger{
		{Type: "prometheus", Metadata: map[string]string{"query": "up"}},
	}
	so := BuildScaledObject("llama-7b", "default", "llama-7b", 1, 8, triggers)
	require.Len(t, so.Spec.Triggers, 1)
	assert.Equal(t, "prometheus", so.Spec.Triggers[0].Type)
	assert.Equal(t, int32(1), *so.Spec.MinReplicaCount)
	assert.Equal(t, int32(8), *so.Spec.MaxReplicaCount)
}

func TestMaxReplicaCountReproducesMaxFormula(t *testing.T) {
	assert.Equal(t, int32(10), MaxReplicaCount(10, 4))
	assert.Equal(t, int32(6), MaxReplicaCount(2, 6))
	assert.Equal(t, int32(5), MaxReplicaCount(5, 5))
}

func TestBuildServiceMonitorTwoEndpoints(t *testing.T) {
	sm := BuildServiceMonitor("llama-7b", "default")
	require.Len(t, sm.Spec.Endpoints, 2)
	assert.Equal(t, "metrics", sm.Spec.Endpoints[0].Port)
	assert.Equal(t, "http", sm.Spec.Endpoints[1].Port)
	assert.Equal(t, "/metrics", sm.Spec.Endpoints[1].Path)
}

func TestBuildVirtualServiceRoutesToServiceHost(t *testing.T) {
	vs := BuildVirtualService("llama-7b", "default")
	require.Len(t, vs.Spec.Http, 1)
	route := vs.Spec.Http[0].Route[0]
	assert.Equal(t, "llama-7b.default.svc.cluster.local", route.Destination.Host)
	assert.Equal(t, uint32(80), route.Destination.Port.Number)
}

// TestMixedCapacityPolicy covers Scenario D: a mixed-capacity group
// produces a fixed-size baseline Deployment on required on-demand
// affinity plus an elastic Deployment on preferred spot affinity, a
// PodDisruptionBudget spanning both, and a ScaledObject bound only to
// the elastic Deployment.
func TestMixedCapacityPolicy(t *testing.T) {
	baselinePod := BuildPodTemplate(PodParams{
		GroupName: "mixtral", Namespace: "default", Image: "x", Plan: samplePlan(),
		Affinity: OnDemandAffinity(),
	})
	elasticPod := BuildPodTemplate(PodParams{
		GroupName: "mixtral", Namespace: "default", Image: "x", Plan: samplePlan(),
		Affinity: SpotAffinity(),
	})

	params := MixedCapacityParams{
		GroupName:        "mixtral",
		Namespace:        "default",
		BaselinePod:      baselinePod,
		AutoScaledPod:    elasticPod,
		BaseInstances:    2,
		SpotMinInstances: 1,
	}

	baseline := BuildBaselineDeployment(params)
	assert.Equal(t, "mixtral-baseline", baseline.Name)
	assert.Equal(t, int32(2), *baseline.Spec.Replicas)
	assert.Equal(t, FailSafePriorityClassName, baseline.Spec.Template.Spec.PriorityClassName)
	req := baseline.Spec.Template.Spec.Affinity.NodeAffinity.RequiredDuringSchedulingIgnoredDuringExecution
	found := false
	for _, expr := range req.NodeSelectorTerms[0].MatchExpressions {
		if expr.Key == "lifecycle" && expr.Values[0] == lifecycleOnDemand {
			found = true
		}
	}
	assert.True(t, found, "baseline deployment must require the on-demand lifecycle label")

	elastic := BuildAutoScaledDeployment(params)
	assert.Equal(t, "mixtral", elastic.Name)
	assert.Equal(t, int32(1), *elastic.Spec.Replicas)
	assert.Empty(t, elastic.Spec.Template.Spec.PriorityClassName)
	pref := elastic.Spec.Template.Spec.Affinity.NodeAffinity.PreferredDuringSchedulingIgnoredDuringExecution
	require.Len(t, pref, 1)
	assert.Equal(t, lifecycleSpot, pref[0].Preference.MatchExpressions[0].Values[0])

	pdb := BuildDisruptionBudget("mixtral", "default")
	assert.Equal(t, "30%", pdb.Spec.MaxUnavailable.StrVal)
	assert.Equal(t, Labels("mixtral"), pdb.Spec.Selector.MatchLabels)

	so := BuildScaledObject("mixtral", "default", elastic.Name, params.SpotMinInstances, MaxReplicaCount(6, 4), nil)
	assert.Equal(t, "mixtral", so.Name)
	assert.Equal(t, int32(6), *so.Spec.MaxReplicaCount)
}
