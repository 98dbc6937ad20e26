package workload

import (
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"github.com/modelfleet/fleetctl/pkg/k8sutil"
	"github.com/modelfleet/fleetctl/pkg/runtimeplanner"
)

// Resources is the resolved cpu/memory/gpu a model group's pod
// requests, already net of the instance catalog's node-agent
// reservation.
type Resources struct {
	MilliCPU    int64
	MemoryBytes int64
	GPUCount    int64
}

// NodeAffinity selects which affinity shape a pod template gets: a
// standard group always requires its own dedicated pool; the
// mixed-capacity variant's two Deployments additionally require or
// prefer an on-demand/spot lifecycle label (§4.5).
type NodeAffinity struct {
	// LifecycleRequired, when non-empty, adds a required node affinity
	// term on the "lifecycle" label (used by the baseline Deployment).
	LifecycleRequired string
	// LifecyclePreferred, when non-empty, adds a preferred node affinity
	// term on the "lifecycle" label (used by the auto-scaled Deployment).
	LifecyclePreferred string
}

// PodParams is the input to BuildPodTemplate.
type PodParams struct {
	GroupName          string
	Namespace          string
	Image              string
	Plan               *runtimeplanner.LaunchPlan
	Resources          Resources
	UseModelStore      bool
	Bucket             string
	ServiceAccountName string
	Affinity           NodeAffinity
}

// BuildPodTemplate builds the Pod template shared by every Deployment
// variant for a model group: dedicated-pool node affinity, taints
// tolerated, anti-affinity spreading replicas across hosts, the
// model-data volume, and (when useModelStore) an init container that
// copies the group's staged prefix onto it before the runtime starts.
func BuildPodTemplate(p PodParams) corev1.PodTemplateSpec {
	labels := Labels(p.GroupName)

	affinity := &corev1.Affinity{
		NodeAffinity: &corev1.NodeAffinity{
			RequiredDuringSchedulingIgnoredDuringExecution: &corev1.NodeSelector{
				NodeSelectorTerms: []corev1.NodeSelectorTerm{{
					MatchExpressions: []corev1.NodeSelectorRequirement{
						{Key: LabelApp, Operator: corev1.NodeSelectorOpIn, Values: []string{LabelAppValue}},
						{Key: LabelModel, Operator: corev1.NodeSelectorOpIn, Values: []string{labels[LabelModel]}},
					},
				}},
			},
		},
		PodAntiAffinity: &corev1.PodAntiAffinity{
			RequiredDuringSchedulingIgnoredDuringExecution: []corev1.PodAffinityTerm{{
				LabelSelector: &metav1.LabelSelector{MatchLabels: labels},
				TopologyKey:   "kubernetes.io/hostname",
			}},
		},
	}
	applyLifecycleAffinity(affinity, p.Affinity)

	tolerations := []corev1.Toleration{
		{Key: LabelApp, Operator: corev1.TolerationOpEqual, Value: LabelAppValue, Effect: corev1.TaintEffectNoSchedule},
		{Key: LabelModel, Operator: corev1.TolerationOpEqual, Value: labels[LabelModel], Effect: corev1.TaintEffectNoSchedule},
	}
	resources := buildResourceRequirements(p.Resources)
	if k8sutil.IsGPUEnabled(resources) {
		tolerations = append(tolerations, corev1.Toleration{
			Key: "nvidia.com/gpu", Operator: corev1.TolerationOpExists, Effect: corev1.TaintEffectNoSchedule,
		})
	}

	var volumes []corev1.Volume
	volumes = k8sutil.AppendVolumeIfNotExists(volumes, corev1.Volume{
		Name:         modelDataVolumeName,
		VolumeSource: corev1.VolumeSource{EmptyDir: &corev1.EmptyDirVolumeSource{}},
	})

	var initContainers []corev1.Container
	if p.UseModelStore {
		initContainers = append(initContainers, corev1.Container{
			Name:    "stage-model",
			Image:   "amazon/aws-cli:latest",
			Command: []string{"aws"},
			Args: []string{
				"s3", "cp",
				"s3://" + p.Bucket + "/models/" + labels[LabelModel] + "/",
				"/data/",
				"--recursive",
			},
			VolumeMounts: []corev1.VolumeMount{{Name: modelDataVolumeName, MountPath: "/data"}},
		})
	}

	env := k8sutil.AppendEnvVarIfNotExists(buildEnvVars(p.Plan.Env), corev1.EnvVar{Name: "FLEET_GROUP", Value: p.GroupName})
	ports := k8sutil.AppendPortIfNotExists(nil, corev1.ContainerPort{Name: "http", ContainerPort: containerPort})

	container := corev1.Container{
		Name:           "runtime",
		Image:          p.Image,
		Args:           p.Plan.Argv,
		Env:            env,
		Resources:      resources,
		Ports:          ports,
		ReadinessProbe: buildProbe(p.Plan.ReadyPath, 60, 5, 5),
		LivenessProbe:  buildProbe(p.Plan.LivePath, 240, 30, 5),
		VolumeMounts:   buildVolumeMounts(p.Plan.Mounts),
	}

	return corev1.PodTemplateSpec{
		ObjectMeta: metav1.ObjectMeta{Labels: labels},
		Spec: corev1.PodSpec{
			ServiceAccountName: p.ServiceAccountName,
			Affinity:           affinity,
			Tolerations:        tolerations,
			Volumes:            volumes,
			InitContainers:     initContainers,
			Containers:         []corev1.Container{container},
		},
	}
}

func applyLifecycleAffinity(affinity *corev1.Affinity, na NodeAffinity) {
	if na.LifecycleRequired != "" {
		term := affinity.NodeAffinity.RequiredDuringSchedulingIgnoredDuringExecution
		term.NodeSelectorTerms[0].MatchExpressions = append(term.NodeSelectorTerms[0].MatchExpressions,
			corev1.NodeSelectorRequirement{Key: "lifecycle", Operator: corev1.NodeSelectorOpIn, Values: []string{na.LifecycleRequired}})
	}
	if na.LifecyclePreferred != "" {
		affinity.NodeAffinity.PreferredDuringSchedulingIgnoredDuringExecution = []corev1.PreferredSchedulingTerm{{
			Weight: 100,
			Preference: corev1.NodeSelectorTerm{
				MatchExpressions: []corev1.NodeSelectorRequirement{
					{Key: "lifecycle", Operator: corev1.NodeSelectorOpIn, Values: []string{na.LifecyclePreferred}},
				},
			},
		}}
	}
}

func buildEnvVars(env map[string]string) []corev1.EnvVar {
	var out []corev1.EnvVar
	for k, v := range env {
		out = append(out, corev1.EnvVar{Name: k, Value: v})
	}
	return out
}

func buildVolumeMounts(mounts []runtimeplanner.Mount) []corev1.VolumeMount {
	var out []corev1.VolumeMount
	for _, m := range mounts {
		out = append(out, corev1.VolumeMount{Name: m.Name, MountPath: m.MountPath})
	}
	return out
}

func buildResourceRequirements(r Resources) corev1.ResourceRequirements {
	requests := corev1.ResourceList{
		corev1.ResourceCPU:    *resource.NewMilliQuantity(r.MilliCPU, resource.DecimalSI),
		corev1.ResourceMemory: *resource.NewQuantity(r.MemoryBytes, resource.BinarySI),
	}
	reqs := corev1.ResourceRequirements{Requests: requests}
	if r.GPUCount > 0 {
		reqs.Limits = corev1.ResourceList{
			corev1.ResourceName("nvidia.com/gpu"): *resource.NewQuantity(r.GPUCount, resource.DecimalSI),
		}
	}
	return reqs
}

func buildProbe(path string, initialDelay, period, failureThreshold int32) *corev1.Probe {
	if path == "" {
		return nil
	}
	return &corev1.Probe{
		ProbeHandler: corev1.ProbeHandler{
			HTTPGet: &corev1.HTTPGetAction{Path: path, Port: intstrFromInt(containerPort)},
		},
		InitialDelaySeconds: initialDelay,
		PeriodSeconds:       period,
		FailureThreshold:    failureThreshold,
	}
}
