package lifecycle

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	autoscalingv2 "k8s.io/api/autoscaling/v2"
	corev1 "k8s.io/api/core/v1"
	policyv1 "k8s.io/api/policy/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	fakeclient "sigs.k8s.io/controller-runtime/pkg/client/fake"

	"github.com/modelfleet/fleetctl/pkg/config"
	"github.com/modelfleet/fleetctl/pkg/fleeterr"
	"github.com/modelfleet/fleetctl/pkg/hfhub"
	"github.com/modelfleet/fleetctl/pkg/k8sapply"
	"github.com/modelfleet/fleetctl/pkg/logging"
	"github.com/modelfleet/fleetctl/pkg/modelstager"
)

// nopStore satisfies Store without staging or resolving anything: Glob
// always reports no files and SaveStream accepts and discards. Groups
// that carry a Model still reach Stage, which finds nothing already
// staged and goes on to resolve its source.
type nopStore struct{}

func (nopStore) SaveStream(ctx context.Context, p string, src io.Reader, totalSize int64, expectedSha256 string, progress func(int64, int64)) error {
	return nil
}

func (nopStore) Glob(ctx context.Context, dir, pattern string) ([]string, error) { return nil, nil }

func newTestController(c client.Client) *Controller {
	store := nopStore{}
	stager := modelstager.New(store, hfhub.NewClient("", ""), 0, logging.NewNopLogger())
	return New(c, store, stager, "default", "models-bucket", "fleetctl", false, logging.NewNopLogger())
}

func newFakeClient() client.Client {
	return fakeclient.NewClientBuilder().WithScheme(k8sapply.NewScheme()).Build()
}

func standardGroup(name string) config.ModelGroup {
	return config.ModelGroup{
		Name:         name,
		NodeType:     "c7a.xlarge",
		MinInstances: 1,
		MaxInstances: 3,
		Runtime:      config.Runtime{Image: "vllm/vllm-openai:latest", Command: []string{"--model", "/data/weights"}},
	}
}

func mixedGroup(name string) config.MixedModelGroup {
	return config.MixedModelGroup{
		Name:                 name,
		NodeType:             "c7a.xlarge",
		BaseInstances:        1,
		MaxOnDemandInstances: 2,
		Spot:                 config.SpotEnvelope{MinInstances: 1, MaxInstances: 4},
		Runtime:              config.Runtime{Image: "vllm/vllm-openai:latest", Command: []string{"--model", "/data/weights"}},
	}
}

func TestReconcileStandardGroupAppliesDeploymentServiceAndHPA(t *testing.T) {
	c := newFakeClient()
	ctl := newTestController(c)

	doc := &config.Document{AWS: &config.AWSConfig{
		Cluster:     config.Cluster{Name: "test", Region: "us-east-1", Namespace: "default", NodeType: "c7a.xlarge"},
		ModelGroups: []config.ModelGroup{standardGroup("llama-7b")},
	}}

	require.NoError(t, ctl.Reconcile(context.Background(), doc))

	var dep appsv1.Deployment
	require.NoError(t, c.Get(context.Background(), types.NamespacedName{Name: "llama-7b", Namespace: "default"}, &dep))
	assert.Equal(t, int32(1), *dep.Spec.Replicas)

	var svc corev1.Service
	require.NoError(t, c.Get(context.Background(), types.NamespacedName{Name: "llama-7b", Namespace: "default"}, &svc))

	var hpa autoscalingv2.HorizontalPodAutoscaler
	require.NoError(t, c.Get(context.Background(), types.NamespacedName{Name: "llama-7b", Namespace: "default"}, &hpa))
	assert.Equal(t, int32(1), *hpa.Spec.MinReplicas)
	assert.Equal(t, int32(3), hpa.Spec.MaxReplicas)
}

func TestReconcileMixedGroupAppliesBaselineElasticAndDisruptionBudget(t *testing.T) {
	c := newFakeClient()
	ctl := newTestController(c)

	doc := &config.Document{AWS: &config.AWSConfig{
		Cluster:          config.Cluster{Name: "test", Region: "us-east-1", Namespace: "default", NodeType: "c7a.xlarge"},
		MixedModelGroups: []config.MixedModelGroup{mixedGroup("llama-mixed")},
	}}

	require.NoError(t, ctl.Reconcile(context.Background(), doc))

	var baseline appsv1.Deployment
	require.NoError(t, c.Get(context.Background(), types.NamespacedName{Name: "llama-mixed-baseline", Namespace: "default"}, &baseline))
	assert.Equal(t, int32(1), *baseline.Spec.Replicas)
	assert.Equal(t, "fail-safe", baseline.Spec.Template.Spec.PriorityClassName)

	var elastic appsv1.Deployment
	require.NoError(t, c.Get(context.Background(), types.NamespacedName{Name: "llama-mixed", Namespace: "default"}, &elastic))
	assert.Equal(t, int32(1), *elastic.Spec.Replicas)

	var pdb policyv1.PodDisruptionBudget
	require.NoError(t, c.Get(context.Background(), types.NamespacedName{Name: "llama-mixed", Namespace: "default"}, &pdb))
	assert.Equal(t, "30%", pdb.Spec.MaxUnavailable.StrVal)
}

func TestReconcileDeletesOrphanBeforeApplyingDeclared(t *testing.T) {
	c := newFakeClient()
	ctl := newTestController(c)

	orphanDep := &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{
			Name:      "retired-group",
			Namespace: "default",
			Labels:    map[string]string{"app": "model-group", "model": "retired-group"},
		},
		Spec: appsv1.DeploymentSpec{
			Selector: &metav1.LabelSelector{MatchLabels: map[string]string{"app": "model-group", "model": "retired-group"}},
			Template: corev1.PodTemplateSpec{ObjectMeta: metav1.ObjectMeta{Labels: map[string]string{"app": "model-group", "model": "retired-group"}}},
		},
	}
	require.NoError(t, c.Create(context.Background(), orphanDep))
	require.NoError(t, c.Create(context.Background(), &corev1.Service{ObjectMeta: metav1.ObjectMeta{Name: "retired-group", Namespace: "default"}}))

	doc := &config.Document{AWS: &config.AWSConfig{
		Cluster:     config.Cluster{Name: "test", Region: "us-east-1", Namespace: "default", NodeType: "c7a.xlarge"},
		ModelGroups: []config.ModelGroup{standardGroup("llama-7b")},
	}}

	require.NoError(t, ctl.Reconcile(context.Background(), doc))

	err := c.Get(context.Background(), types.NamespacedName{Name: "retired-group", Namespace: "default"}, &appsv1.Deployment{})
	assert.True(t, apierrors.IsNotFound(err))

	err = c.Get(context.Background(), types.NamespacedName{Name: "retired-group", Namespace: "default"}, &corev1.Service{})
	assert.True(t, apierrors.IsNotFound(err))

	require.NoError(t, c.Get(context.Background(), types.NamespacedName{Name: "llama-7b", Namespace: "default"}, &appsv1.Deployment{}))
}

func TestReconcileAggregatesPerGroupErrorsWithoutAbortingOthers(t *testing.T) {
	c := newFakeClient()
	ctl := newTestController(c)

	badGroup := standardGroup("bad-group")
	badGroup.Model = &config.Model{HFRepoID: "not-a-valid-repo-id", Files: []string{"*"}}

	doc := &config.Document{AWS: &config.AWSConfig{
		Cluster:     config.Cluster{Name: "test", Region: "us-east-1", Namespace: "default", NodeType: "c7a.xlarge"},
		ModelGroups: []config.ModelGroup{badGroup, standardGroup("good-group")},
	}}

	err := ctl.Reconcile(context.Background(), doc)
	require.Error(t, err)

	require.NoError(t, c.Get(context.Background(), types.NamespacedName{Name: "good-group", Namespace: "default"}, &appsv1.Deployment{}))

	err = c.Get(context.Background(), types.NamespacedName{Name: "bad-group", Namespace: "default"}, &appsv1.Deployment{})
	assert.True(t, apierrors.IsNotFound(err))
}

func TestReconcileUnknownNodeTypeFailsAsConfigError(t *testing.T) {
	c := newFakeClient()
	ctl := newTestController(c)

	badGroup := standardGroup("llama-7b")
	badGroup.NodeType = "decommissioned.xlarge"

	doc := &config.Document{AWS: &config.AWSConfig{
		Cluster:     config.Cluster{Name: "test", Region: "us-east-1", Namespace: "default", NodeType: "c7a.xlarge"},
		ModelGroups: []config.ModelGroup{badGroup},
	}}

	err := ctl.Reconcile(context.Background(), doc)
	require.Error(t, err)
	assert.True(t, fleeterr.IsKind(err, fleeterr.ConfigInvalid))

	err = c.Get(context.Background(), types.NamespacedName{Name: "llama-7b", Namespace: "default"}, &appsv1.Deployment{})
	assert.True(t, apierrors.IsNotFound(err))
}
