package k8sapply

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"
	fakeclient "sigs.k8s.io/controller-runtime/pkg/client/fake"
)

func newFakeClient() client.Client {
	return fakeclient.NewClientBuilder().WithScheme(NewScheme()).Build()
}

func nsName(name, namespace string) types.NamespacedName {
	return types.NamespacedName{Name: name, Namespace: namespace}
}

func sampleDeployment(replicas int32) *appsv1.Deployment {
	one := replicas
	return &appsv1.Deployment{
		ObjectMeta: metav1.ObjectMeta{Name: "llama-7b", Namespace: "default"},
		Spec: appsv1.DeploymentSpec{
			Replicas: &one,
			Selector: &metav1.LabelSelector{MatchLabels: map[string]string{"app": "model-group"}},
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: map[string]string{"app": "model-group"}},
			},
		},
	}
}

func TestApplyCreatesWhenMissing(t *testing.T) {
	c := newFakeClient()
	ctx := context.Background()

	require.NoError(t, Apply(ctx, c, WrapDeployment(sampleDeployment(1))))

	var got appsv1.Deployment
	require.NoError(t, c.Get(ctx, nsName("llama-7b", "default"), &got))
	assert.Equal(t, int32(1), *got.Spec.Replicas)
}

func TestApplyUpdatesWhenSpecDiffers(t *testing.T) {
	c := newFakeClient()
	ctx := context.Background()

	require.NoError(t, Apply(ctx, c, WrapDeployment(sampleDeployment(1))))
	require.NoError(t, Apply(ctx, c, WrapDeployment(sampleDeployment(3))))

	var got appsv1.Deployment
	require.NoError(t, c.Get(ctx, nsName("llama-7b", "default"), &got))
	assert.Equal(t, int32(3), *got.Spec.Replicas)
}

func TestApplyIsNoOpWhenSpecUnchanged(t *testing.T) {
	c := newFakeClient()
	ctx := context.Background()

	require.NoError(t, Apply(ctx, c, WrapDeployment(sampleDeployment(2))))

	var before appsv1.Deployment
	require.NoError(t, c.Get(ctx, nsName("llama-7b", "default"), &before))

	require.NoError(t, Apply(ctx, c, WrapDeployment(sampleDeployment(2))))

	var after appsv1.Deployment
	require.NoError(t, c.Get(ctx, nsName("llama-7b", "default"), &after))
	assert.Equal(t, before.ResourceVersion, after.ResourceVersion)
}

func TestDeleteMissingIsSuccess(t *testing.T) {
	c := newFakeClient()
	ctx := context.Background()

	err := Delete(ctx, c, sampleDeployment(1))
	assert.NoError(t, err)
}

func TestDeleteExistingSucceeds(t *testing.T) {
	c := newFakeClient()
	ctx := context.Background()

	require.NoError(t, Apply(ctx, c, WrapDeployment(sampleDeployment(1))))

	var got appsv1.Deployment
	require.NoError(t, c.Get(ctx, nsName("llama-7b", "default"), &got))
	require.NoError(t, Delete(ctx, c, &got))

	err := c.Get(ctx, nsName("llama-7b", "default"), &appsv1.Deployment{})
	assert.True(t, apierrors.IsNotFound(err))
}
