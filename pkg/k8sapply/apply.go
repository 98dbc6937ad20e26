package k8sapply

import (
	"context"

	"k8s.io/apimachinery/pkg/api/equality"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	"github.com/modelfleet/fleetctl/pkg/fleeterr"
)

// specGetter is implemented by every object kind in the closed set: it
// exposes the portion of the object that determines whether an update
// is actually needed, so Apply can semantic-diff instead of always
// issuing an Update (every teacher *_reconciler.go's checkXExist does
// this per-kind; Apply does it once, generically, via this interface).
type specGetter interface {
	client.Object
	applySpec() any
}

// Apply creates desired if it does not exist, or updates it in place
// if its spec differs from what is live. desired must satisfy
// specGetter; every wrapper type in this package does. On an Update
// conflict (the object changed between Get and Update) Apply re-fetches
// once and retries the update before surfacing the conflict as a
// fleeterr.Conflict.
func Apply(ctx context.Context, c client.Client, desired specGetter) error {
	existing := desired.DeepCopyObject().(specGetter)
	key := types.NamespacedName{Namespace: desired.GetNamespace(), Name: desired.GetName()}

	err := c.Get(ctx, key, existing)
	if apierrors.IsNotFound(err) {
		if err := c.Create(ctx, desired); err != nil {
			return fleeterr.New(fleeterr.ApiUnavailable, "k8sapply.Apply.Create", err)
		}
		return nil
	}
	if err != nil {
		return fleeterr.New(fleeterr.ApiUnavailable, "k8sapply.Apply.Get", err)
	}

	if equality.Semantic.DeepEqual(desired.applySpec(), existing.applySpec()) {
		return nil
	}

	desired.SetResourceVersion(existing.GetResourceVersion())
	if err := c.Update(ctx, desired); err != nil {
		if apierrors.IsConflict(err) {
			if retryErr := retryUpdate(ctx, c, desired, key); retryErr != nil {
				return fleeterr.New(fleeterr.Conflict, "k8sapply.Apply.Update", retryErr)
			}
			return nil
		}
		return fleeterr.New(fleeterr.ApiUnavailable, "k8sapply.Apply.Update", err)
	}
	return nil
}

func retryUpdate(ctx context.Context, c client.Client, desired specGetter, key types.NamespacedName) error {
	latest := desired.DeepCopyObject().(specGetter)
	if err := c.Get(ctx, key, latest); err != nil {
		return err
	}
	desired.SetResourceVersion(latest.GetResourceVersion())
	return c.Update(ctx, desired)
}

// Delete removes the object identified by key from the cluster. A
// NotFound result is treated as success: deleting an already-gone
// object is the common case when cleaning up orphans concurrently with
// another actor (§4.6).
func Delete(ctx context.Context, c client.Client, obj client.Object) error {
	if err := c.Delete(ctx, obj); err != nil && !apierrors.IsNotFound(err) {
		return fleeterr.New(fleeterr.ApiUnavailable, "k8sapply.Delete", err)
	}
	return nil
}
