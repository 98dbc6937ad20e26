// Package clusterctx holds the shared, thread-safe record of resolved
// cluster facts that cluster bring-up publishes and the lifecycle
// controller reads: cloud provider, region, namespace, bucket, registry
// URL, and the live Kubernetes handles. Each field has its own
// reader-writer lock so publishing one fact never blocks a reader of
// another, and no callback is ever invoked while holding a lock.
package clusterctx

import (
	"sync"

	"sigs.k8s.io/controller-runtime/pkg/client"
)

// Context is the cluster's shared state. Zero value is usable; fields
// are populated as cluster bring-up discovers them. Never store a
// back-reference from a component into a Context; components receive
// the values they need as explicit arguments instead.
type Context struct {
	provider  guardedString
	region    guardedString
	namespace guardedString
	bucket    guardedString
	registry  guardedString

	k8sMu     sync.RWMutex
	k8sClient client.Client
}

type guardedString struct {
	mu  sync.RWMutex
	val string
	set bool
}

func (g *guardedString) Get() (string, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.val, g.set
}

func (g *guardedString) Set(v string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.val = v
	g.set = true
}

func (c *Context) Provider() (string, bool)  { return c.provider.Get() }
func (c *Context) SetProvider(v string)      { c.provider.Set(v) }
func (c *Context) Region() (string, bool)    { return c.region.Get() }
func (c *Context) SetRegion(v string)        { c.region.Set(v) }
func (c *Context) Namespace() (string, bool) { return c.namespace.Get() }
func (c *Context) SetNamespace(v string)     { c.namespace.Set(v) }
func (c *Context) Bucket() (string, bool)    { return c.bucket.Get() }
func (c *Context) SetBucket(v string)        { c.bucket.Set(v) }
func (c *Context) Registry() (string, bool)  { return c.registry.Get() }
func (c *Context) SetRegistry(v string)      { c.registry.Set(v) }

// K8sClient returns the cluster's controller-runtime client, if
// published.
func (c *Context) K8sClient() (client.Client, bool) {
	c.k8sMu.RLock()
	defer c.k8sMu.RUnlock()
	return c.k8sClient, c.k8sClient != nil
}

// SetK8sClient publishes the cluster's controller-runtime client.
func (c *Context) SetK8sClient(cl client.Client) {
	c.k8sMu.Lock()
	defer c.k8sMu.Unlock()
	c.k8sClient = cl
}

// New builds a Context pre-populated with the facts the caller already
// knows at startup (typically read from the configuration document),
// leaving the Kubernetes client to be published once the collaborator
// that builds it has run.
func New(provider, region, namespace, bucket, registry string) *Context {
	c := &Context{}
	c.SetProvider(provider)
	c.SetRegion(region)
	c.SetNamespace(namespace)
	c.SetBucket(bucket)
	c.SetRegistry(registry)
	return c
}
