package controller

import (
	"sync"

	"go.uber.org/zap"

	"github.com/atelierhq/atelier/backend/internal/blob"
	"github.com/atelierhq/atelier/backend/internal/kv"
)

// DefaultPartition is the partition the HTTP surface binds to.
const DefaultPartition = "app"

// Registry hands out one controller per tenant partition key, created on
// first use. Partitions share the backing store but nothing else, so they
// run fully in parallel.
type Registry struct {
	mu          sync.Mutex
	store       kv.Store
	assets      blob.Store
	assetBase   string
	controllers map[string]*Controller
	logger      *zap.Logger
}

// NewRegistry builds an empty registry over the given stores.
func NewRegistry(store kv.Store, assets blob.Store, assetBase string, logger *zap.Logger) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Registry{
		store:       store,
		assets:      assets,
		assetBase:   assetBase,
		controllers: make(map[string]*Controller),
		logger:      logger,
	}
}

// Get returns the controller for a partition, creating it if needed.
func (r *Registry) Get(partition string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ctrl, ok := r.controllers[partition]; ok {
		return ctrl
	}
	ctrl := New(partition, r.store, r.assets, r.assetBase, r.logger.With(zap.String("partition", partition)))
	r.controllers[partition] = ctrl
	return ctrl
}

// Default returns the controller backing the public HTTP surface.
func (r *Registry) Default() *Controller {
	return r.Get(DefaultPartition)
}
