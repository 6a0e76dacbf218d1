/*
registry.go - Tenant resolution and handle cache

PURPOSE:
  Resolve(key) turns a tenant key into the Handle for that organization's
  database, provisioning the database on first access and caching the
  Handle for the life of the Registry.

RESOLUTION:
  1. key shape check                     -> ErrTenantNotFound
  2. organization lookup (EVERY call)    -> ErrTenantNotFound / ErrTenantInactive
  3. cached handle?                      -> return it
  4. first access: provision + cache     -> return it

  Step 2 runs even when a handle is cached, so deactivating an organization
  shuts off access immediately without evicting anything.

FIRST ACCESS:
  Concurrent first resolutions of one key collapse into a single
  provisioning through singleflight; the map is re-checked inside the
  flight. Every caller receives the same *Handle.

SEE ALSO:
  - handle.go: What a Handle carries
  - api/middleware.go: Resolves the caller's tenant per request
*/
package tenant

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/warp/hrms/auth"
	"github.com/warp/hrms/generic"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"
)

var tracer = otel.Tracer("github.com/warp/hrms/tenant")

// Registry owns every tenant Handle in the process.
type Registry struct {
	dir    Directory
	prov   Provisioner
	logger *slog.Logger

	mu      sync.RWMutex
	handles map[string]*Handle
	group   singleflight.Group

	provisioned atomic.Int64
}

// NewRegistry creates an empty registry.
func NewRegistry(dir Directory, prov Provisioner, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		dir:     dir,
		prov:    prov,
		logger:  logger.With("component", "registry"),
		handles: make(map[string]*Handle),
	}
}

// Resolve returns the Handle for key. See the file comment for the steps.
func (r *Registry) Resolve(ctx context.Context, key string) (*Handle, error) {
	ctx, span := tracer.Start(ctx, "tenant.Resolve")
	defer span.End()

	key = strings.ToLower(strings.TrimSpace(key))
	span.SetAttributes(attribute.String("tenant.key", key))
	if !auth.ValidSlug(key) {
		return nil, fmt.Errorf("%w: %q", generic.ErrTenantNotFound, key)
	}

	org, err := r.dir.GetOrganizationBySlug(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to look up organization: %w", err)
	}
	if org == nil {
		return nil, fmt.Errorf("%w: %q", generic.ErrTenantNotFound, key)
	}
	if !org.Active {
		return nil, fmt.Errorf("%w: %q", generic.ErrTenantInactive, key)
	}

	if h := r.cached(key); h != nil {
		return h, nil
	}

	v, err, _ := r.group.Do(key, func() (any, error) {
		if h := r.cached(key); h != nil {
			return h, nil
		}
		// Waiters share this call, so it must outlive the first caller's request.
		st, err := r.prov.Open(context.WithoutCancel(ctx), key)
		if err != nil {
			return nil, fmt.Errorf("failed to provision tenant %q: %w", key, err)
		}
		h := newHandle(*org, st, r.logger)

		r.mu.Lock()
		r.handles[key] = h
		r.mu.Unlock()
		r.provisioned.Add(1)

		r.logger.Info("tenant provisioned", "tenant", key, "org", org.ID)
		return h, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Handle), nil
}

func (r *Registry) cached(key string) *Handle {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.handles[key]
}

// Handles returns a snapshot of every provisioned handle ordered by slug.
func (r *Registry) Handles() []*Handle {
	r.mu.RLock()
	out := make([]*Handle, 0, len(r.handles))
	for _, h := range r.handles {
		out = append(out, h)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Slug < out[j].Slug })
	return out
}

// Provisioned counts how many tenant databases this registry has opened.
func (r *Registry) Provisioned() int64 {
	return r.provisioned.Load()
}

// Close releases every tenant database. The registry must not be used
// afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for slug, h := range r.handles {
		if err := h.storage.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close tenant %q: %w", slug, err)
		}
		delete(r.handles, slug)
	}
	return firstErr
}
