package services

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/diabolofocus/form-displays-sub000/internal/observability"
	"github.com/diabolofocus/form-displays-sub000/internal/platform/logger"
)

type NameResolver interface {
	Resolve(ctx context.Context, ids []string) (map[string]string, error)
}

// FormNameResolver maps form ids to display names with one catalog call.
// Failures are returned; falling back is the caller's decision.
type FormNameResolver struct {
	catalog FormCatalog
}

func NewFormNameResolver(catalog FormCatalog) *FormNameResolver {
	return &FormNameResolver{catalog: catalog}
}

func (r *FormNameResolver) Resolve(ctx context.Context, ids []string) (map[string]string, error) {
	forms, err := r.catalog.ListForms(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list forms: %w", err)
	}
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	out := make(map[string]string, len(ids))
	for _, f := range forms {
		if _, ok := want[f.ID]; !ok {
			continue
		}
		name := strings.TrimSpace(f.Name)
		if name == "" {
			name = f.ID
		}
		out[f.ID] = name
	}
	return out, nil
}

// IdentityNames maps every id to itself.
func IdentityNames(ids []string) map[string]string {
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		out[id] = id
	}
	return out
}

// FormNames caches the names for the most recently requested id list.
// Asking again for the same list does not refetch once it has resolved;
// asking for a different list always does, and the newest request's result
// wins over slower older ones.
type FormNames struct {
	resolver NameResolver
	log      *logger.Logger
	metrics  *observability.Metrics
	group    singleflight.Group

	mu       sync.RWMutex
	key      string
	resolved bool
	gen      uint64
	names    map[string]string
}

func NewFormNames(resolver NameResolver, log *logger.Logger, metrics *observability.Metrics) *FormNames {
	return &FormNames{
		resolver: resolver,
		log:      log.With("service", "FormNames"),
		metrics:  metrics,
		names:    map[string]string{},
	}
}

// Lookup returns a name for every id in ids, refreshing first when needed.
// Callers asking for the same ids share one catalog call. The shared call
// does not inherit any caller's cancellation; a caller whose own ctx ends
// first gets identity names without affecting the others.
func (n *FormNames) Lookup(ctx context.Context, ids []string) (map[string]string, bool) {
	key := strings.Join(ids, ",")

	n.mu.Lock()
	if n.resolved && n.key == key {
		names := pick(n.names, ids)
		n.mu.Unlock()
		n.metrics.IncNameLookup("cached")
		return names, false
	}
	n.gen++
	gen := n.gen
	n.mu.Unlock()

	shared := context.WithoutCancel(ctx)
	ch := n.group.DoChan(key, func() (interface{}, error) {
		return n.resolver.Resolve(shared, ids)
	})

	var (
		names map[string]string
		err   error
	)
	select {
	case res := <-ch:
		err = res.Err
		if err == nil {
			names = res.Val.(map[string]string)
		}
	case <-ctx.Done():
		n.metrics.IncNameLookup("fallback")
		return IdentityNames(ids), true
	}

	if err != nil {
		n.log.Warn("form name lookup failed, using ids", "forms", len(ids), "error", err)
		n.metrics.IncNameLookup("fallback")
		names = IdentityNames(ids)
	} else {
		n.metrics.IncNameLookup("resolved")
	}

	n.mu.Lock()
	if gen == n.gen {
		n.key = key
		n.resolved = err == nil
		n.names = names
	}
	n.mu.Unlock()

	return pick(names, ids), err != nil
}

func pick(names map[string]string, ids []string) map[string]string {
	out := make(map[string]string, len(ids))
	for _, id := range ids {
		out[id] = nameOr(names, id)
	}
	return out
}

func nameOr(names map[string]string, id string) string {
	if name, ok := names[id]; ok && name != "" {
		return name
	}
	return id
}
