package provider

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	categoryCacheTTL = time.Hour
	maxTreeDepth     = 10
)

// CategoryTreeClient fetches the provider's category forest.
type CategoryTreeClient interface {
	FetchCategoryTree(ctx context.Context, nested bool) ([]CategoryNode, error)
}

// CategoryResolver resolves human-entered category names to identifiers and
// expands root identifiers into their full descendant sets. Both the flat
// and the hierarchical fetch are cached with a fixed TTL so a sync session
// does not hammer the provider with repeated tree reads.
type CategoryResolver struct {
	client CategoryTreeClient
	log    *slog.Logger

	mu         sync.Mutex
	flat       map[string]string // name -> id
	flatAt     time.Time
	children   map[string][]string // id -> direct child ids
	childrenAt time.Time
	nowFunc    func() time.Time // for testing
}

// ResolverOption configures the CategoryResolver.
type ResolverOption func(*CategoryResolver)

// WithResolverLogger sets the logger.
func WithResolverLogger(l *slog.Logger) ResolverOption {
	return func(r *CategoryResolver) {
		r.log = l
	}
}

// WithResolverNowFunc overrides the time function for testing.
func WithResolverNowFunc(f func() time.Time) ResolverOption {
	return func(r *CategoryResolver) {
		r.nowFunc = f
	}
}

// NewCategoryResolver creates a resolver over the given tree client.
func NewCategoryResolver(client CategoryTreeClient, opts ...ResolverOption) *CategoryResolver {
	r := &CategoryResolver{
		client:  client,
		log:     slog.Default(),
		nowFunc: time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveNames maps category names to provider identifiers via the flat
// fetch. Unknown names produce an error; name matching is exact.
func (r *CategoryResolver) ResolveNames(ctx context.Context, names []string) ([]string, error) {
	flat, err := r.flatMapping(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving category names: %w", err)
	}

	ids := make([]string, 0, len(names))
	for _, name := range names {
		id, ok := flat[name]
		if !ok {
			return nil, fmt.Errorf("unknown category %q", name)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ResolveDescendants returns the given roots plus every transitive child,
// deduplicated. The walk is iterative with a visited set and a depth cap:
// upstream data is not trusted to be acyclic. If the hierarchical fetch
// fails, it degrades to returning just the roots rather than failing the
// whole sync.
func (r *CategoryResolver) ResolveDescendants(ctx context.Context, rootIDs []string) []string {
	children, err := r.childMapping(ctx)
	if err != nil {
		r.log.Warn("hierarchical category fetch failed, using roots only", "error", err)
		return dedupe(rootIDs)
	}

	visited := make(map[string]struct{}, len(rootIDs))
	result := make([]string, 0, len(rootIDs))

	type frame struct {
		id    string
		depth int
	}

	queue := make([]frame, 0, len(rootIDs))
	for _, id := range rootIDs {
		queue = append(queue, frame{id: id})
	}

	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]

		if _, seen := visited[f.id]; seen {
			continue
		}
		visited[f.id] = struct{}{}
		result = append(result, f.id)

		if f.depth >= maxTreeDepth {
			continue
		}
		for _, child := range children[f.id] {
			queue = append(queue, frame{id: child, depth: f.depth + 1})
		}
	}

	return result
}

// Invalidate drops both caches. The next call refetches.
func (r *CategoryResolver) Invalidate() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.flat = nil
	r.children = nil
}

func (r *CategoryResolver) flatMapping(ctx context.Context) (map[string]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.flat != nil && r.nowFunc().Sub(r.flatAt) < categoryCacheTTL {
		return r.flat, nil
	}

	nodes, err := r.client.FetchCategoryTree(ctx, false)
	if err != nil {
		return nil, err
	}

	flat := make(map[string]string, len(nodes))
	for _, n := range nodes {
		flat[n.Name] = n.ID
	}

	r.flat = flat
	r.flatAt = r.nowFunc()
	return flat, nil
}

func (r *CategoryResolver) childMapping(ctx context.Context) (map[string][]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.children != nil && r.nowFunc().Sub(r.childrenAt) < categoryCacheTTL {
		return r.children, nil
	}

	nodes, err := r.client.FetchCategoryTree(ctx, true)
	if err != nil {
		return nil, err
	}

	children := make(map[string][]string)
	flattenChildren(nodes, children)

	r.children = children
	r.childrenAt = r.nowFunc()
	return children, nil
}

// flattenChildren builds the id -> child-ids adjacency from either shape the
// provider returns: nested trees or flat lists with parent pointers.
func flattenChildren(nodes []CategoryNode, into map[string][]string) {
	type frame struct {
		node  CategoryNode
		depth int
	}

	stack := make([]frame, 0, len(nodes))
	for _, n := range nodes {
		stack = append(stack, frame{node: n})
	}

	for len(stack) > 0 {
		f := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if f.node.ParentID != "" {
			appendUnique(into, f.node.ParentID, f.node.ID)
		}

		if f.depth >= maxTreeDepth {
			continue
		}
		for _, child := range f.node.Children {
			appendUnique(into, f.node.ID, child.ID)
			stack = append(stack, frame{node: child, depth: f.depth + 1})
		}
	}
}

func appendUnique(m map[string][]string, key, val string) {
	for _, existing := range m[key] {
		if existing == val {
			return
		}
	}
	m[key] = append(m[key], val)
}

func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
