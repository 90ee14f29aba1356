package dag

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/taskforge/forge/internal/domain"
)

// TopoCache memoizes the topological ordering computed by TopoOrder, keyed by
// a digest of the dependency edge list so any task insertion or dependency
// edit naturally invalidates the cached entry. Backed by redigo's
// connection pool rather than a higher-level client wrapper, since the
// ready-set/cycle computation is cheap enough that only the connection
// pooling and TTL eviction of a real cache are needed, not a dependency
// layer on top.
type TopoCache struct {
	pool *redis.Pool
	ttl  time.Duration
}

// NewTopoCache returns a TopoCache backed by a redigo pool dialing addr
// (a real Redis instance in production, a miniredis instance in tests).
func NewTopoCache(addr string, ttl time.Duration) *TopoCache {
	return &TopoCache{
		pool: &redis.Pool{
			MaxIdle:     4,
			IdleTimeout: 60 * time.Second,
			Dial:        func() (redis.Conn, error) { return redis.Dial("tcp", addr) },
		},
		ttl: ttl,
	}
}

// Close releases the underlying connection pool.
func (c *TopoCache) Close() error {
	if c == nil || c.pool == nil {
		return nil
	}
	return c.pool.Close()
}

// edgeDigest returns a stable SHA256-derived key over the (id, depends_on)
// edge list of tasks, sorted by ID so map iteration order never affects it.
func edgeDigest(tasks map[string]*domain.Task) string {
	ids := make([]string, 0, len(tasks))
	for id := range tasks {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	type edge struct {
		ID        string   `json:"id"`
		DependsOn []string `json:"depends_on"`
	}
	edges := make([]edge, 0, len(ids))
	for _, id := range ids {
		deps := append([]string(nil), tasks[id].DependsOn...)
		sort.Strings(deps)
		edges = append(edges, edge{ID: id, DependsOn: deps})
	}

	payload, _ := json.Marshal(edges)
	sum := sha256.Sum256(payload)
	return "forge:topo:" + hex.EncodeToString(sum[:])
}

// Order returns the cached topological order for tasks, if present.
func (c *TopoCache) Order(tasks map[string]*domain.Task) ([]string, bool) {
	if c == nil {
		return nil, false
	}
	conn := c.pool.Get()
	defer conn.Close() //nolint:errcheck // best-effort pooled connection

	raw, err := redis.Bytes(conn.Do("GET", edgeDigest(tasks)))
	if err != nil {
		return nil, false
	}

	var order []string
	if err := json.Unmarshal(raw, &order); err != nil {
		return nil, false
	}
	return order, true
}

// StoreOrder caches order under the digest of tasks' current edge list.
func (c *TopoCache) StoreOrder(tasks map[string]*domain.Task, order []string) {
	if c == nil {
		return
	}
	payload, err := json.Marshal(order)
	if err != nil {
		return
	}

	conn := c.pool.Get()
	defer conn.Close() //nolint:errcheck // best-effort pooled connection

	args := redis.Args{}.Add(edgeDigest(tasks)).Add(payload)
	if c.ttl > 0 {
		args = args.Add("EX", int(c.ttl.Seconds()))
	}
	_, _ = conn.Do("SET", args...)
}
