package notify

import "sync"

// recentKeys remembers the last few idempotency keys a dispatcher delivered.
type recentKeys struct {
	mu    sync.Mutex
	limit int
	order []string
	seen  map[string]struct{}
}

func newRecentKeys(limit int) *recentKeys {
	if limit <= 0 {
		limit = 1024
	}
	return &recentKeys{limit: limit, seen: make(map[string]struct{}, limit)}
}

func (r *recentKeys) contains(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.seen[key]
	return ok
}

func (r *recentKeys) add(key string) {
	if key == "" {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.seen[key]; ok {
		return
	}
	r.seen[key] = struct{}{}
	r.order = append(r.order, key)
	if len(r.order) > r.limit {
		oldest := r.order[0]
		r.order = r.order[1:]
		delete(r.seen, oldest)
	}
}
