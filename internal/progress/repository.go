package progress

import (
	"context"
	"sort"
	"sync"
)

// Repository persists stage progress records across restarts.
type Repository interface {
	Load(ctx context.Context, scope Scope) ([]StageProgress, error)
	Save(ctx context.Context, p StageProgress) error
}

// NopRepository persists nothing.
type NopRepository struct{}

func (NopRepository) Load(context.Context, Scope) ([]StageProgress, error) { return nil, nil }
func (NopRepository) Save(context.Context, StageProgress) error            { return nil }

// MemoryRepository keeps saved records in memory. Useful in tests and as the
// default backend.
type MemoryRepository struct {
	mu      sync.Mutex
	records map[Key]StageProgress
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{records: make(map[Key]StageProgress)}
}

func (r *MemoryRepository) Load(_ context.Context, scope Scope) ([]StageProgress, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []StageProgress
	for k, p := range r.records {
		if k.Scope == scope {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StageID < out[j].StageID })
	return out, nil
}

func (r *MemoryRepository) Save(_ context.Context, p StageProgress) error {
	r.mu.Lock()
	r.records[p.Key()] = p
	r.mu.Unlock()
	return nil
}
