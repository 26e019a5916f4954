package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"rankedtasks/internal/domain"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// MemoryTaskRepository keeps tasks in process memory. Transactions are
// serialized and work on a copy that replaces the live set on success, so a
// failed transaction leaves no trace.
type MemoryTaskRepository struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]domain.Task
	now   func() time.Time
}

func NewMemoryTaskRepository() *MemoryTaskRepository {
	return &MemoryTaskRepository{
		tasks: make(map[uuid.UUID]domain.Task),
		now:   time.Now,
	}
}

func (r *MemoryTaskRepository) WithTx(ctx context.Context, fn func(tx TaskTx) error) error {
	if err := ctx.Err(); err != nil {
		return errors.WithStack(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	work := make(map[uuid.UUID]domain.Task, len(r.tasks))
	for id, t := range r.tasks {
		work[id] = t
	}

	if err := fn(&memoryTaskTx{tasks: work, now: r.now}); err != nil {
		return err
	}
	if err := checkUniqueRanks(work); err != nil {
		return err
	}

	r.tasks = work
	return nil
}

func (r *MemoryTaskRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return &t, nil
}

func (r *MemoryTaskRepository) List(ctx context.Context, after *float64, limit int) ([]*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	res := make([]*domain.Task, 0, len(r.tasks))
	for _, t := range sortedByRank(r.tasks) {
		if after != nil && t.Rank <= *after {
			continue
		}
		task := t
		res = append(res, &task)
		if limit > 0 && len(res) == limit {
			break
		}
	}
	return res, nil
}

func (r *MemoryTaskRepository) UpdateTitle(ctx context.Context, id uuid.UUID, title string) (*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.WithStack(err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	t.Title = title
	r.tasks[id] = t
	return &t, nil
}

func (r *MemoryTaskRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

type memoryTaskTx struct {
	tasks map[uuid.UUID]domain.Task
	now   func() time.Time
}

func (t *memoryTaskTx) Get(_ context.Context, id uuid.UUID) (*domain.Task, error) {
	task, ok := t.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	return &task, nil
}

func (t *memoryTaskTx) MaxRank(_ context.Context, exclude uuid.UUID) (float64, bool, error) {
	var (
		top   float64
		found bool
	)
	for id, task := range t.tasks {
		if id == exclude {
			continue
		}
		if !found || task.Rank > top {
			top, found = task.Rank, true
		}
	}
	return top, found, nil
}

func (t *memoryTaskTx) PrevRank(_ context.Context, below float64, exclude uuid.UUID) (float64, bool, error) {
	var (
		prev  float64
		found bool
	)
	for id, task := range t.tasks {
		if id == exclude || task.Rank >= below {
			continue
		}
		if !found || task.Rank > prev {
			prev, found = task.Rank, true
		}
	}
	return prev, found, nil
}

func (t *memoryTaskTx) Insert(_ context.Context, task *domain.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if _, exists := t.tasks[task.ID]; exists {
		return errors.Errorf("insert task: duplicate id %s", task.ID)
	}
	if t.rankTaken(task.Rank, uuid.Nil) {
		return ErrRankConflict
	}
	task.CreatedAt = t.now().UTC()
	t.tasks[task.ID] = *task
	return nil
}

func (t *memoryTaskTx) UpdateRank(_ context.Context, id uuid.UUID, rank float64) error {
	task, ok := t.tasks[id]
	if !ok {
		return ErrTaskNotFound
	}
	if t.rankTaken(rank, id) {
		return ErrRankConflict
	}
	task.Rank = rank
	t.tasks[id] = task
	return nil
}

func (t *memoryTaskTx) IDsByRank(_ context.Context) ([]uuid.UUID, error) {
	sorted := sortedByRank(t.tasks)
	ids := make([]uuid.UUID, len(sorted))
	for i, task := range sorted {
		ids[i] = task.ID
	}
	return ids, nil
}

// Renumber skips per-row checks; uniqueness is verified when the
// transaction ends, like a deferred constraint.
func (t *memoryTaskTx) Renumber(_ context.Context, ids []uuid.UUID, ranks []float64) error {
	if len(ids) != len(ranks) {
		return errors.Errorf("renumber: %d ids for %d ranks", len(ids), len(ranks))
	}
	for i, id := range ids {
		task, ok := t.tasks[id]
		if !ok {
			return ErrTaskNotFound
		}
		task.Rank = ranks[i]
		t.tasks[id] = task
	}
	return nil
}

func (t *memoryTaskTx) rankTaken(rank float64, except uuid.UUID) bool {
	for id, task := range t.tasks {
		if id != except && task.Rank == rank {
			return true
		}
	}
	return false
}

func sortedByRank(tasks map[uuid.UUID]domain.Task) []domain.Task {
	out := make([]domain.Task, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Rank < out[j].Rank })
	return out
}

func checkUniqueRanks(tasks map[uuid.UUID]domain.Task) error {
	seen := make(map[float64]struct{}, len(tasks))
	for _, t := range tasks {
		if _, dup := seen[t.Rank]; dup {
			return ErrRankConflict
		}
		seen[t.Rank] = struct{}{}
	}
	return nil
}
