package service

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"

	"rankedtasks/internal/domain"
	"rankedtasks/internal/rank"
	"rankedtasks/internal/repository"

	"github.com/google/uuid"
)

var (
	ErrTaskNotFound = repository.ErrTaskNotFound
	ErrRankConflict = repository.ErrRankConflict
	// ErrPrecisionExhausted means no distinct rank fits between the
	// neighbors. Retrying does not help; Rebalance does.
	ErrPrecisionExhausted = errors.New("rank precision exhausted, rebalance required")
	ErrInvalidMove        = errors.New("task cannot be moved before itself")
	ErrInvalidTitle       = errors.New("title must not be empty")
	ErrInvalidCursor      = errors.New("invalid cursor")
)

const defaultConflictRetries = 3

// TaskServiceConfig tunes the rank engine.
type TaskServiceConfig struct {
	// ConflictRetries is how many times a write is recomputed after losing a
	// race on the unique rank constraint.
	ConflictRetries int
	// DefaultPageSize caps ListPage when the caller gives no limit; 0 means
	// all remaining tasks.
	DefaultPageSize int
}

// TaskService keeps the task list ordered by rank. Each write computes its
// rank and persists it inside one store transaction.
type TaskService struct {
	store    repository.TaskStore
	retries  int
	pageSize int
}

func NewTaskService(store repository.TaskStore) *TaskService {
	return &TaskService{store: store, retries: defaultConflictRetries}
}

// NewTaskServiceWithConfig creates a task service with custom retry and paging settings
func NewTaskServiceWithConfig(store repository.TaskStore, cfg TaskServiceConfig) *TaskService {
	s := NewTaskService(store)
	if cfg.ConflictRetries >= 0 {
		s.retries = cfg.ConflictRetries
	}
	if cfg.DefaultPageSize > 0 {
		s.pageSize = cfg.DefaultPageSize
	}
	return s
}

// Create appends a task, or places it immediately before beforeID.
func (s *TaskService) Create(ctx context.Context, title string, beforeID *uuid.UUID) (*domain.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrInvalidTitle
	}

	var created *domain.Task
	err := s.withRetry("create", func() error {
		return s.store.WithTx(ctx, func(tx repository.TaskTx) error {
			r, err := rankBefore(ctx, tx, beforeID, uuid.Nil)
			if err != nil {
				return err
			}
			t := &domain.Task{Title: title, Rank: r}
			if err := tx.Insert(ctx, t); err != nil {
				return err
			}
			created = t
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Move repositions task id immediately before beforeID, or at the tail when
// beforeID is nil. A task already in that slot keeps its rank.
func (s *TaskService) Move(ctx context.Context, id uuid.UUID, beforeID *uuid.UUID) (*domain.Task, error) {
	if beforeID != nil && *beforeID == id {
		return nil, ErrInvalidMove
	}

	var moved *domain.Task
	err := s.withRetry("move", func() error {
		return s.store.WithTx(ctx, func(tx repository.TaskTx) error {
			t, err := tx.Get(ctx, id)
			if err != nil {
				return err
			}

			placed, err := inPlace(ctx, tx, t, beforeID)
			if err != nil {
				return err
			}
			if placed {
				moved = t
				return nil
			}

			r, err := rankBefore(ctx, tx, beforeID, id)
			if err != nil {
				return err
			}
			if err := tx.UpdateRank(ctx, id, r); err != nil {
				return err
			}
			t.Rank = r
			moved = t
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return moved, nil
}

// UpdateTitle renames a task without touching its rank.
func (s *TaskService) UpdateTitle(ctx context.Context, id uuid.UUID, title string) (*domain.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrInvalidTitle
	}

	t, err := s.store.UpdateTitle(ctx, id, title)
	observe("update_title", err)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// ListPage returns tasks ranked strictly after the cursor. HasNextPage is
// set whenever the page is non-empty; callers page until they get an empty
// one.
func (s *TaskService) ListPage(ctx context.Context, after *float64, limit int) (*domain.Page, error) {
	if limit <= 0 {
		limit = s.pageSize
	}

	tasks, err := s.store.List(ctx, after, limit)
	observe("list", err)
	if err != nil {
		return nil, err
	}

	page := &domain.Page{Tasks: tasks, HasNextPage: len(tasks) > 0}
	if len(tasks) > 0 {
		end := tasks[len(tasks)-1].Rank
		page.EndCursor = &end
	}
	return page, nil
}

// ResolveCursor turns an afterId value into a rank cursor. The value is
// either a task id or a rank previously returned as endCursor. Empty means
// the start of the list.
func (s *TaskService) ResolveCursor(ctx context.Context, afterID string) (*float64, error) {
	afterID = strings.TrimSpace(afterID)
	if afterID == "" {
		return nil, nil
	}

	if id, err := uuid.Parse(afterID); err == nil {
		t, err := s.store.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		return &t.Rank, nil
	}

	r, err := strconv.ParseFloat(afterID, 64)
	if err != nil || math.IsNaN(r) || math.IsInf(r, 0) {
		return nil, ErrInvalidCursor
	}
	return &r, nil
}

// Rebalance renumbers every task to evenly spaced ranks, keeping the current
// order. It restores room after ErrPrecisionExhausted.
func (s *TaskService) Rebalance(ctx context.Context) (int, error) {
	var n int
	err := s.withRetry("rebalance", func() error {
		return s.store.WithTx(ctx, func(tx repository.TaskTx) error {
			ids, err := tx.IDsByRank(ctx)
			if err != nil {
				return err
			}
			n = len(ids)
			return tx.Renumber(ctx, ids, rank.Spread(n))
		})
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// rankBefore computes the rank for the slot immediately before beforeID, or
// after the last task when beforeID is nil. exclude is left out of the
// neighbor lookups so a moved task never bounds itself.
func rankBefore(ctx context.Context, tx repository.TaskTx, beforeID *uuid.UUID, exclude uuid.UUID) (float64, error) {
	if beforeID == nil {
		top, ok, err := tx.MaxRank(ctx, exclude)
		if err != nil {
			return 0, err
		}
		if !ok {
			return rank.Seed, nil
		}
		return checked(rank.After(top))
	}

	target, err := tx.Get(ctx, *beforeID)
	if err != nil {
		return 0, err
	}

	prev, ok, err := tx.PrevRank(ctx, target.Rank, exclude)
	if err != nil {
		return 0, err
	}
	if !ok {
		return checked(rank.Before(target.Rank))
	}
	return checked(rank.Between(prev, target.Rank))
}

// inPlace reports whether t already sits in the slot rankBefore would target.
func inPlace(ctx context.Context, tx repository.TaskTx, t *domain.Task, beforeID *uuid.UUID) (bool, error) {
	if beforeID == nil {
		top, ok, err := tx.MaxRank(ctx, uuid.Nil)
		return ok && top == t.Rank, err
	}

	target, err := tx.Get(ctx, *beforeID)
	if err != nil {
		return false, err
	}
	if target.Rank < t.Rank {
		return false, nil
	}
	prev, ok, err := tx.PrevRank(ctx, target.Rank, uuid.Nil)
	return ok && prev == t.Rank, err
}

func checked(r float64, err error) (float64, error) {
	if errors.Is(err, rank.ErrExhausted) {
		return 0, ErrPrecisionExhausted
	}
	return r, err
}

// withRetry reruns fn while it loses rank races, up to the configured budget.
// The last conflict is returned to the caller.
func (s *TaskService) withRetry(op string, fn func() error) error {
	var err error
	for attempt := 0; ; attempt++ {
		err = fn()
		if !errors.Is(err, ErrRankConflict) || attempt >= s.retries {
			break
		}
		conflictRetries.WithLabelValues(op).Inc()
	}
	observe(op, err)
	return err
}
