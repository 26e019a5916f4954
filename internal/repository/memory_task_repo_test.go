package repository

import (
	"context"
	"errors"
	"testing"

	"rankedtasks/internal/domain"

	"github.com/google/uuid"
)

func insert(t *testing.T, repo *MemoryTaskRepository, title string, rank float64) *domain.Task {
	t.Helper()
	task := &domain.Task{Title: title, Rank: rank}
	err := repo.WithTx(context.Background(), func(tx TaskTx) error {
		return tx.Insert(context.Background(), task)
	})
	if err != nil {
		t.Fatalf("insert %s: %v", title, err)
	}
	return task
}

func TestMemoryInsertDuplicateRank(t *testing.T) {
	repo := NewMemoryTaskRepository()
	insert(t, repo, "a", 1)

	err := repo.WithTx(context.Background(), func(tx TaskTx) error {
		return tx.Insert(context.Background(), &domain.Task{Title: "b", Rank: 1})
	})
	if !errors.Is(err, ErrRankConflict) {
		t.Fatalf("err = %v; want ErrRankConflict", err)
	}
}

func TestMemoryFailedTxLeavesNoTrace(t *testing.T) {
	repo := NewMemoryTaskRepository()
	boom := errors.New("boom")

	err := repo.WithTx(context.Background(), func(tx TaskTx) error {
		if err := tx.Insert(context.Background(), &domain.Task{Title: "a", Rank: 1}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v; want boom", err)
	}

	tasks, err := repo.List(context.Background(), nil, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected rollback, got %d tasks", len(tasks))
	}
}

func TestMemoryNeighborLookups(t *testing.T) {
	repo := NewMemoryTaskRepository()
	a := insert(t, repo, "a", 1)
	insert(t, repo, "b", 2)
	c := insert(t, repo, "c", 3)

	ctx := context.Background()
	_ = repo.WithTx(ctx, func(tx TaskTx) error {
		if top, ok, _ := tx.MaxRank(ctx, uuid.Nil); !ok || top != 3 {
			t.Fatalf("MaxRank = %v,%v; want 3,true", top, ok)
		}
		if top, ok, _ := tx.MaxRank(ctx, c.ID); !ok || top != 2 {
			t.Fatalf("MaxRank(excl c) = %v,%v; want 2,true", top, ok)
		}
		if prev, ok, _ := tx.PrevRank(ctx, 3, uuid.Nil); !ok || prev != 2 {
			t.Fatalf("PrevRank(3) = %v,%v; want 2,true", prev, ok)
		}
		if _, ok, _ := tx.PrevRank(ctx, 1, uuid.Nil); ok {
			t.Fatalf("PrevRank(1) should find nothing")
		}
		if _, ok, _ := tx.PrevRank(ctx, 2, a.ID); ok {
			t.Fatalf("PrevRank(2, excl a) should find nothing")
		}
		return nil
	})
}

func TestMemoryRenumberSwapsRanks(t *testing.T) {
	repo := NewMemoryTaskRepository()
	a := insert(t, repo, "a", 1)
	b := insert(t, repo, "b", 2)

	ctx := context.Background()
	err := repo.WithTx(ctx, func(tx TaskTx) error {
		return tx.Renumber(ctx, []uuid.UUID{b.ID, a.ID}, []float64{1, 2})
	})
	if err != nil {
		t.Fatalf("renumber: %v", err)
	}

	tasks, _ := repo.List(ctx, nil, 0)
	if tasks[0].ID != b.ID || tasks[1].ID != a.ID {
		t.Fatalf("unexpected order after renumber")
	}
}

func TestMemoryListAfterAndLimit(t *testing.T) {
	repo := NewMemoryTaskRepository()
	insert(t, repo, "a", 1)
	insert(t, repo, "b", 2)
	insert(t, repo, "c", 3)

	after := 1.0
	tasks, err := repo.List(context.Background(), &after, 1)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(tasks) != 1 || tasks[0].Title != "b" {
		t.Fatalf("expected [b], got %d tasks", len(tasks))
	}
}

func TestMemoryUpdateTitleMissing(t *testing.T) {
	repo := NewMemoryTaskRepository()
	if _, err := repo.UpdateTitle(context.Background(), uuid.New(), "x"); !errors.Is(err, ErrTaskNotFound) {
		t.Fatalf("err = %v; want ErrTaskNotFound", err)
	}
}
