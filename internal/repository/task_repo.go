package repository

import (
	"context"
	"strconv"

	"rankedtasks/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
)

var (
	ErrTaskNotFound = errors.New("task not found")
	// ErrRankConflict is returned when a write collides with the unique rank
	// constraint, typically because a concurrent insert claimed the same gap.
	ErrRankConflict = errors.New("rank conflict")
)

const uniqueViolation = "23505"

// TaskStore persists tasks. Every rank computation and its write go through
// WithTx so the neighbor lookup and the write share one transaction.
type TaskStore interface {
	WithTx(ctx context.Context, fn func(tx TaskTx) error) error
	Get(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	List(ctx context.Context, after *float64, limit int) ([]*domain.Task, error)
	UpdateTitle(ctx context.Context, id uuid.UUID, title string) (*domain.Task, error)
	Ping(ctx context.Context) error
}

// TaskTx is the set of operations available inside a transaction.
// Pass uuid.Nil as exclude to consider every task.
type TaskTx interface {
	Get(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	MaxRank(ctx context.Context, exclude uuid.UUID) (float64, bool, error)
	PrevRank(ctx context.Context, below float64, exclude uuid.UUID) (float64, bool, error)
	Insert(ctx context.Context, t *domain.Task) error
	UpdateRank(ctx context.Context, id uuid.UUID, rank float64) error
	// IDsByRank returns every id in rank order and keeps other writers out
	// until the transaction ends.
	IDsByRank(ctx context.Context) ([]uuid.UUID, error)
	Renumber(ctx context.Context, ids []uuid.UUID, ranks []float64) error
}

type TaskRepository struct {
	db *pgxpool.Pool
}

func NewTaskRepository(db *pgxpool.Pool) *TaskRepository {
	return &TaskRepository{db: db}
}

func (r *TaskRepository) WithTx(ctx context.Context, fn func(tx TaskTx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return errors.Wrap(err, "begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(&pgTaskTx{tx: tx}); err != nil {
		return err
	}

	// deferred constraints are checked here
	if err := tx.Commit(ctx); err != nil {
		return mapError(err, "commit transaction")
	}
	return nil
}

func (r *TaskRepository) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var t domain.Task
	err := r.db.QueryRow(ctx,
		`SELECT id, title, rank, created_at FROM tasks WHERE id = $1`, id,
	).Scan(&t.ID, &t.Title, &t.Rank, &t.CreatedAt)
	if err != nil {
		return nil, mapError(err, "get task")
	}
	return &t, nil
}

func (r *TaskRepository) List(ctx context.Context, after *float64, limit int) ([]*domain.Task, error) {
	query := `SELECT id, title, rank, created_at FROM tasks WHERE ($1::float8 IS NULL OR rank > $1) ORDER BY rank ASC`
	if limit > 0 {
		query += ` LIMIT ` + strconv.Itoa(limit)
	}

	rows, err := r.db.Query(ctx, query, after)
	if err != nil {
		return nil, errors.Wrap(err, "list tasks")
	}
	defer rows.Close()

	res := make([]*domain.Task, 0)
	for rows.Next() {
		var t domain.Task
		if err := rows.Scan(&t.ID, &t.Title, &t.Rank, &t.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "scan task")
		}
		res = append(res, &t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "list tasks")
	}
	return res, nil
}

func (r *TaskRepository) UpdateTitle(ctx context.Context, id uuid.UUID, title string) (*domain.Task, error) {
	var t domain.Task
	err := r.db.QueryRow(ctx,
		`UPDATE tasks SET title = $1 WHERE id = $2 RETURNING id, title, rank, created_at`,
		title, id,
	).Scan(&t.ID, &t.Title, &t.Rank, &t.CreatedAt)
	if err != nil {
		return nil, mapError(err, "update title")
	}
	return &t, nil
}

func (r *TaskRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

type pgTaskTx struct {
	tx pgx.Tx
}

// Get locks the row so concurrent writers targeting the same task queue up
// instead of computing the same midpoint.
func (t *pgTaskTx) Get(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	var task domain.Task
	err := t.tx.QueryRow(ctx,
		`SELECT id, title, rank, created_at FROM tasks WHERE id = $1 FOR UPDATE`, id,
	).Scan(&task.ID, &task.Title, &task.Rank, &task.CreatedAt)
	if err != nil {
		return nil, mapError(err, "get task")
	}
	return &task, nil
}

// MaxRank locks the current tail row so a concurrent Renumber either waits
// for this transaction or is seen by it.
func (t *pgTaskTx) MaxRank(ctx context.Context, exclude uuid.UUID) (float64, bool, error) {
	var top float64
	err := t.tx.QueryRow(ctx,
		`SELECT rank FROM tasks WHERE id <> $1 ORDER BY rank DESC LIMIT 1 FOR UPDATE`,
		exclude,
	).Scan(&top)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "max rank")
	}
	return top, true, nil
}

func (t *pgTaskTx) PrevRank(ctx context.Context, below float64, exclude uuid.UUID) (float64, bool, error) {
	var prev float64
	err := t.tx.QueryRow(ctx,
		`SELECT rank FROM tasks WHERE rank < $1 AND id <> $2 ORDER BY rank DESC LIMIT 1`,
		below, exclude,
	).Scan(&prev)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, errors.Wrap(err, "previous rank")
	}
	return prev, true, nil
}

func (t *pgTaskTx) Insert(ctx context.Context, task *domain.Task) error {
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	err := t.tx.QueryRow(ctx,
		`INSERT INTO tasks (id, title, rank) VALUES ($1, $2, $3) RETURNING created_at`,
		task.ID, task.Title, task.Rank,
	).Scan(&task.CreatedAt)
	return mapError(err, "insert task")
}

func (t *pgTaskTx) UpdateRank(ctx context.Context, id uuid.UUID, rank float64) error {
	tag, err := t.tx.Exec(ctx, `UPDATE tasks SET rank = $1 WHERE id = $2`, rank, id)
	if err != nil {
		return mapError(err, "update rank")
	}
	if tag.RowsAffected() == 0 {
		return ErrTaskNotFound
	}
	return nil
}

// IDsByRank takes an EXCLUSIVE table lock before reading, which blocks
// writers and row locks (plain reads still go through). Rows inserted by
// transactions that committed while we waited are part of the result.
func (t *pgTaskTx) IDsByRank(ctx context.Context) ([]uuid.UUID, error) {
	if _, err := t.tx.Exec(ctx, `LOCK TABLE tasks IN EXCLUSIVE MODE`); err != nil {
		return nil, errors.Wrap(err, "lock tasks")
	}
	rows, err := t.tx.Query(ctx, `SELECT id FROM tasks ORDER BY rank ASC FOR UPDATE`)
	if err != nil {
		return nil, errors.Wrap(err, "list task ids")
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, errors.Wrap(err, "scan task ids")
	}
	return ids, nil
}

// Renumber assigns ranks[i] to ids[i] in a single statement. The unique
// constraint is deferred to commit so intermediate states may overlap.
func (t *pgTaskTx) Renumber(ctx context.Context, ids []uuid.UUID, ranks []float64) error {
	if len(ids) != len(ranks) {
		return errors.Errorf("renumber: %d ids for %d ranks", len(ids), len(ranks))
	}
	if len(ids) == 0 {
		return nil
	}
	if _, err := t.tx.Exec(ctx, `SET CONSTRAINTS tasks_rank_key DEFERRED`); err != nil {
		return errors.Wrap(err, "defer rank constraint")
	}
	_, err := t.tx.Exec(ctx,
		`UPDATE tasks AS t SET rank = v.rank
		 FROM unnest($1::uuid[], $2::float8[]) AS v(id, rank)
		 WHERE t.id = v.id`,
		ids, ranks,
	)
	return mapError(err, "renumber tasks")
}

func mapError(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrTaskNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return ErrRankConflict
	}
	return errors.Wrap(err, msg)
}
