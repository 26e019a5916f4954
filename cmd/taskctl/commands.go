package main

import (
	"context"
	"fmt"
	"strconv"

	"rankedtasks/internal/db"
	"rankedtasks/internal/repository"
	"rankedtasks/internal/service"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
)

const (
	paramDatabaseURL = "database-url"
	paramLogLevel    = "log-level"
	paramApply       = "apply"
	paramCount       = "count"
	paramPrefix      = "prefix"
	paramAfter       = "after"
	paramLimit       = "limit"
)

func connect(ctx *cli.Context) (*pgxpool.Pool, error) {
	dsn := ctx.String(paramDatabaseURL)
	if dsn == "" {
		return nil, errors.New("DATABASE_URL not set")
	}
	return db.Connect(ctx.Context, dsn, 2)
}

func withTaskService(ctx *cli.Context, fn func(context.Context, *service.TaskService) error) error {
	pool, err := connect(ctx)
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx.Context, service.NewTaskService(repository.NewTaskRepository(pool)))
}

func migrateCommand() *cli.Command {
	return &cli.Command{
		Name:  "migrate",
		Usage: "List embedded migrations, or apply pending ones with --apply",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: paramApply, Usage: "apply pending migrations"},
		},
		Action: func(ctx *cli.Context) error {
			if !ctx.Bool(paramApply) {
				names, err := db.Migrations()
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Println(name)
				}
				return nil
			}

			pool, err := connect(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			applied, err := db.Migrate(ctx.Context, pool)
			if err != nil {
				return errors.Wrap(err, "could not apply migrations")
			}
			for _, name := range applied {
				fmt.Printf("applied %s\n", name)
			}
			if len(applied) == 0 {
				fmt.Println("schema up to date")
			}
			return nil
		},
	}
}

func seedCommand() *cli.Command {
	return &cli.Command{
		Name:  "seed",
		Usage: "Append sample tasks",
		Flags: []cli.Flag{
			&cli.IntFlag{Name: paramCount, Aliases: []string{"n"}, Value: 10, Usage: "number of tasks to append"},
			&cli.StringFlag{Name: paramPrefix, Value: "task", Usage: "title prefix"},
		},
		Action: func(ctx *cli.Context) error {
			return withTaskService(ctx, func(c context.Context, tasks *service.TaskService) error {
				for i := 1; i <= ctx.Int(paramCount); i++ {
					t, err := tasks.Create(c, ctx.String(paramPrefix)+" "+strconv.Itoa(i), nil)
					if err != nil {
						return errors.Wrapf(err, "could not create task %d", i)
					}
					fmt.Printf("created %s rank=%v\n", t.ID, t.Rank)
				}
				return nil
			})
		},
	}
}

func listCommand() *cli.Command {
	return &cli.Command{
		Name:  "list",
		Usage: "Print tasks in rank order",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: paramAfter, Usage: "task id or rank to start after"},
			&cli.IntFlag{Name: paramLimit, Usage: "maximum number of tasks, 0 for all"},
		},
		Action: func(ctx *cli.Context) error {
			return withTaskService(ctx, func(c context.Context, tasks *service.TaskService) error {
				cursor, err := tasks.ResolveCursor(c, ctx.String(paramAfter))
				if err != nil {
					return errors.Wrap(err, "could not resolve cursor")
				}
				page, err := tasks.ListPage(c, cursor, ctx.Int(paramLimit))
				if err != nil {
					return err
				}
				for _, t := range page.Tasks {
					fmt.Printf("%-24v %s  %s\n", t.Rank, t.ID, t.Title)
				}
				if page.EndCursor != nil {
					fmt.Printf("endCursor=%v\n", *page.EndCursor)
				}
				return nil
			})
		},
	}
}

func rebalanceCommand() *cli.Command {
	return &cli.Command{
		Name:  "rebalance",
		Usage: "Renumber all ranks to evenly spaced values, keeping the order",
		Action: func(ctx *cli.Context) error {
			return withTaskService(ctx, func(c context.Context, tasks *service.TaskService) error {
				n, err := tasks.Rebalance(c)
				if err != nil {
					return errors.Wrap(err, "could not rebalance")
				}
				fmt.Printf("rebalanced %d tasks\n", n)
				return nil
			})
		},
	}
}
