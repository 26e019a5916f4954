package service

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	rankOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rank_operations_total",
			Help: "Task operations handled by the rank engine, by outcome",
		},
		[]string{"op", "outcome"},
	)
	conflictRetries = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "rank_conflict_retries_total",
			Help: "Writes recomputed after a unique rank collision",
		},
		[]string{"op"},
	)
)

func init() {
	prometheus.MustRegister(rankOperations)
	prometheus.MustRegister(conflictRetries)
}

func observe(op string, err error) {
	rankOperations.WithLabelValues(op, outcome(err)).Inc()
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTaskNotFound):
		return "not_found"
	case errors.Is(err, ErrRankConflict):
		return "conflict"
	case errors.Is(err, ErrPrecisionExhausted):
		return "exhausted"
	case errors.Is(err, ErrInvalidMove), errors.Is(err, ErrInvalidTitle), errors.Is(err, ErrInvalidCursor):
		return "invalid"
	default:
		return "error"
	}
}
