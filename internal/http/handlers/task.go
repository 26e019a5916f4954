package handlers

import (
	"errors"
	"net/http"

	"rankedtasks/internal/domain"
	"rankedtasks/internal/logger"
	"rankedtasks/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type pageInfo struct {
	HasNextPage bool     `json:"hasNextPage"`
	EndCursor   *float64 `json:"endCursor,omitempty"`
}

type listTasksResponse struct {
	Data     []*domain.Task `json:"data"`
	PageInfo pageInfo       `json:"pageInfo"`
}

type listTasksQuery struct {
	AfterID string `form:"afterId"`
	Limit   int    `form:"limit" binding:"min=0,max=1000"`
}

type createTaskRequest struct {
	Title    string     `json:"title" binding:"required"`
	BeforeID *uuid.UUID `json:"beforeId"`
}

type updateTitleRequest struct {
	ID    uuid.UUID `json:"id"`
	Title string    `json:"title" binding:"required"`
}

type moveTaskRequest struct {
	ID       uuid.UUID  `json:"id"`
	BeforeID *uuid.UUID `json:"beforeId"`
}

// ListTasks returns the tasks ranked after afterId (a task id or an
// endCursor value), ascending.
func (h *Handler) ListTasks(c *gin.Context) {
	var q listTasksQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid query: " + err.Error()})
		return
	}

	ctx := c.Request.Context()
	cursor, err := h.Tasks.ResolveCursor(ctx, q.AfterID)
	if err != nil {
		h.taskError(c, err)
		return
	}

	page, err := h.Tasks.ListPage(ctx, cursor, q.Limit)
	if err != nil {
		h.taskError(c, err)
		return
	}

	c.JSON(http.StatusOK, listTasksResponse{
		Data: page.Tasks,
		PageInfo: pageInfo{
			HasNextPage: page.HasNextPage,
			EndCursor:   page.EndCursor,
		},
	})
}

// CreateTask appends a task, or inserts it immediately before beforeId.
func (h *Handler) CreateTask(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}

	if _, err := h.Tasks.Create(c.Request.Context(), req.Title, req.BeforeID); err != nil {
		h.taskError(c, err)
		return
	}
	c.String(http.StatusOK, "OK")
}

func (h *Handler) UpdateTitle(c *gin.Context) {
	var req updateTitleRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: id and title are required"})
		return
	}

	if _, err := h.Tasks.UpdateTitle(c.Request.Context(), req.ID, req.Title); err != nil {
		h.taskError(c, err)
		return
	}
	c.String(http.StatusOK, "OK")
}

// MoveTask places task id immediately before beforeId, or last when
// beforeId is omitted.
func (h *Handler) MoveTask(c *gin.Context) {
	var req moveTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.ID == uuid.Nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: id is required"})
		return
	}

	if _, err := h.Tasks.Move(c.Request.Context(), req.ID, req.BeforeID); err != nil {
		h.taskError(c, err)
		return
	}
	c.String(http.StatusOK, "OK")
}

func (h *Handler) RebalanceTasks(c *gin.Context) {
	n, err := h.Tasks.Rebalance(c.Request.Context())
	if err != nil {
		h.taskError(c, err)
		return
	}
	logger.Info("tasks rebalanced", "count", n)
	c.JSON(http.StatusOK, gin.H{"rebalanced": n})
}

func (h *Handler) taskError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrTaskNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "task not found"})
	case errors.Is(err, service.ErrInvalidTitle), errors.Is(err, service.ErrInvalidMove), errors.Is(err, service.ErrInvalidCursor):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrRankConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "rank conflict, retry the request"})
	case errors.Is(err, service.ErrPrecisionExhausted):
		logger.Warn("rank precision exhausted", "path", c.FullPath())
		c.JSON(http.StatusConflict, gin.H{"error": err.Error(), "rebalance": true})
	default:
		logger.Error("task operation failed", "error", err, "path", c.FullPath())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
	}
}
