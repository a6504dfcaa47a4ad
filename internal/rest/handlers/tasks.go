package handlers

import (
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/itamarbiton/klinika-dw-bot/pkg/history"
	"github.com/itamarbiton/klinika-dw-bot/pkg/task"
)

// Tasks is the admin surface for defining tasks and inspecting the
// rotation history. Task ids are caller-assigned; the store rejects
// duplicates.
type Tasks struct {
	tasks   task.Store
	history history.Store
	log     *logrus.Entry
}

// NewTasksHandler creates a Tasks handler.
func NewTasksHandler(tasks task.Store, hist history.Store, log *logrus.Entry) *Tasks {
	return &Tasks{tasks: tasks, history: hist, log: log}
}

// EnrichRoutes registers the task routes.
func (h *Tasks) EnrichRoutes(router *gin.Engine) {
	taskRoutes := router.Group("/api/tasks")
	taskRoutes.GET("", h.listTasksAction)
	taskRoutes.POST("", h.createTaskAction)
	taskRoutes.GET("/:taskID/history", h.taskHistoryAction)
}

func (h *Tasks) listTasksAction(c *gin.Context) {
	tasks, err := h.tasks.List(c.Request.Context())
	if err != nil {
		h.log.WithError(err).Error("failed to list tasks")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	sort.Slice(tasks, func(i, j int) bool { return tasks[i].ID < tasks[j].ID })
	c.JSON(http.StatusOK, tasks)
}

type createTaskRequest struct {
	ID   int    `json:"id" binding:"required"`
	Name string `json:"name" binding:"required"`
}

func (h *Tasks) createTaskAction(c *gin.Context) {
	var req createTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	created, err := h.tasks.Create(c.Request.Context(), &task.Task{
		ID:        req.ID,
		Name:      req.Name,
		Assignees: map[string]bool{},
	})
	if errors.Is(err, task.ErrDuplicateID) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.log.WithError(err).WithField("task_id", req.ID).Error("failed to create task")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (h *Tasks) taskHistoryAction(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("taskID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "task id must be a number"})
		return
	}

	limit := 50
	if v := c.Query("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			limit = n
		}
	}

	entries, err := h.history.ByTask(c.Request.Context(), id, limit)
	if err != nil {
		h.log.WithError(err).WithField("task_id", id).Error("failed to load history")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, entries)
}
