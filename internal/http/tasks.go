package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/txtshelf/internal/tasks"
)

// TaskQueue is the part of the task client the controller uses.
type TaskQueue interface {
	Enqueue(name string, fileID uint) (string, error)
	Status(ctx context.Context, taskID string) (string, error)
}

// TasksController exposes the background queues for manual runs.
type TasksController struct {
	queue TaskQueue
}

func NewTasksController(queue TaskQueue) *TasksController {
	return &TasksController{queue: queue}
}

// ListTaskTypes handles GET /tasks/types.
func (tc *TasksController) ListTaskTypes(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"task_types": tasks.TaskTypes()})
}

// GetTaskStatus handles GET /tasks/:id.
func (tc *TasksController) GetTaskStatus(c *gin.Context) {
	taskID := c.Param("id")

	ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	status, err := tc.queue.Status(ctx, taskID)
	if err != nil {
		respondInternalError(c, err, "task status")
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": taskID, "status": status})
}

// RunTaskRequest is the optional body of POST /tasks/:type/run.
type RunTaskRequest struct {
	FileID uint `json:"file_id,omitempty"`
}

// RunTask handles POST /tasks/:type/run.
func (tc *TasksController) RunTask(c *gin.Context) {
	var req RunTaskRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			respondBadRequest(c, "invalid request body")
			return
		}
	}

	taskType := c.Param("type")
	id, err := tc.queue.Enqueue(taskType, req.FileID)
	if err != nil {
		respondServiceError(c, err, "enqueue task")
		return
	}

	respondAccepted(c, "task enqueued", gin.H{"task_id": id, "type": taskType})
}

// taskQueue adapts *tasks.Client to TaskQueue.
type taskQueue struct {
	client *tasks.Client
}

func (q taskQueue) Enqueue(name string, fileID uint) (string, error) {
	return q.client.Enqueue(name, fileID)
}

func (q taskQueue) Status(ctx context.Context, taskID string) (string, error) {
	status, err := q.client.Status(ctx, taskID)
	if err != nil {
		return "", err
	}
	return tasks.StatusName(status), nil
}
