package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
	"github.com/akylbek/ar-system/discrepancy-service/internal/service"
)

type TaskHandler struct {
	tasks     *service.TaskService
	dashboard *service.DashboardService
}

func NewTaskHandler(tasks *service.TaskService, dashboard *service.DashboardService) *TaskHandler {
	return &TaskHandler{tasks: tasks, dashboard: dashboard}
}

type taskQuery struct {
	Status         string `form:"status" binding:"omitempty,task_status"`
	Priority       string `form:"priority" binding:"omitempty,priority"`
	DiscrepancyID  string `form:"discrepancyId"`
	AssignedUserID string `form:"assignedUserId"`
	Page           int    `form:"page" binding:"omitempty,min=1"`
	Limit          int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

func (h *TaskHandler) List(c *gin.Context) {
	var q taskQuery
	if !bindQuery(c, &q) {
		return
	}
	items, p, err := h.tasks.List(c.Request.Context(), models.TaskFilter{
		Status:         models.TaskStatus(q.Status),
		Priority:       models.Priority(q.Priority),
		DiscrepancyID:  q.DiscrepancyID,
		AssignedUserID: q.AssignedUserID,
		Page:           q.Page,
		Limit:          q.Limit,
	})
	if err != nil {
		fail(c, err)
		return
	}
	list(c, items, p)
}

func (h *TaskHandler) Update(c *gin.Context) {
	var req struct {
		Status string `json:"status" binding:"required,task_status"`
	}
	if !bindJSON(c, &req) {
		return
	}
	t, err := h.tasks.UpdateStatus(c.Request.Context(), actorFrom(c), c.Param("id"), models.TaskStatus(req.Status))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, t)
}

func (h *TaskHandler) DashboardStats(c *gin.Context) {
	stats, err := h.dashboard.Stats(c.Request.Context())
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, stats)
}
