package service

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/akylbek/ar-system/discrepancy-service/internal/apperror"
	"github.com/akylbek/ar-system/discrepancy-service/internal/interfaces"
	"github.com/akylbek/ar-system/discrepancy-service/internal/models"
	"github.com/akylbek/ar-system/discrepancy-service/internal/telemetry"
)

type TaskService struct {
	tasks interfaces.TaskRepository
}

func NewTaskService(tasks interfaces.TaskRepository) *TaskService {
	return &TaskService{tasks: tasks}
}

func (s *TaskService) List(ctx context.Context, f models.TaskFilter) ([]models.Task, models.Pagination, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, models.Pagination{}, apperror.Validation("invalid task status", nil)
	}
	f.Page, f.Limit = models.PageBounds(f.Page, f.Limit)
	items, total, err := s.tasks.List(ctx, f)
	if err != nil {
		return nil, models.Pagination{}, err
	}
	return items, models.NewPagination(total, f.Page, f.Limit), nil
}

func (s *TaskService) UpdateStatus(ctx context.Context, actor models.Actor, id string, status models.TaskStatus) (*models.Task, error) {
	if !status.Valid() {
		return nil, apperror.Validation("invalid task status", nil)
	}
	t, err := s.tasks.UpdateStatus(ctx, id, status)
	if errors.Is(err, apperror.ErrNotFound) {
		return nil, apperror.NotFound("Task")
	}
	if err != nil {
		return nil, err
	}
	telemetry.Logger.Info("Task updated",
		zap.String("task_id", id),
		zap.String("status", string(status)),
		zap.String("user_id", actor.UserID),
	)
	return t, nil
}
