package models

import "time"

type TaskStatus string

const (
	TaskPending    TaskStatus = "PENDING"
	TaskInProgress TaskStatus = "IN_PROGRESS"
	TaskCompleted  TaskStatus = "COMPLETED"
	TaskCancelled  TaskStatus = "CANCELLED"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskPending, TaskInProgress, TaskCompleted, TaskCancelled:
		return true
	}
	return false
}

type Task struct {
	ID             string     `json:"id"`
	DiscrepancyID  *string    `json:"discrepancyId,omitempty"`
	Type           string     `json:"type"`
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	Priority       Priority   `json:"priority"`
	Status         TaskStatus `json:"status"`
	AssignedUserID *string    `json:"assignedUserId,omitempty"`
	DueDate        *time.Time `json:"dueDate,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type TaskFilter struct {
	Status         TaskStatus
	Priority       Priority
	DiscrepancyID  string
	AssignedUserID string
	Page           int
	Limit          int
}
