package model

import "time"

// TaskStatus is the closed set of task states. Any state may follow any other.
type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

// Valid reports whether s is a member of the enumeration.
func (s TaskStatus) Valid() bool {
	switch s {
	case StatusPending, StatusInProgress, StatusCompleted:
		return true
	}
	return false
}

// Task represents a single item owned by one user.
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"size:255;not null" json:"title"`
	Description string     `json:"description,omitempty"`
	Status      TaskStatus `gorm:"size:20;not null;default:pending;index" json:"status"`
	DueDate     *time.Time `gorm:"index" json:"due_date"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	CategoryID  *uint      `gorm:"index" json:"category_id"`
	PriorityID  *uint      `gorm:"index" json:"priority_id"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TaskFilter narrows a task listing. Zero values mean "no restriction".
type TaskFilter struct {
	UserID        uint
	Status        TaskStatus
	ExcludeStatus TaskStatus
	Search        string
	DueBefore     *time.Time
	DueAfter      *time.Time
	CategoryID    *uint
	PriorityID    *uint
}
