package tasks

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"visitordesk/internal/notify"
)

// Task Types
const (
	TaskTypeSecurityAlert = "security:alert"
)

// Task Queues
const (
	QueueCritical = "critical" // Security escalations
	QueueDefault  = "default"  // For regular tasks
	QueueLow      = "low"      // For background tasks like cleanup
)

// Task Timeouts
const (
	TimeoutShort  = 1 * time.Minute
	TimeoutMedium = 5 * time.Minute
)

// Task Retry Settings
const (
	RetryMax     = 5
	RetryDefault = 3
)

// UniqueWindow is how long identical alerts raised by several security
// dashboards collapse into one task.
const UniqueWindow = 10 * time.Minute

// SecurityAlertPayload is the viewer-independent part of a security
// notification, so every dashboard that sees the same event enqueues the same
// payload.
type SecurityAlertPayload struct {
	VisitorID string `json:"visitorId"`
	GuestCode string `json:"guestCode,omitempty"`
	Title     string `json:"title"`
	Message   string `json:"message"`
}

func payloadOf(n notify.Notification) SecurityAlertPayload {
	return SecurityAlertPayload{
		VisitorID: n.VisitorID,
		GuestCode: n.GuestCode,
		Title:     n.Title,
		Message:   n.Message,
	}
}

// NewSecurityAlertTask builds the escalation task for n.
func NewSecurityAlertTask(n notify.Notification) (*asynq.Task, error) {
	payload, err := json.Marshal(payloadOf(n))
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSecurityAlert, payload,
		asynq.Queue(QueueCritical),
		asynq.MaxRetry(RetryMax),
		asynq.Timeout(TimeoutShort),
		asynq.Unique(UniqueWindow),
	), nil
}
