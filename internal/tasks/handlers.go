package tasks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"visitordesk/internal/utils/logger"
)

// AlertSink delivers an escalated alert somewhere a person will see it.
type AlertSink func(ctx context.Context, alert SecurityAlertPayload) error

// TaskHandler handles task processing with improved error handling and logging
type TaskHandler struct {
	logger *logger.Logger
	sink   AlertSink
}

// NewTaskHandler creates a new TaskHandler. A nil sink only logs.
func NewTaskHandler(sink AlertSink) *TaskHandler {
	h := &TaskHandler{logger: logger.New("task_handler"), sink: sink}
	if h.sink == nil {
		h.sink = h.logAlert
	}
	return h
}

func (h *TaskHandler) logAlert(_ context.Context, alert SecurityAlertPayload) error {
	h.logger.Warn("SECURITY: %s: %s (visitor %s)", alert.Title, alert.Message, alert.VisitorID)
	return nil
}

// HandleSecurityAlert processes one escalated security notification.
func (h *TaskHandler) HandleSecurityAlert(ctx context.Context, t *asynq.Task) error {
	var alert SecurityAlertPayload
	if err := json.Unmarshal(t.Payload(), &alert); err != nil {
		// A payload that does not decode will never succeed.
		return fmt.Errorf("decode security alert: %v: %w", err, asynq.SkipRetry)
	}
	if err := h.sink(ctx, alert); err != nil {
		return h.logger.Error("failed to deliver security alert for visitor %s", err, alert.VisitorID)
	}
	return nil
}
