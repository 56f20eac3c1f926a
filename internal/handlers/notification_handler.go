package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"visitordesk/internal/api/middleware"
	"visitordesk/internal/auth"
	"visitordesk/internal/dashboard"
	"visitordesk/internal/events"
	"visitordesk/internal/notify"
)

type NotificationHandler struct {
	heartbeat time.Duration
}

func NewNotificationHandler(heartbeat time.Duration) *NotificationHandler {
	if heartbeat <= 0 {
		heartbeat = 25 * time.Second
	}
	return &NotificationHandler{heartbeat: heartbeat}
}

func board(c echo.Context) (*dashboard.Dashboard, error) {
	d := middleware.GetDashboard(c)
	if d == nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, auth.ErrNoSession.Error())
	}
	return d, nil
}

// List returns the caller's notifications, newest first.
// @Router /api/v1/notifications [get]
func (h *NotificationHandler) List(c echo.Context) error {
	d, err := board(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"data":   d.Store.List(),
		"unread": d.Store.UnreadCount(),
	})
}

// MarkRead flags one notification as read.
// @Router /api/v1/notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c echo.Context) error {
	d, err := board(c)
	if err != nil {
		return err
	}
	if !d.Store.MarkRead(c.Param("id")) {
		return echo.NewHTTPError(http.StatusNotFound, "notification not found")
	}
	return c.JSON(http.StatusOK, map[string]int{"unread": d.Store.UnreadCount()})
}

// MarkAllRead flags every notification as read.
// @Router /api/v1/notifications/read-all [post]
func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	d, err := board(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]int{"updated": d.Store.MarkAllRead()})
}

// Stream pushes new notifications as server-sent events. A "chime" event
// follows each notification that should play a sound, never precedes it.
// @Router /api/v1/notifications/stream [get]
func (h *NotificationHandler) Stream(c echo.Context) error {
	d, err := board(c)
	if err != nil {
		return err
	}

	ctx := c.Request().Context()
	notes := d.Live.Subscribe(ctx, events.TopicNotification)
	chimes := d.Live.Subscribe(ctx, events.TopicNotificationChime)

	w := c.Response()
	w.Header().Set(echo.HeaderContentType, "text/event-stream")
	w.Header().Set(echo.HeaderCacheControl, "no-cache")
	w.Header().Set(echo.HeaderConnection, "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	w.Flush()

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()
	order := newChimeOrder(chimeWindow)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-d.Done():
			return writeEvent(w, "signed_out", map[string]bool{"signedOut": true})
		case data, ok := <-notes:
			if !ok {
				return nil
			}
			if err := writeEvent(w, "notification", data); err != nil {
				return nil
			}
			n, _ := data.(notify.Notification)
			if held, ok := order.written(n.ID); ok {
				if err := writeChime(w, held); err != nil {
					return nil
				}
			}
		case data, ok := <-chimes:
			if !ok {
				return nil
			}
			n, _ := data.(notify.Notification)
			if order.chime(n) {
				if err := writeChime(w, n); err != nil {
					return nil
				}
			}
		case <-ticker.C:
			d.Touch()
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return nil
			}
			w.Flush()
		}
	}
}

func writeChime(w *echo.Response, n notify.Notification) error {
	return writeEvent(w, "chime", map[string]string{"id": n.ID, "type": string(n.Type)})
}

func writeEvent(w *echo.Response, event string, data interface{}) error {
	body, err := json.Marshal(data)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, body); err != nil {
		return err
	}
	w.Flush()
	return nil
}

// chimeWindow bounds how many notification ids a stream remembers.
const chimeWindow = 64

// chimeOrder holds back chimes whose notification has not been written yet.
// Notifications and chimes arrive on separate subscriptions, so either may
// come first.
type chimeOrder struct {
	size    int
	sent    []string
	pending []notify.Notification
}

func newChimeOrder(size int) *chimeOrder {
	return &chimeOrder{size: size}
}

// written records a written notification and returns its held chime, if any.
func (o *chimeOrder) written(id string) (notify.Notification, bool) {
	o.sent = append(o.sent, id)
	if len(o.sent) > o.size {
		o.sent = o.sent[1:]
	}
	for i, n := range o.pending {
		if n.ID == id {
			o.pending = append(o.pending[:i], o.pending[i+1:]...)
			return n, true
		}
	}
	return notify.Notification{}, false
}

// chime reports whether n can be written now. Otherwise it is held until its
// notification is written.
func (o *chimeOrder) chime(n notify.Notification) bool {
	for _, id := range o.sent {
		if id == n.ID {
			return true
		}
	}
	o.pending = append(o.pending, n)
	if len(o.pending) > o.size {
		o.pending = o.pending[1:]
	}
	return false
}
