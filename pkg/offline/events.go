package offline

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/tidwall/gjson"

	"github.com/naughtyden-us/naughty-den/pkg/metrics"
	"github.com/naughtyden-us/naughty-den/pkg/state/logger"
)

const (
	notificationIcon = "/favicon.png"
	openAction       = "open"
)

var ErrBadPushPayload = errors.New("offline: push payload is not JSON")

// Notifier displays and dismisses system notifications.
type Notifier interface {
	ShowNotification(ctx context.Context, n Notification) error
	CloseNotification(ctx context.Context, tag string) error
}

// WindowOpener opens or focuses a client window.
type WindowOpener interface {
	OpenWindow(ctx context.Context, url string) error
}

// guard runs fn, turning a panic into a logged error.
func guard(event string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("offline_event_panic", "event", event, "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("offline: %s handler panicked: %v", event, r)
		}
	}()
	if err = fn(); err != nil {
		logger.Error("offline_event_failed", "event", event, "error", err)
	}
	return err
}

// HandlePush shows a notification built from a JSON push payload. Empty
// payloads are ignored.
func (w *Worker) HandlePush(ctx context.Context, payload []byte) error {
	return guard("push", func() error {
		logger.Info("offline_push_received", "bytes", len(payload))
		if len(payload) == 0 {
			return nil
		}
		if !gjson.ValidBytes(payload) {
			return ErrBadPushPayload
		}
		n := Notification{
			Title:   gjson.GetBytes(payload, "title").String(),
			Body:    gjson.GetBytes(payload, "body").String(),
			Icon:    notificationIcon,
			Badge:   notificationIcon,
			Tag:     gjson.GetBytes(payload, "tag").String(),
			Actions: []NotificationAction{},
		}
		if d := gjson.GetBytes(payload, "data"); d.Exists() {
			n.Data = json.RawMessage(d.Raw)
		}
		gjson.GetBytes(payload, "actions").ForEach(func(_, a gjson.Result) bool {
			n.Actions = append(n.Actions, NotificationAction{
				Action: a.Get("action").String(),
				Title:  a.Get("title").String(),
				Icon:   a.Get("icon").String(),
			})
			return true
		})
		if w.notify == nil {
			return nil
		}
		return w.notify.ShowNotification(ctx, n)
	})
}

// HandleNotificationClick closes the notification and opens the root for the
// "open" action.
func (w *Worker) HandleNotificationClick(ctx context.Context, tag, action string) error {
	return guard("notificationclick", func() error {
		logger.Info("offline_notification_clicked", "tag", tag, "action", action)
		if w.notify != nil {
			if err := w.notify.CloseNotification(ctx, tag); err != nil {
				return err
			}
		}
		if action != openAction || w.windows == nil {
			return nil
		}
		return w.windows.OpenWindow(ctx, w.resolve("/"))
	})
}

// HandleSync runs the sync routine for the background-sync tag. Other tags
// are ignored.
func (w *Worker) HandleSync(ctx context.Context, tag string) error {
	return guard("sync", func() error {
		logger.Info("offline_sync_event", "tag", tag)
		if tag != w.opts.SyncTag {
			return nil
		}
		err := w.doSync(ctx)
		metrics.SyncRuns.WithLabelValues(metrics.Result(err)).Inc()
		return err
	})
}

func (w *Worker) doSync(ctx context.Context) error {
	if w.opts.Sync != nil {
		return w.opts.Sync(ctx)
	}
	logger.Info("offline_sync_run", "pending", 0)
	return nil
}

// Outbox is an in-memory Notifier that keeps the most recent notifications.
type Outbox struct {
	mu    sync.Mutex
	limit int
	items []OutboxItem
}

type OutboxItem struct {
	Notification
	Closed bool `json:"closed"`
}

func NewOutbox(limit int) *Outbox {
	if limit <= 0 {
		limit = 100
	}
	return &Outbox{limit: limit}
}

func (o *Outbox) ShowNotification(_ context.Context, n Notification) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	// same tag replaces the earlier notification
	if n.Tag != "" {
		for i := range o.items {
			if o.items[i].Tag == n.Tag {
				o.items = append(o.items[:i], o.items[i+1:]...)
				break
			}
		}
	}
	o.items = append(o.items, OutboxItem{Notification: n})
	if len(o.items) > o.limit {
		o.items = o.items[len(o.items)-o.limit:]
	}
	return nil
}

func (o *Outbox) CloseNotification(_ context.Context, tag string) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	for i := range o.items {
		if o.items[i].Tag == tag {
			o.items[i].Closed = true
		}
	}
	return nil
}

// Items returns a copy of the kept notifications, oldest first.
func (o *Outbox) Items() []OutboxItem {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]OutboxItem(nil), o.items...)
}

// LogOpener records window-open requests in the log.
type LogOpener struct{}

func (LogOpener) OpenWindow(_ context.Context, url string) error {
	logger.Info("offline_open_window", "url", url)
	return nil
}
