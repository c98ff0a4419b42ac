package offline

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingOpener struct{ urls []string }

func (r *recordingOpener) OpenWindow(_ context.Context, url string) error {
	r.urls = append(r.urls, url)
	return nil
}

type panickyNotifier struct{}

func (panickyNotifier) ShowNotification(context.Context, Notification) error { panic("boom") }
func (panickyNotifier) CloseNotification(context.Context, string) error     { return nil }

func TestHandlePush(t *testing.T) {
	out := NewOutbox(5)
	w := NewWorker(testOptions(), NewMemoryStorage(), newFakeNet(), out, nil)

	payload := `{"title":"New post","body":"Jon Ly is live","tag":"live-1","data":{"postId":1},
		"actions":[{"action":"open","title":"Open"},{"action":"dismiss","title":"Later"}]}`
	require.NoError(t, w.HandlePush(context.Background(), []byte(payload)))

	items := out.Items()
	require.Len(t, items, 1)
	n := items[0]
	assert.Equal(t, "New post", n.Title)
	assert.Equal(t, "Jon Ly is live", n.Body)
	assert.Equal(t, "/favicon.png", n.Icon)
	assert.Equal(t, "/favicon.png", n.Badge)
	assert.JSONEq(t, `{"postId":1}`, string(n.Data))
	assert.Equal(t, []NotificationAction{{Action: "open", Title: "Open"}, {Action: "dismiss", Title: "Later"}}, n.Actions)
}

func TestHandlePushEdgeCases(t *testing.T) {
	out := NewOutbox(5)
	w := NewWorker(testOptions(), NewMemoryStorage(), newFakeNet(), out, nil)

	assert.NoError(t, w.HandlePush(context.Background(), nil))
	assert.ErrorIs(t, w.HandlePush(context.Background(), []byte("{nope")), ErrBadPushPayload)
	require.NoError(t, w.HandlePush(context.Background(), []byte(`{"title":"t"}`)))
	assert.Equal(t, []NotificationAction{}, out.Items()[0].Actions)
}

func TestHandlePushRecoversPanics(t *testing.T) {
	w := NewWorker(testOptions(), NewMemoryStorage(), newFakeNet(), panickyNotifier{}, nil)
	err := w.HandlePush(context.Background(), []byte(`{"title":"x"}`))
	assert.ErrorContains(t, err, "panicked")
}

func TestNotificationClick(t *testing.T) {
	out := NewOutbox(5)
	opener := &recordingOpener{}
	w := NewWorker(testOptions(), NewMemoryStorage(), newFakeNet(), out, opener)
	require.NoError(t, w.HandlePush(context.Background(), []byte(`{"title":"x","tag":"t1"}`)))

	require.NoError(t, w.HandleNotificationClick(context.Background(), "t1", "dismiss"))
	assert.True(t, out.Items()[0].Closed)
	assert.Empty(t, opener.urls)

	require.NoError(t, w.HandleNotificationClick(context.Background(), "t1", "open"))
	assert.Equal(t, []string{origin + "/"}, opener.urls)
}

func TestHandleSync(t *testing.T) {
	runs := 0
	opts := testOptions()
	opts.Sync = func(context.Context) error { runs++; return nil }
	w := NewWorker(opts, NewMemoryStorage(), newFakeNet(), nil, nil)

	require.NoError(t, w.HandleSync(context.Background(), "background-sync"))
	require.NoError(t, w.HandleSync(context.Background(), "other"))
	assert.Equal(t, 1, runs)

	stub := NewWorker(testOptions(), NewMemoryStorage(), newFakeNet(), nil, nil)
	assert.NoError(t, stub.HandleSync(context.Background(), "background-sync"))

	failing := testOptions()
	failing.Sync = func(context.Context) error { return errors.New("flush failed") }
	assert.Error(t, NewWorker(failing, NewMemoryStorage(), newFakeNet(), nil, nil).HandleSync(context.Background(), "background-sync"))
}

func TestOutboxReplacesSameTagAndTrims(t *testing.T) {
	out := NewOutbox(2)
	ctx := context.Background()
	require.NoError(t, out.ShowNotification(ctx, Notification{Title: "a", Tag: "x"}))
	require.NoError(t, out.ShowNotification(ctx, Notification{Title: "b", Tag: "x"}))
	require.Len(t, out.Items(), 1)
	assert.Equal(t, "b", out.Items()[0].Title)

	require.NoError(t, out.ShowNotification(ctx, Notification{Title: "c"}))
	require.NoError(t, out.ShowNotification(ctx, Notification{Title: "d"}))
	items := out.Items()
	require.Len(t, items, 2)
	assert.Equal(t, "c", items[0].Title)
}
