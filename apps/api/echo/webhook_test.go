package echoapi_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	echoapi "github.com/aktamov/davomat/apps/api/echo"
	"github.com/aktamov/davomat/bot"
	"github.com/aktamov/davomat/core"
)

func newTestServer(t *testing.T) (*echoapi.Server, <-chan bot.Event) {
	t.Helper()

	events := make(chan bot.Event, 1)
	capture := func(e bot.Event) error {
		events <- e
		return nil
	}

	d := bot.NewDispatcher(core.NopLogger{})
	d.Register(bot.EventText, capture)
	d.Register(bot.EventMedia, capture)
	d.Register(bot.EventButton, capture)

	conf := &core.Config{
		Debug:    true,
		TestMode: true,
		Server:   core.ServerConfig{WebhookSecret: "s3cret"},
	}
	return echoapi.NewServer(echoapi.ServerDeps{Conf: conf, Logger: core.NopLogger{}, Dispatcher: d}), events
}

func post(t *testing.T, srv *echoapi.Server, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, req)
	return rec
}

func receive(t *testing.T, events <-chan bot.Event) bot.Event {
	t.Helper()
	select {
	case e := <-events:
		return e
	case <-time.After(time.Second):
		t.Fatal("no event dispatched")
		return bot.Event{}
	}
}

func TestWebhookRejectsWrongSecret(t *testing.T) {
	srv, events := newTestServer(t)

	rec := post(t, srv, "/webhook/guess", `{"update_id":1,"message":{"message_id":1,"chat":{"id":5},"text":"hi"}}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
	select {
	case e := <-events:
		t.Errorf("unexpected dispatch: %+v", e)
	default:
	}
}

func TestWebhookTextMessage(t *testing.T) {
	srv, events := newTestServer(t)

	rec := post(t, srv, "/webhook/s3cret", `{
		"update_id": 10,
		"message": {
			"message_id": 77,
			"from": {"id": 5, "first_name": "Aziz", "last_name": "K"},
			"chat": {"id": 5},
			"text": "/start inv-123"
		}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	e := receive(t, events)
	if e.Kind != bot.EventText || e.ChatID != 5 || e.Text != "/start inv-123" {
		t.Errorf("unexpected event %+v", e)
	}
	if e.SenderName != "Aziz K" {
		t.Errorf("expected sender name from profile, got %q", e.SenderName)
	}
}

func TestWebhookVideoMessage(t *testing.T) {
	srv, events := newTestServer(t)

	post(t, srv, "/webhook/s3cret", `{
		"update_id": 11,
		"message": {
			"message_id": 78,
			"from": {"id": 5, "username": "aziz"},
			"chat": {"id": 5},
			"video": {"file_id": "vid-1", "mime_type": "video/mp4"}
		}
	}`)

	e := receive(t, events)
	if e.Kind != bot.EventMedia || e.MediaRef != "vid-1" || e.ContentType != "video/mp4" {
		t.Errorf("unexpected event %+v", e)
	}
	if e.SenderName != "aziz" {
		t.Errorf("expected username fallback, got %q", e.SenderName)
	}
}

func TestWebhookVideoNoteDefaultsContentType(t *testing.T) {
	srv, events := newTestServer(t)

	post(t, srv, "/webhook/s3cret", `{
		"update_id": 12,
		"message": {
			"message_id": 79,
			"chat": {"id": 5},
			"video_note": {"file_id": "note-1"}
		}
	}`)

	e := receive(t, events)
	if e.Kind != bot.EventMedia || e.MediaRef != "note-1" || e.ContentType != "video/mp4" {
		t.Errorf("unexpected event %+v", e)
	}
}

func TestWebhookCallbackQuery(t *testing.T) {
	srv, events := newTestServer(t)

	post(t, srv, "/webhook/s3cret", `{
		"update_id": 13,
		"callback_query": {
			"id": "cbq-1",
			"from": {"id": 9, "first_name": "Nilufar"},
			"message": {"message_id": 900, "chat": {"id": -100500}, "message_thread_id": 42},
			"data": "approve:7"
		}
	}`)

	e := receive(t, events)
	if e.Kind != bot.EventButton || e.Data != "approve:7" {
		t.Errorf("unexpected event %+v", e)
	}
	if e.ChatID != -100500 || e.ThreadID != 42 || e.MessageID != 900 {
		t.Errorf("expected origin message coordinates, got %+v", e)
	}
}

func TestWebhookDropsUnhandledUpdates(t *testing.T) {
	srv, events := newTestServer(t)

	rec := post(t, srv, "/webhook/s3cret", `{
		"update_id": 14,
		"message": {"message_id": 80, "chat": {"id": 5}, "sticker": {"file_id": "st-1"}}
	}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	select {
	case e := <-events:
		t.Errorf("unexpected dispatch: %+v", e)
	case <-time.After(50 * time.Millisecond):
	}
}
