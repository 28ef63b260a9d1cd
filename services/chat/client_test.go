package chatsvc

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aktamov/davomat/core"
)

func newTestClient(handler http.HandlerFunc) (*Client, *httptest.Server) {
	srv := httptest.NewServer(handler)
	conf := &core.Config{Chat: core.ChatConfig{BaseURL: srv.URL, Token: "testtoken"}}
	return NewClient(conf), srv
}

func TestSendMessage(t *testing.T) {
	var gotPath string
	var gotParams map[string]interface{}
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotParams)
		_, _ = w.Write([]byte(`{"ok":true,"result":{"message_id":123}}`))
	})
	defer srv.Close()

	id, err := c.SendMessage(42, 7, "hello", core.Button{Text: "Go", Data: "go:1"})
	if err != nil {
		t.Fatal(err)
	}
	if id != 123 {
		t.Errorf("expected message id 123, got %d", id)
	}
	if gotPath != "/bottesttoken/sendMessage" {
		t.Errorf("unexpected path %q", gotPath)
	}
	if gotParams["message_thread_id"].(float64) != 7 {
		t.Errorf("expected thread id in params, got %v", gotParams)
	}
	if gotParams["reply_markup"] == nil {
		t.Error("expected a reply markup")
	}
}

func TestBenignResponsesMapToSuccess(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error_code":400,"description":"Bad Request: message is not modified"}`))
	})
	defer srv.Close()

	if err := c.EditMessage(42, 123, "same text"); err != nil {
		t.Errorf("a not-modified edit must count as success, got %v", err)
	}
	if err := c.CloseThread(42, 7); err != nil {
		t.Errorf("TOPIC_NOT_MODIFIED must count as success, got %v", err)
	}
}

func TestForbiddenError(t *testing.T) {
	c, srv := newTestClient(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
	})
	defer srv.Close()

	_, err := c.SendMessage(42, 0, "hello")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !core.IsForbidden(err) {
		t.Errorf("expected a forbidden error, got %v", err)
	}
}
