package echoapi

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/aktamov/davomat/bot"
)

// Inbound update payload, Bot API shape. Only the fields the dispatcher
// needs are decoded; everything else is ignored.
type (
	update struct {
		UpdateID      int64          `json:"update_id"`
		Message       *message       `json:"message"`
		CallbackQuery *callbackQuery `json:"callback_query"`
	}

	message struct {
		MessageID int64   `json:"message_id"`
		From      *sender `json:"from"`
		Chat      chatRef `json:"chat"`
		ThreadID  int64   `json:"message_thread_id"`
		Text      string  `json:"text"`
		Caption   string  `json:"caption"`
		Video     *media  `json:"video"`
		VideoNote *media  `json:"video_note"`
		Document  *media  `json:"document"`
	}

	callbackQuery struct {
		ID      string   `json:"id"`
		From    *sender  `json:"from"`
		Message *message `json:"message"`
		Data    string   `json:"data"`
	}

	sender struct {
		ID        int64  `json:"id"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
		Username  string `json:"username"`
	}

	chatRef struct {
		ID int64 `json:"id"`
	}

	media struct {
		FileID   string `json:"file_id"`
		MimeType string `json:"mime_type"`
	}
)

type webhookHandler struct {
	secret     string
	dispatcher *bot.Dispatcher
}

func registerWebhook(app *echo.Echo, secret string, d *bot.Dispatcher) {
	h := webhookHandler{secret: secret, dispatcher: d}
	app.POST("/webhook/:secret", h.handle)
}

func (h webhookHandler) handle(ctx echo.Context) error {
	// a wrong secret gets the same 404 a wrong path would
	if subtle.ConstantTimeCompare([]byte(ctx.Param("secret")), []byte(h.secret)) != 1 {
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	}

	u := new(update)
	if err := ctx.Bind(u); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed update")
	}

	if e, ok := u.event(); ok {
		// answer before handling; video verification can outlast the
		// platform's delivery timeout and trigger a redelivery
		go h.dispatcher.Dispatch(e)
	}
	return ctx.NoContent(http.StatusOK)
}

// event normalizes an update into a bot.Event. Updates carrying nothing the
// bot handles (edits, joins, stickers) are dropped.
func (u *update) event() (bot.Event, bool) {
	if cb := u.CallbackQuery; cb != nil && cb.Message != nil {
		return bot.Event{
			Kind:       bot.EventButton,
			ChatID:     cb.Message.Chat.ID,
			ThreadID:   cb.Message.ThreadID,
			MessageID:  cb.Message.MessageID,
			SenderName: cb.From.name(),
			Data:       cb.Data,
		}, true
	}

	m := u.Message
	if m == nil {
		return bot.Event{}, false
	}

	e := bot.Event{
		ChatID:     m.Chat.ID,
		ThreadID:   m.ThreadID,
		MessageID:  m.MessageID,
		SenderName: m.From.name(),
	}

	switch {
	case m.Video != nil:
		e.Kind = bot.EventMedia
		e.MediaRef = m.Video.FileID
		e.ContentType = m.Video.MimeType
	case m.VideoNote != nil:
		e.Kind = bot.EventMedia
		e.MediaRef = m.VideoNote.FileID
		e.ContentType = "video/mp4"
	case m.Document != nil && strings.HasPrefix(m.Document.MimeType, "video/"):
		e.Kind = bot.EventMedia
		e.MediaRef = m.Document.FileID
		e.ContentType = m.Document.MimeType
	case m.Text != "":
		e.Kind = bot.EventText
		e.Text = m.Text
	default:
		return bot.Event{}, false
	}
	return e, true
}

func (s *sender) name() string {
	if s == nil {
		return ""
	}
	n := strings.TrimSpace(s.FirstName + " " + s.LastName)
	if n == "" {
		n = s.Username
	}
	return n
}
