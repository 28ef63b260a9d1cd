// Package chatsvc implements core.Chat against a Telegram-style bot API.
package chatsvc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/aktamov/davomat/core"
)

type Client struct {
	baseURL string
	token   string
	http    *http.Client
}

var _ core.Chat = (*Client)(nil) // interface compliance check

func NewClient(conf *core.Config) *Client {
	return &Client{
		baseURL: strings.TrimRight(conf.Chat.BaseURL, "/"),
		token:   conf.Chat.Token,
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

type apiResponse struct {
	OK          bool            `json:"ok"`
	Result      json.RawMessage `json:"result"`
	ErrorCode   int             `json:"error_code"`
	Description string          `json:"description"`
}

// Error is a non-benign API failure.
type Error struct {
	Method      string
	Code        int
	Description string
}

func (e *Error) Error() string {
	return fmt.Sprintf("chat api %s: %d %s", e.Method, e.Code, e.Description)
}

// Forbidden satisfies core.IsForbidden: the member blocked the bot or never
// opened a direct chat.
func (e *Error) Forbidden() bool {
	return e.Code == http.StatusForbidden
}

// benign maps "already done" responses to success, per the core.Chat
// contract: re-editing an unchanged message, re-closing a closed topic.
func benign(description string) bool {
	d := strings.ToLower(description)
	return strings.Contains(d, "not modified") || strings.Contains(d, "not_modified")
}

func (c *Client) call(method string, params map[string]interface{}, result interface{}) error {
	body, err := json.Marshal(params)
	if err != nil {
		return errors.Wrapf(err, "encoding %s params", method)
	}

	resp, err := c.http.Post(
		fmt.Sprintf("%s/bot%s/%s", c.baseURL, c.token, method),
		"application/json",
		bytes.NewReader(body),
	)
	if err != nil {
		return errors.Wrapf(err, "calling %s", method)
	}
	defer func() { _ = resp.Body.Close() }()

	var ar apiResponse
	if err = json.NewDecoder(resp.Body).Decode(&ar); err != nil {
		return errors.Wrapf(err, "decoding %s response", method)
	}
	if !ar.OK {
		if benign(ar.Description) {
			return nil
		}
		return &Error{Method: method, Code: ar.ErrorCode, Description: ar.Description}
	}
	if result != nil {
		if err = json.Unmarshal(ar.Result, result); err != nil {
			return errors.Wrapf(err, "decoding %s result", method)
		}
	}
	return nil
}

func markup(buttons []core.Button) map[string]interface{} {
	rows := make([][]map[string]string, 0, len(buttons))
	for _, b := range buttons {
		rows = append(rows, []map[string]string{{"text": b.Text, "callback_data": b.Data}})
	}
	return map[string]interface{}{"inline_keyboard": rows}
}

func (c *Client) SendMessage(chatID, threadID int64, text string, buttons ...core.Button) (int64, error) {
	params := map[string]interface{}{
		"chat_id": chatID,
		"text":    text,
	}
	if threadID > 0 {
		params["message_thread_id"] = threadID
	}
	if len(buttons) > 0 {
		params["reply_markup"] = markup(buttons)
	}

	var msg struct {
		MessageID int64 `json:"message_id"`
	}
	if err := c.call("sendMessage", params, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

func (c *Client) SendVideo(chatID, threadID int64, fileRef string) (int64, error) {
	params := map[string]interface{}{
		"chat_id": chatID,
		"video":   fileRef,
	}
	if threadID > 0 {
		params["message_thread_id"] = threadID
	}

	var msg struct {
		MessageID int64 `json:"message_id"`
	}
	if err := c.call("sendVideo", params, &msg); err != nil {
		return 0, err
	}
	return msg.MessageID, nil
}

func (c *Client) EditMessage(chatID, messageID int64, text string, buttons ...core.Button) error {
	params := map[string]interface{}{
		"chat_id":    chatID,
		"message_id": messageID,
		"text":       text,
	}
	if len(buttons) > 0 {
		params["reply_markup"] = markup(buttons)
	}
	return c.call("editMessageText", params, nil)
}

func (c *Client) ClearButtons(chatID, messageID int64) error {
	return c.call("editMessageReplyMarkup", map[string]interface{}{
		"chat_id":      chatID,
		"message_id":   messageID,
		"reply_markup": map[string]interface{}{"inline_keyboard": [][]map[string]string{}},
	}, nil)
}

func (c *Client) CreateThread(chatID int64, name string) (int64, error) {
	var topic struct {
		ThreadID int64 `json:"message_thread_id"`
	}
	err := c.call("createForumTopic", map[string]interface{}{
		"chat_id": chatID,
		"name":    name,
	}, &topic)
	if err != nil {
		return 0, err
	}
	return topic.ThreadID, nil
}

func (c *Client) RenameThread(chatID, threadID int64, name string) error {
	return c.call("editForumTopic", map[string]interface{}{
		"chat_id":           chatID,
		"message_thread_id": threadID,
		"name":              name,
	}, nil)
}

func (c *Client) SetThreadIcon(chatID, threadID int64, iconID string) error {
	return c.call("editForumTopic", map[string]interface{}{
		"chat_id":              chatID,
		"message_thread_id":    threadID,
		"icon_custom_emoji_id": iconID,
	}, nil)
}

func (c *Client) CloseThread(chatID, threadID int64) error {
	return c.call("closeForumTopic", map[string]interface{}{
		"chat_id":           chatID,
		"message_thread_id": threadID,
	}, nil)
}

func (c *Client) ReopenThread(chatID, threadID int64) error {
	return c.call("reopenForumTopic", map[string]interface{}{
		"chat_id":           chatID,
		"message_thread_id": threadID,
	}, nil)
}

func (c *Client) DeleteThread(chatID, threadID int64) error {
	return c.call("deleteForumTopic", map[string]interface{}{
		"chat_id":           chatID,
		"message_thread_id": threadID,
	}, nil)
}

func (c *Client) DownloadFile(fileRef string) ([]byte, error) {
	var file struct {
		FilePath string `json:"file_path"`
	}
	if err := c.call("getFile", map[string]interface{}{"file_id": fileRef}, &file); err != nil {
		return nil, err
	}

	resp, err := c.http.Get(fmt.Sprintf("%s/file/bot%s/%s", c.baseURL, c.token, file.FilePath))
	if err != nil {
		return nil, errors.Wrap(err, "downloading file")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Method: "download", Code: resp.StatusCode, Description: resp.Status}
	}
	data, err := io.ReadAll(resp.Body)
	return data, errors.Wrap(err, "reading file body")
}
