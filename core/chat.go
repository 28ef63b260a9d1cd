package core

// Button is one inline affordance attached to a chat message. Data is the
// opaque callback payload echoed back on press.
type Button struct {
	Text string
	Data string
}

// Chat is the notification sink: a chat-platform bot able to write to
// members' direct chats and to per-member collaboration threads inside the
// staff group. Every call is independently fallible; callers must not assume
// success. Implementations map the platform's "already done" responses
// (message not modified, topic already closed, ...) to success.
type Chat interface {
	// SendMessage posts text to chatID. threadID > 0 targets a thread
	// within a group chat. Returns the new message id.
	SendMessage(chatID, threadID int64, text string, buttons ...Button) (int64, error)
	// SendVideo re-posts an already-uploaded media file by reference.
	SendVideo(chatID, threadID int64, fileRef string) (int64, error)
	EditMessage(chatID, messageID int64, text string, buttons ...Button) error
	// ClearButtons strips the inline affordances from a message, leaving
	// its text intact.
	ClearButtons(chatID, messageID int64) error

	// CreateThread opens a new named thread (forum topic) in a group chat
	// and returns its id.
	CreateThread(chatID int64, name string) (int64, error)
	RenameThread(chatID, threadID int64, name string) error
	SetThreadIcon(chatID, threadID int64, iconID string) error
	CloseThread(chatID, threadID int64) error
	ReopenThread(chatID, threadID int64) error
	DeleteThread(chatID, threadID int64) error

	MediaFetcher
}

// MediaFetcher resolves a platform file reference into raw bytes.
type MediaFetcher interface {
	DownloadFile(fileRef string) ([]byte, error)
}

// IsForbidden reports whether err means the member blocked the bot or never
// started a direct chat with it. Such sends are skipped, not retried.
func IsForbidden(err error) bool {
	type forbidden interface{ Forbidden() bool }
	f, ok := err.(forbidden)
	return ok && f.Forbidden()
}
