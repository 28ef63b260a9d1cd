package bot

import (
	"fmt"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/aktamov/davomat/core"
	"github.com/aktamov/davomat/core/course"
	"github.com/aktamov/davomat/core/intake"
	"github.com/aktamov/davomat/core/member"
)

// conversation states kept in the cache; losing one only restarts the
// two-step appeal capture, never corrupts course state
const (
	stateAppealVideo = "appeal_video"
	stateAppealText  = "appeal_text"

	stateTTL = time.Hour
)

type (
	Config struct {
		GroupID         int64
		GeneralThreadID int64
		FromEmail       string
		AlertEmail      string
	}

	// Bot holds the injected collaborators shared by all handlers.
	Bot struct {
		courses  *course.Service
		intakes  *intake.Service
		members  *member.Service
		pipeline *intake.Pipeline

		chat  core.Chat
		cache core.Cache
		mail  core.EmailService
		clock core.Clock
		prog  core.ProgramConfig
		conf  Config

		validate   *validator.Validate
		translator ut.Translator
		logger     core.Logger
	}
)

func New(
	courses *course.Service,
	intakes *intake.Service,
	members *member.Service,
	pipeline *intake.Pipeline,
	chat core.Chat,
	cache core.Cache,
	mail core.EmailService,
	clock core.Clock,
	prog core.ProgramConfig,
	conf Config,
	logger core.Logger,
) *Bot {
	enLocale := en.New()
	uniTrans := ut.New(enLocale, enLocale)
	translator, _ := uniTrans.GetTranslator(enLocale.Locale())
	validate := validator.New()
	core.InitValidators(validate, translator)

	return &Bot{
		courses:    courses,
		intakes:    intakes,
		members:    members,
		pipeline:   pipeline,
		chat:       chat,
		cache:      cache,
		mail:       mail,
		clock:      clock,
		prog:       prog,
		conf:       conf,
		validate:   validate,
		translator: translator,
		logger:     logger,
	}
}

// Register wires the bot's handlers into the dispatcher.
func (b *Bot) Register(d *Dispatcher) {
	d.Register(EventText, b.handleText)
	d.Register(EventMedia, b.handleMedia)
	d.Register(EventButton, b.handleButton)
}

// fromGroup reports whether the event came from the staff group rather than
// a member's direct chat.
func (b *Bot) fromGroup(e Event) bool {
	return e.ChatID == b.conf.GroupID
}

func stateKey(chatID int64) string {
	return fmt.Sprintf("state:%d", chatID)
}

func (b *Bot) getState(chatID int64) (string, int) {
	v, ok, err := b.cache.Get(stateKey(chatID))
	if err != nil || !ok {
		return "", 0
	}
	return unpackData(v)
}

func (b *Bot) setState(chatID int64, state string, courseID int) {
	if err := b.cache.SetWithTTL(stateKey(chatID), packData(state, courseID), stateTTL); err != nil {
		b.logger.Warn(fmt.Sprintf("saving conversation state for chat %d", chatID), err)
	}
}

func (b *Bot) clearState(chatID int64) {
	if err := b.cache.Delete(stateKey(chatID)); err != nil {
		b.logger.Warn(fmt.Sprintf("clearing conversation state for chat %d", chatID), err)
	}
}

// NotifyMember posts to the member's direct chat on behalf of a scheduler
// task; delivery follows the same Forbidden handling as handler replies.
func (b *Bot) NotifyMember(chatID int64, text string, buttons ...core.Button) {
	b.reply(chatID, text, buttons...)
}

// reply posts to the member's direct chat; a Forbidden response (member
// blocked the bot) is logged and swallowed.
func (b *Bot) reply(chatID int64, text string, buttons ...core.Button) {
	if _, err := b.chat.SendMessage(chatID, 0, text, buttons...); err != nil {
		if core.IsForbidden(err) {
			b.logger.Info(fmt.Sprintf("member chat %d unreachable, message dropped", chatID))
			return
		}
		b.logger.Error(fmt.Sprintf("sending message to chat %d", chatID), err)
	}
}

// toThread posts to the member's collaboration thread in the staff group.
func (b *Bot) toThread(threadID int64, text string, buttons ...core.Button) int64 {
	id, err := b.chat.SendMessage(b.conf.GroupID, threadID, text, buttons...)
	if err != nil {
		b.logger.Error(fmt.Sprintf("sending message to thread %d", threadID), err)
		return 0
	}
	return id
}
