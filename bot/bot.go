// Package bot wires the emoji translator to the Slack routes: a slash
// command, a message shortcut and app mentions all repost translated text
// under the author's name and avatar.
package bot

import (
	"context"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/jacob-ian/kemohno"
	"github.com/jacob-ian/kemohno/profile"
	"github.com/pkg/errors"
	"github.com/slack-go/slack/slackevents"
)

const (
	DefaultCommand          = "/bepis"
	DefaultActionCallbackID = "emojify"
	DefaultMaxLength        = 4000
	DefaultPostRetries      = 2

	emptyTextMessage = "baka! I can't emojify an empty string! try again with some characters."
	tooLongMessage   = "that's too much to emojify! try again with fewer characters."
)

type Translator interface {
	Translate(input string) string
}

type Profiles interface {
	Get(ctx context.Context, userID string) (profile.User, error)
}

// Configuration options for the Bot
type Config struct {
	// Required.
	Translator Translator
	// Required.
	Profiles Profiles
	// Optional. The slash command to answer. Defaults to "/bepis".
	Command string
	// Optional. The callback ID of the message shortcut. Defaults to "emojify".
	ActionCallbackID string
	// Optional. Longest translation, in characters, that is posted.
	// Defaults to 4000.
	MaxLength int
	// Optional. Retries of a rate limited post. Defaults to 2, negative
	// disables retries.
	PostRetries int
	// Optional. Defaults to slog.Default()
	Logger *slog.Logger
}

type Bot struct {
	translator       Translator
	profiles         Profiles
	command          string
	actionCallbackID string
	maxLength        int
	postRetries      int
	logger           *slog.Logger
}

func New(config Config) *Bot {
	if config.Translator == nil {
		panic("Missing translator in bot.New")
	}
	if config.Profiles == nil {
		panic("Missing profiles in bot.New")
	}
	if config.Command == "" {
		config.Command = DefaultCommand
	}
	if config.ActionCallbackID == "" {
		config.ActionCallbackID = DefaultActionCallbackID
	}
	if config.MaxLength <= 0 {
		config.MaxLength = DefaultMaxLength
	}
	if config.PostRetries == 0 {
		config.PostRetries = DefaultPostRetries
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Bot{
		translator:       config.Translator,
		profiles:         config.Profiles,
		command:          config.Command,
		actionCallbackID: config.ActionCallbackID,
		maxLength:        config.MaxLength,
		postRetries:      max(config.PostRetries, 0),
		logger:           config.Logger,
	}
}

// Registers the bot's handlers on app.
func (b *Bot) Register(app *kemohno.Application) {
	app.RegisterCommand(b.command, b.handleCommand)
	app.RegisterMessageAction(b.actionCallbackID, b.handleMessageAction)
	app.RegisterEventHandler(string(slackevents.AppMention), b.handleMention)
}

// Translates text, reporting false when the result is too long to post.
func (b *Bot) translate(text string) (string, bool) {
	out := b.translator.Translate(text)
	return out, utf8.RuneCountInString(out) <= b.maxLength
}

func (b *Bot) handleCommand(req *kemohno.CommandRequest) error {
	text := StripMarkup(req.Payload.Text)
	if text == "" {
		req.Logger.Info("Empty command text", "user", req.Payload.UserID)
		req.AckWithAction(kemohno.CommandAction{
			ResponseType: kemohno.CmdRespondEphemeral,
			Text:         emptyTextMessage,
		})
		return nil
	}

	out, ok := b.translate(text)
	if !ok {
		req.AckWithAction(kemohno.CommandAction{
			ResponseType: kemohno.CmdRespondEphemeral,
			Text:         tooLongMessage,
		})
		return nil
	}
	req.Ack()

	return b.repost(req.Context(), req.Client, repost{
		Text:        out,
		ChannelID:   req.Payload.ChannelID,
		UserID:      req.Payload.UserID,
		ResponseURL: req.Payload.ResponseURL,
	})
}

func (b *Bot) handleMessageAction(req *kemohno.MessageActionRequest) error {
	payload := req.Payload
	req.Ack()

	text := StripMarkup(payload.Message.Text)
	if text == "" || payload.Message.User == "" || payload.Channel.ID == "" {
		return errors.Errorf("malformed message action, channel %q user %q", payload.Channel.ID, payload.Message.User)
	}

	out, ok := b.translate(text)
	if !ok {
		return errors.Errorf("translation of %d characters is too long", utf8.RuneCountInString(out))
	}

	return b.repost(req.Context(), req.Client, repost{
		Text:        out,
		ChannelID:   payload.Channel.ID,
		UserID:      payload.Message.User,
		ResponseURL: payload.ResponseURL,
	})
}

func (b *Bot) handleMention(req *kemohno.EventRequest) error {
	mention, ok := req.Payload.InnerEvent.Data.(*slackevents.AppMentionEvent)
	if !ok {
		return errors.Errorf("unexpected app_mention payload %T", req.Payload.InnerEvent.Data)
	}
	req.Ack()

	if mention.BotID != "" {
		return nil
	}
	text := StripMarkup(mention.Text)
	if strings.TrimSpace(text) == "" {
		return nil
	}

	out, ok := b.translate(text)
	if !ok {
		b.logger.Warn("Mention translation too long", "user", mention.User, "channel", mention.Channel)
		return nil
	}

	return b.repost(req.Context(), req.Client, repost{
		Text:      out,
		ChannelID: mention.Channel,
		UserID:    mention.User,
		ThreadTS:  mention.ThreadTimeStamp,
	})
}
