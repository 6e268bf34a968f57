package bot

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/slack-go/slack"
)

// Implemented by *slack.Client.
type poster interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

type repost struct {
	Text      string
	ChannelID string
	// The user whose name and avatar the message is posted under
	UserID string
	// Optional. Used when the bot cannot post to the channel itself.
	ResponseURL string
	// Optional. Posts into this thread.
	ThreadTS string
}

// Posts msg impersonating its user. Rate limited posts are retried; if the
// bot cannot reach the channel the message goes through the response URL.
func (b *Bot) repost(ctx context.Context, client poster, msg repost) error {
	user, err := b.profiles.Get(ctx, msg.UserID)
	if err != nil {
		return err
	}

	options := []slack.MsgOption{
		slack.MsgOptionText(msg.Text, false),
		slack.MsgOptionUsername(user.RealName),
		slack.MsgOptionIconURL(user.ImageURL),
		slack.MsgOptionAsUser(false),
	}
	if msg.ThreadTS != "" {
		options = append(options, slack.MsgOptionTS(msg.ThreadTS))
	}

	for attempt := 0; ; attempt++ {
		_, _, err = client.PostMessageContext(ctx, msg.ChannelID, options...)
		if err == nil {
			return nil
		}

		var limited *slack.RateLimitedError
		if !errors.As(err, &limited) || attempt >= b.postRetries {
			break
		}
		b.logger.Warn("Rate limited posting message", "channel", msg.ChannelID, "retryAfter", limited.RetryAfter)
		if err := sleep(ctx, limited.RetryAfter); err != nil {
			return err
		}
	}

	if msg.ResponseURL == "" || !isUnreachableChannel(err) {
		return errors.Wrapf(err, "failed to post to %s", msg.ChannelID)
	}

	b.logger.Info("Falling back to response URL", "channel", msg.ChannelID, "error", err.Error())
	err = slack.PostWebhookContext(ctx, msg.ResponseURL, &slack.WebhookMessage{
		Text:         msg.Text,
		Username:     user.RealName,
		IconURL:      user.ImageURL,
		ResponseType: slack.ResponseTypeInChannel,
	})
	return errors.Wrap(err, "failed to post to response URL")
}

func isUnreachableChannel(err error) bool {
	var slackErr slack.SlackErrorResponse
	if !errors.As(err, &slackErr) {
		return false
	}
	switch slackErr.Err {
	case "not_in_channel", "channel_not_found":
		return true
	}
	return false
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
