package notifier

import (
	"log/slog"

	"github.com/slack-go/slack"
)

// SlackNotifier posts notifications to a Slack channel. Delivery is
// best-effort: failures are logged, never returned.
type SlackNotifier struct {
	Slack   SlackSender
	Channel string
	Logger  *slog.Logger
}

type SlackSender interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ Notifier = &SlackNotifier{}

func (s *SlackNotifier) Notify(notification Notification) {
	_, _, err := s.Slack.PostMessage(s.Channel, slack.MsgOptionAttachments(slack.Attachment{
		Color: "good",
		Title: notification.Title,
		Text:  notification.Message,
	}))
	if err != nil {
		s.Logger.Error("failed to post notification", slog.String("channel", s.Channel), slog.Any("err", err))
	}
}
