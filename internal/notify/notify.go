// Package notify posts Git operation announcements to Slack.
package notify

import (
	"fmt"
	"log"

	"github.com/slack-go/slack"

	"github.com/gitscribe/gitscribe/pkg/eventbus"
)

// poster is the slice of the Slack API the notifier uses.
type poster interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
}

// Notifier announces completed Git operations in a Slack channel.
type Notifier struct {
	api     poster
	channel string
}

// New creates a notifier posting to the given channel.
func New(botToken, channel string) *Notifier {
	return &Notifier{
		api:     slack.New(botToken),
		channel: channel,
	}
}

// Announce posts one event to the configured channel. Failures are logged
// and returned but are never fatal to the operation that produced the event.
func (n *Notifier) Announce(ev *eventbus.Event) error {
	header := slack.NewSectionBlock(
		slack.NewTextBlockObject(slack.MarkdownType, headline(ev), false, false),
		nil, nil,
	)
	context := slack.NewContextBlock("",
		slack.NewTextBlockObject(slack.MarkdownType,
			fmt.Sprintf("%s · %s", ev.Service, ev.Repository), false, false),
	)

	_, _, err := n.api.PostMessage(n.channel,
		slack.MsgOptionBlocks(header, context),
	)
	if err != nil {
		log.Printf("Warning: slack announcement failed: %v", err)
		return err
	}
	return nil
}

func headline(ev *eventbus.Event) string {
	switch ev.Type {
	case "issue_created":
		if ev.URL != "" {
			return fmt.Sprintf(":memo: Issue created: <%s|%s>", ev.URL, ev.Title)
		}
		return fmt.Sprintf(":memo: Issue created: %s", ev.Title)
	case "pull_request_created":
		if ev.URL != "" {
			return fmt.Sprintf(":twisted_rightwards_arrows: Pull request opened: <%s|%s>", ev.URL, ev.Title)
		}
		return fmt.Sprintf(":twisted_rightwards_arrows: Pull request opened: %s", ev.Title)
	default:
		return fmt.Sprintf(":information_source: %s on %s", ev.Type, ev.Repository)
	}
}
