package notify

import (
	"fmt"

	"github.com/slack-go/slack"

	"devops_proxy/internal/model"
)

// Notifier is told about bugs created through the proxy
type Notifier interface {
	BugCreated(bug *model.BugResult) error
}

// SlackNotifier posts a message to a channel whenever a bug is created
type SlackNotifier struct {
	api       *slack.Client
	channelID string
}

// NewSlackNotifier creates a notifier for the given bot token and channel
func NewSlackNotifier(token, channelID string) *SlackNotifier {
	return &SlackNotifier{
		api:       slack.New(token),
		channelID: channelID,
	}
}

// BugCreated posts the bug summary to the configured channel
func (n *SlackNotifier) BugCreated(bug *model.BugResult) error {
	_, _, err := n.api.PostMessage(
		n.channelID,
		slack.MsgOptionText(bugMessage(bug), false),
	)
	if err != nil {
		return fmt.Errorf("failed to post bug notification: %v", err)
	}
	return nil
}

func bugMessage(bug *model.BugResult) string {
	return fmt.Sprintf("🐞 Bug #%d created: *%s* (%s)\n<%s|View in Azure DevOps>",
		bug.ID, bug.Title, bug.State, bug.URL)
}

var _ Notifier = (*SlackNotifier)(nil)
