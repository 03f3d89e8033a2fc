// Package slack posts rendered reports to a Slack channel.
package slack

import (
	"context"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/crimson-sun/worktally/internal/model"
	"github.com/crimson-sun/worktally/internal/output"
)

// Output posts each report as a preformatted text table.
type Output struct {
	api     *slack.Client
	channel string
}

// New creates a Slack output posting to channel with a bot token.
// Extra client options (such as slack.OptionAPIURL) are passed through.
func New(token, channel string, opts ...slack.Option) *Output {
	return &Output{api: slack.New(token, opts...), channel: channel}
}

// Write posts the report.
func (o *Output) Write(ctx context.Context, report model.Report) error {
	text := "```\n" + output.RenderTable(report) + "```"
	_, _, err := o.api.PostMessageContext(ctx, o.channel, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("slack output: %w", err)
	}
	return nil
}

func (o *Output) Close() error {
	return nil
}
