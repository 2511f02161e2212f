// Package slack connects the conversation machine to Slack over Socket Mode.
package slack

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/socketmode"
)

// BotAPI abstracts the Slack API client for testing.
type BotAPI interface {
	PostMessage(channelID string, options ...slack.MsgOption) (string, string, error)
	AuthTest() (*slack.AuthTestResponse, error)
}

// App is the Slack bot application using Socket Mode.
type App struct {
	api     *slack.Client
	socket  *socketmode.Client
	handler *Handler
	logger  zerolog.Logger
}

// NewApp creates a Slack bot app and wires the handler to its socket.
func NewApp(botToken, appToken string, handler *Handler, logger zerolog.Logger) *App {
	api := slack.New(
		botToken,
		slack.OptionAppLevelToken(appToken),
	)

	socket := socketmode.New(api)
	handler.api = api
	handler.socket = socket

	return &App{
		api:     api,
		socket:  socket,
		handler: handler,
		logger:  logger.With().Str("component", "slack").Logger(),
	}
}

// API returns the underlying Slack client, for health checks and the sender.
func (a *App) API() *slack.Client {
	return a.api
}

// Run starts the Socket Mode event loop. Blocks until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	resp, err := a.api.AuthTest()
	if err != nil {
		return fmt.Errorf("slack auth test: %w", err)
	}
	a.handler.botUserID = resp.UserID
	a.logger.Info().
		Str("bot_user", resp.UserID).
		Str("team", resp.Team).
		Msg("starting Slack Socket Mode connection")

	go func() {
		for evt := range a.socket.Events {
			a.handler.HandleEvent(ctx, evt)
		}
	}()

	if err := a.socket.RunContext(ctx); err != nil && ctx.Err() == nil {
		return fmt.Errorf("socket mode error: %w", err)
	}
	return nil
}

// Sender posts plain text messages, satisfying the chat send interfaces
// used by the conversation machine and the cleanup sweeper.
type Sender struct {
	api BotAPI
}

// NewSender creates a Sender over the given API client.
func NewSender(api BotAPI) *Sender {
	return &Sender{api: api}
}

// Send posts text to the given channel.
func (s *Sender) Send(_ context.Context, channelID, text string) error {
	_, _, err := s.api.PostMessage(channelID, slack.MsgOptionText(text, false))
	if err != nil {
		return fmt.Errorf("posting message to %s: %w", channelID, err)
	}
	return nil
}
