package slack

import (
	"context"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"
	"github.com/slack-go/slack/socketmode"

	"github.com/p-blackswan/pm-agent/internal/conversation"
)

// Conversation is the slice of the conversation machine the handler drives.
type Conversation interface {
	HandleMessage(ctx context.Context, in conversation.Incoming) string
	EnterEpicFlow(userID, channelID string) string
	EnterMeetingFlow(userID, channelID, args string) string
	EnterSearchFlow(userID, channelID, args string) string
}

var mentionPattern = regexp.MustCompile(`<@[A-Z0-9]+>`)

// Handler routes Socket Mode events into the conversation machine.
type Handler struct {
	api          BotAPI
	socket       *socketmode.Client
	conv         Conversation
	botUserID    string
	defaultSpace string
	logger       zerolog.Logger
}

// NewHandler creates an event handler around the conversation machine.
func NewHandler(conv Conversation, logger zerolog.Logger) *Handler {
	return &Handler{
		conv:   conv,
		logger: logger.With().Str("component", "slack.handler").Logger(),
	}
}

// SetConversation swaps in the conversation machine. The machine is built
// around the sender that the app owns, so it is wired after NewApp.
func (h *Handler) SetConversation(conv Conversation) {
	h.conv = conv
}

// SetDefaultSpace sets the Confluence space used by /process-meetings when
// the command carries no arguments.
func (h *Handler) SetDefaultSpace(spaceKey string) {
	h.defaultSpace = spaceKey
}

// HandleEvent routes one Socket Mode event.
func (h *Handler) HandleEvent(ctx context.Context, evt socketmode.Event) {
	switch evt.Type {
	case socketmode.EventTypeEventsAPI:
		// Slack requires the ack within 3 seconds.
		if h.socket != nil && evt.Request != nil {
			h.socket.Ack(*evt.Request)
		}
		apiEvent, ok := evt.Data.(slackevents.EventsAPIEvent)
		if !ok {
			h.logger.Warn().Str("type", string(evt.Type)).Msg("failed to cast events_api data")
			return
		}
		if apiEvent.Type == slackevents.CallbackEvent {
			h.handleCallbackEvent(ctx, apiEvent.InnerEvent)
		}
	case socketmode.EventTypeSlashCommand:
		cmd, ok := evt.Data.(slack.SlashCommand)
		if !ok {
			return
		}
		reply := h.handleSlashCommand(cmd)
		if h.socket != nil && evt.Request != nil {
			h.socket.Ack(*evt.Request, map[string]any{
				"response_type": "ephemeral",
				"text":          reply,
			})
		}
	default:
		h.logger.Debug().Str("type", string(evt.Type)).Msg("unhandled event type")
	}
}

func (h *Handler) handleCallbackEvent(ctx context.Context, inner slackevents.EventsAPIInnerEvent) {
	switch ev := inner.Data.(type) {
	case *slackevents.AppMentionEvent:
		if ev.User == "" || ev.User == h.botUserID {
			return
		}
		text := strings.TrimSpace(mentionPattern.ReplaceAllString(ev.Text, ""))
		h.logger.Info().
			Str("user", ev.User).
			Str("channel", ev.Channel).
			Msg("app mention received")
		h.deliver(ctx, conversation.Incoming{
			UserID:    ev.User,
			ChannelID: ev.Channel,
			Text:      text,
		})

	case *slackevents.MessageEvent:
		// Skip bot messages and message_changed/deleted subtypes.
		if ev.User == "" || ev.User == h.botUserID || ev.BotID != "" || ev.SubType != "" {
			return
		}
		if ev.ChannelType != "im" {
			return
		}
		h.logger.Debug().
			Str("user", ev.User).
			Str("channel", ev.Channel).
			Msg("direct message received")
		h.deliver(ctx, conversation.Incoming{
			UserID:    ev.User,
			ChannelID: ev.Channel,
			Text:      ev.Text,
			IsDM:      true,
		})

	default:
		h.logger.Debug().Str("inner_type", inner.Type).Msg("unhandled callback event type")
	}
}

func (h *Handler) deliver(ctx context.Context, in conversation.Incoming) {
	reply := h.conv.HandleMessage(ctx, in)
	if reply == "" {
		return
	}
	if _, _, err := h.api.PostMessage(in.ChannelID, slack.MsgOptionText(reply, false)); err != nil {
		h.logger.Error().Err(err).
			Str("channel", in.ChannelID).
			Msg("failed to post reply")
	}
}

func (h *Handler) handleSlashCommand(cmd slack.SlashCommand) string {
	args := strings.TrimSpace(cmd.Text)
	h.logger.Info().
		Str("command", cmd.Command).
		Str("user", cmd.UserID).
		Msg("slash command received")

	switch cmd.Command {
	case "/create-epic":
		return h.conv.EnterEpicFlow(cmd.UserID, cmd.ChannelID)
	case "/process-meetings":
		if args == "" {
			args = h.defaultSpace
		}
		return h.conv.EnterMeetingFlow(cmd.UserID, cmd.ChannelID, args)
	case "/search-meetings":
		return h.conv.EnterSearchFlow(cmd.UserID, cmd.ChannelID, args)
	default:
		return "Unknown command. Try /create-epic, /process-meetings or /search-meetings."
	}
}
