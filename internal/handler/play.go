package handler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-clips/internal/presenters"
)

var errGuildOnly = &UserError{Message: "Clips can only be played in a server"}

// notifyTimeout bounds the follow-up message sent when a clip fails to play.
const notifyTimeout = 10 * time.Second

// play queues the user's clip and reports a failed playback in the channel
// the command came from. The report is sent off the playback worker.
func (h *interactions) play(ctx context.Context, s DiscordSession, i *discordgo.InteractionCreate, channelID, name string) error {
	if i.GuildID == "" {
		return errGuildOnly
	}

	requester := userID(i)
	notify := func(err error) {
		if err == nil {
			return
		}
		h.logger.Warn("clip failed to play",
			slog.String("guildID", i.GuildID),
			slog.String("name", name),
			slog.Any("error", err),
		)
		content := fmt.Sprintf("<@%s> `%s` could not be played", requester, name)
		go func() {
			sendCtx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
			defer cancel()
			if _, err := s.ChannelMessageSend(i.ChannelID, content, discordgo.WithContext(sendCtx)); err != nil {
				h.logger.Warn("failed to send playback failure message", slog.Any("error", err))
			}
		}()
	}

	return h.board.Play(ctx, i.GuildID, channelID, requester, name, requester, notify)
}

func (h *interactions) playFlow() *Flow {
	return &Flow{
		ID: "play",
		Root: &Node{
			ID:      "play",
			Matcher: commandMatcher("play", ""),
			Handler: func(ctx context.Context, s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
				opts := optionsOf(i)
				name := opts.stringValue("name")
				if err := h.play(ctx, s, i, opts.idValue("channel"), name); err != nil {
					return err
				}
				return s.InteractionRespond(i.Interaction, presenters.Ephemeral(fmt.Sprintf("Queued `%s`", name)))
			},
		},
	}
}

func (h *interactions) skipFlow() *Flow {
	return &Flow{
		ID: "skip",
		Root: &Node{
			ID:      "skip",
			Matcher: commandMatcher("skip", ""),
			Handler: func(ctx context.Context, s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
				if i.GuildID == "" {
					return errGuildOnly
				}
				if err := h.board.Skip(ctx, i.GuildID, userID(i)); err != nil {
					return err
				}
				return s.InteractionRespond(i.Interaction, presenters.Ephemeral("Skipped"))
			},
		},
	}
}
