package handler

import (
	"context"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-clips/internal/generator"
	"github.com/glizzus/sound-clips/internal/presenters"
	"github.com/glizzus/sound-clips/internal/repository"
	"github.com/glizzus/sound-clips/internal/soundboard"
)

// Soundboard is what the interaction handlers need from the clip board.
// *soundboard.Service implements it.
type Soundboard interface {
	Upload(ctx context.Context, ownerID, name string, source soundboard.UploadSource) (repository.Clip, error)
	Remove(ctx context.Context, ownerID, name string) error
	Rename(ctx context.Context, ownerID, name, newName string) (repository.Clip, error)
	Share(ctx context.Context, ownerID, name, targetOwnerID, newName string) (repository.Clip, error)
	List(ctx context.Context, ownerID string) ([]repository.Clip, error)
	Play(ctx context.Context, guildID, channelID, ownerID, name, requesterID string, notify func(error)) error
	Skip(ctx context.Context, guildID, requesterID string) error
	MaxClipSize() int64
}

var _ Soundboard = (*soundboard.Service)(nil)

type Options struct {
	IDs        generator.Generator[string]
	HTTPClient HTTPClient
	Limiter    *UserLimiter
	Logger     *slog.Logger
}

const (
	rateLimitedMessage = "You're doing that too often, try again in a moment"
	expiredMessage     = "This menu has expired, run the command again"
)

// NewInteractionHandler routes slash commands and their follow-up
// components to the clip board.
func NewInteractionHandler(board Soundboard, opts Options) func(DiscordSession, *discordgo.InteractionCreate) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	h := &interactions{
		board:   board,
		fetcher: NewAttachmentFetcher(opts.HTTPClient, board.MaxClipSize()),
		logger:  opts.Logger,
	}

	flows := NewFlowManager(opts.IDs)
	flows.RegisterFlow(PingFlow)
	for _, flow := range h.flows() {
		flows.RegisterFlow(flow)
	}

	return func(s DiscordSession, i *discordgo.InteractionCreate) {
		ctx := context.Background()

		if i.Type == discordgo.InteractionApplicationCommand && !opts.Limiter.Allow(userID(i)) {
			respondError(s, i, &UserError{Message: rateLimitedMessage}, opts.Logger)
			return
		}

		handled, err := flows.Router(ctx, s, i)
		if err != nil {
			respondError(s, i, err, opts.Logger)
			return
		}
		if !handled && i.Type == discordgo.InteractionMessageComponent {
			if err := s.InteractionRespond(i.Interaction, presenters.UpdateMessage(expiredMessage)); err != nil {
				opts.Logger.Warn("failed to respond to expired component", slog.Any("error", err))
			}
		}
	}
}

// userID is the invoking user, whether in a guild or a DM.
func userID(i *discordgo.InteractionCreate) string {
	if i.Member != nil && i.Member.User != nil {
		return i.Member.User.ID
	}
	if i.User != nil {
		return i.User.ID
	}
	return ""
}

func displayName(i *discordgo.InteractionCreate) string {
	if i.Member != nil {
		if i.Member.Nick != "" {
			return i.Member.Nick
		}
		if i.Member.User != nil {
			return i.Member.User.Username
		}
	}
	if i.User != nil {
		return i.User.Username
	}
	return "you"
}
