package voice

import (
	"context"
	"errors"
	"fmt"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-clips/internal/playback"
)

// Presence answers voice-state questions from the session's state cache,
// falling back to the REST API for guilds and channels it has not seen.
type Presence struct {
	session *discordgo.Session
}

func NewPresence(session *discordgo.Session) *Presence {
	return &Presence{session: session}
}

func (p *Presence) guild(guildID string) (*discordgo.Guild, error) {
	guild, err := p.session.State.Guild(guildID)
	if err == nil {
		return guild, nil
	}
	if !errors.Is(err, discordgo.ErrStateNotFound) {
		return nil, err
	}
	guild, err = p.session.Guild(guildID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch guild %s: %w", guildID, err)
	}
	return guild, nil
}

func (p *Presence) channel(channelID string) (*discordgo.Channel, error) {
	channel, err := p.session.State.Channel(channelID)
	if err == nil {
		return channel, nil
	}
	if !errors.Is(err, discordgo.ErrStateNotFound) {
		return nil, err
	}
	channel, err = p.session.Channel(channelID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch channel %s: %w", channelID, err)
	}
	return channel, nil
}

func (p *Presence) VoiceChannel(_ context.Context, guildID, userID string) (string, error) {
	state, err := p.session.State.VoiceState(guildID, userID)
	if errors.Is(err, discordgo.ErrStateNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return state.ChannelID, nil
}

// ChannelFull reports whether the channel has a user limit and at least that
// many members connected.
func (p *Presence) ChannelFull(_ context.Context, guildID, channelID string) (bool, error) {
	channel, err := p.channel(channelID)
	if err != nil {
		return false, err
	}
	if channel.UserLimit <= 0 {
		return false, nil
	}

	guild, err := p.guild(guildID)
	if err != nil {
		return false, err
	}
	return MemberCount(guild, channelID) >= channel.UserLimit, nil
}

// IsAuthority reports whether userID owns the guild.
func (p *Presence) IsAuthority(_ context.Context, guildID, userID string) (bool, error) {
	guild, err := p.guild(guildID)
	if err != nil {
		return false, err
	}
	return guild.OwnerID == userID, nil
}

// MemberCount returns how many members are connected to channelID.
func MemberCount(guild *discordgo.Guild, channelID string) int {
	count := 0
	for _, state := range guild.VoiceStates {
		if state.ChannelID == channelID {
			count++
		}
	}
	return count
}

var _ playback.Presence = (*Presence)(nil)
