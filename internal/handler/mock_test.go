package handler_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-clips/internal/handler"
	"github.com/glizzus/sound-clips/internal/repository"
	"github.com/glizzus/sound-clips/internal/soundboard"
)

type mockSession struct {
	mu        sync.Mutex
	Responses []*discordgo.InteractionResponse
	Edits     []string
	Messages  []string

	// sendGate, when set, holds ChannelMessageSend until it is closed.
	sendGate chan struct{}
}

func (m *mockSession) InteractionRespond(i *discordgo.Interaction, resp *discordgo.InteractionResponse, opts ...discordgo.RequestOption) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Responses = append(m.Responses, resp)
	return nil
}

func (m *mockSession) InteractionResponseEdit(i *discordgo.Interaction, wh *discordgo.WebhookEdit, opts ...discordgo.RequestOption) (*discordgo.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if wh.Content != nil {
		m.Edits = append(m.Edits, *wh.Content)
	}
	return nil, nil
}

func (m *mockSession) ChannelMessageSend(channelID string, content string, opts ...discordgo.RequestOption) (*discordgo.Message, error) {
	if m.sendGate != nil {
		<-m.sendGate
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, channelID+": "+content)
	return nil, nil
}

func (m *mockSession) messages() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.Messages...)
}

// waitForMessages waits until n channel messages were sent.
func (m *mockSession) waitForMessages(t *testing.T, n int) []string {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		if got := m.messages(); len(got) >= n {
			return got
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d channel messages, got %v", n, m.messages())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func (m *mockSession) last() *discordgo.InteractionResponse {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.Responses) == 0 {
		return nil
	}
	return m.Responses[len(m.Responses)-1]
}

var _ handler.DiscordSession = (*mockSession)(nil)

type playCall struct {
	GuildID   string
	ChannelID string
	Name      string
	Requester string
}

// fakeBoard records calls and returns canned results.
type fakeBoard struct {
	clips   []repository.Clip
	uploads []string
	removed []string
	plays   []playCall
	skips   []string

	err     error
	playErr error
	notify  func(error)
}

func (b *fakeBoard) Upload(_ context.Context, ownerID, name string, source soundboard.UploadSource) (repository.Clip, error) {
	if b.err != nil {
		return repository.Clip{}, b.err
	}
	attachment := source.(soundboard.Attachment)
	b.uploads = append(b.uploads, name+"="+string(attachment.Data))
	return repository.Clip{Name: name, OwnerID: ownerID, Filename: attachment.Filename}, nil
}

func (b *fakeBoard) Remove(_ context.Context, _, name string) error {
	if b.err != nil {
		return b.err
	}
	b.removed = append(b.removed, name)
	return nil
}

func (b *fakeBoard) Rename(_ context.Context, ownerID, _, newName string) (repository.Clip, error) {
	if b.err != nil {
		return repository.Clip{}, b.err
	}
	return repository.Clip{Name: newName, OwnerID: ownerID}, nil
}

func (b *fakeBoard) Share(_ context.Context, _, name, target, newName string) (repository.Clip, error) {
	if b.err != nil {
		return repository.Clip{}, b.err
	}
	if newName == "" {
		newName = name
	}
	return repository.Clip{Name: newName, OwnerID: target}, nil
}

func (b *fakeBoard) List(context.Context, string) ([]repository.Clip, error) {
	return b.clips, b.err
}

func (b *fakeBoard) Play(_ context.Context, guildID, channelID, _, name, requester string, notify func(error)) error {
	if b.playErr != nil {
		return b.playErr
	}
	b.plays = append(b.plays, playCall{guildID, channelID, name, requester})
	b.notify = notify
	return nil
}

func (b *fakeBoard) Skip(_ context.Context, _, requester string) error {
	if b.err != nil {
		return b.err
	}
	b.skips = append(b.skips, requester)
	return nil
}

func (b *fakeBoard) MaxClipSize() int64 {
	return 16
}

var _ handler.Soundboard = (*fakeBoard)(nil)

func slashCommand(name string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionApplicationCommand,
			GuildID:   "G",
			ChannelID: "text",
			Member:    &discordgo.Member{User: &discordgo.User{ID: "alice", Username: "alice"}},
			Data: discordgo.ApplicationCommandInteractionData{
				Name:    name,
				Options: options,
			},
		},
	}
}

func subcommand(name string, options ...*discordgo.ApplicationCommandInteractionDataOption) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:    name,
		Type:    discordgo.ApplicationCommandOptionSubCommand,
		Options: options,
	}
}

func stringOption(name, value string) *discordgo.ApplicationCommandInteractionDataOption {
	return &discordgo.ApplicationCommandInteractionDataOption{
		Name:  name,
		Type:  discordgo.ApplicationCommandOptionString,
		Value: value,
	}
}

func component(customID string, values ...string) *discordgo.InteractionCreate {
	return &discordgo.InteractionCreate{
		Interaction: &discordgo.Interaction{
			Type:      discordgo.InteractionMessageComponent,
			GuildID:   "G",
			ChannelID: "text",
			Member:    &discordgo.Member{User: &discordgo.User{ID: "alice", Username: "alice"}},
			Data: discordgo.MessageComponentInteractionData{
				CustomID: customID,
				Values:   values,
			},
		},
	}
}
