package handler

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-clips/internal/generator"
)

func TestInstanceIDFromCustomID(t *testing.T) {
	tests := map[string]string{
		"clip_select_menu:abc": "abc",
		"clip_play:a:b":        "a:b",
		"no-instance":          "",
	}
	for customID, want := range tests {
		if got := InstanceIDFromCustomID(customID); got != want {
			t.Errorf("InstanceIDFromCustomID(%q) = %q, want %q", customID, got, want)
		}
	}
}

func TestFlowManagerForgetsStaleFlows(t *testing.T) {
	noop := func(context.Context, DiscordSession, *discordgo.InteractionCreate, *FlowContext) error { return nil }

	fm := NewFlowManager(&generator.Sequence{Prefix: "flow"})
	fm.RegisterFlow(&Flow{
		ID: "multi",
		Root: &Node{
			ID:      "root",
			Matcher: commandMatcher("multi", ""),
			Handler: noop,
			Next:    []*Node{{ID: "next", Matcher: componentMatcher("step"), Handler: noop}},
		},
	})
	fm.RegisterFlow(&Flow{
		ID:   "single",
		Root: &Node{ID: "root", Matcher: commandMatcher("single", ""), Handler: noop},
	})

	now := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	fm.now = func() time.Time { return now }

	command := func(name string) *discordgo.InteractionCreate {
		return &discordgo.InteractionCreate{Interaction: &discordgo.Interaction{
			Type: discordgo.InteractionApplicationCommand,
			Data: discordgo.ApplicationCommandInteractionData{Name: name},
		}}
	}

	if handled, err := fm.Router(context.Background(), nil, command("single")); !handled || err != nil {
		t.Fatalf("Router(single) = %v, %v", handled, err)
	}
	if got := fm.activeSessions(); got != 0 {
		t.Errorf("single-step flow left %d sessions behind", got)
	}

	fm.Router(context.Background(), nil, command("multi"))
	if got := fm.activeSessions(); got != 1 {
		t.Fatalf("active sessions = %d, want 1", got)
	}

	now = now.Add(sessionTTL + time.Second)
	fm.Router(context.Background(), nil, command("multi"))
	if got := fm.activeSessions(); got != 1 {
		t.Errorf("active sessions after expiry = %d, want 1", got)
	}

	if handled, _ := fm.Router(context.Background(), nil, command("unknown")); handled {
		t.Error("unknown command reported as handled")
	}
}
