package handler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-clips/internal/presenters"
	"github.com/glizzus/sound-clips/internal/soundboard"
)

const stateSelectedClip = "clip"

type interactions struct {
	board   Soundboard
	fetcher *AttachmentFetcher
	logger  *slog.Logger
}

func (h *interactions) flows() []*Flow {
	return []*Flow{
		h.clipAddFlow(),
		h.clipRemoveFlow(),
		h.clipRenameFlow(),
		h.clipShareFlow(),
		h.clipListFlow(),
		h.playFlow(),
		h.skipFlow(),
	}
}

func (h *interactions) clipAddFlow() *Flow {
	return &Flow{
		ID: "clip_add",
		Root: &Node{
			ID:      "clip_add",
			Matcher: commandMatcher("clip", "add"),
			Handler: h.addClip,
		},
	}
}

func (h *interactions) addClip(ctx context.Context, s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
	data := i.ApplicationCommandData()
	var attachments map[string]*discordgo.MessageAttachment
	if data.Resolved != nil {
		attachments = data.Resolved.Attachments
	}

	req, err := CommandToAddClipRequest(attachments, optionsOf(i).list())
	if err != nil {
		return err
	}

	// Downloading can outlast the initial response window.
	err = s.InteractionRespond(i.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		return fmt.Errorf("failed to defer response: %w", err)
	}

	content := fmt.Sprintf("Successfully added `%s`", req.Name)
	payload, err := h.fetcher.Fetch(ctx, req.Attachment)
	if err == nil {
		_, err = h.board.Upload(ctx, userID(i), req.Name, soundboard.Attachment{
			Data:     payload,
			Filename: req.Attachment.Filename,
		})
	}
	if err != nil {
		content = errorMessage(err)
		if content == genericErrorMessage {
			h.logger.Error("failed to add clip", slog.String("name", req.Name), slog.Any("error", err))
		}
	}

	if _, err := s.InteractionResponseEdit(i.Interaction, &discordgo.WebhookEdit{Content: &content}); err != nil {
		h.logger.Warn("failed to edit deferred response", slog.Any("error", err))
	}
	return nil
}

func (h *interactions) clipRemoveFlow() *Flow {
	return &Flow{
		ID: "clip_remove",
		Root: &Node{
			ID:      "clip_remove",
			Matcher: commandMatcher("clip", "remove"),
			Handler: func(ctx context.Context, s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
				name := optionsOf(i).stringValue("name")
				if err := h.board.Remove(ctx, userID(i), name); err != nil {
					return err
				}
				return s.InteractionRespond(i.Interaction, presenters.Ephemeral(fmt.Sprintf("Clip `%s` removed", name)))
			},
		},
	}
}

func (h *interactions) clipRenameFlow() *Flow {
	return &Flow{
		ID: "clip_rename",
		Root: &Node{
			ID:      "clip_rename",
			Matcher: commandMatcher("clip", "rename"),
			Handler: func(ctx context.Context, s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
				opts := optionsOf(i)
				name, newName := opts.stringValue("name"), opts.stringValue("new_name")
				if _, err := h.board.Rename(ctx, userID(i), name, newName); err != nil {
					return err
				}
				return s.InteractionRespond(i.Interaction, presenters.Ephemeral(fmt.Sprintf("Clip `%s` renamed to `%s`", name, newName)))
			},
		},
	}
}

func (h *interactions) clipShareFlow() *Flow {
	return &Flow{
		ID: "clip_share",
		Root: &Node{
			ID:      "clip_share",
			Matcher: commandMatcher("clip", "share"),
			Handler: func(ctx context.Context, s DiscordSession, i *discordgo.InteractionCreate, _ *FlowContext) error {
				opts := optionsOf(i)
				target := opts.idValue("user")
				if target == "" {
					return &UserError{Message: "You must choose someone to share the clip with"}
				}

				shared, err := h.board.Share(ctx, userID(i), opts.stringValue("name"), target, opts.stringValue("new_name"))
				if err != nil {
					return err
				}
				return s.InteractionRespond(i.Interaction, presenters.Ephemeral(
					fmt.Sprintf("Successfully shared `%s` with <@%s>", shared.Name, target),
				))
			},
		},
	}
}

// clipListFlow lists the user's clips, then lets them pick one and play or
// delete it.
func (h *interactions) clipListFlow() *Flow {
	play := &Node{
		ID:      "clip_list_play",
		Matcher: componentMatcher(presenters.ComponentIDClipPlay),
		Handler: func(ctx context.Context, s DiscordSession, i *discordgo.InteractionCreate, fc *FlowContext) error {
			name, _ := fc.State[stateSelectedClip].(string)
			if err := h.play(ctx, s, i, "", name); err != nil {
				return err
			}
			return s.InteractionRespond(i.Interaction, presenters.UpdateMessage(fmt.Sprintf("Queued `%s`", name)))
		},
	}

	remove := &Node{
		ID:      "clip_list_delete",
		Matcher: componentMatcher(presenters.ComponentIDClipDelete),
		Handler: func(ctx context.Context, s DiscordSession, i *discordgo.InteractionCreate, fc *FlowContext) error {
			name, _ := fc.State[stateSelectedClip].(string)
			if err := h.board.Remove(ctx, userID(i), name); err != nil {
				return err
			}
			return s.InteractionRespond(i.Interaction, presenters.UpdateMessage(fmt.Sprintf("Clip `%s` removed", name)))
		},
	}

	selected := &Node{
		ID:      "clip_list_select",
		Matcher: componentMatcher(presenters.ComponentIDClipSelect),
		Handler: func(_ context.Context, s DiscordSession, i *discordgo.InteractionCreate, fc *FlowContext) error {
			values := i.MessageComponentData().Values
			if len(values) != 1 {
				return &UserError{Message: "Select exactly one clip"}
			}
			fc.State[stateSelectedClip] = values[0]
			return s.InteractionRespond(i.Interaction, presenters.ClipActionsMenu(values[0], fc.InstanceID))
		},
		Next: []*Node{play, remove},
	}

	return &Flow{
		ID: "clip_list",
		Root: &Node{
			ID:      "clip_list",
			Matcher: commandMatcher("clip", "list"),
			Handler: func(ctx context.Context, s DiscordSession, i *discordgo.InteractionCreate, fc *FlowContext) error {
				clips, err := h.board.List(ctx, userID(i))
				if err != nil {
					return err
				}
				return s.InteractionRespond(i.Interaction, presenters.BuildListClipsResponse(clips, displayName(i), fc.InstanceID))
			},
			Next: []*Node{selected},
		},
	}
}
