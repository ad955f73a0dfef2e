package presenters

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-clips/internal/repository"
)

const (
	ComponentIDClipSelect = "clip_select_menu"
	ComponentIDClipPlay   = "clip_play"
	ComponentIDClipDelete = "clip_delete"
)

// Discord caps select menus at 25 options and embed descriptions at 4096
// characters.
const (
	maxSelectOptions = 25
	maxEmbedLength   = 4096
)

// CustomID ties a component to the flow instance that rendered it.
func CustomID(componentID, instanceID string) string {
	return componentID + ":" + instanceID
}

// Ephemeral is a plain reply only the invoking user can see.
func Ephemeral(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   discordgo.MessageFlagsEphemeral,
		},
	}
}

var noClipsFoundResponse = Ephemeral("No clips found")

// ClipLines renders one "`name`: filename" line per clip.
func ClipLines(clips []repository.Clip) []string {
	lines := make([]string, 0, len(clips))
	for _, clip := range clips {
		lines = append(lines, fmt.Sprintf("`%s`: %s", clip.Name, clip.Filename))
	}
	return lines
}

// paginate joins lines into pages no longer than limit.
func paginate(lines []string, limit int) []string {
	var (
		pages []string
		page  strings.Builder
	)
	for _, line := range lines {
		if page.Len() > 0 && page.Len()+1+len(line) > limit {
			pages = append(pages, page.String())
			page.Reset()
		}
		if page.Len() > 0 {
			page.WriteByte('\n')
		}
		page.WriteString(line)
	}
	if page.Len() > 0 {
		pages = append(pages, page.String())
	}
	return pages
}

func buildClipSelectMenu(clips []repository.Clip, instanceID string) discordgo.ActionsRow {
	var options []discordgo.SelectMenuOption
	for _, clip := range clips {
		if len(options) == maxSelectOptions {
			break
		}
		options = append(options, discordgo.SelectMenuOption{
			Label: clip.Name,
			Value: clip.Name,
		})
	}

	minValues := 1
	return discordgo.ActionsRow{
		Components: []discordgo.MessageComponent{
			discordgo.SelectMenu{
				CustomID:    CustomID(ComponentIDClipSelect, instanceID),
				Placeholder: "Select a clip",
				MinValues:   &minValues,
				MaxValues:   1,
				Options:     options,
			},
		},
	}
}

// BuildListClipsResponse lists the owner's clips in embeds with a select
// menu for acting on one of them.
func BuildListClipsResponse(clips []repository.Clip, ownerName, instanceID string) *discordgo.InteractionResponse {
	if len(clips) == 0 {
		return noClipsFoundResponse
	}

	var embeds []*discordgo.MessageEmbed
	for i, page := range paginate(ClipLines(clips), maxEmbedLength) {
		embed := &discordgo.MessageEmbed{Description: page}
		if i == 0 {
			embed.Title = "Clips for " + ownerName
		}
		embeds = append(embeds, embed)
	}

	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds:     embeds,
			Components: []discordgo.MessageComponent{buildClipSelectMenu(clips, instanceID)},
			Flags:      discordgo.MessageFlagsEphemeral,
		},
	}
}

// ClipActionsMenu replaces the list with actions for the selected clip.
func ClipActionsMenu(name, instanceID string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content: fmt.Sprintf("`%s`", name),
			Embeds:  []*discordgo.MessageEmbed{},
			Components: []discordgo.MessageComponent{
				discordgo.ActionsRow{
					Components: []discordgo.MessageComponent{
						discordgo.Button{
							Label:    "Play",
							Style:    discordgo.PrimaryButton,
							CustomID: CustomID(ComponentIDClipPlay, instanceID),
						},
						discordgo.Button{
							Label:    "Delete",
							Style:    discordgo.DangerButton,
							CustomID: CustomID(ComponentIDClipDelete, instanceID),
						},
					},
				},
			},
		},
	}
}

// UpdateMessage replaces a component message's content and clears its
// components.
func UpdateMessage(content string) *discordgo.InteractionResponse {
	return &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseUpdateMessage,
		Data: &discordgo.InteractionResponseData{
			Content:    content,
			Components: []discordgo.MessageComponent{},
		},
	}
}
