package handler

import (
	"fmt"

	"github.com/bwmarrin/discordgo"
)

var clipNameOption = &discordgo.ApplicationCommandOption{
	Name:        "name",
	Type:        discordgo.ApplicationCommandOptionString,
	Description: "The name of the clip.",
	Required:    true,
}

// Commands is a list of all the commands the bot can handle.
// This is used to register the commands with Discord.
var Commands = []*discordgo.ApplicationCommand{
	{
		Name:        "ping",
		Description: "Check that the bot is alive",
	},
	{
		Name:        "clip",
		Description: "Manage your clips",
		Options: []*discordgo.ApplicationCommandOption{
			{
				Name:        "add",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Upload a new clip",
				Options: []*discordgo.ApplicationCommandOption{
					clipNameOption,
					{
						Name:        "audio",
						Type:        discordgo.ApplicationCommandOptionAttachment,
						Description: "The sound file to play.",
						Required:    true,
					},
				},
			},
			{
				Name:        "remove",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Remove one of your clips",
				Options:     []*discordgo.ApplicationCommandOption{clipNameOption},
			},
			{
				Name:        "rename",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Rename one of your clips",
				Options: []*discordgo.ApplicationCommandOption{
					clipNameOption,
					{
						Name:        "new_name",
						Type:        discordgo.ApplicationCommandOptionString,
						Description: "The new name of the clip.",
						Required:    true,
					},
				},
			},
			{
				Name:        "share",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "Give another member a copy of one of your clips",
				Options: []*discordgo.ApplicationCommandOption{
					clipNameOption,
					{
						Name:        "user",
						Type:        discordgo.ApplicationCommandOptionUser,
						Description: "Who to share the clip with.",
						Required:    true,
					},
					{
						Name:        "new_name",
						Type:        discordgo.ApplicationCommandOptionString,
						Description: "The name of the copy. Defaults to the clip's name.",
					},
				},
			},
			{
				Name:        "list",
				Type:        discordgo.ApplicationCommandOptionSubCommand,
				Description: "List your clips",
			},
		},
	},
	{
		Name:        "play",
		Description: "Play one of your clips",
		Options: []*discordgo.ApplicationCommandOption{
			clipNameOption,
			{
				Name:         "channel",
				Type:         discordgo.ApplicationCommandOptionChannel,
				Description:  "The voice channel to play in. Defaults to yours.",
				ChannelTypes: []discordgo.ChannelType{discordgo.ChannelTypeGuildVoice},
			},
		},
	},
	{
		Name:        "skip",
		Description: "Skip the clip that is playing",
	},
}

func EstablishCommands(s *discordgo.Session, guildID string) error {
	_, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, guildID, Commands)
	if err != nil {
		return fmt.Errorf("failed to establish commands: %w", err)
	}
	return nil
}

type commandOptions map[string]*discordgo.ApplicationCommandInteractionDataOption

// optionsOf returns the options of a command, or of its subcommand if it has
// one.
func optionsOf(i *discordgo.InteractionCreate) commandOptions {
	opts := i.ApplicationCommandData().Options
	if len(opts) == 1 && opts[0].Type == discordgo.ApplicationCommandOptionSubCommand {
		opts = opts[0].Options
	}

	m := make(commandOptions, len(opts))
	for _, opt := range opts {
		m[opt.Name] = opt
	}
	return m
}

func (o commandOptions) stringValue(name string) string {
	opt, ok := o[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionString {
		return ""
	}
	return opt.StringValue()
}

// id returns the snowflake of a user or channel option.
func (o commandOptions) idValue(name string) string {
	opt, ok := o[name]
	if !ok {
		return ""
	}
	id, _ := opt.Value.(string)
	return id
}

func (o commandOptions) list() []*discordgo.ApplicationCommandInteractionDataOption {
	opts := make([]*discordgo.ApplicationCommandInteractionDataOption, 0, len(o))
	for _, opt := range o {
		opts = append(opts, opt)
	}
	return opts
}
