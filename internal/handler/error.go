package handler

import (
	"errors"
	"log/slog"
	"unicode"
	"unicode/utf8"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-clips/internal/presenters"
	"github.com/glizzus/sound-clips/internal/soundboard"
)

// UserError is an error type that is used to represent
// an error that should be displayed to the user.
type UserError struct {
	Message string
}

func (e *UserError) Error() string {
	return e.Message
}

var _ error = (*UserError)(nil)

const genericErrorMessage = "Something went wrong, please try again later"

// errorMessage returns what the user should see for err.
func errorMessage(err error) string {
	var userErr *UserError
	if errors.As(err, &userErr) || soundboard.IsUserError(err) {
		return sentence(err.Error())
	}
	return genericErrorMessage
}

func sentence(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// respondError replies to i with the message for err, logging errors the
// user cannot act on.
func respondError(s DiscordSession, i *discordgo.InteractionCreate, err error, logger *slog.Logger) {
	message := errorMessage(err)
	if message == genericErrorMessage {
		logger.Error("failed to handle interaction", slog.String("interactionID", i.ID), slog.Any("error", err))
	}

	resp := presenters.Ephemeral(message)
	if i.Type == discordgo.InteractionMessageComponent {
		resp = presenters.UpdateMessage(message)
	}
	if err := s.InteractionRespond(i.Interaction, resp); err != nil {
		logger.Warn("failed to respond with error", slog.String("interactionID", i.ID), slog.Any("error", err))
	}
}
