package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"github.com/glizzus/sound-clips/internal/soundboard"
	"github.com/glizzus/sound-clips/internal/util"
)

type ClipAddRequest struct {
	Attachment *discordgo.MessageAttachment
	Name       string
}

func CommandToAddClipRequest(
	attachments map[string]*discordgo.MessageAttachment,
	options []*discordgo.ApplicationCommandInteractionDataOption,
) (*ClipAddRequest, error) {
	attachment, err := util.GetOne(attachments)
	if err != nil {
		return nil, &UserError{Message: "You must attach exactly one sound file"}
	}

	var name string
	for _, option := range options {
		if option.Name != "name" {
			continue
		}
		if option.Type != discordgo.ApplicationCommandOptionString {
			return nil, fmt.Errorf("invalid type for name option")
		}
		name = option.StringValue()
	}

	if name == "" {
		return nil, &UserError{Message: "A clip name is required"}
	}

	return &ClipAddRequest{
		Attachment: attachment,
		Name:       name,
	}, nil
}

// HTTPClient is an abstraction for making HTTP requests.
// The implementation is usually Go's stdlib http.Client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// AttachmentFetcher downloads attachments, refusing anything larger than
// maxSize before and while reading it.
type AttachmentFetcher struct {
	httpClient HTTPClient
	maxSize    int64
}

func NewAttachmentFetcher(httpClient HTTPClient, maxSize int64) *AttachmentFetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &AttachmentFetcher{httpClient: httpClient, maxSize: maxSize}
}

func (f *AttachmentFetcher) Fetch(ctx context.Context, attachment *discordgo.MessageAttachment) ([]byte, error) {
	if size := int64(attachment.Size); size > f.maxSize {
		return nil, &soundboard.PayloadTooLargeError{Size: size, Limit: f.maxSize}
	}

	sourceURL := attachment.URL
	if sourceURL == "" {
		sourceURL = attachment.ProxyURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, sourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download attachment: %s", resp.Status)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, f.maxSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read attachment: %w", err)
	}
	if int64(len(data)) > f.maxSize {
		return nil, &soundboard.PayloadTooLargeError{Size: int64(len(data)), Limit: f.maxSize}
	}
	return data, nil
}
