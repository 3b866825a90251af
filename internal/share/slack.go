package share

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	slackgo "github.com/slack-go/slack"

	"github.com/storyloom/storyloom/internal/config"
	"github.com/storyloom/storyloom/internal/render"
)

// SlackSharer posts the storyboard to a fixed Slack channel.
type SlackSharer struct {
	client  *slackgo.Client
	channel string
}

// NewSlackSharer builds a sharer from the configured bot token.
func NewSlackSharer(cfg config.SlackShareConfig) (*SlackSharer, error) {
	if cfg.Token == "" {
		return nil, fmt.Errorf("slack: token not configured")
	}
	if cfg.Channel == "" {
		return nil, fmt.Errorf("slack: channel not configured")
	}
	return &SlackSharer{client: slackgo.New(cfg.Token), channel: cfg.Channel}, nil
}

func (s *SlackSharer) Name() string { return "slack" }

// Share posts the story text, then uploads each scene image with its
// caption as the initial comment.
func (s *SlackSharer) Share(ctx context.Context, snap render.Snapshot) error {
	if text := storyText(snap); text != "" {
		_, _, err := s.client.PostMessageContext(ctx, s.channel,
			slackgo.MsgOptionText(text, false))
		if err != nil {
			return fmt.Errorf("post text: %w", err)
		}
	}

	for _, sc := range scenes(snap) {
		info, err := os.Stat(sc.Image)
		if err != nil {
			return fmt.Errorf("stat image %s: %w", sc.Image, err)
		}
		_, err = s.client.UploadFileContext(ctx, slackgo.UploadFileParameters{
			File:           sc.Image,
			FileSize:       int(info.Size()),
			Filename:       filepath.Base(sc.Image),
			Channel:        s.channel,
			InitialComment: sc.Caption,
		})
		if err != nil {
			return fmt.Errorf("upload image %s: %w", sc.Image, err)
		}
	}
	return nil
}
