// Package share delivers a finished storyboard (story text plus scene
// illustrations) to outbound destinations such as Telegram chats and
// Slack channels.
package share

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/storyloom/storyloom/internal/config"
	"github.com/storyloom/storyloom/internal/render"
)

// Sharer delivers one storyboard snapshot to a single destination.
type Sharer interface {
	Name() string
	Share(ctx context.Context, snap render.Snapshot) error
}

// FromConfig builds the enabled sharers. A misconfigured target is
// skipped with a warning rather than failing the rest.
func FromConfig(cfg config.ShareConfig) []Sharer {
	var sharers []Sharer
	if cfg.Telegram.Enabled {
		s, err := NewTelegramSharer(cfg.Telegram)
		if err != nil {
			slog.Warn("telegram sharer disabled", "err", err)
		} else {
			sharers = append(sharers, s)
		}
	}
	if cfg.Slack.Enabled {
		s, err := NewSlackSharer(cfg.Slack)
		if err != nil {
			slog.Warn("slack sharer disabled", "err", err)
		} else {
			sharers = append(sharers, s)
		}
	}
	return sharers
}

// ShareAll sends the snapshot to every sharer, collecting failures into
// one error so a dead target never blocks the others.
func ShareAll(ctx context.Context, sharers []Sharer, snap render.Snapshot) error {
	var failed []string
	for _, s := range sharers {
		if err := s.Share(ctx, snap); err != nil {
			slog.Warn("share failed", "target", s.Name(), "err", err)
			failed = append(failed, fmt.Sprintf("%s: %v", s.Name(), err))
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("share failed for %s", strings.Join(failed, "; "))
	}
	return nil
}

// storyText picks the text to send: the story panel when published,
// otherwise the latest agent reply.
func storyText(snap render.Snapshot) string {
	if snap.Story != "" {
		return snap.Story
	}
	if n := len(snap.Transcript); n > 0 {
		return snap.Transcript[n-1].AgentText
	}
	return ""
}

// scenes pairs each non-empty image slot with its caption.
type scene struct {
	Image   string
	Caption string
}

func scenes(snap render.Snapshot) []scene {
	var out []scene
	for i, img := range snap.Images {
		if img == "" {
			continue
		}
		caption := ""
		if i < len(snap.Captions) {
			caption = snap.Captions[i]
		}
		out = append(out, scene{Image: img, Caption: caption})
	}
	return out
}
