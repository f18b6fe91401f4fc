// Package channel provides the transport-neutral send surface the
// conversation engines talk to. A Sender carries the identity of one
// (bot, user) delivery target; optional capabilities are separate
// interfaces a concrete channel may or may not implement, checked with type
// assertions rather than nil-method probing.
package channel

import (
	"context"
	"fmt"

	"github.com/bookline/bot-server-go/internal/model"
)

// Sender is the required capability set every channel implements.
// Identity accessors are pure; SendText delivers plain text and persists an
// outbound audit record whether or not the transport accepted the message.
type Sender interface {
	BotID() string
	BusinessID() string
	UserKey() string
	Channel() model.Channel
	SendText(ctx context.Context, text string, meta model.Metadata) error
}

// DocumentSender delivers a file by URL.
type DocumentSender interface {
	SendDocument(ctx context.Context, url, fileName, mimeType, caption string) error
}

// RichComponent is a channel-specific structured payload item.
type RichComponent struct {
	Kind    model.MediaKind `json:"kind"`
	URL     string          `json:"url"`
	Caption string          `json:"caption,omitempty"`
}

// RichSender delivers structured media payloads.
type RichSender interface {
	SendRich(ctx context.Context, components []RichComponent, meta model.Metadata) error
}

// TypingSender toggles a typing indicator. Best-effort: implementations
// never surface transport failures to callers.
type TypingSender interface {
	SendTyping(ctx context.Context, active bool)
}

// ErrorSender surfaces a user-facing error. Best-effort.
type ErrorSender interface {
	SendError(ctx context.Context, code, message string)
}

// SendMedia dispatches one media asset by kind to the sender's optional
// capabilities and degrades to a plain text link when the capability is
// absent.
func SendMedia(ctx context.Context, s Sender, asset model.MediaAsset) error {
	switch asset.Kind {
	case model.MediaKindDocument:
		if ds, ok := s.(DocumentSender); ok {
			return ds.SendDocument(ctx, asset.URL, asset.FileName, asset.MimeType, asset.Caption)
		}
	case model.MediaKindImage, model.MediaKindVideo:
		if rs, ok := s.(RichSender); ok {
			return rs.SendRich(ctx, []RichComponent{{
				Kind:    asset.Kind,
				URL:     asset.URL,
				Caption: asset.Caption,
			}}, nil)
		}
	}

	text := asset.URL
	if asset.Caption != "" {
		text = fmt.Sprintf("%s\n%s", asset.Caption, asset.URL)
	}
	return s.SendText(ctx, text, nil)
}
