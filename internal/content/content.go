// Package content renders message bodies for display. Bodies are
// markdown, rendered to HTML and sanitized; soft-deleted messages and
// quoted replies to them render a fixed placeholder regardless of the
// stored body.
package content

import (
	"bytes"
	"strings"

	"pixelchat/internal/models"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
)

var (
	policy   = bluemonday.UGCPolicy()
	markdown = goldmark.New()
)

// Body returns the display HTML of a message.
func Body(msg *models.Message) string {
	if msg.IsDeleted {
		return models.DeletedBody
	}
	return render(msg.Body)
}

// ReplyPreview returns the display text of a quoted reply.
func ReplyPreview(reply *models.ReplyPreview) string {
	if reply == nil {
		return ""
	}
	if reply.IsDeleted {
		return models.DeletedBody
	}
	return render(reply.Body)
}

// PlainPreview returns a single-line plain-text preview for list rows.
func PlainPreview(msg *models.Message) string {
	if msg == nil {
		return ""
	}
	if msg.IsDeleted {
		return models.DeletedBody
	}
	return strings.Join(strings.Fields(msg.Body), " ")
}

func render(body string) string {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(body), &buf); err != nil {
		// Markdown conversion should not fail on any input; fall back to
		// the sanitized raw body.
		return policy.Sanitize(body)
	}
	return strings.TrimSpace(policy.Sanitize(buf.String()))
}
