// Package attach classifies outgoing attachments by sniffing content
// magic bytes, so the wire record carries a trustworthy MIME type
// instead of whatever the file extension claims.
package attach

import (
	"errors"

	"pixelchat/internal/models"

	"github.com/h2non/filetype"
)

var ErrUnknownType = errors.New("unrecognized file type")

// Detect builds the attachment record for an outgoing file.
func Detect(name string, data []byte) (models.Attachment, error) {
	kind, err := filetype.Match(data)
	if err != nil {
		return models.Attachment{}, err
	}
	if kind == filetype.Unknown {
		return models.Attachment{}, ErrUnknownType
	}

	att := models.Attachment{
		Kind:     models.AttachmentFile,
		Name:     name,
		MimeType: kind.MIME.Value,
	}
	if filetype.IsImage(data) {
		att.Kind = models.AttachmentImage
	}
	return att, nil
}
