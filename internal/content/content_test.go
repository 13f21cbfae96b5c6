package content

import (
	"strings"
	"testing"

	"pixelchat/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestBody_RendersMarkdown(t *testing.T) {
	msg := &models.Message{Body: "hello **world**"}
	got := Body(msg)
	assert.Contains(t, got, "<strong>world</strong>")
}

func TestBody_StripsScript(t *testing.T) {
	msg := &models.Message{Body: `hi <script>alert("x")</script>`}
	got := Body(msg)
	assert.NotContains(t, got, "<script>")
	assert.NotContains(t, got, "alert")
}

func TestBody_DeletedOverridesStoredBody(t *testing.T) {
	msg := &models.Message{Body: "secret draft", IsDeleted: true}
	got := Body(msg)
	assert.Equal(t, models.DeletedBody, got)
	assert.NotContains(t, got, "secret")
}

func TestReplyPreview(t *testing.T) {
	assert.Equal(t, "", ReplyPreview(nil))

	reply := &models.ReplyPreview{Body: "quoted line"}
	assert.Contains(t, ReplyPreview(reply), "quoted line")

	reply.IsDeleted = true
	assert.Equal(t, models.DeletedBody, ReplyPreview(reply))
}

func TestPlainPreview_CollapsesWhitespace(t *testing.T) {
	msg := &models.Message{Body: "line one\nline   two\t end"}
	assert.Equal(t, "line one line two end", PlainPreview(msg))
}

func TestPlainPreview_NilAndDeleted(t *testing.T) {
	assert.Equal(t, "", PlainPreview(nil))
	assert.Equal(t, models.DeletedBody, PlainPreview(&models.Message{Body: "x", IsDeleted: true}))
}

func TestRender_NoTrailingNewline(t *testing.T) {
	got := Body(&models.Message{Body: "plain"})
	assert.False(t, strings.HasSuffix(got, "\n"))
}
