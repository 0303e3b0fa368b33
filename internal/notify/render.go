package notify

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"

	"github.com/xxxsen/hemline/internal/mailer"
)

const htmlLayout = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: Arial, sans-serif; color: #222; line-height: 1.6;">
<div style="max-width: 560px; margin: 0 auto; padding: 24px;">
%s
<p style="margin-top: 32px; font-size: 12px; color: #888;">Hemline</p>
</div>
</body>
</html>
`

type Renderer struct {
	md goldmark.Markdown
}

func NewRenderer() *Renderer {
	return &Renderer{
		md: goldmark.New(
			goldmark.WithExtensions(extension.Linkify),
			goldmark.WithRendererOptions(html.WithHardWraps()),
		),
	}
}

// Render turns a notification into a message whose text part is the markdown
// source and whose HTML part is the converted markdown.
func (r *Renderer) Render(n Notification) (mailer.Message, error) {
	if n.Recipient() == "" {
		return mailer.Message{}, fmt.Errorf("%s: recipient is required", n.Kind())
	}
	subject, body := n.content()
	var buf bytes.Buffer
	if err := r.md.Convert([]byte(body), &buf); err != nil {
		return mailer.Message{}, fmt.Errorf("render %s: %w", n.Kind(), err)
	}
	return mailer.Message{
		To:      n.Recipient(),
		Subject: subject,
		Text:    body,
		HTML:    fmt.Sprintf(htmlLayout, buf.String()),
		Tag:     n.Kind(),
	}, nil
}
