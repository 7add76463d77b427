package core

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/docintel/docintel/internal/document"
	"github.com/docintel/docintel/internal/llm"
)

// maxTextChars bounds how much document text rides in a prompt.
const maxTextChars = 12000

// TextExtractor turns document bytes into prompt text for text-routed
// documents. PDF text stripping lives behind this interface; the service
// itself ships only the passthrough implementation.
type TextExtractor interface {
	Extract(ctx context.Context, doc document.Document) (string, error)
}

// PassthroughExtractor treats the document bytes as UTF-8 text.
type PassthroughExtractor struct{}

func (PassthroughExtractor) Extract(_ context.Context, doc document.Document) (string, error) {
	return string(doc.Content), nil
}

// buildPayload is the single type-dependent step in the flow: image
// content is inlined as a data URI, everything else goes through the text
// extractor. The state machine around it stays uniform.
func (p *Processor) buildPayload(ctx context.Context, doc document.Document) (llm.Payload, error) {
	if strings.HasPrefix(strings.ToLower(doc.ContentType), "image/") {
		return llm.Payload{
			Text:         "Filename: " + doc.Filename,
			ImageDataURL: dataURL(doc.ContentType, doc.Content),
		}, nil
	}

	text, err := p.text.Extract(ctx, doc)
	if err != nil {
		return llm.Payload{}, fmt.Errorf("extract text: %w", err)
	}
	if len(text) > maxTextChars {
		cut := maxTextChars
		// Back off to a rune boundary so the cut never leaves a partial
		// UTF-8 sequence in the prompt.
		for cut > 0 && !utf8.RuneStart(text[cut]) {
			cut--
		}
		text = text[:cut]
	}

	var b strings.Builder
	b.WriteString("Filename: ")
	b.WriteString(doc.Filename)
	b.WriteString("\n\nDocument content:\n")
	b.WriteString(text)
	return llm.Payload{Text: b.String()}, nil
}

func dataURL(contentType string, content []byte) string {
	return "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(content)
}
