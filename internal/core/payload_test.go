package core

import (
	"context"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/docintel/docintel/internal/document"
)

func payloadProcessor(t *testing.T) *Processor {
	t.Helper()
	return NewProcessor(testLogger(), invoiceInvoker(), openStore(t), Options{})
}

func TestBuildPayloadText(t *testing.T) {
	p := payloadProcessor(t)
	doc := document.Document{
		Filename:    "notes.txt",
		ContentType: "text/plain",
		Content:     []byte("hello world"),
	}

	payload, err := p.buildPayload(context.Background(), doc)
	if err != nil {
		t.Fatalf("buildPayload: %v", err)
	}
	if payload.ImageDataURL != "" {
		t.Error("text document should not inline an image")
	}
	if !strings.Contains(payload.Text, "Filename: notes.txt") {
		t.Errorf("payload missing filename context: %q", payload.Text)
	}
	if !strings.Contains(payload.Text, "hello world") {
		t.Errorf("payload missing document content: %q", payload.Text)
	}
}

func TestBuildPayloadTruncatesLongText(t *testing.T) {
	p := payloadProcessor(t)
	doc := document.Document{
		Filename:    "big.txt",
		ContentType: "text/plain",
		Content:     []byte(strings.Repeat("x", maxTextChars+5000)),
	}

	payload, err := p.buildPayload(context.Background(), doc)
	if err != nil {
		t.Fatalf("buildPayload: %v", err)
	}
	// Prefix plus at most maxTextChars of content.
	if len(payload.Text) > maxTextChars+200 {
		t.Errorf("payload not truncated: %d chars", len(payload.Text))
	}
}

func TestBuildPayloadTruncatesOnRuneBoundary(t *testing.T) {
	p := payloadProcessor(t)
	// One leading ASCII byte misaligns the three-byte runes so the byte
	// limit lands mid-rune.
	doc := document.Document{
		Filename:    "cjk.txt",
		ContentType: "text/plain",
		Content:     []byte("a" + strings.Repeat("日", maxTextChars/3+100)),
	}

	payload, err := p.buildPayload(context.Background(), doc)
	if err != nil {
		t.Fatalf("buildPayload: %v", err)
	}
	if !utf8.ValidString(payload.Text) {
		t.Error("truncation left invalid UTF-8 in the payload")
	}
	if !strings.Contains(payload.Text, "日") {
		t.Error("content lost entirely")
	}
}

func TestBuildPayloadImage(t *testing.T) {
	p := payloadProcessor(t)
	doc := document.Document{
		Filename:    "shot.png",
		ContentType: "image/png",
		HasImages:   true,
		Content:     []byte{0x89, 0x50},
	}

	payload, err := p.buildPayload(context.Background(), doc)
	if err != nil {
		t.Fatalf("buildPayload: %v", err)
	}
	if !strings.HasPrefix(payload.ImageDataURL, "data:image/png;base64,") {
		t.Errorf("image not inlined as data URI: %q", payload.ImageDataURL)
	}
	if !strings.Contains(payload.Text, "shot.png") {
		t.Errorf("caption missing filename: %q", payload.Text)
	}
}
