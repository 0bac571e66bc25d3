package extract

import (
	"strings"
	"testing"
)

func TestText_Plain(t *testing.T) {
	got, err := Text([]byte("  Python, AWS, Docker\n"))
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if got != "Python, AWS, Docker" {
		t.Errorf("Text() = %q", got)
	}
}

func TestText_Empty(t *testing.T) {
	if _, err := Text(nil); err == nil {
		t.Error("Text(nil) error = nil, want error")
	}
}

func TestText_HTML(t *testing.T) {
	in := []byte(`<!DOCTYPE html>
<html><head><style>body { color: red }</style>
<script>alert("hi")</script></head>
<body><h1>Senior Go Engineer</h1><p>Requirements: Kubernetes, SQL</p></body></html>`)

	got, err := Text(in)
	if err != nil {
		t.Fatalf("Text() error = %v", err)
	}
	if !strings.Contains(got, "Senior Go Engineer") {
		t.Errorf("Text() = %q, want heading text present", got)
	}
	if !strings.Contains(got, "Kubernetes, SQL") {
		t.Errorf("Text() = %q, want body text present", got)
	}
	if strings.Contains(got, "alert") || strings.Contains(got, "color: red") {
		t.Errorf("Text() = %q, script/style content must be stripped", got)
	}
}

func TestText_BinaryRejected(t *testing.T) {
	if _, err := Text([]byte{0x00, 0xff, 0xfe, 0x01}); err == nil {
		t.Error("Text(binary) error = nil, want error")
	}
}

func TestText_TruncatedPDFRejected(t *testing.T) {
	if _, err := Text([]byte("%PDF-1.7 not actually a pdf")); err == nil {
		t.Error("Text(truncated pdf) error = nil, want error")
	}
}
