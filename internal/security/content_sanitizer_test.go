package security

import (
	"strings"
	"testing"
)

func TestSanitize_RemovesScriptTag(t *testing.T) {
	s := NewContentSanitizer()

	got := s.Sanitize(`<p>hello</p><script>alert('xss')</script>`)
	if strings.Contains(got, "script") {
		t.Errorf("Sanitize left script tag: %q", got)
	}
	if !strings.Contains(got, "<p>hello</p>") {
		t.Errorf("Sanitize removed allowed p tag: %q", got)
	}
}

func TestSanitize_RemovesEventAttributes(t *testing.T) {
	s := NewContentSanitizer()

	got := s.Sanitize(`<p onclick="alert(1)">text</p>`)
	if strings.Contains(got, "onclick") {
		t.Errorf("Sanitize left onclick attribute: %q", got)
	}
}

func TestSanitize_RemovesIframe(t *testing.T) {
	s := NewContentSanitizer()

	got := s.Sanitize(`<iframe src="https://evil.example.com"></iframe><p>body</p>`)
	if strings.Contains(got, "iframe") {
		t.Errorf("Sanitize left iframe tag: %q", got)
	}
}

func TestSanitize_AnchorGetsRelNoopener(t *testing.T) {
	s := NewContentSanitizer()

	got := s.Sanitize(`<a href="https://example.com/doc">doc</a>`)
	if !strings.Contains(got, `target="_blank"`) {
		t.Errorf("Sanitize did not add target=_blank: %q", got)
	}
	if !strings.Contains(got, "noopener") || !strings.Contains(got, "noreferrer") {
		t.Errorf("Sanitize did not add rel noopener noreferrer: %q", got)
	}
}

func TestSanitize_AllowsListMarkup(t *testing.T) {
	s := NewContentSanitizer()

	in := `<ul><li>one</li><li>two</li></ul>`
	got := s.Sanitize(in)
	if got != in {
		t.Errorf("Sanitize = %q, want %q", got, in)
	}
}

func TestSanitize_EmptyInput(t *testing.T) {
	s := NewContentSanitizer()

	if got := s.Sanitize(""); got != "" {
		t.Errorf("Sanitize(\"\") = %q, want empty string", got)
	}
}

func TestSanitize_Idempotent(t *testing.T) {
	s := NewContentSanitizer()

	in := `<p>text <strong>bold</strong></p><script>bad()</script>`
	once := s.Sanitize(in)
	twice := s.Sanitize(once)
	if once != twice {
		t.Errorf("Sanitize is not idempotent: first %q, second %q", once, twice)
	}
}
