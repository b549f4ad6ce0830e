// Package content turns user or machine generated markdown into sanitized HTML
// and HTML into plain-text previews.
package content

import (
	"bytes"
	"io"
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	gmhtml "github.com/yuin/goldmark/renderer/html"
	"golang.org/x/net/html"
)

var (
	excessNewlines = regexp.MustCompile(`\n{3,}`)
	whitespaceRuns = regexp.MustCompile(`\s+`)
)

// DefaultStyles are the inline styles added to rendered elements so the HTML looks
// consistent when embedded outside the site stylesheet (emails, previews, editors).
var DefaultStyles = map[string]string{
	"h1": "font-size: 2em; font-weight: 700; margin: 0.67em 0;",
	"h2": "font-size: 1.5em; font-weight: 700; margin: 0.83em 0;",
	"h3": "font-size: 1.17em; font-weight: 600; margin: 1em 0;",
	"h4": "font-size: 1em; font-weight: 600; margin: 1.33em 0;",
	"h5": "font-size: 0.83em; font-weight: 600; margin: 1.67em 0;",
	"h6": "font-size: 0.67em; font-weight: 600; margin: 2.33em 0;",
	"p":  "margin: 0 0 1em 0; line-height: 1.6;",
	"ul": "list-style-type: disc; padding-left: 1.5em; margin: 0 0 1em 0;",
	"ol": "list-style-type: decimal; padding-left: 1.5em; margin: 0 0 1em 0;",
	"li": "margin: 0.25em 0;",
}

// Formatter renders markdown to sanitized, styled HTML. It is safe for concurrent use.
type Formatter struct {
	markdown goldmark.Markdown
	policy   *bluemonday.Policy
	styles   map[string]string
}

type Option func(*Formatter)

// WithStyles replaces the inline style table. A nil or empty map disables injection.
func WithStyles(styles map[string]string) Option {
	return func(f *Formatter) {
		f.styles = styles
	}
}

// WithPolicy replaces the sanitization policy applied to rendered markdown.
func WithPolicy(policy *bluemonday.Policy) Option {
	return func(f *Formatter) {
		f.policy = policy
	}
}

func NewFormatter(options ...Option) *Formatter {
	f := &Formatter{
		markdown: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithRendererOptions(
				gmhtml.WithHardWraps(),
				gmhtml.WithUnsafe(),
			),
		),
		policy: bluemonday.UGCPolicy(),
		styles: DefaultStyles,
	}
	for _, opt := range options {
		opt(f)
	}
	return f
}

var defaultFormatter = NewFormatter()

// ToHTML renders markdown with the default formatter.
func ToHTML(markdown string) string {
	return defaultFormatter.ToHTML(markdown)
}

// StripHTML removes tags with the default formatter.
func StripHTML(s string) string {
	return defaultFormatter.StripHTML(s)
}

// Excerpt builds a plain-text preview with the default formatter.
func Excerpt(markdown string, maxRunes int) string {
	return defaultFormatter.Excerpt(markdown, maxRunes)
}

// ToHTML renders markdown (raw HTML allowed, URLs linked, newlines kept as
// line breaks), sanitizes the result, then adds inline styles. Empty input and
// render failures give "".
func (f *Formatter) ToHTML(markdown string) (out string) {
	if strings.TrimSpace(markdown) == "" {
		return ""
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("markdown rendering panicked")
			out = ""
		}
	}()

	var buf bytes.Buffer
	if err := f.markdown.Convert([]byte(markdown), &buf); err != nil {
		log.Error().Err(err).Msg("markdown rendering failed")
		return ""
	}

	sanitized := f.policy.SanitizeBytes(buf.Bytes())
	if len(bytes.TrimSpace(sanitized)) == 0 {
		return ""
	}
	return strings.TrimSpace(f.injectStyles(sanitized))
}

// StripHTML removes every tag, collapses runs of three or more newlines to two
// and trims surrounding whitespace. Text is copied as written, entities included,
// so it is idempotent. Script and style bodies are dropped.
func (f *Formatter) StripHTML(s string) string {
	if s == "" {
		return ""
	}
	text := stripTags(s)
	text = excessNewlines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

func stripTags(s string) string {
	var b strings.Builder
	z := html.NewTokenizer(strings.NewReader(s))
	skip := ""
	for {
		switch z.Next() {
		case html.ErrorToken:
			return b.String()
		case html.StartTagToken:
			if name, _ := z.TagName(); skip == "" && hidesText(string(name)) {
				skip = string(name)
			}
		case html.EndTagToken:
			if name, _ := z.TagName(); string(name) == skip {
				skip = ""
			}
		case html.TextToken:
			if skip == "" {
				b.Write(z.Raw())
			}
		}
	}
}

// hidesText reports whether an element's body is code or markup rather than text.
func hidesText(tag string) bool {
	switch tag {
	case "script", "style", "noscript", "template", "iframe":
		return true
	}
	return false
}

// Excerpt renders markdown to single-line plain text and cuts it to maxRunes,
// ending with an ellipsis when cut. maxRunes <= 0 means no limit.
func (f *Formatter) Excerpt(markdown string, maxRunes int) string {
	text := html.UnescapeString(f.StripHTML(f.ToHTML(markdown)))
	text = strings.TrimSpace(whitespaceRuns.ReplaceAllString(text, " "))
	if maxRunes <= 0 || utf8.RuneCountInString(text) <= maxRunes {
		return text
	}

	runes := []rune(text)
	cut := strings.TrimRight(string(runes[:maxRunes]), " ")
	return cut + "…"
}

// injectStyles sets the style attribute on configured start tags. Everything else
// is copied through byte for byte.
func (f *Formatter) injectStyles(sanitized []byte) string {
	if len(f.styles) == 0 {
		return string(sanitized)
	}

	var b strings.Builder
	z := html.NewTokenizer(bytes.NewReader(sanitized))
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			if z.Err() != io.EOF {
				log.Warn().Err(z.Err()).Msg("style injection stopped early")
			}
			return b.String()
		case html.StartTagToken:
			tok := z.Token()
			if style, ok := f.styles[tok.Data]; ok {
				tok.Attr = setAttr(tok.Attr, "style", style)
			}
			b.WriteString(tok.String())
		default:
			b.Write(z.Raw())
		}
	}
}

func setAttr(attrs []html.Attribute, key, val string) []html.Attribute {
	for i := range attrs {
		if attrs[i].Key == key {
			attrs[i].Val = val
			return attrs
		}
	}
	return append(attrs, html.Attribute{Key: key, Val: val})
}
