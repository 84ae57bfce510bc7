package content

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/mymmrac/telego"
)

// trailingNewlines matches single-line span content that drags newline
// characters along inside the closing tag.
var trailingNewlines = regexp.MustCompile(`^([^\n]+)(\n+)$`)

// ToHTML converts Telegram rich text into the RedForester HTML dialect.
//
// The pipeline re-tags inline entities into the target vocabulary, hoists
// trailing newlines out of inline spans, wraps each line in a paragraph and
// resolves the invisible-character link-preview trick.
func ToHTML(text string, entities []telego.MessageEntity) string {
	spans := parseSpans(text, entities)
	spans = hoistTrailingNewlines(spans)
	spans, previewURL := extractInvisiblePreview(spans)

	rendered := renderSpans(spans)

	lines := strings.Split(rendered, "\n")
	wrapped := make([]string, len(lines))
	for i, line := range lines {
		wrapped[i] = wrapLine(line)
	}
	body := strings.Join(wrapped, "")

	if previewURL != "" && strings.HasPrefix(GuessFileType(previewURL), "image/") {
		body += fmt.Sprintf(`<p><img src="%s"></p>`, html.EscapeString(previewURL))
	}

	return body
}

func renderSpans(spans []*span) string {
	var out strings.Builder
	for _, s := range spans {
		out.WriteString(renderSpan(s))
	}

	return out.String()
}

func renderSpan(s *span) string {
	if s.isRun() {
		return html.EscapeString(s.text)
	}

	inner := renderSpans(s.children)

	switch s.entity {
	case telego.EntityTypeBold:
		return "<strong>" + inner + "</strong>"
	case telego.EntityTypeItalic:
		return "<em>" + inner + "</em>"
	case telego.EntityTypeUnderline:
		return "<u>" + inner + "</u>"
	case telego.EntityTypeStrikethrough:
		return "<s>" + inner + "</s>"
	case telego.EntityTypeCode:
		return "<code>" + inner + "</code>"
	case telego.EntityTypePre:
		return "<pre>" + inner + "</pre>"
	case telego.EntityTypeSpoiler:
		// Styling dropped, text kept.
		return inner
	case telego.EntityTypeTextLink:
		return anchor(s.url, inner)
	case telego.EntityTypeTextMention:
		return anchor(fmt.Sprintf("tg://user?id=%d", s.userID), inner)
	case telego.EntityTypeMention:
		return anchor("https://t.me/"+strings.TrimPrefix(s.plainText(), "@"), inner)
	case telego.EntityTypeURL:
		return anchor(s.plainText(), inner)
	default:
		return inner
	}
}

func anchor(href string, inner string) string {
	return fmt.Sprintf(`<a href="%s" target="_blank">%s</a>`, html.EscapeString(href), inner)
}

// hoistTrailingNewlines moves newline runs trapped at the end of an inline
// styled span to immediately after the span, so paragraph splitting is not
// corrupted by styling boundaries.
//
//	<strong>bold\n\n</strong>next  ->  <strong>bold</strong>\n\nnext
func hoistTrailingNewlines(spans []*span) []*span {
	out := make([]*span, 0, len(spans))
	for _, s := range spans {
		if s.isRun() || len(s.children) != 1 || !s.children[0].isRun() {
			out = append(out, s)
			continue
		}

		match := trailingNewlines.FindStringSubmatch(s.children[0].text)
		if match == nil {
			out = append(out, s)
			continue
		}

		s.children[0].text = match[1]
		out = append(out, s, &span{text: match[2]})
	}

	return out
}

// isInvisible reports whether the text is a non-empty run of zero-width
// space characters.
func isInvisible(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if r != '\u200b' {
			return false
		}
	}

	return true
}

// extractInvisiblePreview removes the link-preview trick span: a hyperlink
// whose visible text is entirely zero-width spaces. The link target comes
// back so the caller can re-attach it as an image block.
func extractInvisiblePreview(spans []*span) ([]*span, string) {
	for i, s := range spans {
		var href string
		switch s.entity {
		case telego.EntityTypeTextLink:
			href = s.url
		case telego.EntityTypeURL:
			href = s.plainText()
		default:
			continue
		}

		if !isInvisible(s.plainText()) {
			continue
		}

		return append(spans[:i:i], spans[i+1:]...), href
	}

	return spans, ""
}

// wrapLine wraps one rendered line in a paragraph element. Empty lines
// become an explicit break; block-level content stays unwrapped.
func wrapLine(line string) string {
	if line == "" {
		return "<p><br></p>"
	}
	if strings.Contains(line, "<pre") {
		return line
	}
	if strings.HasPrefix(line, "<p>") && strings.HasSuffix(line, "</p>") {
		return line
	}

	return "<p>" + line + "</p>"
}
