package format

import (
	"strings"
	"unicode"
	"unicode/utf16"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// ParseResult is plain text plus the Telegram entities that style it.
type ParseResult struct {
	Text     string
	Entities []tgbotapi.MessageEntity
}

// UTF16Len returns the length of s in UTF-16 code units, the unit Telegram
// uses for entity offsets.
func UTF16Len(s string) int {
	n := 0
	for _, r := range s {
		n += utf16.RuneLen(r)
	}
	return n
}

type marker struct {
	token  string
	entity string
}

// Longer tokens first so "**" wins over "*".
var markers = []marker{
	{"**", "bold"},
	{"__", "bold"},
	{"`", "code"},
	{"*", "italic"},
	{"_", "italic"},
}

// ParseMarkdown converts the small Markdown subset used in reminder bodies
// into Telegram message entities:
//
//	**bold** __bold__ *italic* _italic_ `code` and "# heading" (rendered bold)
//
// Markers do not nest. An unmatched marker is kept as literal text.
func ParseMarkdown(text string) ParseResult {
	var out strings.Builder
	var entities []tgbotapi.MessageEntity
	offset := 0

	emit := func(s string) {
		out.WriteString(s)
		offset += UTF16Len(s)
	}
	styled := func(kind, s string) {
		entities = append(entities, tgbotapi.MessageEntity{Type: kind, Offset: offset, Length: UTF16Len(s)})
		emit(s)
	}

	lines := strings.Split(text, "\n")
	for li, line := range lines {
		if li > 0 {
			emit("\n")
		}
		if heading, ok := headingText(line); ok {
			styled("bold", heading)
			continue
		}

		for i := 0; i < len(line); {
			m, inner, width, ok := matchAt(line, i)
			if ok {
				styled(m.entity, inner)
				i += width
				continue
			}
			_, size := utf8.DecodeRuneInString(line[i:])
			emit(line[i : i+size])
			i += size
		}
	}

	result := strings.TrimRight(out.String(), " \n")
	return ParseResult{Text: result, Entities: entities}
}

// headingText strips one to six leading '#' followed by whitespace.
func headingText(line string) (string, bool) {
	trimmed := strings.TrimLeft(line, "#")
	level := len(line) - len(trimmed)
	if level == 0 || level > 6 || trimmed == "" || (trimmed[0] != ' ' && trimmed[0] != '\t') {
		return "", false
	}
	heading := strings.TrimSpace(trimmed)
	return heading, heading != ""
}

// matchAt reports whether a styled span opens at line[i] and, if so, the
// span's inner text and total byte width including markers.
func matchAt(line string, i int) (marker, string, int, bool) {
	for _, m := range markers {
		if !strings.HasPrefix(line[i:], m.token) {
			continue
		}
		if m.token == "_" || m.token == "__" {
			if prev, _ := utf8.DecodeLastRuneInString(line[:i]); i > 0 && isWordRune(prev) {
				return marker{}, "", 0, false
			}
		}

		rest := line[i+len(m.token):]
		end := strings.Index(rest, m.token)
		if end <= 0 {
			return marker{}, "", 0, false
		}
		inner := rest[:end]
		if len(m.token) == 1 && m.token != "`" && strings.HasPrefix(rest[end:], m.token+m.token) {
			// "*a**" style runs are left alone.
			return marker{}, "", 0, false
		}
		return m, inner, len(m.token)*2 + len(inner), true
	}
	return marker{}, "", 0, false
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
