package format

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
)

func TestUTF16Len(t *testing.T) {
	assert.Equal(t, 5, UTF16Len("hello"))
	assert.Equal(t, 2, UTF16Len("提醒"))
	assert.Equal(t, 1, UTF16Len("⏰"))
	assert.Equal(t, 2, UTF16Len("😀"))
}

func TestParseMarkdown(t *testing.T) {
	cases := []struct {
		name     string
		in       string
		text     string
		entities []tgbotapi.MessageEntity
	}{
		{
			name: "plain",
			in:   "nothing to see",
			text: "nothing to see",
		},
		{
			name:     "bold",
			in:       "meet **Bob** now",
			text:     "meet Bob now",
			entities: []tgbotapi.MessageEntity{{Type: "bold", Offset: 5, Length: 3}},
		},
		{
			name: "mixed keeps offsets in order",
			in:   "`x` then **y** and *z*",
			text: "x then y and z",
			entities: []tgbotapi.MessageEntity{
				{Type: "code", Offset: 0, Length: 1},
				{Type: "bold", Offset: 7, Length: 1},
				{Type: "italic", Offset: 13, Length: 1},
			},
		},
		{
			name:     "emoji shifts offsets by surrogate pairs",
			in:       "😀 **standup**",
			text:     "😀 standup",
			entities: []tgbotapi.MessageEntity{{Type: "bold", Offset: 3, Length: 7}},
		},
		{
			name:     "heading",
			in:       "## Today\nbody",
			text:     "Today\nbody",
			entities: []tgbotapi.MessageEntity{{Type: "bold", Offset: 0, Length: 5}},
		},
		{
			name: "snake case is not italic",
			in:   "run make_file_now",
			text: "run make_file_now",
		},
		{
			name: "unmatched marker stays literal",
			in:   "2 * 3 = 6",
			text: "2 * 3 = 6",
		},
		{
			name: "trailing whitespace trimmed",
			in:   "done \n\n",
			text: "done",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseMarkdown(tc.in)
			assert.Equal(t, tc.text, got.Text)
			assert.Equal(t, tc.entities, got.Entities)
		})
	}
}
