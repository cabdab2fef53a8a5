package sanitizer_test

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/aretw0/rekitter/pkg/domain"
	"github.com/aretw0/rekitter/pkg/sanitizer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResponse_StripsMetaCommentary(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"Clean", "Faith alone saves! #Reformation", "Faith alone saves! #Reformation"},
		{"Acknowledgment", "Sure! Faith alone saves. #SolaFide", "Faith alone saves. #SolaFide"},
		{"StackedPreamble", "Certainly. Here is my post: Rome sells grace. #Reformation", "Rome sells grace. #Reformation"},
		{"Greeting", "Hello everyone! The keys belong to Peter. #Tradition", "The keys belong to Peter. #Tradition"},
		{"AsAnAI", "As an AI language model, I have no opinions. Indulgences are theft. #95Theses", "Indulgences are theft. #95Theses"},
		{"Quoted", `"Here I stand, I can do no other. #Worms"`, "Here I stand, I can do no other. #Worms"},
		{"Japanese", "はい、承知しました。免罪符は無効だ！ #宗教改革", "免罪符は無効だ！ #宗教改革"},
		{"ControlChars", "\x1b[31mRed\x1b[0m heresy #Rome", "[31mRed[0m heresy #Rome"},
		{"KeepsInnerSure", "Sure as death, Rome will fall. #Reformation", "Sure as death, Rome will fall. #Reformation"},
		{"RequestRefusal", "I cannot fulfill this request. Indulgences are theft. #95Theses", "Indulgences are theft. #95Theses"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := sanitizer.Response(tt.raw, 0)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestResponse_KeepsInCharacterOpenings(t *testing.T) {
	for _, raw := range []string{
		"I cannot and will not recant anything, for to go against conscience is neither right nor safe. #HereIStand",
		"I can't stay silent while Rome sells grace for coins! #Reformation",
		"I won't help Rome fill its coffers. #95Theses",
		"Sorry, Leo, but Scripture outranks your bulls. #SolaScriptura",
		"I'm sorry, Your Holiness, but the Gospel is not for sale.",
		"Unfortunately for Rome, the printing press is faster than any bull. #95Posts",
		"Hey Tetzel, how much for a soul today?",
		"Hello Worms! Here I stand.",
		"申し訳ありません、陛下。免罪符は誤りです。",
	} {
		got, err := sanitizer.Response(raw, 0)
		require.NoError(t, err, "raw=%q", raw)
		assert.Equal(t, raw, got)
	}
}

func TestResponse_SpeakerLabel(t *testing.T) {
	got, err := sanitizer.Response("Martin Luther: Here I stand. #Worms", 0, "Martin Luther", "luther")
	require.NoError(t, err)
	assert.Equal(t, "Here I stand. #Worms", got)

	got, err = sanitizer.Response("@luther: Sola scriptura. #Bible", 0, "Martin Luther", "luther")
	require.NoError(t, err)
	assert.Equal(t, "Sola scriptura. #Bible", got)
}

func TestResponse_SoftFailure(t *testing.T) {
	for _, raw := range []string{
		"",
		"   ",
		"I'm sorry, but I can't help with that.",
		"I apologize, but I cannot write that post.",
		"I'm sorry, I can't continue this role-play.",
		"As an AI, I cannot take sides.",
		"Sure!",
		"Understood. Hello!",
		"申し訳ありませんが、お答えできません。",
	} {
		_, err := sanitizer.Response(raw, 140)
		assert.ErrorIs(t, err, domain.ErrSoftFailure, "raw=%q", raw)
	}
}

func TestResponse_Truncates(t *testing.T) {
	raw := strings.Repeat("indulgence ", 30) + "#Reformation"
	got, err := sanitizer.Response(raw, 140)
	require.NoError(t, err)
	assert.LessOrEqual(t, utf8.RuneCountInString(got), 140)
	assert.True(t, strings.HasSuffix(got, sanitizer.Ellipsis))

	jp := strings.Repeat("信仰", 100)
	got, err = sanitizer.Response(jp, 140)
	require.NoError(t, err)
	assert.Equal(t, 140, utf8.RuneCountInString(got), "limit counts runes, not bytes")
}

func TestResponse_Idempotent(t *testing.T) {
	inputs := []string{
		"Sure! Faith alone saves. #SolaFide",
		`Certainly. "Rome sells grace." #Reformation`,
		"Martin Luther: " + strings.Repeat("Here I stand ", 20),
		"  \x07Hello, world. Good day! Indulgences are a scam #95Theses  ",
		strings.Repeat("x", 300),
		"はい。" + strings.Repeat("免罪符", 60),
		`"a" and "b"`,
		"I cannot and will not recant. #HereIStand",
		"Hey Tetzel, how much for a soul today?",
	}
	for _, in := range inputs {
		once, err := sanitizer.Response(in, 140, "Martin Luther")
		require.NoError(t, err, "input=%q", in)
		twice, err := sanitizer.Response(once, 140, "Martin Luther")
		require.NoError(t, err)
		assert.Equal(t, once, twice, "input=%q", in)
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", sanitizer.Truncate("abc", 3))
	assert.Equal(t, "ab…", sanitizer.Truncate("abcd", 3))
	assert.Equal(t, "ab…", sanitizer.Truncate("ab   cd", 4), "trailing whitespace before the ellipsis is dropped")
	assert.Equal(t, "…", sanitizer.Truncate("abcd", 1))
	assert.Equal(t, "abcd", sanitizer.Truncate("abcd", 0))
}
