package sanitizer

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/aretw0/rekitter/pkg/domain"
)

// Ellipsis marks a post cut at the render limit.
const Ellipsis = "…"

// MetaPatterns are the leading segments treated as meta-commentary.
// Each one is anchored at the start of the text.
var MetaPatterns = []*regexp.Regexp{
	// greetings addressed to nobody in particular; "Hey Tetzel," is kept
	regexp.MustCompile(`(?i)^(hello|hi|hey|greetings|good (morning|afternoon|evening|day)),? (everyone|all|there|friends|folks|world)([,!.:]+(\s+|$)|$)`),
	regexp.MustCompile(`(?i)^(hello|hi|hey|greetings|good (morning|afternoon|evening|day))([!.:]+(\s+|$)|$)`),
	// acknowledgments
	regexp.MustCompile(`(?i)^(sure|certainly|of course|absolutely|okay|ok|alright|understood|got it|very well|noted|great question)[,!.:]+(\s+|$)`),
	regexp.MustCompile(`(?i)^here('s| is| are)\b[^:\n]*:\s*`),
	// "as an AI" disclosures
	regexp.MustCompile(`(?i)^(as an? (ai|artificial intelligence|(ai )?language model|ai assistant)|i('m| am) (just )?an? (ai|language model|assistant))\b[^.!?\n]*[.!?,]*\s*`),
	// refusals of the request itself, not in-character "I cannot recant"
	regexp.MustCompile(`(?i)^(i('m| am) sorry|sorry|i apologi[sz]e)[,.!]?\s+(but\s+)?i (cannot|can't|can not|won't|am unable to|am not able to) (help|comply|assist|write|continue|fulfil+|provide|generate|create|produce|engage|participate|role-?play|answer|do that)\b[^.!?\n]*[.!?]*\s*`),
	regexp.MustCompile(`(?i)^i (cannot|can't|can not|won't|am unable to|am not able to) (fulfil+|comply with|help with|assist with|complete|answer|continue) (this|that|your) (request|prompt|task|question|conversation)\b[^.!?\n]*[.!?]*\s*`),
	// Japanese acknowledgments, greetings, disclosures and refusals
	regexp.MustCompile(`^(はい|承知しました|承知いたしました|了解です|了解しました|わかりました|分かりました|もちろんです|かしこまりました)[、。！!]*\s*`),
	regexp.MustCompile(`^(こんにちは|こんばんは|おはようございます|皆さん|みなさん)[、。！!]*\s*`),
	regexp.MustCompile(`^(AIとして|私はAI)[^。！？\n]*[。！？]?\s*`),
	regexp.MustCompile(`^申し訳(ありません|ございません)[^。！？\n]*(できません|いたしかねます)[。！？]?\s*`),
}

var quotePairs = [][2]string{{`"`, `"`}, {"“", "”"}, {"「", "」"}, {"'", "'"}}

// Response filters a raw generated reply into post content.
//
// Leading meta-commentary and speaker labels (e.g. "Martin Luther: ") are stripped
// repeatedly; wrapping quotes are removed. When nothing is left the reply is a soft
// failure. Otherwise the text is cut to limit runes (limit <= 0 disables the cut).
// Response is idempotent: Response(Response(x)) == Response(x).
func Response(raw string, limit int, labels ...string) (string, error) {
	text := strings.TrimSpace(stripControl(raw))

	labelPatterns := make([]*regexp.Regexp, 0, len(labels))
	for _, l := range labels {
		if l = strings.TrimSpace(l); l != "" {
			labelPatterns = append(labelPatterns, regexp.MustCompile(`(?i)^@?`+regexp.QuoteMeta(l)+`\s*[:：]\s*`))
		}
	}

	for {
		before := text
		text = stripLeading(text, labelPatterns)
		text = stripLeading(text, MetaPatterns)
		text = unquote(text)
		if text == before {
			break
		}
	}

	if text == "" {
		return "", domain.ErrSoftFailure
	}
	return Truncate(text, limit), nil
}

func stripLeading(text string, patterns []*regexp.Regexp) string {
	for _, re := range patterns {
		if loc := re.FindStringIndex(text); loc != nil && loc[1] > 0 {
			return strings.TrimSpace(text[loc[1]:])
		}
	}
	return text
}

func unquote(text string) string {
	for _, q := range quotePairs {
		if len(text) > len(q[0])+len(q[1])-1 && strings.HasPrefix(text, q[0]) && strings.HasSuffix(text, q[1]) {
			inner := text[len(q[0]) : len(text)-len(q[1])]
			// Only unwrap a single quoted block, not "a" and "b".
			if !strings.Contains(inner, q[0]) && !strings.Contains(inner, q[1]) {
				return strings.TrimSpace(inner)
			}
		}
	}
	return text
}

// Truncate cuts text to at most limit runes, ending with an ellipsis when cut.
func Truncate(text string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(text) <= limit {
		return text
	}
	if limit == 1 {
		return Ellipsis
	}
	runes := []rune(text)
	cut := strings.TrimRight(string(runes[:limit-1]), " \t\n\r")
	return cut + Ellipsis
}
