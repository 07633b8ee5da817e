package retrieval

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/kailas-cloud/solace/internal/domain/topic"
)

type topicPatterns struct {
	label    topic.Label
	patterns []*regexp.Regexp
}

// topicTable order is the tie-break order.
var topicTable = []topicPatterns{
	{topic.Depression, compile(
		`\b(depress(ed|ion|ive)?|sad(ness)?|hopeless(ness)?|suicid(al|e)?)\b`,
		`\bfeeling down\b`,
		`\bno motivation\b`,
	)},
	{topic.Anxiety, compile(
		`\b(anxious|anxiety|anxiet(y|ies)|panic|worried|worry(ing)?)\b`,
		`\bpanic attack\b`,
		`\bfeeling nervous\b`,
	)},
	{topic.Stress, compile(
		`\b(stress(ed|ful)?|overwhelm(ed|ing)?|pressure|tense|tension)\b`,
		`\bstressed out\b`,
		`\btoo much\b.*\b(work|responsibilities)\b`,
	)},
	{topic.Breathing, compile(
		`\b(breath(e|ing)?|respiratory)\b`,
		`\bbreathing (exercise|technique)\b`,
		`\bcalm(ing)? breath\b`,
	)},
	{topic.CBT, compile(
		`\b(cbt|cognitive behavioral|thought pattern|negative thought)\b`,
		`\bchanging thoughts\b`,
	)},
}

func compile(exprs ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(exprs))
	for i, e := range exprs {
		out[i] = regexp.MustCompile(e)
	}
	return out
}

// InferTopic returns the topic whose patterns match the query most often,
// counting each pattern at most once. Ties go to the topic listed first.
func InferTopic(query string) topic.Label {
	q := strings.ToLower(query)

	best, bestScore := topic.None, 0
	for _, tp := range topicTable {
		score := 0
		for _, p := range tp.patterns {
			if matchWords(p, q) {
				score++
			}
		}
		if score > bestScore {
			best, bestScore = tp.label, score
		}
	}
	return best
}

// matchWords reports whether p matches q with Unicode word boundaries at
// both ends of the match. RE2's \b only knows ASCII word characters, so a
// match directly next to a letter such as "é" is rejected here.
func matchWords(p *regexp.Regexp, q string) bool {
	for _, loc := range p.FindAllStringIndex(q, -1) {
		before, _ := utf8.DecodeLastRuneInString(q[:loc[0]])
		after, _ := utf8.DecodeRuneInString(q[loc[1]:])
		if !isWordRune(before) && !isWordRune(after) {
			return true
		}
	}
	return false
}

func isWordRune(r rune) bool {
	if r == utf8.RuneError {
		return false
	}
	return r == '_' || unicode.IsLetter(r) || unicode.IsNumber(r)
}
