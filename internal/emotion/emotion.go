// Package emotion classifies tutor responses into avatar emotion cues.
//
// The frontend avatar animates based on the emotion tag returned with each
// answer. Classification is a keyword heuristic over the response text, not
// a model call: it must be instant and must never fail the request.
package emotion

import (
	"slices"
	"strings"
	"unicode"
)

// Emotion is an avatar animation cue.
type Emotion string

const (
	Happy      Emotion = "happy"
	Explaining Emotion = "explaining"
	Thinking   Emotion = "thinking"
	Confused   Emotion = "confused"
	Neutral    Emotion = "neutral"
)

// Keyword groups checked in priority order. The first group with a match
// wins, so an enthusiastic explanation reads as happy, not explaining.
var (
	happyWords = []string{
		"great", "excellent", "well done", "perfect", "awesome",
		"congratulations", "fantastic", "brilliant", "amazing", "wonderful",
		"good job",
	}

	// confirmWords are happy cues that must match as whole words only:
	// a substring check would fire on "incorrect" or "yesterday".
	confirmWords = []string{"correct", "yes"}
	explainingWords = []string{
		"let me explain", "for example", "in other words", "this means",
		"first", "second", "step", "because", "the reason", "works by",
	}
	thinkingWords = []string{
		"let me think", "hmm", "consider", "it depends", "interesting question",
		"that's a good question", "let's see",
	}
	confusedWords = []string{
		"i'm not sure", "i am not sure", "unclear", "could you clarify",
		"don't understand", "do not understand", "can you rephrase",
		"not certain", "i don't know", "i do not know",
	}
)

// Detect returns the avatar emotion for a response text.
// Matching is case-insensitive. Unmatched text is Neutral.
func Detect(text string) Emotion {
	lower := strings.ToLower(text)

	if containsWord(lower, confirmWords) {
		return Happy
	}

	for _, group := range []struct {
		words   []string
		emotion Emotion
	}{
		{happyWords, Happy},
		{explainingWords, Explaining},
		{thinkingWords, Thinking},
		{confusedWords, Confused},
	} {
		for _, w := range group.words {
			if strings.Contains(lower, w) {
				return group.emotion
			}
		}
	}

	return Neutral
}

// containsWord reports whether any of words appears as a whole word in text.
func containsWord(text string, words []string) bool {
	for _, token := range strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if slices.Contains(words, token) {
			return true
		}
	}
	return false
}
