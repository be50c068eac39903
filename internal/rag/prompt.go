package rag

import (
	"fmt"
	"strings"

	"github.com/owlia-ai/owlia/internal/knowledge"
)

// systemPrompt is the tutor persona. Answers stay short because they are
// spoken aloud by the frontend avatar.
const systemPrompt = `You are a friendly and patient AI tutor. You help students understand
concepts in programming and computer science.

Guidelines:
- Explain concepts clearly and simply, using examples where helpful.
- Keep answers concise: two to four short paragraphs at most, since your
  answer will be read aloud.
- If the study material below is relevant, base your answer on it.
- If you do not know the answer or the question is outside the material,
  say so honestly and suggest what the student could look into.
- Encourage the student when they show understanding.`

// BuildSystemPrompt assembles the system prompt with the retrieved study
// material appended as a context block. Empty results yield the bare persona
// so the model can still answer from general knowledge.
func BuildSystemPrompt(results []knowledge.Result) string {
	if len(results) == 0 {
		return systemPrompt
	}

	var b strings.Builder
	b.WriteString(systemPrompt)
	b.WriteString("\n\nStudy material:\n")
	for i, r := range results {
		source := r.Document.Metadata[knowledge.MetaSource]
		if source == "" {
			source = r.Document.ID
		}
		fmt.Fprintf(&b, "\n[%d] (from %s)\n%s\n", i+1, source, r.Document.Content)
	}
	return b.String()
}

// Sources returns the distinct source names of the retrieved chunks, in
// ranking order. The API returns these so the frontend can show citations.
func Sources(results []knowledge.Result) []string {
	seen := make(map[string]struct{}, len(results))
	var sources []string
	for _, r := range results {
		source := r.Document.Metadata[knowledge.MetaSource]
		if source == "" {
			source = r.Document.ID
		}
		if _, ok := seen[source]; ok {
			continue
		}
		seen[source] = struct{}{}
		sources = append(sources, source)
	}
	return sources
}
