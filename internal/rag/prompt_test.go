package rag

import (
	"strings"
	"testing"

	"github.com/owlia-ai/owlia/internal/knowledge"
)

func result(id, source, content string) knowledge.Result {
	meta := map[string]string{}
	if source != "" {
		meta[knowledge.MetaSource] = source
	}
	return knowledge.Result{
		Document: knowledge.Document{ID: id, Content: content, Metadata: meta},
	}
}

func TestBuildSystemPromptEmpty(t *testing.T) {
	got := BuildSystemPrompt(nil)
	if !strings.Contains(got, "AI tutor") {
		t.Error("prompt should contain the tutor persona")
	}
	if strings.Contains(got, "Study material") {
		t.Error("empty results should not add a study material block")
	}
}

func TestBuildSystemPromptWithResults(t *testing.T) {
	results := []knowledge.Result{
		result("py#0", "python_basics", "Lists are mutable sequences."),
		result("py#1", "python_basics", "Dicts map keys to values."),
	}

	got := BuildSystemPrompt(results)

	if !strings.Contains(got, "Study material") {
		t.Error("prompt should contain the study material block")
	}
	if !strings.Contains(got, "Lists are mutable sequences.") {
		t.Error("prompt should contain retrieved chunk content")
	}
	if !strings.Contains(got, "[2] (from python_basics)") {
		t.Error("chunks should be numbered and attributed")
	}
	// Persona comes before the material so the model reads role first.
	if strings.Index(got, "AI tutor") > strings.Index(got, "Study material") {
		t.Error("persona should precede the study material")
	}
}

func TestBuildSystemPromptFallsBackToID(t *testing.T) {
	got := BuildSystemPrompt([]knowledge.Result{result("anon#3", "", "Some text.")})
	if !strings.Contains(got, "anon#3") {
		t.Error("missing source metadata should fall back to the document ID")
	}
}

func TestSources(t *testing.T) {
	results := []knowledge.Result{
		result("a#0", "a.txt", "x"),
		result("a#1", "a.txt", "y"),
		result("b#0", "b.txt", "z"),
		result("c#0", "", "w"),
	}

	got := Sources(results)
	want := []string{"a.txt", "b.txt", "c#0"}

	if len(got) != len(want) {
		t.Fatalf("Sources() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Sources()[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestSourcesEmpty(t *testing.T) {
	if got := Sources(nil); got != nil {
		t.Errorf("Sources(nil) = %v, want nil", got)
	}
}
