package llm

import (
	"strings"
	"testing"

	"github.com/converselabs/converse/internal/domain"
)

func TestBuildSystemPromptByMode(t *testing.T) {
	standard := BuildSystemPrompt(domain.ModeStandard)
	if !strings.Contains(standard, "Mode: standard") {
		t.Fatalf("standard prompt missing mode instructions: %q", standard)
	}

	thinking := BuildSystemPrompt(domain.ModeThinking)
	if !strings.Contains(thinking, "Mode: thinking") {
		t.Fatalf("thinking prompt missing mode instructions: %q", thinking)
	}

	// Unknown modes fall back to standard.
	if got := BuildSystemPrompt("bogus"); !strings.Contains(got, "Mode: standard") {
		t.Fatalf("unknown mode must fall back to standard: %q", got)
	}
}
