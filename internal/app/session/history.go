package session

import "github.com/converselabs/converse/internal/domain"

const (
	DefaultMaxMessages = 40
	DefaultMaxChars    = 16384
)

// Assembler derives the bounded conversation context injected into the
// next provider call. The budget is counted from the most recent message
// backward: once either bound would be exceeded the remaining (older)
// messages are dropped. Messages are never split, and the newest message
// is always included even when it alone exceeds MaxChars.
//
// Assemble is a pure function of its input, so for a fixed message
// sequence and fixed budget the output is identical on every call.
type Assembler struct {
	MaxMessages int
	MaxChars    int
}

func NewAssembler(maxMessages, maxChars int) Assembler {
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}
	return Assembler{MaxMessages: maxMessages, MaxChars: maxChars}
}

// Assemble returns the budgeted suffix of msgs as oldest-first turns.
// An empty or nil input yields an empty (non-nil) slice.
func (a Assembler) Assemble(msgs []domain.Message) []domain.Turn {
	maxMessages := a.MaxMessages
	if maxMessages <= 0 {
		maxMessages = DefaultMaxMessages
	}
	maxChars := a.MaxChars
	if maxChars <= 0 {
		maxChars = DefaultMaxChars
	}

	start := len(msgs)
	chars := 0
	for start > 0 {
		next := chars + len(msgs[start-1].Content)
		if len(msgs)-start >= maxMessages {
			break
		}
		// The newest message is kept unconditionally.
		if next > maxChars && start != len(msgs) {
			break
		}
		chars = next
		start--
	}

	turns := make([]domain.Turn, 0, len(msgs)-start)
	for _, m := range msgs[start:] {
		turns = append(turns, domain.Turn{Role: m.Role, Content: m.Content})
	}
	return turns
}
