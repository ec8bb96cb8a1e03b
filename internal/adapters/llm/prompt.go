package llm

import "github.com/converselabs/converse/internal/domain"

const baseSystemPrompt = `
You are a helpful AI assistant inside a desktop chat application.

General style guidelines:
- Answer in the SAME LANGUAGE as the user.
- Be direct and concise; prefer short paragraphs or bullet points.
- Use the conversation so far to stay consistent: remember names, facts
  and preferences the user already told you.
- If you are unsure, say so instead of inventing an answer.
`

const standardInstructions = `
Mode: standard

Reply directly with the answer. Do not narrate your reasoning.
`

const thinkingInstructions = `
Mode: thinking

Work through the problem step by step before answering. Show the key
steps of your reasoning briefly, then give the final answer clearly
separated at the end.
`

// BuildSystemPrompt returns the system instruction for a completion mode.
func BuildSystemPrompt(mode domain.CompletionMode) string {
	return baseSystemPrompt + "\n" + modeInstructions(mode)
}

func modeInstructions(mode domain.CompletionMode) string {
	switch mode {
	case domain.ModeThinking:
		return thinkingInstructions
	case domain.ModeStandard:
		fallthrough
	default:
		return standardInstructions
	}
}
