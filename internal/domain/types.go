package domain

import "time"

type SessionID string
type UserID string
type MessageID string

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// CompletionMode selects how the provider should answer.
type CompletionMode string

const (
	ModeStandard CompletionMode = "standard" // plain reply
	ModeThinking CompletionMode = "thinking" // reply with visible step-by-step reasoning
)

type Timestamp = time.Time
