// Package types provides shared type definitions used across replichat packages.
// This package exists to break import cycles between transport, provisioning, and
// the chat layer. Types in this package are foundational data structures with no
// internal dependencies.
package types

import "time"

// Role identifies the author of a transcript message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ServiceUser is the tenant-scoped identity replichat provisions on the remote
// backend. The ID is caller-chosen and stable across restarts so repeated
// bootstraps target the same record.
type ServiceUser struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
}

// PersonaLLM configures the model behind a persona.
type PersonaLLM struct {
	Model         string `json:"model"`
	SystemMessage string `json:"systemMessage,omitempty"`
}

// Persona is a named conversational-AI entity on the remote backend.
// Slug is the caller-chosen natural key used for lookup; UUID is the
// server-assigned handle used for all subsequent traffic.
type Persona struct {
	UUID             string     `json:"uuid"`
	Slug             string     `json:"slug"`
	Name             string     `json:"name"`
	ShortDescription string     `json:"shortDescription,omitempty"`
	Greeting         string     `json:"greeting,omitempty"`
	OwnerID          string     `json:"ownerID,omitempty"`
	LLM              PersonaLLM `json:"llm"`
}

// PersonaPage is one page of personas visible to the tenant.
type PersonaPage struct {
	Items []Persona `json:"items"`
	Total int       `json:"total"`
}

// Message is a single transcript entry. The transcript is append-only and
// insertion order is meaningful.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ChatSession is the single active conversation against a persona.
// ID mirrors the persona UUID in the current backend contract.
type ChatSession struct {
	ID        string    `json:"id"`
	ReplicaID string    `json:"replicaId"`
	Messages  []Message `json:"messages"`
}
