// Package chat exposes the single stable client interface the rest of the
// application talks to: list personas, create a session, send a message, get
// history. The facade keeps that contract working in a degraded, locally
// simulated form when the live backend is unreachable or erroring.
package chat

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"replichat/internal/transport"
	"replichat/internal/types"
)

// ErrNotInitialized is returned for calls made before any client exists.
var ErrNotInitialized = errors.New("chat client not initialized")

// Client is the uniform contract implemented by both the live backend client
// and the simulated stand-in.
type Client interface {
	ListPersonas(ctx context.Context) (*types.PersonaPage, error)
	CreateSession(ctx context.Context, personaID, initialMessage string) (*types.ChatSession, error)
	SendMessage(ctx context.Context, sessionID, text string) (*types.Message, error)
	GetHistory(ctx context.Context, sessionID string) ([]types.Message, error)
}

// LiveClient implements Client against the remote backend through a
// user-scoped transport client.
type LiveClient struct {
	transport *transport.Client
}

// NewLiveClient wraps a user-scoped transport client.
func NewLiveClient(tc *transport.Client) *LiveClient {
	return &LiveClient{transport: tc}
}

type completionRequest struct {
	Content string `json:"content"`
}

type completionResponse struct {
	Content string `json:"content"`
}

type historyResponse struct {
	Items []historyItem `json:"items"`
}

type historyItem struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ListPersonas returns the personas visible to the tenant/user.
func (c *LiveClient) ListPersonas(ctx context.Context) (*types.PersonaPage, error) {
	var page types.PersonaPage
	if err := c.transport.Do(ctx, http.MethodGet, "/replicas", nil, &page); err != nil {
		return nil, fmt.Errorf("failed to list personas: %w", err)
	}
	return &page, nil
}

// CreateSession opens the conversation against a persona. The backend keys
// chat traffic by persona uuid, so the session id mirrors it; no remote call
// is needed unless an initial message is supplied.
func (c *LiveClient) CreateSession(ctx context.Context, personaID, initialMessage string) (*types.ChatSession, error) {
	session := &types.ChatSession{
		ID:        personaID,
		ReplicaID: personaID,
		Messages:  []types.Message{},
	}
	if initialMessage != "" {
		reply, err := c.SendMessage(ctx, session.ID, initialMessage)
		if err != nil {
			return nil, err
		}
		session.Messages = append(session.Messages,
			types.Message{
				ID:        uuid.NewString(),
				Role:      types.RoleUser,
				Content:   initialMessage,
				Timestamp: time.Now(),
			},
			*reply,
		)
	}
	return session, nil
}

// SendMessage posts one user message and returns the assistant reply.
func (c *LiveClient) SendMessage(ctx context.Context, sessionID, text string) (*types.Message, error) {
	var resp completionResponse
	path := "/replicas/" + sessionID + "/chat/completions"
	if err := c.transport.Do(ctx, http.MethodPost, path, completionRequest{Content: text}, &resp); err != nil {
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	return &types.Message{
		ID:        uuid.NewString(),
		Role:      types.RoleAssistant,
		Content:   resp.Content,
		Timestamp: time.Now(),
	}, nil
}

// GetHistory returns the server-side transcript for the session.
func (c *LiveClient) GetHistory(ctx context.Context, sessionID string) ([]types.Message, error) {
	var resp historyResponse
	path := "/replicas/" + sessionID + "/chat/history"
	if err := c.transport.Do(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	messages := make([]types.Message, 0, len(resp.Items))
	for _, item := range resp.Items {
		messages = append(messages, types.Message{
			ID:        item.ID,
			Role:      types.Role(item.Role),
			Content:   item.Content,
			Timestamp: item.CreatedAt,
		})
	}
	return messages, nil
}
