package chat

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"replichat/internal/types"
)

// cannedAnswers maps domain keywords to static explanations. First match in
// order wins, so more specific terms come first.
var cannedAnswers = []struct {
	keywords []string
	answer   string
}{
	{
		keywords: []string{"certificate", "credential"},
		answer:   "Certificates are issued automatically once you complete all modules of a course. You can download them from your profile page.",
	},
	{
		keywords: []string{"enroll", "sign up", "register"},
		answer:   "To enroll in a course, open its page and press Enroll. Free courses start immediately; paid ones unlock after checkout.",
	},
	{
		keywords: []string{"deadline", "due"},
		answer:   "Courses here are self-paced, so there are no hard deadlines. Quizzes can be retaken as many times as you like.",
	},
	{
		keywords: []string{"instructor", "teacher"},
		answer:   "Each course page lists its instructor along with a short bio and links to their other courses.",
	},
	{
		keywords: []string{"course", "lesson", "module"},
		answer:   "Courses are split into modules of short lessons. Your progress is saved after every lesson, so you can stop and resume anytime.",
	},
	{
		keywords: []string{"hello", "hi", "hey"},
		answer:   "Hello! I'm the course assistant. Ask me about enrolling, lessons, or certificates.",
	},
}

const defaultCannedAnswer = "I'm currently running in offline mode, so I can only give general guidance. Try asking about courses, enrollment, or certificates."

// Simulated is the local stand-in for the live backend. It implements the
// same Client contract with keyword-matched canned answers and an in-memory
// history, and it never returns an error.
type Simulated struct {
	personaName string

	mu        sync.Mutex
	histories map[string][]types.Message
}

// NewSimulated creates a simulated backend. personaName is used for the
// fabricated persona page; empty falls back to a generic name.
func NewSimulated(personaName string) *Simulated {
	if personaName == "" {
		personaName = "Offline Assistant"
	}
	return &Simulated{
		personaName: personaName,
		histories:   make(map[string][]types.Message),
	}
}

// ListPersonas fabricates a single-persona page.
func (s *Simulated) ListPersonas(ctx context.Context) (*types.PersonaPage, error) {
	return &types.PersonaPage{
		Items: []types.Persona{{
			UUID:             "simulated-" + uuid.NewString(),
			Slug:             "simulated",
			Name:             s.personaName,
			ShortDescription: "Locally simulated persona (backend unavailable)",
			Greeting:         "Hi! I'm running in offline mode right now.",
		}},
		Total: 1,
	}, nil
}

// CreateSession opens a local session keyed like the live one.
func (s *Simulated) CreateSession(ctx context.Context, personaID, initialMessage string) (*types.ChatSession, error) {
	session := &types.ChatSession{
		ID:        personaID,
		ReplicaID: personaID,
		Messages:  []types.Message{},
	}
	if initialMessage != "" {
		if _, err := s.SendMessage(ctx, session.ID, initialMessage); err != nil {
			return nil, err
		}
		session.Messages, _ = s.GetHistory(ctx, session.ID)
	}
	return session, nil
}

// SendMessage answers from the canned table and records both sides in the
// local history.
func (s *Simulated) SendMessage(ctx context.Context, sessionID, text string) (*types.Message, error) {
	now := time.Now()
	userMsg := types.Message{
		ID:        uuid.NewString(),
		Role:      types.RoleUser,
		Content:   text,
		Timestamp: now,
	}
	reply := &types.Message{
		ID:        uuid.NewString(),
		Role:      types.RoleAssistant,
		Content:   answerFor(text),
		Timestamp: now,
	}

	s.mu.Lock()
	s.histories[sessionID] = append(s.histories[sessionID], userMsg, *reply)
	s.mu.Unlock()

	return reply, nil
}

// GetHistory returns the locally recorded transcript.
func (s *Simulated) GetHistory(ctx context.Context, sessionID string) ([]types.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]types.Message{}, s.histories[sessionID]...), nil
}

func answerFor(text string) string {
	lowered := strings.ToLower(text)
	for _, entry := range cannedAnswers {
		for _, kw := range entry.keywords {
			if strings.Contains(lowered, kw) {
				return entry.answer
			}
		}
	}
	return defaultCannedAnswer
}
