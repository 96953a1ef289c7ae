package chat

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"replichat/internal/types"
)

func TestSimulated_KeywordAnswers(t *testing.T) {
	sim := NewSimulated("Tutor")

	cases := []struct {
		name     string
		input    string
		contains string
	}{
		{"enrollment question", "How do I enroll in the Go course?", "Enroll"},
		{"certificate question", "Where is my certificate?", "Certificates"},
		{"greeting", "hello there", "course assistant"},
		{"unknown topic", "what is the meaning of life?", "offline mode"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			msg, err := sim.SendMessage(context.Background(), "s1", tc.input)
			require.NoError(t, err)
			assert.Equal(t, types.RoleAssistant, msg.Role)
			assert.True(t, strings.Contains(msg.Content, tc.contains),
				"answer %q should contain %q", msg.Content, tc.contains)
		})
	}
}

func TestSimulated_HistoryRecordsBothSides(t *testing.T) {
	sim := NewSimulated("")

	_, err := sim.SendMessage(context.Background(), "s1", "hi")
	require.NoError(t, err)
	_, err = sim.SendMessage(context.Background(), "s1", "tell me about courses")
	require.NoError(t, err)

	history, err := sim.GetHistory(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, types.RoleUser, history[0].Role)
	assert.Equal(t, types.RoleAssistant, history[1].Role)
	assert.Equal(t, types.RoleUser, history[2].Role)
	assert.Equal(t, types.RoleAssistant, history[3].Role)

	// Sessions are isolated.
	other, err := sim.GetHistory(context.Background(), "s2")
	require.NoError(t, err)
	assert.Empty(t, other)
}

func TestSimulated_GetHistoryReturnsCopy(t *testing.T) {
	sim := NewSimulated("")
	_, err := sim.SendMessage(context.Background(), "s1", "hi")
	require.NoError(t, err)

	history, err := sim.GetHistory(context.Background(), "s1")
	require.NoError(t, err)
	history[0].Content = "mutated"

	fresh, err := sim.GetHistory(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, "hi", fresh[0].Content)
}

func TestSimulated_CreateSessionWithInitialMessage(t *testing.T) {
	sim := NewSimulated("")
	session, err := sim.CreateSession(context.Background(), "persona-1", "hello")
	require.NoError(t, err)

	assert.Equal(t, "persona-1", session.ID)
	assert.Equal(t, "persona-1", session.ReplicaID)
	require.Len(t, session.Messages, 2)
	assert.Equal(t, types.RoleUser, session.Messages[0].Role)
	assert.Equal(t, types.RoleAssistant, session.Messages[1].Role)
}

func TestSimulated_ListPersonasNeverEmpty(t *testing.T) {
	sim := NewSimulated("Tutor")
	page, err := sim.ListPersonas(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, "Tutor", page.Items[0].Name)
}
