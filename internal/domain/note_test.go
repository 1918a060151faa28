package domain

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoteContentJSON(t *testing.T) {
	content := NoteContent{
		Title:   "follow up",
		Content: "customer wants a call back",
		ChecklistItems: []ChecklistItem{
			{Text: "check logs", Completed: true},
			{Text: "reply"},
		},
	}

	raw, err := json.Marshal(content)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"checklist_items"`)
	assert.Contains(t, string(raw), `"completed":true`)

	var decoded NoteContent
	require.NoError(t, json.Unmarshal(raw, &decoded))
	assert.Equal(t, content, decoded)
}

func TestTicketStatusIsCompleted(t *testing.T) {
	completed := []TicketStatus{TicketStatusClosed, TicketStatusResolved, TicketStatusPendingReview}
	for _, status := range completed {
		assert.True(t, status.IsCompleted(), string(status))
	}
	open := []TicketStatus{TicketStatusOpen, TicketStatusTriage, TicketStatusInProgress, TicketStatusWithIT}
	for _, status := range open {
		assert.False(t, status.IsCompleted(), string(status))
	}
}

func TestAgentRoleIsCustomerService(t *testing.T) {
	assert.True(t, AgentRoleSenior.IsCustomerService())
	assert.True(t, AgentRoleJunior.IsCustomerService())
	assert.False(t, AgentRoleIT.IsCustomerService())
	assert.False(t, AgentRoleAdmin.IsCustomerService())
}
