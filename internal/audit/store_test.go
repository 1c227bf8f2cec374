package audit

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestRecordTurnRoundTrip(t *testing.T) {
	s := newTestStore(t)
	turn := TurnRecord{
		TurnID:         "turn-1",
		ConversationID: "conv-1",
		TenantID:       "tenant-a",
		QueryText:      "when was the lease signed?",
		Mode:           "owner",
		GroundingJSON:  `{"requires_evidence":true}`,
		RoutingJSON:    `{"action":"answer"}`,
	}
	audit := AuditRecord{
		TurnID:       "turn-1",
		Action:       "answer",
		Intent:       "factual_lookup",
		Confidence:   0.82,
		Sources:      []string{"doc-1", "doc-2"},
		ResponseText: "The lease was signed in March.",
	}
	require.NoError(t, s.RecordTurn(turn, audit))

	turns, err := s.ListTurns("conv-1", 10)
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "turn-1", turns[0].TurnID)
	assert.Equal(t, `{"action":"answer"}`, turns[0].RoutingJSON)
	assert.False(t, turns[0].CreatedAt.IsZero())

	got, err := s.GetAudit("turn-1")
	require.NoError(t, err)
	assert.Equal(t, "answer", got.Action)
	assert.Equal(t, []string{"doc-1", "doc-2"}, got.Sources)
	assert.InDelta(t, 0.82, got.Confidence, 1e-9)
}

func TestRecordTurnAppendOnly(t *testing.T) {
	s := newTestStore(t)
	turn := TurnRecord{TurnID: "turn-1", ConversationID: "c", TenantID: "t", QueryText: "q",
		Mode: "owner", GroundingJSON: "{}", RoutingJSON: "{}"}
	audit := AuditRecord{TurnID: "turn-1", Action: "answer", Intent: "x"}
	require.NoError(t, s.RecordTurn(turn, audit))

	// A second write under the same turn id must fail, not overwrite.
	err := s.RecordTurn(turn, audit)
	require.Error(t, err)

	turns, err := s.ListTurns("c", 10)
	require.NoError(t, err)
	assert.Len(t, turns, 1)
}

func TestReasonCodePersistedForEscalate(t *testing.T) {
	s := newTestStore(t)
	turn := TurnRecord{TurnID: "turn-2", ConversationID: "c", TenantID: "t", QueryText: "q",
		Mode: "public", GroundingJSON: "{}", RoutingJSON: "{}"}
	audit := AuditRecord{TurnID: "turn-2", Action: "escalate", Intent: "evaluative_judgment",
		ReasonCode: "evidence_exhausted"}
	require.NoError(t, s.RecordTurn(turn, audit))

	got, err := s.GetAudit("turn-2")
	require.NoError(t, err)
	assert.Equal(t, "evidence_exhausted", got.ReasonCode)
}

func TestListTurnsNewestFirst(t *testing.T) {
	s := newTestStore(t)
	for i, id := range []string{"turn-a", "turn-b"} {
		turn := TurnRecord{TurnID: id, ConversationID: "c", TenantID: "t", QueryText: "q",
			Mode: "owner", GroundingJSON: "{}", RoutingJSON: "{}",
			CreatedAt: time.Date(2025, 6, 1, 12, i, 0, 0, time.UTC)}
		require.NoError(t, s.RecordTurn(turn, AuditRecord{TurnID: id, Action: "answer", Intent: "x"}))
	}
	turns, err := s.ListTurns("c", 10)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, "turn-b", turns[0].TurnID)
}

func TestRecentAudits(t *testing.T) {
	s := newTestStore(t)
	turn := TurnRecord{TurnID: "turn-3", ConversationID: "c", TenantID: "t", QueryText: "q",
		Mode: "owner", GroundingJSON: "{}", RoutingJSON: "{}"}
	require.NoError(t, s.RecordTurn(turn, AuditRecord{TurnID: "turn-3", Action: "refuse", Intent: "x", ReasonCode: "policy_violation"}))

	audits, err := s.RecentAudits(5)
	require.NoError(t, err)
	require.Len(t, audits, 1)
	assert.Equal(t, "refuse", audits[0].Action)
}
