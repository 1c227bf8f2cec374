// Package audit persists conversation turns and routing audit records.
// Turns are append-only: written once per user message, never mutated.
package audit

// #region imports
import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// #endregion

// #region schema

const schema = `
CREATE TABLE IF NOT EXISTS conversation_turns (
	turn_id          TEXT PRIMARY KEY,
	conversation_id  TEXT NOT NULL,
	tenant_id        TEXT NOT NULL,
	query_text       TEXT NOT NULL,
	mode             TEXT NOT NULL,
	grounding_json   TEXT NOT NULL,
	routing_json     TEXT NOT NULL,
	created_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_turns_conversation ON conversation_turns(conversation_id, created_at);

CREATE TABLE IF NOT EXISTS routing_audit (
	id               INTEGER PRIMARY KEY AUTOINCREMENT,
	turn_id          TEXT NOT NULL UNIQUE,
	action           TEXT NOT NULL,
	intent           TEXT NOT NULL,
	confidence       REAL NOT NULL,
	reason_code      TEXT,
	sources_json     TEXT,
	response_text    TEXT,
	created_at       TEXT NOT NULL,
	FOREIGN KEY (turn_id) REFERENCES conversation_turns(turn_id)
);
`

// #endregion schema

// #region records

// TurnRecord is one append-only conversation turn with full provenance:
// the grounding and routing decisions that produced it.
type TurnRecord struct {
	TurnID         string
	ConversationID string
	TenantID       string
	QueryText      string
	Mode           string
	GroundingJSON  string
	RoutingJSON    string
	CreatedAt      time.Time
}

// AuditRecord is the routing + response audit row, linked 1:1 to a turn.
type AuditRecord struct {
	TurnID       string
	Action       string
	Intent       string
	Confidence   float64
	ReasonCode   string
	Sources      []string
	ResponseText string
	CreatedAt    time.Time
}

// #endregion records

// #region store

// Store manages the audit database.
type Store struct {
	db *sql.DB
}

// NewStore opens the audit database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate audit: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion store

// #region record-turn

// RecordTurn writes a turn and its audit row in one transaction.
func (s *Store) RecordTurn(turn TurnRecord, audit AuditRecord) error {
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = time.Now().UTC()
	}
	if audit.CreatedAt.IsZero() {
		audit.CreatedAt = turn.CreatedAt
	}
	sourcesJSON, err := json.Marshal(audit.Sources)
	if err != nil {
		return fmt.Errorf("marshal sources: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO conversation_turns (turn_id, conversation_id, tenant_id, query_text, mode, grounding_json, routing_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		turn.TurnID, turn.ConversationID, turn.TenantID, turn.QueryText, turn.Mode,
		turn.GroundingJSON, turn.RoutingJSON, turn.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert turn: %w", err)
	}

	_, err = tx.Exec(
		`INSERT INTO routing_audit (turn_id, action, intent, confidence, reason_code, sources_json, response_text, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		audit.TurnID, audit.Action, audit.Intent, audit.Confidence,
		nullIfEmpty(audit.ReasonCode), string(sourcesJSON), nullIfEmpty(audit.ResponseText),
		audit.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert audit: %w", err)
	}

	return tx.Commit()
}

// #endregion record-turn

// #region queries

// ListTurns returns the most recent turns of a conversation, newest first.
func (s *Store) ListTurns(conversationID string, limit int) ([]TurnRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.Query(
		`SELECT turn_id, conversation_id, tenant_id, query_text, mode, grounding_json, routing_json, created_at
		 FROM conversation_turns WHERE conversation_id = ? ORDER BY created_at DESC LIMIT ?`,
		conversationID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var turns []TurnRecord
	for rows.Next() {
		var t TurnRecord
		var createdStr string
		if err := rows.Scan(&t.TurnID, &t.ConversationID, &t.TenantID, &t.QueryText, &t.Mode,
			&t.GroundingJSON, &t.RoutingJSON, &createdStr); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		t.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		turns = append(turns, t)
	}
	return turns, rows.Err()
}

// GetAudit reads the audit row of a turn.
func (s *Store) GetAudit(turnID string) (AuditRecord, error) {
	var a AuditRecord
	var reason, response sql.NullString
	var sourcesJSON string
	var createdStr string
	err := s.db.QueryRow(
		`SELECT turn_id, action, intent, confidence, reason_code, sources_json, response_text, created_at
		 FROM routing_audit WHERE turn_id = ?`, turnID,
	).Scan(&a.TurnID, &a.Action, &a.Intent, &a.Confidence, &reason, &sourcesJSON, &response, &createdStr)
	if err != nil {
		return AuditRecord{}, fmt.Errorf("get audit %s: %w", turnID, err)
	}
	if reason.Valid {
		a.ReasonCode = reason.String
	}
	if response.Valid {
		a.ResponseText = response.String
	}
	if err := json.Unmarshal([]byte(sourcesJSON), &a.Sources); err != nil {
		return AuditRecord{}, fmt.Errorf("unmarshal sources: %w", err)
	}
	a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return a, nil
}

// RecentAudits returns the newest audit rows across all conversations.
func (s *Store) RecentAudits(limit int) ([]AuditRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		`SELECT turn_id, action, intent, confidence, reason_code, sources_json, response_text, created_at
		 FROM routing_audit ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("recent audits: %w", err)
	}
	defer rows.Close()

	var audits []AuditRecord
	for rows.Next() {
		var a AuditRecord
		var reason, response sql.NullString
		var sourcesJSON, createdStr string
		if err := rows.Scan(&a.TurnID, &a.Action, &a.Intent, &a.Confidence, &reason, &sourcesJSON, &response, &createdStr); err != nil {
			return nil, fmt.Errorf("scan audit: %w", err)
		}
		if reason.Valid {
			a.ReasonCode = reason.String
		}
		if response.Valid {
			a.ResponseText = response.String
		}
		_ = json.Unmarshal([]byte(sourcesJSON), &a.Sources)
		a.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		audits = append(audits, a)
	}
	return audits, rows.Err()
}

// #endregion queries

// #region helpers

func nullIfEmpty(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
