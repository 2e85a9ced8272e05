package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/xiaot623/roundtable/internal/domain"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db    *sql.DB
	locks keyedMutex
	now   func() time.Time
}

// NewSQLiteStore creates a new SQLite store.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// For in-memory SQLite, multiple connections create separate databases.
	if dsn == ":memory:" || strings.Contains(dsn, "mode=memory") {
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	store := &SQLiteStore{db: db, now: time.Now}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

func (s *SQLiteStore) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS discussions (
			discussion_id TEXT PRIMARY KEY,
			topic TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL,
			last_seq INTEGER NOT NULL DEFAULT 0,
			metadata TEXT
		)`,
		`CREATE TABLE IF NOT EXISTS messages (
			message_id TEXT PRIMARY KEY,
			discussion_id TEXT NOT NULL,
			seq INTEGER NOT NULL,
			sender_kind TEXT NOT NULL,
			sender_id TEXT NOT NULL,
			content TEXT NOT NULL,
			parent_id TEXT,
			run_id TEXT,
			created_at DATETIME NOT NULL,
			metadata TEXT,
			UNIQUE (discussion_id, seq),
			FOREIGN KEY (discussion_id) REFERENCES discussions(discussion_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_messages_discussion ON messages(discussion_id, seq)`,
		`CREATE TABLE IF NOT EXISTS participants (
			participant_id TEXT PRIMARY KEY,
			discussion_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			role TEXT NOT NULL,
			display_name TEXT NOT NULL,
			description TEXT NOT NULL,
			prompt_template TEXT NOT NULL,
			UNIQUE (discussion_id, position),
			FOREIGN KEY (discussion_id) REFERENCES discussions(discussion_id)
		)`,
	}

	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// CreateDiscussion creates a new discussion.
func (s *SQLiteStore) CreateDiscussion(ctx context.Context, topic string, metadata map[string]string) (*domain.Discussion, error) {
	now := s.now()
	d := &domain.Discussion{
		DiscussionID: newDiscussionID(),
		Topic:        topic,
		CreatedAt:    now,
		UpdatedAt:    now,
		Metadata:     cloneMetadata(metadata),
	}
	meta, err := json.Marshal(d.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO discussions (discussion_id, topic, created_at, updated_at, last_seq, metadata) VALUES (?, ?, ?, ?, 0, ?)`,
		d.DiscussionID, d.Topic, d.CreatedAt, d.UpdatedAt, string(meta))
	if err != nil {
		return nil, fmt.Errorf("failed to insert discussion: %w", err)
	}
	return d, nil
}

// GetDiscussion retrieves a discussion by ID.
func (s *SQLiteStore) GetDiscussion(ctx context.Context, discussionID string) (*domain.Discussion, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT discussion_id, topic, created_at, updated_at, last_seq, metadata FROM discussions WHERE discussion_id = ?`,
		discussionID)
	d, err := scanDiscussion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDiscussionNotFound, discussionID)
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ListDiscussions returns all discussions in creation order.
func (s *SQLiteStore) ListDiscussions(ctx context.Context) ([]domain.Discussion, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT discussion_id, topic, created_at, updated_at, last_seq, metadata FROM discussions ORDER BY rowid ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	discussions := []domain.Discussion{}
	for rows.Next() {
		d, err := scanDiscussion(rows)
		if err != nil {
			return nil, err
		}
		discussions = append(discussions, *d)
	}
	return discussions, rows.Err()
}

// DeleteDiscussion removes a discussion with its transcript and roster.
func (s *SQLiteStore) DeleteDiscussion(ctx context.Context, discussionID string) error {
	unlock := s.locks.Lock(discussionID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"participants", "messages"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE discussion_id = ?`, discussionID); err != nil {
			return fmt.Errorf("failed to delete %s: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM discussions WHERE discussion_id = ?`, discussionID)
	if err != nil {
		return fmt.Errorf("failed to delete discussion: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrDiscussionNotFound, discussionID)
	}
	return tx.Commit()
}

// SaveParticipants records the roster of a discussion. A roster is saved once.
func (s *SQLiteStore) SaveParticipants(ctx context.Context, discussionID string, participants []domain.Participant) error {
	unlock := s.locks.Lock(discussionID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var n int
	err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM discussions WHERE discussion_id = ?`, discussionID).Scan(&n)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", domain.ErrDiscussionNotFound, discussionID)
	}
	err = tx.QueryRowContext(ctx, `SELECT COUNT(1) FROM participants WHERE discussion_id = ?`, discussionID).Scan(&n)
	if err != nil {
		return err
	}
	if n > 0 {
		return fmt.Errorf("%w: %s", domain.ErrRosterAssigned, discussionID)
	}

	for i, p := range participants {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO participants (participant_id, discussion_id, position, role, display_name, description, prompt_template)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			p.ParticipantID, discussionID, i, string(p.Role), p.DisplayName, p.Description, p.PromptTemplate)
		if err != nil {
			return fmt.Errorf("failed to insert participant: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit participants: %w", err)
	}
	return nil
}

// GetParticipants returns the roster in assignment order; empty when none was saved.
func (s *SQLiteStore) GetParticipants(ctx context.Context, discussionID string) ([]domain.Participant, error) {
	if _, err := s.GetDiscussion(ctx, discussionID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT participant_id, discussion_id, role, display_name, description, prompt_template
		 FROM participants WHERE discussion_id = ? ORDER BY position ASC`, discussionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	participants := []domain.Participant{}
	for rows.Next() {
		var p domain.Participant
		var role string
		if err := rows.Scan(&p.ParticipantID, &p.DiscussionID, &role, &p.DisplayName, &p.Description, &p.PromptTemplate); err != nil {
			return nil, err
		}
		p.Role = domain.RoleTag(role)
		participants = append(participants, p)
	}
	return participants, rows.Err()
}

// AppendMessage validates and appends a message inside a transaction.
func (s *SQLiteStore) AppendMessage(ctx context.Context, discussionID string, draft domain.MessageDraft) (*domain.Message, error) {
	if err := validateDraft(draft); err != nil {
		return nil, err
	}
	meta, err := json.Marshal(draft.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}

	unlock := s.locks.Lock(discussionID)
	defer unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var lastSeq int64
	err = tx.QueryRowContext(ctx, `SELECT last_seq FROM discussions WHERE discussion_id = ?`, discussionID).Scan(&lastSeq)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDiscussionNotFound, discussionID)
	}
	if err != nil {
		return nil, err
	}

	if draft.ParentID != "" {
		var n int
		err := tx.QueryRowContext(ctx,
			`SELECT COUNT(1) FROM messages WHERE message_id = ? AND discussion_id = ?`,
			draft.ParentID, discussionID).Scan(&n)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidParent, draft.ParentID)
		}
	}

	msg := &domain.Message{
		MessageID:    newMessageID(),
		DiscussionID: discussionID,
		Seq:          lastSeq + 1,
		SenderKind:   draft.SenderKind,
		SenderID:     draft.SenderID,
		Content:      draft.Content,
		ParentID:     draft.ParentID,
		RunID:        draft.RunID,
		CreatedAt:    s.now(),
		Metadata:     draft.Metadata,
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO messages (message_id, discussion_id, seq, sender_kind, sender_id, content, parent_id, run_id, created_at, metadata)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		msg.MessageID, msg.DiscussionID, msg.Seq, string(msg.SenderKind), msg.SenderID, msg.Content,
		nullString(msg.ParentID), nullString(msg.RunID), msg.CreatedAt, string(meta))
	if err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE discussions SET last_seq = ?, updated_at = ? WHERE discussion_id = ?`,
		msg.Seq, msg.CreatedAt, discussionID)
	if err != nil {
		return nil, fmt.Errorf("failed to update discussion: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit message: %w", err)
	}
	return msg, nil
}

const messageColumns = `message_id, discussion_id, seq, sender_kind, sender_id, content, parent_id, run_id, created_at, metadata`

// GetMessage retrieves one message of a discussion.
func (s *SQLiteStore) GetMessage(ctx context.Context, discussionID, messageID string) (*domain.Message, error) {
	if _, err := s.GetDiscussion(ctx, discussionID); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE discussion_id = ? AND message_id = ?`,
		discussionID, messageID)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", domain.ErrMessageNotFound, messageID)
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

// GetMessages returns the full transcript in sequence order.
func (s *SQLiteStore) GetMessages(ctx context.Context, discussionID string) ([]domain.Message, error) {
	if _, err := s.GetDiscussion(ctx, discussionID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE discussion_id = ? ORDER BY seq ASC`, discussionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	messages := []domain.Message{}
	for rows.Next() {
		msg, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, *msg)
	}
	return messages, rows.Err()
}

// LastMessage returns the newest message, or nil for an empty discussion.
func (s *SQLiteStore) LastMessage(ctx context.Context, discussionID string) (*domain.Message, error) {
	if _, err := s.GetDiscussion(ctx, discussionID); err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx,
		`SELECT `+messageColumns+` FROM messages WHERE discussion_id = ? ORDER BY seq DESC LIMIT 1`, discussionID)
	msg, err := scanMessage(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return msg, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDiscussion(row scanner) (*domain.Discussion, error) {
	var d domain.Discussion
	var metadata sql.NullString
	if err := row.Scan(&d.DiscussionID, &d.Topic, &d.CreatedAt, &d.UpdatedAt, &d.LastSeq, &metadata); err != nil {
		return nil, err
	}
	if metadata.Valid && metadata.String != "" && metadata.String != "null" {
		if err := json.Unmarshal([]byte(metadata.String), &d.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode discussion metadata: %w", err)
		}
	}
	return &d, nil
}

func scanMessage(row scanner) (*domain.Message, error) {
	var msg domain.Message
	var senderKind string
	var parentID, runID, metadata sql.NullString
	err := row.Scan(&msg.MessageID, &msg.DiscussionID, &msg.Seq, &senderKind, &msg.SenderID, &msg.Content,
		&parentID, &runID, &msg.CreatedAt, &metadata)
	if err != nil {
		return nil, err
	}
	msg.SenderKind = domain.SenderKind(senderKind)
	msg.ParentID = parentID.String
	msg.RunID = runID.String
	if metadata.Valid && metadata.String != "" {
		if err := json.Unmarshal([]byte(metadata.String), &msg.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode message metadata: %w", err)
		}
	}
	return &msg, nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
