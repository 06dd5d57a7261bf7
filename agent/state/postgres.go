package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/uptrace/bun"
)

type conversationRow struct {
	bun.BaseModel `bun:"table:conversations,alias:c"`

	ID            int64     `bun:"id,pk,autoincrement"`
	ContactNumber string    `bun:"contact_number,notnull"`
	RestaurantID  string    `bun:"restaurant_id,notnull"`
	Messages      []Turn    `bun:"messages,type:jsonb,notnull"`
	LastUpdated   time.Time `bun:"last_updated,notnull"`
}

// keepLastTurns concatenates the stored and incoming turns and keeps the
// newest ? of them.
const keepLastTurns = `messages = (
	SELECT COALESCE(jsonb_agg(m.e ORDER BY m.n), '[]'::jsonb)
	FROM jsonb_array_elements(c.messages || EXCLUDED.messages) WITH ORDINALITY AS m(e, n)
	WHERE m.n > jsonb_array_length(c.messages || EXCLUDED.messages) - ?
)`

// PostgresHistoryStore keeps one row per conversation with the turns in a
// JSONB array, trimmed to the newest maxTurns entries.
type PostgresHistoryStore struct {
	db       bun.IDB
	maxTurns int
}

var _ HistoryStore = (*PostgresHistoryStore)(nil)

func NewPostgresHistoryStore(db bun.IDB) *PostgresHistoryStore {
	return &PostgresHistoryStore{db: db, maxTurns: defaultMaxTurns}
}

// MigratePostgres creates the conversations table.
func MigratePostgres(ctx context.Context, db bun.IDB) error {
	if _, err := db.NewCreateTable().Model((*conversationRow)(nil)).IfNotExists().Exec(ctx); err != nil {
		return fmt.Errorf("create conversations table: %w", err)
	}
	if _, err := db.NewCreateIndex().
		Model((*conversationRow)(nil)).
		Index("conversations_key_idx").
		Unique().
		Column("contact_number", "restaurant_id").
		IfNotExists().
		Exec(ctx); err != nil {
		return fmt.Errorf("create conversations index: %w", err)
	}
	return nil
}

func (s *PostgresHistoryStore) Append(ctx context.Context, key ConversationKey, turn Turn) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}

	row := conversationRow{
		ContactNumber: key.ContactNumber,
		RestaurantID:  key.RestaurantID,
		Messages:      []Turn{turn},
		LastUpdated:   turn.Timestamp,
	}
	if _, err := s.appendQuery(&row).Exec(ctx); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

func (s *PostgresHistoryStore) appendQuery(row *conversationRow) *bun.InsertQuery {
	q := s.db.NewInsert().
		Model(row).
		On("CONFLICT (contact_number, restaurant_id) DO UPDATE")
	if s.maxTurns > 0 {
		q = q.Set(keepLastTurns, s.maxTurns)
	} else {
		q = q.Set("messages = c.messages || EXCLUDED.messages")
	}
	return q.Set("last_updated = EXCLUDED.last_updated")
}

func (s *PostgresHistoryStore) Recent(ctx context.Context, key ConversationKey, limit int) ([]Turn, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}

	var row conversationRow
	err := s.db.NewSelect().
		Model(&row).
		Where("c.contact_number = ?", key.ContactNumber).
		Where("c.restaurant_id = ?", key.RestaurantID).
		Limit(1).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select conversation: %w", err)
	}
	return lastN(row.Messages, limit), nil
}

func (s *PostgresHistoryStore) Delete(ctx context.Context, key ConversationKey) error {
	if err := key.Validate(); err != nil {
		return err
	}
	_, err := s.db.NewDelete().
		Model((*conversationRow)(nil)).
		Where("contact_number = ?", key.ContactNumber).
		Where("restaurant_id = ?", key.RestaurantID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("delete conversation: %w", err)
	}
	return nil
}
