package app

import (
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/antlu/community-bot/internal/crypto"
)

// insertBatchSize keeps bulk inserts under sqlite's bound parameter limit.
const insertBatchSize = 300

// Ledger is an append-only audit log of archived tickets and drawn
// giveaways. Nothing is ever restored from it.
type Ledger struct {
	db     *sql.DB
	cipher *crypto.Cipher
}

type TicketArchive struct {
	ChannelID    string
	ChannelName  string
	GuildID      string
	ClosedBy     string
	Topic        string
	Summary      string
	Transcript   string
	MessageCount int
	ClosedAt     time.Time
}

type GiveawayResult struct {
	MessageID   string
	GuildID     string
	Title       string
	WinnerID    string
	Entrants    []string
	StartedAt   time.Time
	ConcludedAt time.Time
}

func OpenLedger(path string, cipher *crypto.Cipher) (*Ledger, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		PRAGMA foreign_keys = ON;

		CREATE TABLE IF NOT EXISTS ticket_archives (
			channel_id TEXT PRIMARY KEY,
			channel_name TEXT NOT NULL,
			guild_id TEXT NOT NULL,
			closed_by TEXT NOT NULL,
			topic TEXT,
			summary TEXT,
			transcript TEXT NOT NULL,
			message_count INTEGER NOT NULL,
			closed_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS giveaway_results (
			message_id TEXT PRIMARY KEY,
			guild_id TEXT NOT NULL,
			title TEXT NOT NULL,
			winner_id TEXT,
			started_at TEXT NOT NULL,
			concluded_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS giveaway_entrants (
			message_id TEXT,
			user_id TEXT,
			position INTEGER NOT NULL,
			PRIMARY KEY (message_id, user_id),
			FOREIGN KEY (message_id) REFERENCES giveaway_results(message_id) ON DELETE CASCADE
		);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("error creating schema: %w", err)
	}

	return &Ledger{db: db, cipher: cipher}, nil
}

func (l *Ledger) Close() error {
	return l.db.Close()
}

func (l *Ledger) RecordTicketArchive(rec TicketArchive) error {
	transcript, err := l.cipher.Encrypt(rec.Transcript)
	if err != nil {
		return fmt.Errorf("error encrypting transcript: %w", err)
	}

	_, err = l.db.Exec(`
		INSERT INTO ticket_archives
			(channel_id, channel_name, guild_id, closed_by, topic, summary, transcript, message_count, closed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ChannelID, rec.ChannelName, rec.GuildID, rec.ClosedBy,
		nullable(rec.Topic), nullable(rec.Summary),
		transcript, rec.MessageCount, rec.ClosedAt.UTC().Format(time.RFC3339),
	)
	return err
}

func (l *Ledger) TicketArchive(channelID string) (TicketArchive, error) {
	var (
		rec              TicketArchive
		topic, summary   sql.NullString
		transcript, when string
	)

	err := l.db.QueryRow(`
		SELECT channel_id, channel_name, guild_id, closed_by, topic, summary, transcript, message_count, closed_at
		FROM ticket_archives WHERE channel_id = ?
	`, channelID).Scan(
		&rec.ChannelID, &rec.ChannelName, &rec.GuildID, &rec.ClosedBy,
		&topic, &summary, &transcript, &rec.MessageCount, &when,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return TicketArchive{}, ErrNotFound
	}
	if err != nil {
		return TicketArchive{}, err
	}

	rec.Topic, rec.Summary = topic.String, summary.String
	if rec.Transcript, err = l.cipher.Decrypt(transcript); err != nil {
		return TicketArchive{}, fmt.Errorf("error decrypting transcript: %w", err)
	}
	if rec.ClosedAt, err = time.Parse(time.RFC3339, when); err != nil {
		return TicketArchive{}, err
	}

	return rec, nil
}

// RecordGiveawayResult stores a drawn giveaway once; repeated calls for
// the same message are ignored.
func (l *Ledger) RecordGiveawayResult(res GiveawayResult) error {
	exists, err := l.recordExists("giveaway_results", "message_id", res.MessageID)
	if err != nil || exists {
		return err
	}

	tx, err := l.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`
		INSERT INTO giveaway_results (message_id, guild_id, title, winner_id, started_at, concluded_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		res.MessageID, res.GuildID, res.Title, nullable(res.WinnerID),
		res.StartedAt.UTC().Format(time.RFC3339), res.ConcludedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return err
	}

	entrantValues := make([][]any, len(res.Entrants))
	for i, userID := range res.Entrants {
		entrantValues[i] = []any{res.MessageID, userID, i}
	}
	for chunk := range slices.Chunk(entrantValues, insertBatchSize) {
		if err := bulkInsert(tx, "giveaway_entrants", []string{"message_id", "user_id", "position"}, chunk); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (l *Ledger) GiveawayResult(messageID string) (GiveawayResult, error) {
	var (
		res                GiveawayResult
		winner             sql.NullString
		started, concluded string
	)

	err := l.db.QueryRow(`
		SELECT message_id, guild_id, title, winner_id, started_at, concluded_at
		FROM giveaway_results WHERE message_id = ?
	`, messageID).Scan(&res.MessageID, &res.GuildID, &res.Title, &winner, &started, &concluded)
	if errors.Is(err, sql.ErrNoRows) {
		return GiveawayResult{}, ErrNotFound
	}
	if err != nil {
		return GiveawayResult{}, err
	}
	res.WinnerID = winner.String

	if res.StartedAt, err = time.Parse(time.RFC3339, started); err != nil {
		return GiveawayResult{}, err
	}
	if res.ConcludedAt, err = time.Parse(time.RFC3339, concluded); err != nil {
		return GiveawayResult{}, err
	}

	rows, err := l.db.Query("SELECT user_id FROM giveaway_entrants WHERE message_id = ? ORDER BY position", messageID)
	if err != nil {
		return GiveawayResult{}, err
	}
	defer rows.Close()

	for rows.Next() {
		var userID string
		if err := rows.Scan(&userID); err != nil {
			return GiveawayResult{}, err
		}
		res.Entrants = append(res.Entrants, userID)
	}

	return res, rows.Err()
}

func (l *Ledger) recordExists(tableName, columnName, value string) (bool, error) {
	var exists bool
	query := fmt.Sprintf("SELECT EXISTS (SELECT 1 FROM %s WHERE %s = ?)", tableName, columnName)
	err := l.db.QueryRow(query, value).Scan(&exists)
	return exists, err
}

func bulkInsert(tx *sql.Tx, tableName string, columns []string, valGroups [][]any) error {
	if len(valGroups) == 0 {
		return nil
	}

	var (
		placeholders []string
		args         []any
	)

	for _, valGroup := range valGroups {
		if len(valGroup) != len(columns) {
			return errors.New("values count doesn't match columns count")
		}

		placeholders = append(placeholders, "("+strings.TrimRight(strings.Repeat("?,", len(columns)), ",")+")")
		args = append(args, valGroup...)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES %s",
		tableName,
		strings.Join(columns, ","),
		strings.Join(placeholders, ","),
	)

	_, err := tx.Exec(query, args...)

	return err
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
