/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
)

const themeSchema = `
	PRAGMA journal_mode=WAL;

	CREATE TABLE IF NOT EXISTS theme (
		word_a TEXT NOT NULL,
		word_b TEXT NOT NULL,
		group_id TEXT NOT NULL DEFAULT '',
		author_id TEXT NOT NULL DEFAULT '',
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(word_a, word_b, group_id)
	);
	CREATE INDEX IF NOT EXISTS idx_theme_group ON theme(group_id);
`

// Global themes are stored with an empty group id.
var defaultThemes = []WordPair{
	{"cat", "dog"},
	{"coffee", "tea"},
	{"beach", "pool"},
	{"piano", "guitar"},
	{"pizza", "burger"},
	{"train", "bus"},
	{"summer", "winter"},
	{"library", "bookstore"},
	{"doctor", "nurse"},
	{"soccer", "basketball"},
	{"rice", "bread"},
	{"movie theater", "concert hall"},
	{"umbrella", "raincoat"},
	{"email", "letter"},
	{"sushi", "sashimi"},
	{"zoo", "aquarium"},
	{"camping", "hiking"},
	{"birthday", "christmas"},
	{"smartphone", "laptop"},
	{"mountain", "volcano"},
	{"chocolate", "candy"},
	{"wedding", "graduation"},
	{"bicycle", "motorcycle"},
	{"dentist", "barber"},
	{"ghost", "zombie"},
	{"ramen", "spaghetti"},
	{"museum", "gallery"},
	{"airport", "train station"},
	{"snow", "rain"},
	{"homework", "exam"},
}

type themeRow struct {
	WordA    string `db:"word_a"`
	WordB    string `db:"word_b"`
	GroupID  string `db:"group_id"`
	AuthorID string `db:"author_id"`
}

// ThemeStore keeps word pairs in sqlite and serves them as a ThemeSource.
type ThemeStore struct {
	db *sqlx.DB
}

func OpenThemeStore(path string) (*ThemeStore, error) {
	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open theme database: %w", err)
	}

	if _, err := db.Exec(themeSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize theme database: %w", err)
	}

	return &ThemeStore{db: db}, nil
}

func (s *ThemeStore) Close() error {
	return s.db.Close()
}

// SeedDefaults inserts the built-in global themes that are not stored yet and
// returns how many were added.
func (s *ThemeStore) SeedDefaults(ctx context.Context) (int64, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	var added int64
	for _, pair := range defaultThemes {
		res, err := tx.NamedExecContext(ctx, `
			INSERT OR IGNORE INTO theme (word_a, word_b, group_id, author_id)
			VALUES (:word_a, :word_b, :group_id, :author_id)`,
			themeRow{WordA: pair[0], WordB: pair[1]})
		if err != nil {
			return 0, fmt.Errorf("seed theme %q/%q: %w", pair[0], pair[1], err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return 0, err
		}
		added += n
	}

	return added, tx.Commit()
}

func (s *ThemeStore) FetchThemePairs(ctx context.Context, groupID string) ([]WordPair, error) {
	var rows []themeRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT word_a, word_b, group_id, author_id
		FROM theme
		WHERE group_id IN ('', ?)
		ORDER BY rowid`, groupID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
	}

	pairs := make([]WordPair, 0, len(rows))
	for _, row := range rows {
		pairs = append(pairs, WordPair{row.WordA, row.WordB})
	}

	return pairs, nil
}

// AddTheme stores the two words in text as a theme for groupID. Adding a
// pair the group already has is not an error.
func (s *ThemeStore) AddTheme(ctx context.Context, groupID, authorID, text string) (WordPair, error) {
	pair, err := parseThemeWords(text)
	if err != nil {
		return WordPair{}, err
	}

	if groupID == "" {
		return WordPair{}, failure(KindInvalidInput, "themes must belong to a group")
	}

	_, err = s.db.NamedExecContext(ctx, `
		INSERT OR IGNORE INTO theme (word_a, word_b, group_id, author_id)
		VALUES (:word_a, :word_b, :group_id, :author_id)`,
		themeRow{WordA: pair[0], WordB: pair[1], GroupID: groupID, AuthorID: authorID})
	if err != nil {
		return WordPair{}, fmt.Errorf("add theme: %w", err)
	}

	return pair, nil
}

// parseThemeWords splits on any whitespace, ideographic spaces included.
func parseThemeWords(text string) (WordPair, error) {
	words := strings.Fields(text)
	if len(words) != 2 {
		return WordPair{}, failure(KindInvalidInput, fmt.Sprintf("a theme is exactly two words, got %d", len(words)))
	}

	if words[0] == words[1] {
		return WordPair{}, failure(KindInvalidInput, "the two words must differ")
	}

	return WordPair{words[0], words[1]}, nil
}
