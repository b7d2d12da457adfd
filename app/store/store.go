package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// ErrNotFound indicates that the entity hasn't been found in the database.
var ErrNotFound = errors.New("not found")

// ErrDuplicate indicates that the entity already exists.
var ErrDuplicate = errors.New("already exists")

// Store provides methods to store/load data.
type Store struct {
	db *sqlx.DB
}

// New prepares the database.
func New(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	// sqlite allows a single writer, and every connection to ":memory:"
	// is a database of its own
	db.SetMaxOpenConns(1)

	const schema = `
		CREATE TABLE IF NOT EXISTS players (
			name TEXT PRIMARY KEY,
			rating INTEGER NOT NULL DEFAULT 0,
			games_played INTEGER NOT NULL DEFAULT 0,
			seed INTEGER
		);
		CREATE TABLE IF NOT EXISTS matches (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			season INTEGER NOT NULL,
			position INTEGER NOT NULL,
			round TEXT NOT NULL DEFAULT '',
			player_a TEXT NOT NULL,
			player_b TEXT NOT NULL,
			legs_a INTEGER NOT NULL,
			legs_b INTEGER NOT NULL,
			avg_a DOUBLE PRECISION NOT NULL,
			avg_b DOUBLE PRECISION NOT NULL,
			delta_a INTEGER NOT NULL DEFAULT 0,
			delta_b INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS matches_season ON matches (season, position);
		CREATE TABLE IF NOT EXISTS seasons (
			number INTEGER PRIMARY KEY,
			factor DOUBLE PRECISION NOT NULL DEFAULT 1,
			started_at DATETIME DEFAULT CURRENT_TIMESTAMP
		);
		INSERT OR IGNORE INTO seasons (number) VALUES (1);
    `

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Season returns the number of the current season.
func (s *Store) Season(ctx context.Context) (int, error) {
	var season int
	if err := s.db.GetContext(ctx, &season, `SELECT MAX(number) FROM seasons`); err != nil {
		return 0, fmt.Errorf("get season: %w", err)
	}
	return season, nil
}

// Create inserts a new player into the storage.
func (s *Store) Create(ctx context.Context, pl Player) error {
	const query = `INSERT INTO players (name, rating, games_played, seed)
					VALUES (:name, :rating, :games_played, :seed)
					ON CONFLICT (name) DO NOTHING`

	res, err := s.db.NamedExecContext(ctx, query, pl)
	if err != nil {
		return fmt.Errorf("insert player: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("player %q: %w", pl.Name, ErrDuplicate)
	}

	return nil
}

// List returns all players ordered by name.
func (s *Store) List(ctx context.Context) ([]Player, error) {
	var players []Player
	if err := s.db.SelectContext(ctx, &players, `SELECT * FROM players ORDER BY name`); err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	return players, nil
}

// Get returns a player by the given name.
func (s *Store) Get(ctx context.Context, name string) (Player, error) {
	var pl Player
	err := s.db.GetContext(ctx, &pl, `SELECT * FROM players WHERE name = ?`, name)
	if errors.Is(err, sql.ErrNoRows) {
		return Player{}, fmt.Errorf("player %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return Player{}, fmt.Errorf("get player: %w", err)
	}
	return pl, nil
}

// Matches returns the log of the given season, oldest first.
func (s *Store) Matches(ctx context.Context, season int) ([]Match, error) {
	var matches []Match
	err := s.db.SelectContext(ctx, &matches,
		`SELECT * FROM matches WHERE season = ? ORDER BY position, id`, season)
	if err != nil {
		return nil, fmt.Errorf("select: %w", err)
	}
	return matches, nil
}

// Snapshot is the full result of a replay, written at once.
type Snapshot struct {
	Season  int
	Players []Player
	Matches []Match // the complete log of the season in order
	Deleted []int64 // IDs of matches removed from the log
}

// Save writes the snapshot in a single transaction. Matches without an ID
// are inserted, the others updated; the log positions follow the order of
// Snapshot.Matches.
func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	const upsertPlayer = `INSERT INTO players (name, rating, games_played, seed)
					VALUES (:name, :rating, :games_played, :seed)
					ON CONFLICT (name) DO UPDATE SET
						rating = excluded.rating,
						games_played = excluded.games_played,
						seed = excluded.seed`

	for _, pl := range snap.Players {
		if _, err := tx.NamedExecContext(ctx, upsertPlayer, pl); err != nil {
			return fmt.Errorf("upsert player %q: %w", pl.Name, err)
		}
	}

	for _, id := range snap.Deleted {
		if _, err := tx.ExecContext(ctx, `DELETE FROM matches WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete match %d: %w", id, err)
		}
	}

	const insertMatch = `INSERT INTO matches
					(season, position, round, player_a, player_b, legs_a, legs_b, avg_a, avg_b, delta_a, delta_b)
					VALUES (:season, :position, :round, :player_a, :player_b, :legs_a, :legs_b,
						:avg_a, :avg_b, :delta_a, :delta_b)`

	const updateMatch = `UPDATE matches SET
						season = :season,
						position = :position,
						round = :round,
						player_a = :player_a,
						player_b = :player_b,
						legs_a = :legs_a,
						legs_b = :legs_b,
						avg_a = :avg_a,
						avg_b = :avg_b,
						delta_a = :delta_a,
						delta_b = :delta_b
					WHERE id = :id`

	for idx, m := range snap.Matches {
		m.Season, m.Position = snap.Season, idx

		query := updateMatch
		if m.ID == 0 {
			query = insertMatch
		}

		if _, err := tx.NamedExecContext(ctx, query, m); err != nil {
			return fmt.Errorf("save match %s: %w", m, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// StartSeason opens a new season with an empty log and stores the given
// players with their carried over rating as the seed of the new season.
func (s *Store) StartSeason(ctx context.Context, factor float64, players []Player) (int, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	var season int
	if err := tx.GetContext(ctx, &season, `SELECT MAX(number) + 1 FROM seasons`); err != nil {
		return 0, fmt.Errorf("next season: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `INSERT INTO seasons (number, factor) VALUES (?, ?)`, season, factor); err != nil {
		return 0, fmt.Errorf("insert season: %w", err)
	}

	const query = `UPDATE players SET
						rating = :rating,
						games_played = :games_played,
						seed = :seed
					WHERE name = :name`

	for _, pl := range players {
		if _, err := tx.NamedExecContext(ctx, query, pl); err != nil {
			return 0, fmt.Errorf("update player %q: %w", pl.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit transaction: %w", err)
	}

	return season, nil
}
