package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/gutensearch/gutensearch/pkg/config"
	apperrors "github.com/gutensearch/gutensearch/pkg/errors"
	"github.com/gutensearch/gutensearch/pkg/postgres"
)

// PostgresBackend stores metadata in a books table and postings in a
// (word, book_id) composite-key table. Counts are derived from actual row
// counts, so re-indexing never skews the stats.
type PostgresBackend struct {
	client *postgres.Client
}

// NewPostgresBackend connects to PostgreSQL and bootstraps the schema.
func NewPostgresBackend(cfg config.PostgresConfig) (*PostgresBackend, error) {
	client, err := postgres.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrBackendUnavailable, err)
	}
	b := &PostgresBackend{client: client}
	if err := b.initSchema(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("initialising schema: %w", err)
	}
	return b, nil
}

func (b *PostgresBackend) initSchema(ctx context.Context) error {
	return b.client.InTx(ctx, func(tx *sql.Tx) error {
		statements := []string{
			`CREATE TABLE IF NOT EXISTS books (
				book_id INTEGER PRIMARY KEY,
				title TEXT,
				author TEXT,
				language VARCHAR(10),
				year INTEGER,
				word_count INTEGER,
				unique_words INTEGER,
				indexed_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
			)`,
			`CREATE TABLE IF NOT EXISTS word_index (
				word VARCHAR,
				book_id INTEGER,
				PRIMARY KEY (word, book_id)
			)`,
			`CREATE INDEX IF NOT EXISTS idx_word_index_word ON word_index(word)`,
		}
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("executing %q: %w", stmt[:30], err)
			}
		}
		return nil
	})
}

func (b *PostgresBackend) StoreMetadata(ctx context.Context, metadata *BookMetadata) error {
	var year sql.NullInt32
	if metadata.Year != nil {
		year = sql.NullInt32{Int32: int32(*metadata.Year), Valid: true}
	}
	_, err := b.client.DB.ExecContext(ctx, `
		INSERT INTO books (book_id, title, author, language, year, word_count, unique_words)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (book_id) DO UPDATE SET
			title = EXCLUDED.title,
			author = EXCLUDED.author,
			language = EXCLUDED.language,
			year = EXCLUDED.year,
			word_count = EXCLUDED.word_count,
			unique_words = EXCLUDED.unique_words,
			indexed_at = CURRENT_TIMESTAMP`,
		int32(metadata.BookID), metadata.Title, metadata.Author, metadata.Language,
		year, metadata.WordCount, metadata.UniqueWords,
	)
	if err != nil {
		return fmt.Errorf("upserting metadata for book %d: %w", metadata.BookID, err)
	}
	return nil
}

func (b *PostgresBackend) GetMetadata(ctx context.Context, bookID uint32) (*BookMetadata, error) {
	row := b.client.DB.QueryRowContext(ctx, `
		SELECT book_id, title, author, language, year, word_count, unique_words
		FROM books WHERE book_id = $1`, int32(bookID))

	var metadata BookMetadata
	var id int32
	var year sql.NullInt32
	err := row.Scan(&id, &metadata.Title, &metadata.Author, &metadata.Language,
		&year, &metadata.WordCount, &metadata.UniqueWords)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading metadata for book %d: %w", bookID, err)
	}
	metadata.BookID = uint32(id)
	if year.Valid {
		y := int(year.Int32)
		metadata.Year = &y
	}
	return &metadata, nil
}

func (b *PostgresBackend) IsIndexed(ctx context.Context, bookID uint32) (bool, error) {
	var exists bool
	err := b.client.DB.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM books WHERE book_id = $1)`, int32(bookID),
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking book %d: %w", bookID, err)
	}
	return exists, nil
}

func (b *PostgresBackend) ListIndexed(ctx context.Context) (map[uint32]struct{}, error) {
	rows, err := b.client.DB.QueryContext(ctx, `SELECT book_id FROM books`)
	if err != nil {
		return nil, fmt.Errorf("listing indexed books: %w", err)
	}
	defer rows.Close()

	bookIDs := make(map[uint32]struct{})
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning book id: %w", err)
		}
		bookIDs[uint32(id)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating indexed books: %w", err)
	}
	return bookIDs, nil
}

func (b *PostgresBackend) AddPosting(ctx context.Context, word string, bookID uint32) error {
	_, err := b.client.DB.ExecContext(ctx, `
		INSERT INTO word_index (word, book_id) VALUES ($1, $2)
		ON CONFLICT (word, book_id) DO NOTHING`, word, int32(bookID))
	if err != nil {
		return fmt.Errorf("adding posting %q -> %d: %w", word, bookID, err)
	}
	return nil
}

func (b *PostgresBackend) SearchWord(ctx context.Context, word string) (map[uint32]struct{}, error) {
	rows, err := b.client.DB.QueryContext(ctx,
		`SELECT book_id FROM word_index WHERE word = $1`, word)
	if err != nil {
		return nil, fmt.Errorf("searching word %q: %w", word, err)
	}
	defer rows.Close()

	bookIDs := make(map[uint32]struct{})
	for rows.Next() {
		var id int32
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning posting for %q: %w", word, err)
		}
		bookIDs[uint32(id)] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating postings for %q: %w", word, err)
	}
	return bookIDs, nil
}

func (b *PostgresBackend) Stats(ctx context.Context) (int, int, error) {
	var books, words int
	if err := b.client.DB.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM books`).Scan(&books); err != nil {
		return 0, 0, fmt.Errorf("counting books: %w", err)
	}
	if err := b.client.DB.QueryRowContext(ctx,
		`SELECT COUNT(DISTINCT word) FROM word_index`).Scan(&words); err != nil {
		return 0, 0, fmt.Errorf("counting distinct words: %w", err)
	}
	return books, words, nil
}

func (b *PostgresBackend) TestConnection(ctx context.Context) error {
	var one int
	if err := b.client.DB.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrBackendUnavailable, err)
	}
	return nil
}

func (b *PostgresBackend) Close() error {
	return b.client.Close()
}
