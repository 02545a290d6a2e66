package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // Postgres driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver
	"github.com/pressly/goose/v3"

	"gwi.com/prompt-relay/internal/common"
	"gwi.com/prompt-relay/internal/logging"
	"gwi.com/prompt-relay/internal/store/migrations"
)

type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite3"
}

func (d Dialect) gooseDialect() string {
	if d == DialectPostgres {
		return "postgres"
	}
	return "sqlite3"
}

type SQLStore struct {
	db      *sql.DB
	dialect Dialect
	logger  logging.Logger
}

// ParseDatabaseURL maps a DATABASE_URL to a dialect and a driver DSN.
// postgres:// and postgresql:// URLs go to pgx; sqlite:// URLs (including the
// sqlite:///relative.db form) and bare paths go to SQLite.
func ParseDatabaseURL(databaseURL string) (Dialect, string) {
	switch {
	case strings.HasPrefix(databaseURL, "postgres://"), strings.HasPrefix(databaseURL, "postgresql://"):
		return DialectPostgres, databaseURL
	case strings.HasPrefix(databaseURL, "sqlite:///"):
		return DialectSQLite, strings.TrimPrefix(databaseURL, "sqlite:///")
	case strings.HasPrefix(databaseURL, "sqlite://"):
		return DialectSQLite, strings.TrimPrefix(databaseURL, "sqlite://")
	default:
		return DialectSQLite, databaseURL
	}
}

// NewSQLStore opens the database behind databaseURL and applies pending
// migrations. Migration output goes to logger.
func NewSQLStore(ctx context.Context, databaseURL string, logger logging.Logger) (*SQLStore, error) {
	dialect, dsn := ParseDatabaseURL(databaseURL)

	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dialect == DialectSQLite && strings.Contains(dsn, ":memory:") {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	s := NewSQLStoreFromDB(db, dialect)
	s.logger = logger
	if err = s.Migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}
	return s, nil
}

// NewSQLStoreFromDB wraps an already opened handle without migrating it.
func NewSQLStoreFromDB(db *sql.DB, dialect Dialect) *SQLStore {
	return &SQLStore{db: db, dialect: dialect, logger: logging.Discard()}
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) Dialect() Dialect {
	return s.dialect
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded migrations for the store's dialect.
func (s *SQLStore) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(gooseLogger{ctx: ctx, logger: s.logger})
	if err := goose.SetDialect(s.dialect.gooseDialect()); err != nil {
		return err
	}
	return gooseUpContext(ctx, s.db, string(s.dialect))
}

// gooseLogger sends goose output to the service logger instead of the
// standard log package.
type gooseLogger struct {
	ctx    context.Context
	logger logging.Logger
}

func (g gooseLogger) Printf(format string, v ...any) {
	g.logger.Info(g.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrations")
}

func (g gooseLogger) Fatalf(format string, v ...any) {
	g.logger.Error(g.ctx, strings.TrimSpace(fmt.Sprintf(format, v...)), "component", "migrations")
	os.Exit(1)
}

// rebind rewrites ? placeholders into $n for Postgres.
func (s *SQLStore) rebind(query string) string {
	if s.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// User methods

func (s *SQLStore) CreateUser(ctx context.Context, username, email, passwordHash string) (*User, error) {
	user := &User{
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
	query := s.rebind("INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?) RETURNING id")
	err := s.db.QueryRowContext(ctx, query, user.Username, user.Email, user.PasswordHash, user.CreatedAt).Scan(&user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert user: %w", err)
	}
	return user, nil
}

// GetUserByUsername returns common.ErrNotFound when no such user exists.
func (s *SQLStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	var user User
	query := s.rebind("SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?")
	err := s.db.QueryRowContext(ctx, query, username).Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query user: %w", err)
	}
	return &user, nil
}

// UserExists reports whether the username or the email is already taken.
func (s *SQLStore) UserExists(ctx context.Context, username, email string) (bool, error) {
	var n int
	query := s.rebind("SELECT COUNT(*) FROM users WHERE username = ? OR email = ?")
	if err := s.db.QueryRowContext(ctx, query, username, email).Scan(&n); err != nil {
		return false, fmt.Errorf("failed to check user uniqueness: %w", err)
	}
	return n > 0, nil
}

// History methods

// AppendHistory persists rec and fills in its ID and CreatedAt.
func (s *SQLStore) AppendHistory(ctx context.Context, rec *HistoryRecord) error {
	rec.CreatedAt = time.Now().UTC()
	query := s.rebind("INSERT INTO history (prompt, gemini, huggingface, claude, user_id, created_at) VALUES (?, ?, ?, ?, ?, ?) RETURNING id")
	err := s.db.QueryRowContext(ctx, query, rec.Prompt, rec.Gemini, rec.HuggingFace, rec.Claude, rec.UserID, rec.CreatedAt).Scan(&rec.ID)
	if err != nil {
		return fmt.Errorf("failed to insert history record: %w", err)
	}
	return nil
}

// ListHistory returns records in creation order. A nil ownerID lists every
// record; otherwise only the records owned by that user.
func (s *SQLStore) ListHistory(ctx context.Context, ownerID *int64) ([]HistoryRecord, error) {
	const columns = "SELECT id, prompt, gemini, huggingface, claude, user_id, created_at FROM history"

	var (
		rows *sql.Rows
		err  error
	)
	if ownerID == nil {
		rows, err = s.db.QueryContext(ctx, columns+" ORDER BY id ASC")
	} else {
		rows, err = s.db.QueryContext(ctx, s.rebind(columns+" WHERE user_id = ? ORDER BY id ASC"), *ownerID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var records []HistoryRecord
	for rows.Next() {
		var rec HistoryRecord
		var userID sql.NullInt64
		if err := rows.Scan(&rec.ID, &rec.Prompt, &rec.Gemini, &rec.HuggingFace, &rec.Claude, &userID, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if userID.Valid {
			id := userID.Int64
			rec.UserID = &id
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate history rows: %w", err)
	}
	return records, nil
}
