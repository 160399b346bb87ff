// Package topic is the relational store of accepted capstone topics.
package topic

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx"
	_ "modernc.org/sqlite"             // registers "sqlite"

	"github.com/SimondaVinciii/capbot-agent/internal/domain"
	domtopic "github.com/SimondaVinciii/capbot-agent/internal/domain/topic"
	"github.com/SimondaVinciii/capbot-agent/internal/repository/topic/migrations"
)

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Config selects the driver and data source.
type Config struct {
	Driver string
	DSN    string
}

// Repo reads and writes topics over database/sql.
type Repo struct {
	db     *sql.DB
	driver string
}

// Open connects, applies pending migrations and returns the repository.
func Open(ctx context.Context, cfg Config) (*Repo, error) {
	dir, dsn, err := dialect(cfg)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if cfg.Driver == DriverSQLite {
		// one writer at a time keeps sqlite out of SQLITE_BUSY under load
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	r := &Repo{db: db, driver: cfg.Driver}
	if err := r.migrate(ctx, dir); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return r, nil
}

func dialect(cfg Config) (dir, dsn string, err error) {
	switch cfg.Driver {
	case DriverSQLite:
		dsn = cfg.DSN
		if dsn == "" {
			return "", "", fmt.Errorf("sqlite dsn is required: %w", domain.ErrConfiguration)
		}
		if !strings.Contains(dsn, "?") && dsn != ":memory:" {
			dsn += "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
		}
		return "sqlite", dsn, nil
	case DriverPostgres:
		if cfg.DSN == "" {
			return "", "", fmt.Errorf("postgres dsn is required: %w", domain.ErrConfiguration)
		}
		return "postgres", cfg.DSN, nil
	default:
		return "", "", fmt.Errorf("unknown repository driver %q: %w", cfg.Driver, domain.ErrConfiguration)
	}
}

// Close closes the connection pool.
func (r *Repo) Close() error {
	return r.db.Close()
}

// Ping checks the connection.
func (r *Repo) Ping(ctx context.Context) error {
	if err := r.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping topic repository: %w", err)
	}
	return nil
}

func (r *Repo) migrate(ctx context.Context, dir string) error {
	if _, err := r.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version    INTEGER PRIMARY KEY,
			applied_at BIGINT NOT NULL
		)`); err != nil {
		return fmt.Errorf("create schema_migrations: %w", err)
	}

	var current int
	row := r.db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_migrations")
	if err := row.Scan(&current); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	entries, err := fs.ReadDir(migrations.FS, dir)
	if err != nil {
		return fmt.Errorf("read migrations: %w", err)
	}
	var files []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	for _, name := range files {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil {
			continue
		}
		if version <= current {
			continue
		}
		body, err := fs.ReadFile(migrations.FS, dir+"/"+name)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", name, err)
		}
		if _, err := r.db.ExecContext(ctx, string(body)); err != nil {
			return fmt.Errorf("apply migration %s: %w", name, err)
		}
		if _, err := r.db.ExecContext(ctx,
			r.rebind("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)"),
			version, time.Now().Unix(),
		); err != nil {
			return fmt.Errorf("record migration %s: %w", name, err)
		}
	}
	return nil
}

const selectColumns = `id, title, localized_title, problem, context, content, description, objectives,
	supervisor_id, semester_id, category_id, max_students, is_approved, created_at`

// GetTopicByID returns one topic or domain.ErrTopicNotFound.
func (r *Repo) GetTopicByID(ctx context.Context, id int64) (domtopic.Topic, error) {
	row := r.db.QueryRowContext(ctx,
		r.rebind("SELECT "+selectColumns+" FROM topics WHERE id = ?"), id)
	t, err := scanTopic(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domtopic.Topic{}, fmt.Errorf("topic %d: %w", id, domain.ErrTopicNotFound)
	}
	if err != nil {
		return domtopic.Topic{}, fmt.Errorf("get topic %d: %w", id, err)
	}
	return t, nil
}

// TopicExistsByTitle reports whether a topic with the same trimmed, case-folded
// title already exists in the semester.
func (r *Repo) TopicExistsByTitle(ctx context.Context, title string, semesterID int) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		r.rebind("SELECT COUNT(*) FROM topics WHERE semester_id = ? AND LOWER(TRIM(title)) = ?"),
		semesterID, strings.ToLower(strings.TrimSpace(title)),
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check topic title: %w", err)
	}
	return n > 0, nil
}

// CreateTopic inserts a topic and returns it with its assigned id.
func (r *Repo) CreateTopic(ctx context.Context, c domtopic.Content) (domtopic.Topic, error) {
	if err := c.Validate(); err != nil {
		return domtopic.Topic{}, fmt.Errorf("%w: %w", domain.ErrInvalidTopic, err)
	}
	if c.MaxStudents <= 0 {
		c.MaxStudents = 1
	}
	now := time.Now().UTC().Truncate(time.Second)

	var id int64
	err := r.db.QueryRowContext(ctx, r.rebind(`
		INSERT INTO topics (title, localized_title, problem, context, content, description, objectives,
			supervisor_id, semester_id, category_id, max_students, is_approved, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id`),
		strings.TrimSpace(c.Title), c.LocalizedTitle, c.Problem, c.Context, c.Body, c.Description, c.Objectives,
		c.SupervisorID, c.SemesterID, c.CategoryID, c.MaxStudents, false, now.Unix(),
	).Scan(&id)
	if err != nil {
		return domtopic.Topic{}, fmt.Errorf("insert topic: %w", err)
	}

	c.Title = strings.TrimSpace(c.Title)
	return domtopic.Topic{ID: id, Content: c, CreatedAt: now}, nil
}

// ListTopicsBySemester returns all topics of a semester, oldest first.
func (r *Repo) ListTopicsBySemester(ctx context.Context, semesterID int) ([]domtopic.Topic, error) {
	rows, err := r.db.QueryContext(ctx,
		r.rebind("SELECT "+selectColumns+" FROM topics WHERE semester_id = ? ORDER BY id"), semesterID)
	if err != nil {
		return nil, fmt.Errorf("list semester %d topics: %w", semesterID, err)
	}
	return collect(rows)
}

// ListAll pages through every topic ordered by id.
func (r *Repo) ListAll(ctx context.Context, offset, limit int) ([]domtopic.Topic, error) {
	if offset < 0 || limit <= 0 {
		return nil, fmt.Errorf("invalid page offset=%d limit=%d: %w", offset, limit, domain.ErrInvalidTopic)
	}
	rows, err := r.db.QueryContext(ctx,
		r.rebind("SELECT "+selectColumns+" FROM topics ORDER BY id LIMIT ? OFFSET ?"), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list topics: %w", err)
	}
	return collect(rows)
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTopic(s scanner) (domtopic.Topic, error) {
	var (
		t       domtopic.Topic
		created int64
	)
	c := &t.Content
	err := s.Scan(&t.ID, &c.Title, &c.LocalizedTitle, &c.Problem, &c.Context, &c.Body, &c.Description,
		&c.Objectives, &c.SupervisorID, &c.SemesterID, &c.CategoryID, &c.MaxStudents, &t.IsApproved, &created)
	if err != nil {
		return domtopic.Topic{}, err
	}
	t.CreatedAt = time.Unix(created, 0).UTC()
	return t, nil
}

func collect(rows *sql.Rows) ([]domtopic.Topic, error) {
	defer rows.Close()

	var out []domtopic.Topic
	for rows.Next() {
		t, err := scanTopic(rows)
		if err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate topics: %w", err)
	}
	return out, nil
}

// rebind turns ? placeholders into $n for Postgres.
func (r *Repo) rebind(query string) string {
	if r.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, ch := range query {
		if ch == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}
