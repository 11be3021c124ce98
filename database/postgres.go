package database

import (
	"context"
	"embed"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"issuetracker/models"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

const (
	poolMaxConns        = 25
	poolMinConns        = 5
	poolMaxConnLifetime = time.Hour
	poolMaxConnIdleTime = 30 * time.Minute
)

// PostgresStore keeps issues in a single table, one column per field.
type PostgresStore struct {
	Pool   *pgxpool.Pool
	logger zerolog.Logger
}

func ConnectPostgres(ctx context.Context, databaseURL string, logger zerolog.Logger) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database URL: %w", err)
	}

	config.MaxConns = poolMaxConns
	config.MinConns = poolMinConns
	config.MaxConnLifetime = poolMaxConnLifetime
	config.MaxConnIdleTime = poolMaxConnIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info().Str("backend", "postgres").Msg("database connection established")
	return &PostgresStore{Pool: pool, logger: logger}, nil
}

// FindIssues returns the project's issues matching every condition, in
// insertion order. Returns an empty slice (not nil) if none match.
func (s *PostgresStore) FindIssues(ctx context.Context, filter Filter) ([]models.Issue, error) {
	start := time.Now()
	defer func() {
		s.logger.Debug().Dur("duration", time.Since(start)).Str("project", filter.Project).
			Int("conditions", len(filter.Conditions)).Msg("FindIssues")
	}()

	qb := NewQueryBuilder()
	qb.AddCondition(columnProject, filter.Project)
	for _, cond := range filter.Conditions {
		if err := qb.AddFieldCondition(cond); err != nil {
			return nil, err
		}
	}

	// SAFETY: column names come from columnByField; values are parameterized.
	query := fmt.Sprintf(`
		SELECT %s
		FROM issues
		%s
		ORDER BY %s
	`, strings.Join(issueColumns, ", "), qb.WhereClause(), columnSeq)

	rows, err := s.Pool.Query(ctx, query, qb.Args()...)
	if err != nil {
		return nil, fmt.Errorf("failed to query issues: %w", err)
	}
	defer rows.Close()

	return scanIssues(rows)
}

func (s *PostgresStore) InsertIssue(ctx context.Context, issue *models.Issue) error {
	start := time.Now()
	defer func() {
		s.logger.Debug().Dur("duration", time.Since(start)).Str("project", issue.Project).Msg("InsertIssue")
	}()

	query := fmt.Sprintf(`
		INSERT INTO issues (%s)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, strings.Join(issueColumns, ", "))

	_, err := s.Pool.Exec(ctx, query,
		issue.ID.Hex(), issue.Project, issue.IssueTitle, issue.IssueText, issue.CreatedBy,
		issue.AssignedTo, issue.StatusText, issue.Open, issue.CreatedOn, issue.UpdatedOn,
	)
	if err != nil {
		return fmt.Errorf("failed to insert issue: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateIssue(ctx context.Context, project string, id primitive.ObjectID, update Update) error {
	start := time.Now()
	defer func() {
		s.logger.Debug().Dur("duration", time.Since(start)).Str("project", project).
			Str("id", id.Hex()).Msg("UpdateIssue")
	}()

	if err := validateUpdate(update); err != nil {
		return err
	}

	qb := NewQueryBuilder()
	for _, f := range update.Fields {
		if err := qb.AddFieldAssignment(f); err != nil {
			return err
		}
	}
	qb.AddAssignment(columnUpdatedOn, update.UpdatedOn)
	qb.AddCondition(columnID, id.Hex())
	qb.AddCondition(columnProject, project)

	query := fmt.Sprintf(`UPDATE issues %s %s`, qb.SetClause(), qb.WhereClause())

	result, err := s.Pool.Exec(ctx, query, qb.Args()...)
	if err != nil {
		return fmt.Errorf("failed to update issue: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrIssueNotFound
	}
	return nil
}

func (s *PostgresStore) DeleteIssue(ctx context.Context, project string, id primitive.ObjectID) error {
	query := fmt.Sprintf(`DELETE FROM issues WHERE %s = $1 AND %s = $2`, columnID, columnProject)

	result, err := s.Pool.Exec(ctx, query, id.Hex(), project)
	if err != nil {
		return fmt.Errorf("failed to delete issue: %w", err)
	}

	if result.RowsAffected() == 0 {
		return ErrIssueNotFound
	}

	s.logger.Debug().Str("project", project).Str("id", id.Hex()).Msg("DeleteIssue")
	return nil
}

// Migrate runs the embedded migrations in lexical order. Each file must be
// idempotent.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		content, err := migrationFiles.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read %s: %w", name, err)
		}

		if _, err := s.Pool.Exec(ctx, string(content)); err != nil {
			return fmt.Errorf("failed to execute %s: %w", name, err)
		}

		s.logger.Info().Str("migration", name).Msg("migration applied")
	}
	return nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.Pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	s.Pool.Close()
	s.logger.Info().Str("backend", "postgres").Msg("database connection closed")
}

// sqlValue converts filter and update values into types pgx can encode.
func sqlValue(v interface{}) interface{} {
	if id, ok := v.(primitive.ObjectID); ok {
		return id.Hex()
	}
	return v
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanIssue(row rowScanner) (*models.Issue, error) {
	var issue models.Issue
	var id string
	err := row.Scan(
		&id,
		&issue.Project,
		&issue.IssueTitle,
		&issue.IssueText,
		&issue.CreatedBy,
		&issue.AssignedTo,
		&issue.StatusText,
		&issue.Open,
		&issue.CreatedOn,
		&issue.UpdatedOn,
	)
	if err != nil {
		return nil, err
	}

	issue.ID, err = primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("corrupt issue id %q: %w", id, err)
	}
	issue.CreatedOn = issue.CreatedOn.UTC()
	issue.UpdatedOn = issue.UpdatedOn.UTC()
	return &issue, nil
}

type rowsScanner interface {
	Next() bool
	Scan(dest ...interface{}) error
	Err() error
}

func scanIssues(rows rowsScanner) ([]models.Issue, error) {
	issues := []models.Issue{}
	for rows.Next() {
		issue, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan issue: %w", err)
		}
		issues = append(issues, *issue)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating issues: %w", err)
	}

	return issues, nil
}
