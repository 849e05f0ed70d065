package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/pressly/goose/v3"

	"github.com/Kamar-Folarin/commit-painter/internal/models"
)

//go:embed migrations/*.sql
var migrations embed.FS

// PostgresStore keeps checkpoints in the job_checkpoints table
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(connectionString string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Migrate applies the embedded migrations
func (s *PostgresStore) Migrate() error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	if err := goose.Up(s.db, "migrations"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

func (s *PostgresStore) Load(ctx context.Context, key models.JobKey) (*models.Job, error) {
	var job models.Job
	err := s.db.QueryRowContext(ctx, `
		SELECT owner_login, repository_name, year_key, total_units, completed_units,
			tip_sha, last_error, updated_at
		FROM job_checkpoints
		WHERE owner_login = $1 AND repository_name = $2 AND year_key = $3
	`, key.OwnerLogin, key.RepositoryName, key.YearKey).Scan(
		&job.OwnerLogin,
		&job.RepositoryName,
		&job.YearKey,
		&job.TotalUnits,
		&job.CompletedUnits,
		&job.TipSHA,
		&job.LastError,
		&job.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	} else if err != nil {
		return nil, fmt.Errorf("failed to get checkpoint: %w", err)
	}
	return &job, nil
}

func (s *PostgresStore) Save(ctx context.Context, job *models.Job) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO job_checkpoints (owner_login, repository_name, year_key,
			total_units, completed_units, tip_sha, last_error, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (owner_login, repository_name, year_key) DO UPDATE SET
			total_units = EXCLUDED.total_units,
			completed_units = EXCLUDED.completed_units,
			tip_sha = EXCLUDED.tip_sha,
			last_error = EXCLUDED.last_error,
			updated_at = EXCLUDED.updated_at
	`,
		job.OwnerLogin,
		job.RepositoryName,
		job.YearKey,
		job.TotalUnits,
		job.CompletedUnits,
		job.TipSHA,
		job.LastError,
		job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, key models.JobKey) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM job_checkpoints
		WHERE owner_login = $1 AND repository_name = $2 AND year_key = $3
	`, key.OwnerLogin, key.RepositoryName, key.YearKey)
	if err != nil {
		return fmt.Errorf("failed to delete checkpoint: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context) ([]*models.Job, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT owner_login, repository_name, year_key, total_units, completed_units,
			tip_sha, last_error, updated_at
		FROM job_checkpoints
		ORDER BY owner_login, repository_name, year_key
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query checkpoints: %w", err)
	}
	defer rows.Close()

	var jobs []*models.Job
	for rows.Next() {
		var job models.Job
		if err := rows.Scan(
			&job.OwnerLogin,
			&job.RepositoryName,
			&job.YearKey,
			&job.TotalUnits,
			&job.CompletedUnits,
			&job.TipSHA,
			&job.LastError,
			&job.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint row: %w", err)
		}
		jobs = append(jobs, &job)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkpoint rows: %w", err)
	}

	return jobs, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
