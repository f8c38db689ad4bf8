package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/jobsift/jobsift/internal/core"
)

// MySQLStore is a MySQL implementation of the RegistryStore interface
type MySQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewMySQLStore opens (and migrates) a MySQL-backed store.
func NewMySQLStore(dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS applications (
			app_key VARCHAR(512) PRIMARY KEY,
			company_name TEXT,
			title TEXT,
			first_seen VARCHAR(64),
			status_history TEXT,
			current_status VARCHAR(64),
			email_count INT,
			last_updated VARCHAR(64)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create applications table: %w", err)
	}

	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS outcome_history (
			id INT AUTO_INCREMENT PRIMARY KEY,
			email_id VARCHAR(255),
			is_job_related BOOLEAN,
			job_data TEXT,
			is_first_instance BOOLEAN,
			status VARCHAR(64),
			errors TEXT,
			duration_ms BIGINT,
			processed_at VARCHAR(64)
		)
	`); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create history table: %w", err)
	}

	return &MySQLStore{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// LoadRegistry loads every known application entry.
func (s *MySQLStore) LoadRegistry(ctx context.Context) (map[string]*core.ApplicationEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT app_key, company_name, title, first_seen, status_history,
		       current_status, email_count, last_updated
		FROM applications
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query applications: %w", err)
	}
	defer rows.Close()

	entries := make(map[string]*core.ApplicationEntry)
	for rows.Next() {
		var (
			entry       core.ApplicationEntry
			firstSeen   string
			history     string
			lastUpdated string
		)
		if err := rows.Scan(&entry.Key, &entry.CompanyName, &entry.Title, &firstSeen,
			&history, &entry.CurrentStatus, &entry.EmailCount, &lastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan application row: %w", err)
		}
		if entry.FirstSeen, err = time.Parse(time.RFC3339, firstSeen); err != nil {
			return nil, fmt.Errorf("failed to parse first_seen: %w", err)
		}
		if entry.LastUpdated, err = time.Parse(time.RFC3339, lastUpdated); err != nil {
			return nil, fmt.Errorf("failed to parse last_updated: %w", err)
		}
		if err := json.Unmarshal([]byte(history), &entry.StatusHistory); err != nil {
			return nil, fmt.Errorf("failed to parse status history: %w", err)
		}
		entries[entry.Key] = &entry
	}
	return entries, rows.Err()
}

// SaveRegistry replaces the persisted registry with the given map in
// one transaction.
func (s *MySQLStore) SaveRegistry(ctx context.Context, entries map[string]*core.ApplicationEntry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM applications`); err != nil {
		return fmt.Errorf("failed to clear applications: %w", err)
	}
	for _, entry := range entries {
		history, err := json.Marshal(entry.StatusHistory)
		if err != nil {
			return fmt.Errorf("failed to marshal status history: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO applications
				(app_key, company_name, title, first_seen, status_history,
				 current_status, email_count, last_updated)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, entry.Key, entry.CompanyName, entry.Title,
			entry.FirstSeen.Format(time.RFC3339), string(history),
			entry.CurrentStatus, entry.EmailCount,
			entry.LastUpdated.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("failed to insert application %s: %w", entry.Key, err)
		}
	}
	return tx.Commit()
}

// AppendHistory records one processing outcome.
func (s *MySQLStore) AppendHistory(ctx context.Context, outcome *core.ProcessingOutcome) error {
	jobData := ""
	if outcome.JobData != nil {
		b, err := json.Marshal(outcome.JobData)
		if err != nil {
			return fmt.Errorf("failed to marshal job data: %w", err)
		}
		jobData = string(b)
	}
	errs, err := json.Marshal(outcome.Errors)
	if err != nil {
		return fmt.Errorf("failed to marshal errors: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO outcome_history
			(email_id, is_job_related, job_data, is_first_instance,
			 status, errors, duration_ms, processed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, outcome.EmailID, outcome.IsJobRelated, jobData, outcome.IsFirstInstance,
		outcome.Status, string(errs), outcome.Duration.Milliseconds(),
		outcome.ProcessedAt.Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("failed to insert outcome: %w", err)
	}
	return nil
}

// LoadHistory returns up to limit outcomes, most recent first.
func (s *MySQLStore) LoadHistory(ctx context.Context, limit int) ([]*core.ProcessingOutcome, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT email_id, is_job_related, job_data, is_first_instance,
		       status, errors, duration_ms, processed_at
		FROM outcome_history
		ORDER BY id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	var outcomes []*core.ProcessingOutcome
	for rows.Next() {
		var (
			out         core.ProcessingOutcome
			jobData     string
			errsJSON    string
			durationMS  int64
			processedAt string
		)
		if err := rows.Scan(&out.EmailID, &out.IsJobRelated, &jobData, &out.IsFirstInstance,
			&out.Status, &errsJSON, &durationMS, &processedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		if jobData != "" {
			out.JobData = &core.JobRecord{}
			if err := json.Unmarshal([]byte(jobData), out.JobData); err != nil {
				return nil, fmt.Errorf("failed to parse job data: %w", err)
			}
		}
		if err := json.Unmarshal([]byte(errsJSON), &out.Errors); err != nil {
			return nil, fmt.Errorf("failed to parse errors: %w", err)
		}
		out.Duration = time.Duration(durationMS) * time.Millisecond
		if out.ProcessedAt, err = time.Parse(time.RFC3339, processedAt); err != nil {
			return nil, fmt.Errorf("failed to parse processed_at: %w", err)
		}
		outcomes = append(outcomes, &out)
	}
	return outcomes, rows.Err()
}
