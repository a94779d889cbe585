package database

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/logging"
)

// PostgresProvider implements DatabaseProvider for PostgreSQL
type PostgresProvider struct {
	db     *sql.DB
	config *PostgresConfig
}

// NewPostgresProvider creates a new PostgreSQL database provider
func NewPostgresProvider(config *PostgresConfig) (*PostgresProvider, error) {
	provider := &PostgresProvider{
		config: config,
	}

	if err := provider.Connect(); err != nil {
		return nil, err
	}

	return provider, nil
}

// Connect establishes connection to PostgreSQL database
func (pp *PostgresProvider) Connect() error {
	db, err := sql.Open("postgres", pp.config.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if pp.config.MaxConnections > 0 {
		db.SetMaxOpenConns(pp.config.MaxConnections)
	}
	if pp.config.MaxIdle > 0 {
		db.SetMaxIdleConns(pp.config.MaxIdle)
	}
	if pp.config.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pp.config.ConnMaxLifetime)
	}

	pp.db = db
	logging.Info("[PostgreSQL] Connected to database: %s@%s:%d/%s", pp.config.User, pp.config.Host, pp.config.Port, pp.config.Database)
	return nil
}

// DSN renders the lib/pq key/value connection string.
func (c *PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Close closes the database connection
func (pp *PostgresProvider) Close() error {
	if pp.db != nil {
		return pp.db.Close()
	}
	return nil
}

// Ping checks if database connection is alive
func (pp *PostgresProvider) Ping(ctx context.Context) error {
	return pp.db.PingContext(ctx)
}

// Migrate creates all PostgreSQL tables and indexes.
func (pp *PostgresProvider) Migrate(ctx context.Context) error {
	logging.Info("[PostgreSQL] Creating database tables...")

	for _, table := range postgresTables {
		if _, err := pp.db.ExecContext(ctx, table.schema); err != nil {
			logging.Error("[PostgreSQL] Error creating table %s: %v", table.name, err)
			return fmt.Errorf("create table %s: %w", table.name, err)
		}
	}
	for _, idx := range indexes {
		if _, err := pp.db.ExecContext(ctx, idx); err != nil {
			logging.Error("[PostgreSQL] Error creating index: %v", err)
			return fmt.Errorf("create index: %w", err)
		}
	}

	logging.Info("[PostgreSQL] Database migration completed")
	return nil
}

func (pp *PostgresProvider) StoreDecision(ctx context.Context, rec DecisionRecord) error {
	_, err := pp.db.ExecContext(ctx,
		`INSERT INTO decisions (id, created_at, source_ip, http_method, path, user_agent, attack_type, matched_categories, confidence,
			rule_severity, frequency_severity, policy_severity, final_severity, policy_state, engagement_count, status_code, delay_seconds, response_body)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		 ON CONFLICT (id) DO NOTHING`,
		rec.ID, rec.Timestamp.UTC(), rec.SourceIP, rec.Method, rec.Path, rec.UserAgent, rec.AttackType, joinCategories(rec.Categories), rec.Confidence,
		rec.RuleSeverity, rec.FrequencySeverity, rec.PolicySeverity, rec.FinalSeverity, rec.State, rec.EngagementCount, rec.StatusCode, rec.DelaySeconds, rec.ResponseBody,
	)
	return err
}

func (pp *PostgresProvider) UpdateAttackerProfile(ctx context.Context, rec DecisionRecord) error {
	_, err := pp.db.ExecContext(ctx,
		`INSERT INTO attacker_profiles (source_ip, total_requests, attack_types, max_severity, first_seen, last_seen)
		 VALUES ($1, 1, $2, $3, $4, $4)
		 ON CONFLICT (source_ip) DO UPDATE SET
			total_requests = attacker_profiles.total_requests + 1,
			attack_types = CASE
				WHEN ',' || attacker_profiles.attack_types || ',' LIKE '%,' || EXCLUDED.attack_types || ',%' THEN attacker_profiles.attack_types
				WHEN attacker_profiles.attack_types = '' THEN EXCLUDED.attack_types
				ELSE attacker_profiles.attack_types || ',' || EXCLUDED.attack_types
			END,
			max_severity = GREATEST(attacker_profiles.max_severity, EXCLUDED.max_severity),
			last_seen = EXCLUDED.last_seen`,
		rec.SourceIP, rec.AttackType, severityRank(rec.FinalSeverity), rec.Timestamp.UTC(),
	)
	return err
}

func (pp *PostgresProvider) RecordPathHit(ctx context.Context, rec DecisionRecord) error {
	if rec.Path == "" {
		return nil
	}
	_, err := pp.db.ExecContext(ctx,
		`INSERT INTO path_hits (path, hits, last_severity, first_seen, last_seen)
		 VALUES ($1, 1, $2, $3, $3)
		 ON CONFLICT (path) DO UPDATE SET
			hits = path_hits.hits + 1,
			last_severity = EXCLUDED.last_severity,
			last_seen = EXCLUDED.last_seen`,
		rec.Path, rec.FinalSeverity, rec.Timestamp.UTC(),
	)
	return err
}

func (pp *PostgresProvider) GetRecentDecisions(ctx context.Context, limit int) ([]DecisionRecord, error) {
	rows, err := pp.db.QueryContext(ctx,
		`SELECT id, created_at, source_ip, COALESCE(http_method, ''), COALESCE(path, ''), COALESCE(user_agent, ''),
			COALESCE(attack_type, ''), COALESCE(matched_categories, ''), confidence,
			COALESCE(rule_severity, ''), COALESCE(frequency_severity, ''), COALESCE(policy_severity, ''), final_severity,
			COALESCE(policy_state, ''), engagement_count, status_code, delay_seconds, COALESCE(response_body, '')
		 FROM decisions
		 ORDER BY created_at DESC
		 LIMIT $1`,
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DecisionRecord
	for rows.Next() {
		rec, err := scanDecision(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (pp *PostgresProvider) GetSeverityCounts(ctx context.Context) (map[string]int64, error) {
	rows, err := pp.db.QueryContext(ctx, `SELECT final_severity, COUNT(*) FROM decisions GROUP BY final_severity`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanSeverityCounts(rows)
}

func (pp *PostgresProvider) GetAttackerProfiles(ctx context.Context, limit int) ([]AttackerProfile, error) {
	rows, err := pp.db.QueryContext(ctx,
		`SELECT source_ip, total_requests, attack_types, max_severity, first_seen, last_seen
		 FROM attacker_profiles
		 ORDER BY total_requests DESC, last_seen DESC
		 LIMIT $1`,
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanProfiles(rows)
}

func (pp *PostgresProvider) GetTopPaths(ctx context.Context, limit int) ([]PathHit, error) {
	rows, err := pp.db.QueryContext(ctx,
		`SELECT path, hits, COALESCE(last_severity, ''), first_seen, last_seen
		 FROM path_hits
		 ORDER BY hits DESC, path ASC
		 LIMIT $1`,
		normalizeLimit(limit),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPathHits(rows)
}

func (pp *PostgresProvider) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	err := pp.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM decisions), (SELECT COUNT(*) FROM attacker_profiles), (SELECT COUNT(*) FROM path_hits)`,
	).Scan(&c.Decisions, &c.Attackers, &c.Paths)
	return c, err
}
