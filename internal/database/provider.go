package database

import (
	"context"
	"fmt"
	"time"

	"github.com/0tSystemsPublicRepos/honeycomb/internal/config"
)

// DecisionRecord is the persisted form of one engine decision.
type DecisionRecord struct {
	ID                string
	Timestamp         time.Time
	SourceIP          string
	Method            string
	Path              string
	UserAgent         string
	AttackType        string
	Categories        []string
	Confidence        float64
	RuleSeverity      string
	FrequencySeverity string
	PolicySeverity    string
	FinalSeverity     string
	State             string
	EngagementCount   int
	StatusCode        int
	DelaySeconds      float64
	ResponseBody      string
}

// AttackerProfile aggregates every decision seen from one source.
type AttackerProfile struct {
	SourceIP        string
	TotalRequests   int64
	AttackTypes     []string
	HighestSeverity string
	FirstSeen       time.Time
	LastSeen        time.Time
}

// PathHit is the persisted hit counter for one probed path.
type PathHit struct {
	Path         string
	Hits         int64
	LastSeverity string
	FirstSeen    time.Time
	LastSeen     time.Time
}

// Counts are row totals used by the CLI.
type Counts struct {
	Decisions int64
	Attackers int64
	Paths     int64
}

// DatabaseProvider defines the interface that all database implementations must follow
type DatabaseProvider interface {
	// Connection management
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error

	// Decisions
	StoreDecision(ctx context.Context, rec DecisionRecord) error
	GetRecentDecisions(ctx context.Context, limit int) ([]DecisionRecord, error)
	GetSeverityCounts(ctx context.Context) (map[string]int64, error)

	// Attacker Profiles
	UpdateAttackerProfile(ctx context.Context, rec DecisionRecord) error
	GetAttackerProfiles(ctx context.Context, limit int) ([]AttackerProfile, error)

	// Path hits
	RecordPathHit(ctx context.Context, rec DecisionRecord) error
	GetTopPaths(ctx context.Context, limit int) ([]PathHit, error)

	Counts(ctx context.Context) (Counts, error)
}

// ProviderFactory creates database providers based on type
type ProviderFactory struct{}

// Create returns a database provider based on the specified type
func (pf *ProviderFactory) Create(dbType string, cfg interface{}) (DatabaseProvider, error) {
	switch dbType {
	case "sqlite", "sqlite3":
		c, ok := cfg.(*SQLiteConfig)
		if !ok {
			return nil, fmt.Errorf("invalid config type for sqlite")
		}
		return NewSQLiteProvider(c)
	case "postgres", "postgresql":
		c, ok := cfg.(*PostgresConfig)
		if !ok {
			return nil, fmt.Errorf("invalid config type for postgres")
		}
		return NewPostgresProvider(c)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", dbType)
	}
}

// Open builds, connects and migrates the provider selected by cfg.
func Open(ctx context.Context, cfg config.DatabaseConfig) (DatabaseProvider, error) {
	dbType := cfg.Type
	if dbType == "" {
		dbType = "sqlite"
	}

	var providerCfg interface{}
	switch dbType {
	case "postgres", "postgresql":
		lifetime, _ := time.ParseDuration(cfg.ConnectionPool.ConnectionMaxLifetime)
		providerCfg = &PostgresConfig{
			Host:            cfg.PostgreSQL.Host,
			Port:            cfg.PostgreSQL.Port,
			Database:        cfg.PostgreSQL.Database,
			User:            cfg.PostgreSQL.Username,
			Password:        cfg.PostgreSQL.Password,
			SSLMode:         cfg.PostgreSQL.SSLMode,
			MaxConnections:  cfg.ConnectionPool.MaxOpenConnections,
			MaxIdle:         cfg.ConnectionPool.MaxIdleConnections,
			ConnMaxLifetime: lifetime,
		}
	default:
		providerCfg = &SQLiteConfig{
			Path:        cfg.SQLite.Path,
			JournalMode: cfg.SQLite.JournalMode,
			Synchronous: cfg.SQLite.Synchronous,
		}
	}

	factory := &ProviderFactory{}
	provider, err := factory.Create(dbType, providerCfg)
	if err != nil {
		return nil, err
	}
	if err := provider.Migrate(ctx); err != nil {
		provider.Close()
		return nil, fmt.Errorf("migrate %s: %w", dbType, err)
	}
	return provider, nil
}

// Config types for different databases
type SQLiteConfig struct {
	Path        string
	JournalMode string
	Synchronous string
}

type PostgresConfig struct {
	Host            string
	Port            int
	Database        string
	User            string
	Password        string
	SSLMode         string
	MaxConnections  int
	MaxIdle         int
	ConnMaxLifetime time.Duration
}
