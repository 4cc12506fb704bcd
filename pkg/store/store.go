// Package store persists which migrations ran on which network and where each
// contract was deployed. It speaks SQL to a local sqlite file or to an rqlite
// cluster shared by several operators.
package store

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	_ "github.com/rqlite/gorqlite/stdlib"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/fsdeploy/pkg/errors"
)

// RunStatus is the outcome of a migrate invocation.
type RunStatus string

const (
	RunStatusRunning   RunStatus = "running"
	RunStatusSucceeded RunStatus = "succeeded"
	RunStatusFailed    RunStatus = "failed"
)

// Run is one invocation of migrate against a network.
type Run struct {
	ID         string
	Network    string
	NetworkID  string
	Deployer   string
	DryRun     bool
	Status     RunStatus
	Error      string
	StartedAt  time.Time
	FinishedAt time.Time
}

// CompletedMigration marks a migration version as fully applied on a network.
type CompletedMigration struct {
	NetworkID   string
	Version     int
	Name        string
	RunID       string
	CompletedAt time.Time
}

// ContractRecord is a deployed contract instance.
type ContractRecord struct {
	NetworkID   string
	Name        string
	Address     string
	TxHash      string
	BlockNumber uint64
	Version     int
	RunID       string
	DeployedAt  time.Time
}

// Store is the deployment state database.
type Store struct {
	db     *sqlx.DB
	driver string
	logger *zap.Logger
}

// Open connects to dsn and brings its schema up to date. A dsn starting with
// http://, https:// or rqlite:// selects rqlite; anything else is a sqlite
// file path, created along with its directory when missing.
func Open(ctx context.Context, dsn string, logger *zap.Logger) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	driver, source, err := resolveDSN(dsn)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Open(driver, source)
	if err != nil {
		return nil, errors.WrapCode(err, errors.CodeDatabaseError, "open state store")
	}
	if driver == "sqlite3" {
		// one writer; avoids SQLITE_BUSY between our own statements
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, errors.NewServiceError("state store", dsn, "", err)
	}
	if err := applySchema(ctx, db.DB, logger); err != nil {
		db.Close()
		return nil, errors.WrapCode(err, errors.CodeDatabaseError, "apply state store schema")
	}

	logger.Debug("State store ready", zap.String("driver", driver), zap.String("dsn", redactDSN(dsn)))
	return &Store{db: db, driver: driver, logger: logger}, nil
}

func resolveDSN(dsn string) (driver, source string, err error) {
	dsn = strings.TrimSpace(dsn)
	switch {
	case dsn == "":
		return "", "", errors.NewValidationError("store.dsn", "must not be empty", dsn)
	case strings.HasPrefix(dsn, "http://"), strings.HasPrefix(dsn, "https://"):
		return "rqlite", dsn, nil
	case strings.HasPrefix(dsn, "rqlite://"):
		return "rqlite", "http://" + strings.TrimPrefix(dsn, "rqlite://"), nil
	}

	path := strings.TrimPrefix(dsn, "sqlite://")
	path = strings.TrimPrefix(path, "file:")
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." && dir != "" {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return "", "", errors.WrapCode(err, errors.CodeDatabaseError, "create state dir")
			}
		}
	}
	return "sqlite3", "file:" + path + "?_busy_timeout=5000", nil
}

func redactDSN(dsn string) string {
	if at := strings.LastIndex(dsn, "@"); at >= 0 {
		if scheme := strings.Index(dsn, "://"); scheme >= 0 && scheme < at {
			return dsn[:scheme+3] + "***" + dsn[at:]
		}
	}
	return dsn
}

// Driver returns the database/sql driver in use.
func (s *Store) Driver() string {
	return s.driver
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

func dbErr(err error, op string) error {
	return errors.WrapCode(err, errors.CodeDatabaseError, op)
}

// BeginRun records the start of a migrate invocation.
func (s *Store) BeginRun(ctx context.Context, network, networkID, deployer string, dryRun bool) (*Run, error) {
	run := &Run{
		ID:        uuid.NewString(),
		Network:   network,
		NetworkID: networkID,
		Deployer:  deployer,
		DryRun:    dryRun,
		Status:    RunStatusRunning,
		StartedAt: time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs(id, network, network_id, deployer, dry_run, status, started_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Network, run.NetworkID, run.Deployer, boolToInt(run.DryRun), string(run.Status), formatTime(run.StartedAt),
	)
	if err != nil {
		return nil, dbErr(err, "begin run")
	}
	return run, nil
}

// FinishRun stores the outcome of run; a nil runErr means success.
func (s *Store) FinishRun(ctx context.Context, run *Run, runErr error) error {
	run.FinishedAt = time.Now().UTC()
	run.Status = RunStatusSucceeded
	run.Error = ""
	if runErr != nil {
		run.Status = RunStatusFailed
		run.Error = runErr.Error()
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, finished_at = ? WHERE id = ?`,
		string(run.Status), run.Error, formatTime(run.FinishedAt), run.ID,
	)
	if err != nil {
		return dbErr(err, "finish run")
	}
	return nil
}

// Runs returns the latest runs on a network, newest first.
func (s *Store) Runs(ctx context.Context, networkID string, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []runRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT id, network, network_id, deployer, dry_run, status, error, started_at, finished_at
		 FROM runs WHERE network_id = ? ORDER BY started_at DESC LIMIT ?`, networkID, limit)
	if err != nil {
		return nil, dbErr(err, "list runs")
	}

	out := make([]Run, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.run())
	}
	return out, nil
}

// MarkCompleted records that every step of a migration was deployed.
func (s *Store) MarkCompleted(ctx context.Context, m CompletedMigration) error {
	if m.CompletedAt.IsZero() {
		m.CompletedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO completed_migrations(network_id, version, name, run_id, completed_at) VALUES (?, ?, ?, ?, ?)`,
		m.NetworkID, m.Version, m.Name, m.RunID, formatTime(m.CompletedAt),
	)
	if err != nil {
		return dbErr(err, "mark migration completed")
	}
	return nil
}

// CompletedMigrations lists completed migrations on a network by version.
func (s *Store) CompletedMigrations(ctx context.Context, networkID string) ([]CompletedMigration, error) {
	var rows []completedRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT network_id, version, name, run_id, completed_at FROM completed_migrations WHERE network_id = ? ORDER BY version`,
		networkID)
	if err != nil {
		return nil, dbErr(err, "list completed migrations")
	}

	out := make([]CompletedMigration, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.migration())
	}
	return out, nil
}

// CompletedVersions returns the set of completed migration versions on a network.
func (s *Store) CompletedVersions(ctx context.Context, networkID string) (map[int]bool, error) {
	done, err := s.CompletedMigrations(ctx, networkID)
	if err != nil {
		return nil, err
	}
	out := make(map[int]bool, len(done))
	for _, m := range done {
		out[m.Version] = true
	}
	return out, nil
}

// RecordContract stores the latest deployment of a contract name and appends
// it to the history.
func (s *Store) RecordContract(ctx context.Context, rec ContractRecord) error {
	if rec.DeployedAt.IsZero() {
		rec.DeployedAt = time.Now().UTC()
	}
	args := []interface{}{
		rec.NetworkID, rec.Name, rec.Address, rec.TxHash, int64(rec.BlockNumber), rec.Version, rec.RunID, formatTime(rec.DeployedAt),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO contracts(network_id, name, address, tx_hash, block_number, version, run_id, deployed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		args...); err != nil {
		return dbErr(err, "record contract")
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO contract_history(network_id, name, address, tx_hash, block_number, version, run_id, deployed_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		args...); err != nil {
		return dbErr(err, "record contract history")
	}
	return nil
}

const contractColumns = `network_id, name, address, tx_hash, block_number, version, run_id, deployed_at`

// Contract returns the latest deployment of name on a network.
func (s *Store) Contract(ctx context.Context, networkID, name string) (ContractRecord, error) {
	var row contractRow
	err := s.db.GetContext(ctx, &row,
		`SELECT `+contractColumns+` FROM contracts WHERE network_id = ? AND name = ?`, networkID, name)
	if err != nil {
		if err == sql.ErrNoRows {
			return ContractRecord{}, errors.NewNotFoundError("contract on network "+networkID, name)
		}
		return ContractRecord{}, dbErr(err, "load contract")
	}
	return row.record(), nil
}

// ContractAddress returns the address name was last deployed at on a network.
func (s *Store) ContractAddress(ctx context.Context, networkID, name string) (string, error) {
	rec, err := s.Contract(ctx, networkID, name)
	if err != nil {
		return "", err
	}
	return rec.Address, nil
}

// Contracts lists the latest deployment of every contract on a network.
func (s *Store) Contracts(ctx context.Context, networkID string) ([]ContractRecord, error) {
	return s.queryContracts(ctx, `SELECT `+contractColumns+` FROM contracts WHERE network_id = ? ORDER BY name`, networkID)
}

// History lists every deployment made on a network, oldest first.
func (s *Store) History(ctx context.Context, networkID string) ([]ContractRecord, error) {
	return s.queryContracts(ctx, `SELECT `+contractColumns+` FROM contract_history WHERE network_id = ? ORDER BY deployed_at, rowid`, networkID)
}

func (s *Store) queryContracts(ctx context.Context, query string, args ...interface{}) ([]ContractRecord, error) {
	var rows []contractRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, dbErr(err, "list contracts")
	}
	out := make([]ContractRecord, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.record())
	}
	return out, nil
}

// Reset forgets completed migrations and current contracts on a network so
// the next run deploys everything again. History is kept.
func (s *Store) Reset(ctx context.Context, networkID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM completed_migrations WHERE network_id = ?`, networkID); err != nil {
		return dbErr(err, "reset migrations")
	}
	if _, err := s.db.ExecContext(ctx, `DELETE FROM contracts WHERE network_id = ?`, networkID); err != nil {
		return dbErr(err, "reset contracts")
	}
	s.logger.Info("State reset", zap.String("network_id", networkID))
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
