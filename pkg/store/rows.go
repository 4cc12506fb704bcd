package store

// Row types mirror the tables. Timestamps are RFC 3339 text so the same
// schema works on sqlite and rqlite.

type runRow struct {
	ID         string `db:"id"`
	Network    string `db:"network"`
	NetworkID  string `db:"network_id"`
	Deployer   string `db:"deployer"`
	DryRun     int64  `db:"dry_run"`
	Status     string `db:"status"`
	Error      string `db:"error"`
	StartedAt  string `db:"started_at"`
	FinishedAt string `db:"finished_at"`
}

func (r runRow) run() Run {
	return Run{
		ID:         r.ID,
		Network:    r.Network,
		NetworkID:  r.NetworkID,
		Deployer:   r.Deployer,
		DryRun:     r.DryRun != 0,
		Status:     RunStatus(r.Status),
		Error:      r.Error,
		StartedAt:  parseTime(r.StartedAt),
		FinishedAt: parseTime(r.FinishedAt),
	}
}

type completedRow struct {
	NetworkID   string `db:"network_id"`
	Version     int    `db:"version"`
	Name        string `db:"name"`
	RunID       string `db:"run_id"`
	CompletedAt string `db:"completed_at"`
}

func (r completedRow) migration() CompletedMigration {
	return CompletedMigration{
		NetworkID:   r.NetworkID,
		Version:     r.Version,
		Name:        r.Name,
		RunID:       r.RunID,
		CompletedAt: parseTime(r.CompletedAt),
	}
}

type contractRow struct {
	NetworkID   string `db:"network_id"`
	Name        string `db:"name"`
	Address     string `db:"address"`
	TxHash      string `db:"tx_hash"`
	BlockNumber int64  `db:"block_number"`
	Version     int    `db:"version"`
	RunID       string `db:"run_id"`
	DeployedAt  string `db:"deployed_at"`
}

func (r contractRow) record() ContractRecord {
	return ContractRecord{
		NetworkID:   r.NetworkID,
		Name:        r.Name,
		Address:     r.Address,
		TxHash:      r.TxHash,
		BlockNumber: uint64(r.BlockNumber),
		Version:     r.Version,
		RunID:       r.RunID,
		DeployedAt:  parseTime(r.DeployedAt),
	}
}
