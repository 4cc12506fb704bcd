package migrations

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/DeBrosOfficial/fsdeploy/pkg/store"
)

// Status of a migration within a run.
type Status string

const (
	StatusApplied Status = "applied"
	StatusSkipped Status = "skipped"
	StatusPlanned Status = "planned" // dry run
	StatusFailed  Status = "failed"
)

// StepReport describes one deployment.
type StepReport struct {
	Name        string
	Contract    string
	Address     common.Address
	TxHash      common.Hash
	BlockNumber uint64
	GasUsed     uint64
	DryRun      bool
}

// MigrationReport describes what happened to one migration.
type MigrationReport struct {
	Version int
	Name    string
	Status  Status
	Steps   []StepReport
}

// Report is the outcome of Runner.Run.
type Report struct {
	RunID      string
	Network    string
	NetworkID  string
	Deployer   common.Address
	DryRun     bool
	StartedAt  time.Time
	FinishedAt time.Time
	Migrations []MigrationReport
}

// Deployments returns every step deployed (or predicted) in order.
func (r *Report) Deployments() []StepReport {
	var out []StepReport
	for _, m := range r.Migrations {
		out = append(out, m.Steps...)
	}
	return out
}

// TotalGasUsed sums gas across the run's deployments.
func (r *Report) TotalGasUsed() uint64 {
	var total uint64
	for _, s := range r.Deployments() {
		total += s.GasUsed
	}
	return total
}

// PlanEntry pairs a planned migration with its completion record, if any.
type PlanEntry struct {
	Migration Migration
	Completed *store.CompletedMigration
}

// PlanStatus lists every migration of plan with its state on networkID.
func PlanStatus(ctx context.Context, plan *Plan, state State, networkID string) ([]PlanEntry, error) {
	done, err := state.CompletedMigrations(ctx, networkID)
	if err != nil {
		return nil, err
	}
	byVersion := make(map[int]store.CompletedMigration, len(done))
	for _, m := range done {
		byVersion[m.Version] = m
	}

	var out []PlanEntry
	for _, m := range plan.Sorted() {
		entry := PlanEntry{Migration: m}
		if c, ok := byVersion[m.Version]; ok {
			c := c
			entry.Completed = &c
		}
		out = append(out, entry)
	}
	return out, nil
}
