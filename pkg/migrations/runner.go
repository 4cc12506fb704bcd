// Package migrations applies a plan of contract deployments to a network in
// order, one step at a time, recording what was deployed.
package migrations

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/fsdeploy/pkg/artifacts"
	"github.com/DeBrosOfficial/fsdeploy/pkg/deployer"
	"github.com/DeBrosOfficial/fsdeploy/pkg/errors"
	"github.com/DeBrosOfficial/fsdeploy/pkg/store"
)

// Deployer sends (or predicts) contract deployments.
type Deployer interface {
	From() common.Address
	Deploy(ctx context.Context, a *artifacts.Artifact, args ...interface{}) (*deployer.Deployment, error)
	Predict(ctx context.Context, a *artifacts.Artifact, args ...interface{}) (*deployer.Deployment, error)
}

// State is the persistence the runner needs; *store.Store implements it.
type State interface {
	BeginRun(ctx context.Context, network, networkID, deployer string, dryRun bool) (*store.Run, error)
	FinishRun(ctx context.Context, run *store.Run, runErr error) error
	CompletedMigrations(ctx context.Context, networkID string) ([]store.CompletedMigration, error)
	CompletedVersions(ctx context.Context, networkID string) (map[int]bool, error)
	MarkCompleted(ctx context.Context, m store.CompletedMigration) error
	RecordContract(ctx context.Context, rec store.ContractRecord) error
	ContractAddress(ctx context.Context, networkID, name string) (string, error)
	Reset(ctx context.Context, networkID string) error
}

var _ State = (*store.Store)(nil)

// Config wires a Runner.
type Config struct {
	Plan      *Plan
	Artifacts *artifacts.Store
	Deployer  Deployer
	State     State
	Network   string // configured network name
	NetworkID string // id reported by the node; keys the state and artifacts
	Logger    *zap.Logger
}

// Options select what a run does.
type Options struct {
	Reset  bool // forget completed migrations and deploy everything again
	From   int  // lowest version to consider; 0 means no bound
	To     int  // highest version to consider; 0 means no bound
	DryRun bool // predict addresses without sending or recording anything
}

func (o Options) includes(version int) bool {
	if o.From > 0 && version < o.From {
		return false
	}
	if o.To > 0 && version > o.To {
		return false
	}
	return true
}

// Runner applies a plan to one network.
type Runner struct {
	plan      *Plan
	artifacts *artifacts.Store
	deployer  Deployer
	state     State
	network   string
	networkID string
	logger    *zap.Logger
}

// NewRunner validates cfg and its plan.
func NewRunner(cfg Config) (*Runner, error) {
	if cfg.Plan == nil {
		cfg.Plan = DefaultPlan()
	}
	if cfg.Artifacts == nil || cfg.Deployer == nil || cfg.State == nil {
		return nil, errors.NewInternalError("runner requires artifacts, deployer and state", nil)
	}
	if cfg.NetworkID == "" {
		return nil, errors.NewValidationError("network_id", "must not be empty", cfg.NetworkID)
	}
	if err := cfg.Plan.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Runner{
		plan:      cfg.Plan,
		artifacts: cfg.Artifacts,
		deployer:  cfg.Deployer,
		state:     cfg.State,
		network:   cfg.Network,
		networkID: cfg.NetworkID,
		logger:    cfg.Logger,
	}, nil
}

// Run applies pending migrations in ascending version order. Each step starts
// only after the previous step's deployment is mined. The first failure stops
// the run; the failing migration stays pending and is returned as a
// *errors.DeploymentError. The report is returned even on failure.
func (r *Runner) Run(ctx context.Context, opts Options) (*Report, error) {
	if opts.From > 0 && opts.To > 0 && opts.From > opts.To {
		return nil, errors.NewValidationError("from", "must not be greater than to", opts.From)
	}

	run, err := r.state.BeginRun(ctx, r.network, r.networkID, r.deployer.From().Hex(), opts.DryRun)
	if err != nil {
		return nil, err
	}
	report := &Report{
		RunID:     run.ID,
		Network:   r.network,
		NetworkID: r.networkID,
		Deployer:  r.deployer.From(),
		DryRun:    opts.DryRun,
		StartedAt: run.StartedAt,
	}

	runErr := r.apply(ctx, run.ID, opts, report)
	report.FinishedAt = time.Now().UTC()

	// record the outcome even when ctx was cancelled mid-run
	if err := r.state.FinishRun(context.WithoutCancel(ctx), run, runErr); err != nil {
		r.logger.Warn("Failed to record run outcome", zap.String("run_id", run.ID), zap.Error(err))
	}
	return report, runErr
}

func (r *Runner) apply(ctx context.Context, runID string, opts Options, report *Report) error {
	completed, err := r.state.CompletedVersions(ctx, r.networkID)
	if err != nil {
		return err
	}
	if opts.Reset {
		if !opts.DryRun {
			if err := r.state.Reset(ctx, r.networkID); err != nil {
				return err
			}
		}
		completed = map[int]bool{}
	}

	// addresses deployed during this run, by step name
	deployed := make(map[string]common.Address)
	resolve := func(name string) (common.Address, error) {
		if addr, ok := deployed[name]; ok {
			return addr, nil
		}
		if opts.Reset {
			return common.Address{}, errors.NewNotFoundError("deployment", name)
		}
		hex, err := r.state.ContractAddress(ctx, r.networkID, name)
		if err != nil {
			return common.Address{}, err
		}
		return common.HexToAddress(hex), nil
	}

	for _, m := range r.plan.Sorted() {
		if !opts.includes(m.Version) {
			continue
		}
		if completed[m.Version] {
			r.logger.Info("Migration already applied", zap.String("migration", m.ID()))
			report.Migrations = append(report.Migrations, MigrationReport{Version: m.Version, Name: m.Name, Status: StatusSkipped})
			continue
		}

		r.logger.Info("Applying migration", zap.String("migration", m.ID()), zap.Int("steps", len(m.Steps)), zap.Bool("dry_run", opts.DryRun))
		mr := MigrationReport{Version: m.Version, Name: m.Name, Status: StatusApplied}
		if opts.DryRun {
			mr.Status = StatusPlanned
		}

		for i, step := range m.Steps {
			sr, err := r.applyStep(ctx, runID, m, step, resolve, opts.DryRun)
			if err != nil {
				mr.Status = StatusFailed
				report.Migrations = append(report.Migrations, mr)
				r.logger.Error("Migration failed",
					zap.String("migration", m.ID()),
					zap.Int("step", i+1),
					zap.String("contract", step.Contract),
					zap.Error(err),
				)
				return errors.NewDeploymentError(m.ID(), i+1, step.Contract, err)
			}
			deployed[sr.Name] = sr.Address
			mr.Steps = append(mr.Steps, *sr)
		}

		if !opts.DryRun {
			if err := r.state.MarkCompleted(ctx, store.CompletedMigration{
				NetworkID: r.networkID,
				Version:   m.Version,
				Name:      m.Name,
				RunID:     runID,
			}); err != nil {
				mr.Status = StatusFailed
				report.Migrations = append(report.Migrations, mr)
				return err
			}
		}
		report.Migrations = append(report.Migrations, mr)
		r.logger.Info("Migration applied", zap.String("migration", m.ID()))
	}
	return nil
}

func (r *Runner) applyStep(ctx context.Context, runID string, m Migration, step Step, resolve AddressResolver, dryRun bool) (*StepReport, error) {
	a, err := r.artifacts.Require(step.Contract)
	if err != nil {
		return nil, err
	}
	parsed, err := a.ParsedABI()
	if err != nil {
		return nil, err
	}
	args, err := ResolveArgs(parsed.Constructor.Inputs, step.Args, resolve)
	if err != nil {
		return nil, err
	}

	var dep *deployer.Deployment
	if dryRun {
		dep, err = r.deployer.Predict(ctx, a, args...)
	} else {
		dep, err = r.deployer.Deploy(ctx, a, args...)
	}
	if err != nil {
		return nil, err
	}

	sr := &StepReport{
		Name:        step.Name(),
		Contract:    a.ContractName,
		Address:     dep.Address,
		TxHash:      dep.TxHash,
		BlockNumber: dep.BlockNumber,
		GasUsed:     dep.GasUsed,
		DryRun:      dep.DryRun,
	}
	if dryRun {
		return sr, nil
	}

	if err := r.state.RecordContract(ctx, store.ContractRecord{
		NetworkID:   r.networkID,
		Name:        sr.Name,
		Address:     dep.Address.Hex(),
		TxHash:      dep.TxHash.Hex(),
		BlockNumber: dep.BlockNumber,
		Version:     m.Version,
		RunID:       runID,
		DeployedAt:  dep.DeployedAt,
	}); err != nil {
		return nil, err
	}
	if err := r.artifacts.RecordDeployment(a.ContractName, r.networkID, artifacts.NetworkRecord{
		Address:         dep.Address.Hex(),
		TransactionHash: dep.TxHash.Hex(),
		BlockNumber:     dep.BlockNumber,
	}); err != nil {
		return nil, err
	}
	return sr, nil
}
