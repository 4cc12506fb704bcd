// Package cli implements the fsdeploy command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/DeBrosOfficial/fsdeploy/pkg/artifacts"
	"github.com/DeBrosOfficial/fsdeploy/pkg/chain"
	"github.com/DeBrosOfficial/fsdeploy/pkg/compiler"
	"github.com/DeBrosOfficial/fsdeploy/pkg/config"
	"github.com/DeBrosOfficial/fsdeploy/pkg/errors"
	"github.com/DeBrosOfficial/fsdeploy/pkg/logging"
	"github.com/DeBrosOfficial/fsdeploy/pkg/migrations"
	"github.com/DeBrosOfficial/fsdeploy/pkg/store"
)

// DefaultConfigFile is read from the working directory when --config is not given.
const DefaultConfigFile = "fsdeploy.yaml"

// BuildInfo is stamped into the binary with -ldflags.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// Dialer connects to a configured network.
type Dialer func(ctx context.Context, name string, network config.NetworkConfig, logger *zap.Logger) (*chain.Connection, error)

// App is the state shared by all commands.
type App struct {
	Build BuildInfo

	In     io.Reader
	Out    io.Writer
	ErrOut io.Writer

	// Replaceable for tests.
	Dial    Dialer
	Solc    compiler.Runner
	Confirm Confirmer

	// global flags
	configPath string
	network    string
	logLevel   string

	cfg      *config.Config
	logger   *logging.ColoredLogger
	closeLog func() error
}

// NewApp returns an App wired to the process's stdio, a real node and solc.
func NewApp(build BuildInfo) *App {
	return &App{
		Build:   build,
		In:      os.Stdin,
		Out:     os.Stdout,
		ErrOut:  os.Stderr,
		Dial:    chain.Dial,
		Solc:    compiler.ExecRunner{},
		Confirm: promptConfirm(os.Stdin, os.Stderr),
	}
}

// setup loads the configuration and builds the logger.
func (a *App) setup(explicitConfig bool) error {
	path := a.configPath
	if !explicitConfig {
		if _, err := os.Stat(path); err != nil {
			path = ""
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return err
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	a.cfg = cfg

	opts := logging.Options{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		OutputFile: cfg.Logging.OutputFile,
	}
	if opts.OutputFile == "" {
		opts.Colors = isTerminalWriter(a.ErrOut)
		a.logger = logging.NewWriterLogger(a.ErrOut, opts)
		a.closeLog = func() error { return nil }
	} else {
		logger, closeFn, err := logging.New(opts)
		if err != nil {
			return errors.WrapCode(err, errors.CodeConfigError, "open log file")
		}
		a.logger = logger
		a.closeLog = closeFn
	}

	if path != "" {
		a.logger.ComponentDebug(logging.ComponentGeneral, "Loaded configuration", zap.String("path", path))
	}
	return nil
}

// Close flushes the logger and releases its output file.
func (a *App) Close() {
	if a.logger != nil {
		_ = a.logger.Sync()
	}
	if a.closeLog != nil {
		_ = a.closeLog()
	}
}

func isTerminalWriter(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isTerminal(f)
}

// configError folds validation problems into one error, printing each.
func (a *App) configError(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	for _, err := range errs {
		fmt.Fprintln(a.ErrOut, errorStyle.Render("✗")+" "+err.Error())
	}
	return errors.NewValidationError("config", fmt.Sprintf("%d configuration problem(s)", len(errs)), nil)
}

func (a *App) selectedNetwork() (config.NetworkConfig, error) {
	return a.cfg.Network(a.network)
}

func (a *App) connect(ctx context.Context) (*chain.Connection, error) {
	netCfg, err := a.selectedNetwork()
	if err != nil {
		return nil, err
	}
	return a.Dial(ctx, a.network, netCfg, a.logger.For(logging.ComponentNetwork))
}

// networkID returns the id state is keyed by. A concrete configured id is
// used as is; a wildcard needs the node to say which network it is.
func (a *App) networkID(ctx context.Context) (string, error) {
	netCfg, err := a.selectedNetwork()
	if err != nil {
		return "", err
	}
	if !netCfg.NetworkID.IsWildcard() {
		return string(netCfg.NetworkID), nil
	}
	conn, err := a.connect(ctx)
	if err != nil {
		return "", err
	}
	defer conn.Close()
	return conn.NetworkID, nil
}

func (a *App) openState(ctx context.Context) (*store.Store, error) {
	return store.Open(ctx, a.cfg.Store.DSN, a.logger.For(logging.ComponentStore))
}

func (a *App) artifactStore() *artifacts.Store {
	return artifacts.NewStore(a.cfg.Paths.Build, a.logger.For(logging.ComponentArtifacts))
}

func (a *App) plan() (*migrations.Plan, error) {
	if strings.TrimSpace(a.cfg.Paths.Plan) == "" {
		return migrations.DefaultPlan(), nil
	}
	return migrations.LoadPlan(a.cfg.Paths.Plan)
}
