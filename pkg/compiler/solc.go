// Package compiler drives solc to turn Solidity sources into artifacts.
package compiler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	ethcompiler "github.com/ethereum/go-ethereum/common/compiler"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/fsdeploy/pkg/artifacts"
	"github.com/DeBrosOfficial/fsdeploy/pkg/config"
	"github.com/DeBrosOfficial/fsdeploy/pkg/errors"
)

// combinedOutputs are the solc --combined-json sections parsed by go-ethereum.
const combinedOutputs = "bin,bin-runtime,srcmap,srcmap-runtime,abi,userdoc,devdoc,metadata,hashes"

// DockerImage is the image used when compilers.solc.docker is set.
const DockerImage = "ethereum/solc"

// Runner executes a command in dir and returns its stdout and stderr.
type Runner interface {
	Run(ctx context.Context, dir string, name string, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, []byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.Bytes(), stderr.Bytes(), err
}

// Solc compiles a contracts directory with the configured solc release.
type Solc struct {
	cfg    config.SolcConfig
	runner Runner
	logger *zap.Logger
}

// NewSolc creates a compiler. A nil runner uses ExecRunner.
func NewSolc(cfg config.SolcConfig, runner Runner, logger *zap.Logger) *Solc {
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Solc{cfg: cfg, runner: runner, logger: logger}
}

// Command returns the program and arguments that compile sources, which are
// paths relative to dir.
func (s *Solc) Command(dir string, sources []string) (string, []string) {
	solcArgs := []string{"--combined-json", combinedOutputs}
	if opt := s.cfg.Settings.Optimizer; opt.Enabled {
		solcArgs = append(solcArgs, "--optimize", "--optimize-runs", strconv.Itoa(opt.Runs))
	}
	solcArgs = append(solcArgs, sources...)

	if s.cfg.Docker {
		args := []string{
			"run", "--rm",
			"-v", dir + ":/sources",
			"-w", "/sources",
			DockerImage + ":" + s.cfg.Version,
		}
		return "docker", append(args, solcArgs...)
	}

	binary := s.cfg.Binary
	if binary == "" {
		binary = "solc"
	}
	return binary, solcArgs
}

// Sources lists the .sol files under dir, relative to it and sorted.
func Sources(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && strings.HasPrefix(d.Name(), ".") && path != dir {
			return filepath.SkipDir
		}
		if !d.IsDir() && strings.HasSuffix(d.Name(), ".sol") {
			rel, err := filepath.Rel(dir, path)
			if err != nil {
				return err
			}
			files = append(files, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("contracts directory", dir)
		}
		return nil, errors.Wrapf(err, "scan %s", dir)
	}
	sort.Strings(files)
	return files, nil
}

// Compile compiles every source under dir and returns one artifact per contract.
func (s *Solc) Compile(ctx context.Context, dir string) ([]*artifacts.Artifact, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "resolve %s", dir)
	}
	sources, err := Sources(abs)
	if err != nil {
		return nil, err
	}
	if len(sources) == 0 {
		return nil, errors.NewNotFoundError("solidity sources in", dir)
	}

	name, args := s.Command(abs, sources)
	s.logger.Info("Compiling contracts",
		zap.String("dir", abs),
		zap.Int("sources", len(sources)),
		zap.String("solc", s.cfg.Version),
		zap.Bool("docker", s.cfg.Docker),
	)

	stdout, stderr, err := s.runner.Run(ctx, abs, name, args...)
	if err != nil {
		return nil, errors.NewCompilationError(fmt.Sprintf("%s failed", name), string(stderr), err)
	}
	if len(bytes.TrimSpace(stderr)) > 0 {
		// solc reports warnings on stderr even on success
		s.logger.Warn("Compiler warnings", zap.String("output", string(stderr)))
	}

	return s.Parse(stdout)
}

// Parse converts solc --combined-json output to artifacts, checking that the
// compiler that produced it is the configured release.
func (s *Solc) Parse(output []byte) ([]*artifacts.Artifact, error) {
	var header struct {
		Version string `json:"version"`
	}
	if err := json.Unmarshal(output, &header); err != nil {
		return nil, errors.NewCompilationError("unreadable compiler output", string(output), err)
	}
	if !VersionMatches(s.cfg.Version, header.Version) {
		return nil, errors.NewCompilationError(
			fmt.Sprintf("compiler version %s does not match configured %s", header.Version, s.cfg.Version), "", nil)
	}

	options := s.optionsString()
	contracts, err := ethcompiler.ParseCombinedJSON(output, "", "", header.Version, options)
	if err != nil {
		return nil, errors.NewCompilationError("parse compiler output", "", err)
	}

	out := make([]*artifacts.Artifact, 0, len(contracts))
	for key, c := range contracts {
		source, name := splitContractKey(key)
		abiJSON, err := json.Marshal(c.Info.AbiDefinition)
		if err != nil {
			return nil, errors.WrapCode(err, errors.CodeSerializationError, "encode abi of "+name)
		}
		out = append(out, &artifacts.Artifact{
			ContractName:     name,
			SourcePath:       source,
			ABI:              abiJSON,
			Bytecode:         c.Code,
			DeployedBytecode: c.RuntimeCode,
			Compiler: artifacts.CompilerInfo{
				Name:    "solc",
				Version: header.Version,
			},
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContractName < out[j].ContractName })
	return out, nil
}

func (s *Solc) optionsString() string {
	opt := s.cfg.Settings.Optimizer
	if !opt.Enabled {
		return ""
	}
	return fmt.Sprintf("--optimize --optimize-runs %d", opt.Runs)
}

// VersionMatches reports whether the version string reported by solc
// (e.g. "0.5.10+commit.5a6ea5b1.Linux.g++") is the configured release.
func VersionMatches(configured, reported string) bool {
	reported = strings.TrimPrefix(strings.TrimSpace(reported), "v")
	if reported == configured {
		return true
	}
	return strings.HasPrefix(reported, configured+"+") || strings.HasPrefix(reported, configured+"-")
}

// splitContractKey splits "contracts/FileShare.sol:FileShare".
func splitContractKey(key string) (source, name string) {
	idx := strings.LastIndex(key, ":")
	if idx < 0 {
		return "", key
	}
	return key[:idx], key[idx+1:]
}
