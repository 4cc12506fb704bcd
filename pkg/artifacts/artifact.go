// Package artifacts reads and writes compiled contract artifacts: one JSON
// document per contract holding its ABI, creation bytecode and the addresses
// it was deployed to on each network.
package artifacts

import (
	"bytes"
	"encoding/json"
	"path"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"

	"github.com/DeBrosOfficial/fsdeploy/pkg/errors"
)

// Artifact is a compiled contract and its per-network deployment records
type Artifact struct {
	ContractName     string                   `json:"contractName"`
	SourcePath       string                   `json:"sourcePath,omitempty"`
	ABI              json.RawMessage          `json:"abi"`
	Bytecode         string                   `json:"bytecode"`
	DeployedBytecode string                   `json:"deployedBytecode,omitempty"`
	Compiler         CompilerInfo             `json:"compiler"`
	Networks         map[string]NetworkRecord `json:"networks"`
	UpdatedAt        time.Time                `json:"updatedAt"`
}

// CompilerInfo records which compiler produced the artifact
type CompilerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// NetworkRecord is the deployment of an artifact on one network
type NetworkRecord struct {
	Address         string `json:"address"`
	TransactionHash string `json:"transactionHash"`
	BlockNumber     uint64 `json:"blockNumber,omitempty"`
}

// NormalizeName maps every accepted way of referring to a contract to its bare
// name: "./FileShare.sol", "contracts/FileShare.sol", "FileShare.sol" and
// "FileShare" all yield "FileShare". A blank reference yields "".
func NormalizeName(ref string) string {
	name := strings.TrimSpace(strings.ReplaceAll(ref, "\\", "/"))
	if strings.Trim(name, "./") == "" {
		return ""
	}
	name = path.Base(name)
	name = strings.TrimSuffix(name, ".sol")
	name = strings.TrimSuffix(name, ".json")
	return name
}

// HasBytecode reports whether the artifact carries creation code.
func (a *Artifact) HasBytecode() bool {
	code := strings.TrimSpace(a.Bytecode)
	return code != "" && code != "0x"
}

// ParsedABI parses the artifact's ABI.
func (a *Artifact) ParsedABI() (abi.ABI, error) {
	if len(a.ABI) == 0 {
		return abi.ABI{}, nil
	}
	parsed, err := abi.JSON(bytes.NewReader(a.ABI))
	if err != nil {
		return abi.ABI{}, errors.WrapCode(err, errors.CodeSerializationError, "parse abi of "+a.ContractName)
	}
	return parsed, nil
}

// CreationCode decodes the creation bytecode.
func (a *Artifact) CreationCode() ([]byte, error) {
	code := strings.TrimSpace(a.Bytecode)
	if !a.HasBytecode() {
		return nil, errors.NewValidationError("bytecode", "artifact "+a.ContractName+" has no bytecode (abstract contract or interface?)", nil)
	}
	if !strings.HasPrefix(code, "0x") {
		code = "0x" + code
	}
	// unlinked library placeholders look like __Lib____ and are not hex
	if strings.Contains(code, "__") {
		return nil, errors.NewValidationError("bytecode", "artifact "+a.ContractName+" has unlinked library references", nil)
	}
	b, err := hexutil.Decode(code)
	if err != nil {
		return nil, errors.WrapCode(err, errors.CodeSerializationError, "decode bytecode of "+a.ContractName)
	}
	return b, nil
}

// Deployment returns the record for networkID, if any.
func (a *Artifact) Deployment(networkID string) (NetworkRecord, bool) {
	rec, ok := a.Networks[networkID]
	if !ok || !common.IsHexAddress(rec.Address) {
		return NetworkRecord{}, false
	}
	return rec, true
}

// SetDeployment records a deployment for networkID.
func (a *Artifact) SetDeployment(networkID string, rec NetworkRecord) {
	if a.Networks == nil {
		a.Networks = make(map[string]NetworkRecord)
	}
	a.Networks[networkID] = rec
}
