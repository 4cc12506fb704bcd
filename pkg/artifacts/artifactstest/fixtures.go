// Package artifactstest provides compiled artifacts of the KYC and file-share
// contracts for tests. The bytecode is a valid creation prefix only; the fake
// chain does not execute it.
package artifactstest

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/DeBrosOfficial/fsdeploy/pkg/artifacts"
)

const (
	KYCMockABI = `[
  {"constant":true,"inputs":[{"name":"who","type":"address"}],"name":"isVerified","outputs":[{"name":"","type":"bool"}],"payable":false,"stateMutability":"view","type":"function"},
  {"constant":false,"inputs":[{"name":"who","type":"address"},{"name":"ok","type":"bool"}],"name":"setVerified","outputs":[],"payable":false,"stateMutability":"nonpayable","type":"function"}
]`

	FileShareABI = `[
  {"inputs":[{"name":"_kyc","type":"address"}],"payable":false,"stateMutability":"nonpayable","type":"constructor"},
  {"constant":true,"inputs":[],"name":"kyc","outputs":[{"name":"","type":"address"}],"payable":false,"stateMutability":"view","type":"function"}
]`

	// RegistryABI has one constructor argument of each supported kind.
	RegistryABI = `[
  {"inputs":[
    {"name":"owner","type":"address"},
    {"name":"label","type":"string"},
    {"name":"quota","type":"uint256"},
    {"name":"shards","type":"uint8"},
    {"name":"delta","type":"int64"},
    {"name":"open","type":"bool"},
    {"name":"salt","type":"bytes32"},
    {"name":"blob","type":"bytes"}
  ],"payable":false,"stateMutability":"nonpayable","type":"constructor"}
]`

	KYCMockBytecode   = "0x6080604052348015600f57600080fd5b5060"
	FileShareBytecode = "0x608060405234801561001057600080fd5b506040"
	RegistryBytecode  = "0x60806040526000"
)

func artifact(name, abiJSON, code string) *artifacts.Artifact {
	return &artifacts.Artifact{
		ContractName: name,
		SourcePath:   "contracts/" + name + ".sol",
		ABI:          []byte(abiJSON),
		Bytecode:     code,
		Compiler:     artifacts.CompilerInfo{Name: "solc", Version: "0.5.10+commit.5a6ea5b1"},
	}
}

// KYCMock returns the KYC stand-in artifact.
func KYCMock() *artifacts.Artifact {
	return artifact("KYCMock", KYCMockABI, KYCMockBytecode)
}

// FileShare returns the file-share artifact whose constructor takes the KYC address.
func FileShare() *artifacts.Artifact {
	return artifact("FileShare", FileShareABI, FileShareBytecode)
}

// Registry returns an artifact with a wide constructor signature.
func Registry() *artifacts.Artifact {
	return artifact("Registry", RegistryABI, RegistryBytecode)
}

// NewStore writes the fixtures into a temporary artifact directory.
func NewStore(t testing.TB) *artifacts.Store {
	t.Helper()
	store := artifacts.NewStore(t.TempDir(), nil)
	for _, a := range []*artifacts.Artifact{KYCMock(), FileShare(), Registry()} {
		require.NoError(t, store.Save(a))
	}
	return store
}
