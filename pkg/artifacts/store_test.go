package artifacts

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeBrosOfficial/fsdeploy/pkg/errors"
)

const (
	kycABI       = `[{"constant":true,"inputs":[{"name":"who","type":"address"}],"name":"isVerified","outputs":[{"name":"","type":"bool"}],"payable":false,"stateMutability":"view","type":"function"}]`
	fileShareABI = `[{"inputs":[{"name":"_kyc","type":"address"}],"payable":false,"stateMutability":"nonpayable","type":"constructor"}]`
	bytecode     = "0x608060405234801561001057600080fd5b50"
)

func newArtifact(name, abiJSON string) *Artifact {
	return &Artifact{
		ContractName: name,
		SourcePath:   "contracts/" + name + ".sol",
		ABI:          []byte(abiJSON),
		Bytecode:     bytecode,
		Compiler:     CompilerInfo{Name: "solc", Version: "0.5.10+commit.5a6ea5b1"},
	}
}

func TestNormalizeName(t *testing.T) {
	tests := map[string]string{
		"FileShare":               "FileShare",
		"./FileShare.sol":         "FileShare",
		"FileShare.sol":           "FileShare",
		"contracts/FileShare.sol": "FileShare",
		" ./KYCMock.sol ":         "KYCMock",
		"build\\KYCMock.json":     "KYCMock",
		"":                        "",
		"   ":                     "",
		".":                       "",
		"./":                      "",
		"/":                       "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeName(in), in)
	}
}

func TestRequireEmptyReference(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	for _, ref := range []string{"", " ", "./"} {
		_, err := store.Require(ref)
		require.Error(t, err, ref)
		assert.True(t, errors.IsValidation(err), ref)
	}
}

func TestRequireRejectsMissingBytecode(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	iface := newArtifact("IKYC", kycABI)
	iface.Bytecode = "0x"
	require.NoError(t, store.Save(iface))

	_, err := store.Require("./IKYC.sol")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
	assert.Contains(t, err.Error(), "no bytecode")
}

func TestRequireAcceptsPathAndBareName(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	require.NoError(t, store.Save(newArtifact("KYCMock", kycABI)))

	byPath, err := store.Require("./KYCMock.sol")
	require.NoError(t, err)
	byName, err := store.Require("KYCMock")
	require.NoError(t, err)

	assert.Equal(t, byName.ContractName, byPath.ContractName)
	assert.Equal(t, byName.Bytecode, byPath.Bytecode)
	assert.JSONEq(t, kycABI, string(byName.ABI))
}

func TestRequireMissing(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	_, err := store.Require("FileShare")
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))
	assert.Contains(t, err.Error(), "FileShare")
}

func TestRequireRejectsMismatchedName(t *testing.T) {
	dir := t.TempDir()
	store := NewStore(dir, nil)
	require.NoError(t, store.Save(newArtifact("KYCMock", kycABI)))
	require.NoError(t, os.Rename(filepath.Join(dir, "KYCMock.json"), filepath.Join(dir, "FileShare.json")))

	_, err := store.Require("FileShare")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestParsedABIAndCode(t *testing.T) {
	a := newArtifact("FileShare", fileShareABI)

	parsed, err := a.ParsedABI()
	require.NoError(t, err)
	require.Len(t, parsed.Constructor.Inputs, 1)
	assert.Equal(t, "address", parsed.Constructor.Inputs[0].Type.String())

	code, err := a.CreationCode()
	require.NoError(t, err)
	assert.Equal(t, byte(0x60), code[0])

	a.Bytecode = "608060"
	code, err = a.CreationCode()
	require.NoError(t, err)
	assert.Len(t, code, 3)
}

func TestCreationCodeErrors(t *testing.T) {
	a := newArtifact("Abstract", kycABI)
	a.Bytecode = "0x"
	_, err := a.CreationCode()
	assert.True(t, errors.IsValidation(err))

	a.Bytecode = "0x6080__$lib$__6040"
	_, err = a.CreationCode()
	assert.True(t, errors.IsValidation(err))

	a.Bytecode = "0x6zz0"
	_, err = a.CreationCode()
	assert.Error(t, err)
}

func TestRecordDeployment(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	require.NoError(t, store.Save(newArtifact("FileShare", fileShareABI)))

	rec := NetworkRecord{
		Address:         "0x5FbDB2315678afecb367f032d93F642f64180aa3",
		TransactionHash: "0x0a1b",
		BlockNumber:     7,
	}
	require.NoError(t, store.RecordDeployment("./FileShare.sol", "5777", rec))

	a, err := store.Require("FileShare")
	require.NoError(t, err)
	got, ok := a.Deployment("5777")
	require.True(t, ok)
	assert.Equal(t, rec, got)

	_, ok = a.Deployment("1")
	assert.False(t, ok)
	assert.False(t, a.UpdatedAt.IsZero())
}

func TestMergeKeepsNetworks(t *testing.T) {
	store := NewStore(t.TempDir(), nil)
	require.NoError(t, store.Save(newArtifact("KYCMock", kycABI)))
	require.NoError(t, store.RecordDeployment("KYCMock", "5777", NetworkRecord{
		Address: "0x5FbDB2315678afecb367f032d93F642f64180aa3",
	}))

	recompiled := newArtifact("KYCMock", kycABI)
	recompiled.Bytecode = "0x6080"
	require.NoError(t, store.Merge([]*Artifact{recompiled, newArtifact("FileShare", fileShareABI)}))

	a, err := store.Require("KYCMock")
	require.NoError(t, err)
	assert.Equal(t, "0x6080", a.Bytecode)
	_, ok := a.Deployment("5777")
	assert.True(t, ok)

	all, err := store.List()
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "FileShare", all[0].ContractName)
	assert.Equal(t, "KYCMock", all[1].ContractName)
}

func TestListMissingDir(t *testing.T) {
	store := NewStore(filepath.Join(t.TempDir(), "nope"), nil)
	all, err := store.List()
	require.NoError(t, err)
	assert.Empty(t, all)
}
