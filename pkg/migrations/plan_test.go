package migrations

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeBrosOfficial/fsdeploy/pkg/errors"
)

func TestDefaultPlan(t *testing.T) {
	plan := DefaultPlan()
	require.NoError(t, plan.Validate())
	require.Len(t, plan.Migrations, 1)

	m := plan.Migrations[0]
	assert.Equal(t, "2_deploy_contracts", m.ID())
	require.Len(t, m.Steps, 2)
	assert.Equal(t, "KYCMock", m.Steps[0].Name())
	assert.Equal(t, "FileShare", m.Steps[1].Name())
	assert.Equal(t, []interface{}{"$KYCMock"}, m.Steps[1].Args)
}

func TestReference(t *testing.T) {
	tests := []struct {
		arg  interface{}
		name string
		ok   bool
	}{
		{"$KYCMock", "KYCMock", true},
		{"${KYCMock}", "KYCMock", true},
		{" $kyc_2 ", "kyc_2", true},
		{"KYCMock", "", false},
		{"$2fast", "", false},
		{"${KYCMock", "", false},
		{"$", "", false},
		{42, "", false},
	}
	for _, tt := range tests {
		name, ok := Reference(tt.arg)
		assert.Equal(t, tt.ok, ok, "%v", tt.arg)
		assert.Equal(t, tt.name, name, "%v", tt.arg)
	}
}

func TestPlanValidate(t *testing.T) {
	tests := []struct {
		name string
		plan Plan
		want string
	}{
		{
			name: "empty",
			plan: Plan{},
			want: "no migrations",
		},
		{
			name: "non-positive version",
			plan: Plan{Migrations: []Migration{{Version: 0, Name: "x", Steps: []Step{{Contract: "A"}}}}},
			want: "positive",
		},
		{
			name: "duplicate version",
			plan: Plan{Migrations: []Migration{
				{Version: 1, Name: "a", Steps: []Step{{Contract: "A"}}},
				{Version: 1, Name: "b", Steps: []Step{{Contract: "B"}}},
			}},
			want: "duplicate version",
		},
		{
			name: "no steps",
			plan: Plan{Migrations: []Migration{{Version: 1, Name: "a"}}},
			want: "no steps",
		},
		{
			name: "empty contract",
			plan: Plan{Migrations: []Migration{{Version: 1, Name: "a", Steps: []Step{{Contract: " "}}}}},
			want: "steps[0].contract: must not be empty",
		},
		{
			name: "contract path without a name",
			plan: Plan{Migrations: []Migration{{Version: 1, Name: "a", Steps: []Step{{Contract: "./"}}}}},
			want: "steps[0].contract: must not be empty",
		},
		{
			name: "same name twice",
			plan: Plan{Migrations: []Migration{{Version: 1, Name: "a", Steps: []Step{{Contract: "A"}, {Contract: "./A.sol"}}}}},
			want: "deployed twice",
		},
		{
			name: "forward reference",
			plan: Plan{Migrations: []Migration{
				{Version: 2, Name: "kyc", Steps: []Step{{Contract: "KYCMock"}}},
				{Version: 1, Name: "share", Steps: []Step{{Contract: "FileShare", Args: []interface{}{"$KYCMock"}}}},
			}},
			want: "before it is deployed",
		},
		{
			name: "self reference",
			plan: Plan{Migrations: []Migration{{Version: 1, Name: "a", Steps: []Step{{Contract: "A", Args: []interface{}{"$A"}}}}}},
			want: "before it is deployed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.plan.Validate()
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPlanValidateAllowsExternalReference(t *testing.T) {
	plan := Plan{Migrations: []Migration{{
		Version: 3, Name: "upgrade",
		Steps: []Step{{Contract: "FileShare", Args: []interface{}{"$KYCMock"}}},
	}}}
	assert.NoError(t, plan.Validate())
}

func TestLoadPlan(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "plan.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
migrations:
  - version: 2
    name: deploy_contracts
    steps:
      - contract: ./KYCMock.sol
      - contract: ./FileShare.sol
        args: ["${KYCMock}"]
  - version: 3
    name: registry
    steps:
      - contract: Registry
        as: MainRegistry
        args: ["$FileShare", "files", "1000000000000000000", 3, -1, true, "0x01", "0x"]
`), 0644))

	plan, err := LoadPlan(path)
	require.NoError(t, err)
	require.Len(t, plan.Migrations, 2)
	assert.Equal(t, "MainRegistry", plan.Migrations[1].Steps[0].Name())
	assert.Equal(t, 3, plan.Migrations[1].Steps[0].Args[3])

	m, ok := plan.Get(3)
	require.True(t, ok)
	assert.Equal(t, "registry", m.Name)
	_, ok = plan.Get(9)
	assert.False(t, ok)
}

func TestLoadPlanErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadPlan(filepath.Join(dir, "missing.yaml"))
	assert.True(t, errors.IsNotFound(err))

	unknown := filepath.Join(dir, "unknown.yaml")
	require.NoError(t, os.WriteFile(unknown, []byte("migrations:\n  - version: 1\n    nmae: typo\n"), 0644))
	_, err = LoadPlan(unknown)
	require.Error(t, err)
	assert.Equal(t, errors.CodeConfigError, errors.GetErrorCode(err))

	invalid := filepath.Join(dir, "invalid.yaml")
	require.NoError(t, os.WriteFile(invalid, []byte("migrations:\n  - version: 1\n    name: empty\n"), 0644))
	_, err = LoadPlan(invalid)
	assert.True(t, errors.IsValidation(err))
}
