package migrations

import (
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"

	"github.com/DeBrosOfficial/fsdeploy/pkg/artifacts"
	"github.com/DeBrosOfficial/fsdeploy/pkg/config"
	"github.com/DeBrosOfficial/fsdeploy/pkg/errors"
)

// Step deploys one contract.
type Step struct {
	// Contract is the artifact to deploy: "KYCMock", "KYCMock.sol" or "./KYCMock.sol".
	Contract string `yaml:"contract"`
	// Args are the constructor arguments. A string "$Name" or "${Name}" is
	// replaced by the address Name was deployed at.
	Args []interface{} `yaml:"args,omitempty"`
	// As names the deployment for later references. Defaults to the contract name.
	As string `yaml:"as,omitempty"`
}

// Name is the name the deployment is recorded under.
func (s Step) Name() string {
	if s.As != "" {
		return s.As
	}
	return artifacts.NormalizeName(s.Contract)
}

// Migration is an ordered list of deployments applied as a unit.
type Migration struct {
	Version int    `yaml:"version"`
	Name    string `yaml:"name"`
	Steps   []Step `yaml:"steps"`
}

// ID is the conventional "<version>_<name>" label.
func (m Migration) ID() string {
	return fmt.Sprintf("%d_%s", m.Version, m.Name)
}

// Plan is the full set of migrations for a project.
type Plan struct {
	Migrations []Migration `yaml:"migrations"`
}

// DefaultPlan deploys the KYC contract and then the file-share contract
// bound to it.
func DefaultPlan() *Plan {
	return &Plan{Migrations: []Migration{{
		Version: 2,
		Name:    "deploy_contracts",
		Steps: []Step{
			{Contract: "./KYCMock.sol"},
			{Contract: "./FileShare.sol", Args: []interface{}{"$KYCMock"}},
		},
	}}}
}

// LoadPlan reads a YAML plan file.
func LoadPlan(path string) (*Plan, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("migration plan", path)
		}
		return nil, errors.WrapCode(err, errors.CodeConfigError, "open migration plan")
	}
	defer f.Close()

	var plan Plan
	if err := config.DecodeStrict(f, &plan); err != nil {
		return nil, errors.WrapCode(err, errors.CodeConfigError, path)
	}
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	return &plan, nil
}

var identRE = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate rejects plans that cannot run: no migrations, non-positive or
// duplicate versions, empty migrations, and steps whose names collide or
// reference a deployment made later in the plan. References to names the
// plan never deploys are left to run time, where the state store may know them.
func (p *Plan) Validate() error {
	if len(p.Migrations) == 0 {
		return errors.NewValidationError("migrations", "plan has no migrations", nil)
	}

	seen := make(map[int]bool)
	for _, m := range p.Migrations {
		field := fmt.Sprintf("migrations[%d]", m.Version)
		if m.Version <= 0 {
			return errors.NewValidationError(field+".version", "must be a positive integer", m.Version)
		}
		if seen[m.Version] {
			return errors.NewValidationError(field+".version", "duplicate version", m.Version)
		}
		seen[m.Version] = true
		if strings.TrimSpace(m.Name) == "" {
			return errors.NewValidationError(field+".name", "must not be empty", m.Name)
		}
		if len(m.Steps) == 0 {
			return errors.NewValidationError(field+".steps", "migration has no steps", m.ID())
		}
	}

	// deployment order across the whole plan
	order := make(map[string]int)
	position := 0
	for _, m := range p.Sorted() {
		names := make(map[string]bool)
		for i, s := range m.Steps {
			field := fmt.Sprintf("migrations[%d].steps[%d]", m.Version, i)
			if artifacts.NormalizeName(s.Contract) == "" {
				return errors.NewValidationError(field+".contract", "must not be empty", s.Contract)
			}
			name := s.Name()
			if !identRE.MatchString(name) {
				return errors.NewValidationError(field+".as", "must be an identifier", name)
			}
			if names[name] {
				return errors.NewValidationError(field, "name deployed twice in one migration", name)
			}
			names[name] = true
			position++
			if _, ok := order[name]; !ok {
				order[name] = position
			}
		}
	}

	position = 0
	for _, m := range p.Sorted() {
		for i, s := range m.Steps {
			position++
			for _, arg := range s.Args {
				ref, ok := Reference(arg)
				if !ok {
					continue
				}
				if at, planned := order[ref]; planned && at >= position {
					return errors.NewValidationError(
						fmt.Sprintf("migrations[%d].steps[%d].args", m.Version, i),
						"references "+ref+" before it is deployed", arg)
				}
			}
		}
	}
	return nil
}

// Sorted returns the migrations in ascending version order.
func (p *Plan) Sorted() []Migration {
	out := append([]Migration(nil), p.Migrations...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Version < out[j].Version })
	return out
}

// Get returns the migration with the given version.
func (p *Plan) Get(version int) (Migration, bool) {
	for _, m := range p.Migrations {
		if m.Version == version {
			return m, true
		}
	}
	return Migration{}, false
}

var referenceRE = regexp.MustCompile(`^\$(?:\{([A-Za-z_][A-Za-z0-9_]*)\}|([A-Za-z_][A-Za-z0-9_]*))$`)

// Reference reports whether arg is a "$Name" or "${Name}" reference and
// returns Name.
func Reference(arg interface{}) (string, bool) {
	s, ok := arg.(string)
	if !ok {
		return "", false
	}
	m := referenceRE.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return "", false
	}
	if m[1] != "" {
		return m[1], true
	}
	return m[2], true
}
