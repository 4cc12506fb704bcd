package artifacts

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/DeBrosOfficial/fsdeploy/pkg/errors"
)

var artifactJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// Store is a directory of <ContractName>.json artifacts.
type Store struct {
	dir    string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewStore returns a store rooted at dir. The directory is created on first Save.
func NewStore(dir string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, logger: logger}
}

// Dir returns the artifact directory.
func (s *Store) Dir() string {
	return s.dir
}

func (s *Store) pathFor(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// Require loads the artifact for ref, accepting either a bare contract name or
// a source path such as "./KYCMock.sol". Artifacts without creation code
// (interfaces, abstract contracts) are rejected.
func (s *Store) Require(ref string) (*Artifact, error) {
	name := NormalizeName(ref)
	if name == "" {
		return nil, errors.NewValidationError("contract", "empty contract reference", ref)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	a, err := s.load(name)
	if err != nil {
		return nil, err
	}
	if !a.HasBytecode() {
		return nil, errors.NewValidationError("bytecode",
			"artifact "+name+" has no bytecode (abstract contract or interface?)", nil)
	}
	return a, nil
}

func (s *Store) load(name string) (*Artifact, error) {
	data, err := os.ReadFile(s.pathFor(name))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NewNotFoundError("artifact", name)
		}
		return nil, errors.Wrapf(err, "read artifact %s", name)
	}

	var a Artifact
	if err := artifactJSON.Unmarshal(data, &a); err != nil {
		return nil, errors.WrapCode(err, errors.CodeSerializationError, "decode artifact "+name)
	}
	if a.ContractName == "" {
		a.ContractName = name
	}
	if a.ContractName != name {
		return nil, errors.NewValidationError("contractName",
			"artifact "+s.pathFor(name)+" declares contract "+a.ContractName, a.ContractName)
	}
	return &a, nil
}

// Save writes the artifact, replacing any previous file atomically.
func (s *Store) Save(a *Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.save(a)
}

func (s *Store) save(a *Artifact) error {
	if a.ContractName == "" {
		return errors.NewValidationError("contractName", "must not be empty", nil)
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return errors.Wrapf(err, "create artifact dir %s", s.dir)
	}

	a.UpdatedAt = time.Now().UTC()
	data, err := artifactJSON.MarshalIndent(a, "", "  ")
	if err != nil {
		return errors.WrapCode(err, errors.CodeSerializationError, "encode artifact "+a.ContractName)
	}

	tmp, err := os.CreateTemp(s.dir, "."+a.ContractName+"-*.json")
	if err != nil {
		return errors.Wrapf(err, "write artifact %s", a.ContractName)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return errors.Wrapf(err, "write artifact %s", a.ContractName)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "write artifact %s", a.ContractName)
	}
	if err := os.Rename(tmpName, s.pathFor(a.ContractName)); err != nil {
		os.Remove(tmpName)
		return errors.Wrapf(err, "write artifact %s", a.ContractName)
	}

	s.logger.Debug("Artifact saved", zap.String("contract", a.ContractName), zap.String("dir", s.dir))
	return nil
}

// RecordDeployment stores rec under networkID in the artifact of contract ref.
// The artifact is re-read under lock so concurrent compiles are not clobbered.
func (s *Store) RecordDeployment(ref, networkID string, rec NetworkRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, err := s.load(NormalizeName(ref))
	if err != nil {
		return err
	}
	a.SetDeployment(networkID, rec)
	return s.save(a)
}

// Merge writes compiled artifacts while keeping the network records of any
// existing artifact with the same name.
func (s *Store) Merge(compiled []*Artifact) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, a := range compiled {
		if prev, err := s.load(a.ContractName); err == nil && len(prev.Networks) > 0 {
			if a.Networks == nil {
				a.Networks = make(map[string]NetworkRecord, len(prev.Networks))
			}
			for id, rec := range prev.Networks {
				if _, ok := a.Networks[id]; !ok {
					a.Networks[id] = rec
				}
			}
		} else if err != nil && !errors.IsNotFound(err) {
			return err
		}
		if err := s.save(a); err != nil {
			return err
		}
	}
	return nil
}

// List returns all artifacts in the store sorted by contract name.
func (s *Store) List() ([]*Artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errors.Wrapf(err, "list artifacts in %s", s.dir)
	}

	var out []*Artifact
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
			continue
		}
		a, err := s.load(strings.TrimSuffix(name, ".json"))
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContractName < out[j].ContractName })
	return out, nil
}
