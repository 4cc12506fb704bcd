package deployer

import (
	"fmt"

	"github.com/DeBrosOfficial/fsdeploy/pkg/artifacts"
	"github.com/DeBrosOfficial/fsdeploy/pkg/errors"
)

// CreationData returns the artifact's creation bytecode followed by the
// ABI-encoded constructor arguments.
func CreationData(a *artifacts.Artifact, args ...interface{}) ([]byte, error) {
	code, err := a.CreationCode()
	if err != nil {
		return nil, err
	}
	parsed, err := a.ParsedABI()
	if err != nil {
		return nil, err
	}

	inputs := parsed.Constructor.Inputs
	if len(inputs) != len(args) {
		return nil, errors.NewValidationError("args",
			fmt.Sprintf("%s constructor takes %d argument(s), got %d", a.ContractName, len(inputs), len(args)), args)
	}
	if len(args) == 0 {
		return code, nil
	}

	packed, err := parsed.Pack("", args...)
	if err != nil {
		return nil, errors.NewValidationError("args", fmt.Sprintf("encode %s constructor arguments: %v", a.ContractName, err), args)
	}
	return append(code, packed...), nil
}
