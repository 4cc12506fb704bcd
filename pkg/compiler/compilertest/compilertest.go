// Package compilertest provides canned solc output for tests.
package compilertest

import "context"

// CombinedJSON is trimmed solc 0.5.10 --combined-json output for the KYC and
// file-share contracts.
const CombinedJSON = `{
  "contracts": {
    "FileShare.sol:FileShare": {
      "abi": "[{\"inputs\":[{\"name\":\"_kyc\",\"type\":\"address\"}],\"payable\":false,\"stateMutability\":\"nonpayable\",\"type\":\"constructor\"}]",
      "bin": "608060405234801561001057600080fd5b50",
      "bin-runtime": "6080604052600080fd00",
      "devdoc": "{\"methods\":{}}",
      "userdoc": "{\"methods\":{}}",
      "metadata": "{}",
      "srcmap": "",
      "srcmap-runtime": "",
      "hashes": {}
    },
    "KYCMock.sol:KYCMock": {
      "abi": "[{\"constant\":true,\"inputs\":[{\"name\":\"who\",\"type\":\"address\"}],\"name\":\"isVerified\",\"outputs\":[{\"name\":\"\",\"type\":\"bool\"}],\"payable\":false,\"stateMutability\":\"view\",\"type\":\"function\"}]",
      "bin": "6080604052348015600f57600080fd5b50",
      "bin-runtime": "6080604052",
      "devdoc": "{\"methods\":{}}",
      "userdoc": "{\"methods\":{}}",
      "metadata": "{}",
      "srcmap": "",
      "srcmap-runtime": "",
      "hashes": {"isVerified(address)": "b9209e33"}
    }
  },
  "version": "0.5.10+commit.5a6ea5b1.Linux.g++"
}`

// Runner returns fixed output and records the last invocation.
type Runner struct {
	Stdout []byte
	Stderr []byte
	Err    error

	Dir  string
	Name string
	Args []string
}

func (r *Runner) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, []byte, error) {
	r.Dir, r.Name, r.Args = dir, name, args
	return r.Stdout, r.Stderr, r.Err
}
