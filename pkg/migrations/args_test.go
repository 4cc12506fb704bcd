package migrations

import (
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DeBrosOfficial/fsdeploy/pkg/artifacts/artifactstest"
	"github.com/DeBrosOfficial/fsdeploy/pkg/errors"
)

var owner = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")

func registryInputs(t *testing.T) abi.Arguments {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(artifactstest.RegistryABI))
	require.NoError(t, err)
	return parsed.Constructor.Inputs
}

func noRefs(name string) (common.Address, error) {
	return common.Address{}, errors.NewNotFoundError("deployment", name)
}

func TestResolveArgsRegistry(t *testing.T) {
	inputs := registryInputs(t)
	raw := []interface{}{
		"$Owner",
		"files",
		"1000000000000000000000",
		3,
		-7,
		"true",
		"0x" + strings.Repeat("ab", 32),
		"0xdeadbeef",
	}
	resolve := func(name string) (common.Address, error) {
		if name == "Owner" {
			return owner, nil
		}
		return noRefs(name)
	}

	args, err := ResolveArgs(inputs, raw, resolve)
	require.NoError(t, err)
	require.Len(t, args, 8)

	assert.Equal(t, owner, args[0])
	assert.Equal(t, "files", args[1])
	want, _ := new(big.Int).SetString("1000000000000000000000", 10)
	assert.Equal(t, 0, want.Cmp(args[2].(*big.Int)))
	assert.Equal(t, uint8(3), args[3])
	assert.Equal(t, int64(-7), args[4])
	assert.Equal(t, true, args[5])
	salt, ok := args[6].([32]byte)
	require.True(t, ok)
	assert.Equal(t, byte(0xab), salt[31])
	assert.Equal(t, []byte{0xde, 0xad, 0xbe, 0xef}, args[7])

	// the encoder accepts what we produced
	_, err = inputs.Pack(args...)
	require.NoError(t, err)
}

func TestResolveArgsErrors(t *testing.T) {
	inputs := registryInputs(t)
	valid := func() []interface{} {
		return []interface{}{owner.Hex(), "x", 1, 1, 1, false, "0x01", "0x"}
	}

	_, err := ResolveArgs(inputs, valid()[:3], noRefs)
	assert.True(t, errors.IsValidation(err))

	_, err = ResolveArgs(inputs, valid(), noRefs)
	require.NoError(t, err)

	tests := map[string]struct {
		index int
		value interface{}
	}{
		"bad address":     {0, "0x1234"},
		"uint8 overflow":  {3, 256},
		"negative uint":   {2, "-1"},
		"int64 overflow":  {4, "9223372036854775808"},
		"fractional":      {3, 1.5},
		"bool":            {5, "maybe"},
		"bytes32 too big": {6, "0x" + strings.Repeat("00", 33)},
		"odd hex":         {7, "0xabc"},
	}
	for name, tt := range tests {
		t.Run(name, func(t *testing.T) {
			raw := valid()
			raw[tt.index] = tt.value
			_, err := ResolveArgs(inputs, raw, noRefs)
			require.Error(t, err)
			assert.True(t, errors.IsValidation(err))
		})
	}

	raw := valid()
	raw[0] = "$Missing"
	_, err = ResolveArgs(inputs, raw, noRefs)
	assert.True(t, errors.IsNotFound(err))
}

func TestCoerceIntegers(t *testing.T) {
	uint256, err := abi.NewType("uint256", "", nil)
	require.NoError(t, err)
	int24, err := abi.NewType("int24", "", nil)
	require.NoError(t, err)
	u16, err := abi.NewType("uint16", "", nil)
	require.NoError(t, err)

	v, err := Coerce(uint256, "0xff")
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(255), v)

	v, err = Coerce(uint256, uint64(1)<<63)
	require.NoError(t, err)
	assert.Equal(t, new(big.Int).SetUint64(1<<63), v)

	v, err = Coerce(int24, -8388608)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(-8388608), v)
	_, err = Coerce(int24, 8388608)
	assert.Error(t, err)

	v, err = Coerce(u16, float64(65535))
	require.NoError(t, err)
	assert.Equal(t, uint16(65535), v)

	v, err = Coerce(u16, "1_000")
	require.NoError(t, err)
	assert.Equal(t, uint16(1000), v)
}

func TestCoerceLists(t *testing.T) {
	addrs, err := abi.NewType("address[]", "", nil)
	require.NoError(t, err)
	pair, err := abi.NewType("uint8[2]", "", nil)
	require.NoError(t, err)

	v, err := Coerce(addrs, []interface{}{owner.Hex(), owner})
	require.NoError(t, err)
	assert.Equal(t, []common.Address{owner, owner}, v)

	v, err = Coerce(pair, []interface{}{1, "2"})
	require.NoError(t, err)
	assert.Equal(t, [2]uint8{1, 2}, v)

	_, err = Coerce(pair, []interface{}{1})
	assert.Error(t, err)
	_, err = Coerce(addrs, "0x00")
	assert.Error(t, err)
}

func TestCoerceAddressIntoOtherTypes(t *testing.T) {
	str, err := abi.NewType("string", "", nil)
	require.NoError(t, err)
	b32, err := abi.NewType("bytes32", "", nil)
	require.NoError(t, err)

	v, err := Coerce(str, owner)
	require.NoError(t, err)
	assert.Equal(t, owner.Hex(), v)

	v, err = Coerce(b32, owner)
	require.NoError(t, err)
	arr := v.([32]byte)
	assert.Equal(t, owner.Bytes(), arr[:20])

	v, err = Coerce(b32, "label")
	require.NoError(t, err)
	arr = v.([32]byte)
	assert.Equal(t, []byte("label"), arr[:5])
}
