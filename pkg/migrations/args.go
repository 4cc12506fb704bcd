package migrations

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/spf13/cast"

	"github.com/DeBrosOfficial/fsdeploy/pkg/errors"
)

// AddressResolver returns the address a named deployment lives at.
type AddressResolver func(name string) (common.Address, error)

// ResolveArgs replaces references in raw and converts every value to the Go
// type the ABI encoder expects for the matching constructor input.
func ResolveArgs(inputs abi.Arguments, raw []interface{}, resolve AddressResolver) ([]interface{}, error) {
	if len(inputs) != len(raw) {
		return nil, errors.NewValidationError("args",
			fmt.Sprintf("constructor takes %d argument(s), got %d", len(inputs), len(raw)), raw)
	}

	out := make([]interface{}, len(raw))
	for i, in := range inputs {
		v := raw[i]
		if name, ok := Reference(v); ok {
			addr, err := resolve(name)
			if err != nil {
				return nil, err
			}
			v = addr
		}
		coerced, err := Coerce(in.Type, v)
		if err != nil {
			label := in.Name
			if label == "" {
				label = fmt.Sprintf("#%d", i)
			}
			return nil, errors.NewValidationError("args."+label, err.Error(), raw[i])
		}
		out[i] = coerced
	}
	return out, nil
}

// Coerce converts a loosely typed value (as decoded from YAML or given on the
// command line) to the Go representation of t.
func Coerce(t abi.Type, v interface{}) (interface{}, error) {
	switch t.T {
	case abi.AddressTy:
		return toAddress(v)
	case abi.BoolTy:
		return cast.ToBoolE(v)
	case abi.StringTy:
		return cast.ToStringE(v)
	case abi.BytesTy:
		return toBytes(v)
	case abi.FixedBytesTy:
		b, err := toBytes(v)
		if err != nil {
			return nil, err
		}
		if len(b) > t.Size {
			return nil, fmt.Errorf("%d bytes do not fit in bytes%d", len(b), t.Size)
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(b))
		return arr.Interface(), nil
	case abi.IntTy, abi.UintTy:
		return toInteger(t, v)
	case abi.SliceTy, abi.ArrayTy:
		return toList(t, v)
	default:
		return nil, fmt.Errorf("unsupported constructor type %s", t.String())
	}
}

func toAddress(v interface{}) (common.Address, error) {
	switch x := v.(type) {
	case common.Address:
		return x, nil
	case *common.Address:
		if x == nil {
			return common.Address{}, fmt.Errorf("nil address")
		}
		return *x, nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return common.Address{}, err
	}
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("%q is not an address", s)
	}
	return common.HexToAddress(s), nil
}

func toBytes(v interface{}) ([]byte, error) {
	switch x := v.(type) {
	case []byte:
		return x, nil
	case common.Address:
		return x.Bytes(), nil
	case common.Hash:
		return x.Bytes(), nil
	}
	s, err := cast.ToStringE(v)
	if err != nil {
		return nil, err
	}
	s = strings.TrimSpace(s)
	if s == "" || s == "0x" {
		return []byte{}, nil
	}
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		// plain text; useful for short labels in bytes32
		return []byte(s), nil
	}
	return hexutil.Decode(s)
}

func toBigInt(v interface{}) (*big.Int, error) {
	switch x := v.(type) {
	case *big.Int:
		if x == nil {
			return nil, fmt.Errorf("nil integer")
		}
		return new(big.Int).Set(x), nil
	case big.Int:
		return new(big.Int).Set(&x), nil
	case string:
		s := strings.TrimSpace(x)
		n, ok := new(big.Int).SetString(s, 0)
		if !ok {
			return nil, fmt.Errorf("%q is not an integer", s)
		}
		return n, nil
	case uint64:
		return new(big.Int).SetUint64(x), nil
	case uint:
		return new(big.Int).SetUint64(uint64(x)), nil
	case float64:
		if x != math.Trunc(x) || math.IsInf(x, 0) {
			return nil, fmt.Errorf("%v is not an integer", x)
		}
		if math.Abs(x) >= 1<<63 {
			return nil, fmt.Errorf("%v loses precision; quote large numbers", x)
		}
		return big.NewInt(int64(x)), nil
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return nil, err
	}
	return big.NewInt(n), nil
}

func toInteger(t abi.Type, v interface{}) (interface{}, error) {
	n, err := toBigInt(v)
	if err != nil {
		return nil, err
	}

	if t.T == abi.UintTy {
		if n.Sign() < 0 {
			return nil, fmt.Errorf("%s cannot be negative", t.String())
		}
		if n.BitLen() > t.Size {
			return nil, fmt.Errorf("%s overflows %s", n, t.String())
		}
	} else {
		limit := new(big.Int).Lsh(big.NewInt(1), uint(t.Size-1))
		lower := new(big.Int).Neg(limit)
		if n.Cmp(lower) < 0 || n.Cmp(limit) >= 0 {
			return nil, fmt.Errorf("%s overflows %s", n, t.String())
		}
	}

	goType := t.GetType()
	if goType.Kind() == reflect.Ptr {
		return n, nil
	}
	if t.T == abi.UintTy {
		return reflect.ValueOf(n.Uint64()).Convert(goType).Interface(), nil
	}
	return reflect.ValueOf(n.Int64()).Convert(goType).Interface(), nil
}

func toList(t abi.Type, v interface{}) (interface{}, error) {
	rv := reflect.ValueOf(v)
	if v == nil || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, fmt.Errorf("%s expects a list", t.String())
	}
	if t.T == abi.ArrayTy && rv.Len() != t.Size {
		return nil, fmt.Errorf("%s expects %d elements, got %d", t.String(), t.Size, rv.Len())
	}

	var out reflect.Value
	if t.T == abi.ArrayTy {
		out = reflect.New(t.GetType()).Elem()
	} else {
		out = reflect.MakeSlice(t.GetType(), rv.Len(), rv.Len())
	}
	for i := 0; i < rv.Len(); i++ {
		elem, err := Coerce(*t.Elem, rv.Index(i).Interface())
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out.Index(i).Set(reflect.ValueOf(elem))
	}
	return out.Interface(), nil
}
