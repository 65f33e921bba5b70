package chain

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/zeroxblocks/zxb-deploy/internal/domain/models"
)

// ToGoArgs converts values into the Go types the ABI packer expects
func ToGoArgs(args abi.Arguments, values []models.Value) ([]interface{}, error) {
	if len(args) != len(values) {
		return nil, fmt.Errorf("argument count mismatch: abi expects %d, got %d", len(args), len(values))
	}

	out := make([]interface{}, len(values))
	for i, arg := range args {
		converted, err := ToGo(arg.Type, values[i])
		if err != nil {
			name := arg.Name
			if name == "" {
				name = strconv.Itoa(i)
			}
			return nil, fmt.Errorf("argument %s (%s): %w", name, arg.Type.String(), err)
		}
		out[i] = converted
	}
	return out, nil
}

// ToGo converts a single value for an ABI type
func ToGo(t abi.Type, v models.Value) (interface{}, error) {
	switch t.T {
	case abi.AddressTy:
		addr, ok := v.AsAddress()
		if !ok {
			return nil, fmt.Errorf("%s is not an address", v)
		}
		return addr, nil

	case abi.UintTy, abi.IntTy:
		i, ok := v.AsInt()
		if !ok {
			return nil, fmt.Errorf("%s is not an integer", v)
		}
		if t.T == abi.UintTy && i.Sign() < 0 {
			return nil, fmt.Errorf("%s is negative", v)
		}
		if i.BitLen() > t.Size {
			return nil, fmt.Errorf("%s overflows %s", v, t.String())
		}
		return sizedInt(t, i), nil

	case abi.BoolTy:
		switch v.Kind {
		case models.KindBool:
			return v.Bool, nil
		case models.KindString:
			b, err := strconv.ParseBool(v.Str)
			if err != nil {
				return nil, fmt.Errorf("%q is not a boolean", v.Str)
			}
			return b, nil
		case models.KindInteger:
			return v.Int.Sign() != 0, nil
		}
		return nil, fmt.Errorf("%s is not a boolean", v)

	case abi.StringTy:
		if v.Kind == models.KindString {
			return v.Str, nil
		}
		return v.String(), nil

	case abi.BytesTy:
		b, err := valueBytes(v)
		if err != nil {
			return nil, err
		}
		return b, nil

	case abi.FixedBytesTy:
		b, err := valueBytes(v)
		if err != nil {
			return nil, err
		}
		if len(b) > t.Size {
			return nil, fmt.Errorf("%d bytes do not fit %s", len(b), t.String())
		}
		arr := reflect.New(t.GetType()).Elem()
		reflect.Copy(arr, reflect.ValueOf(common.RightPadBytes(b, t.Size)))
		return arr.Interface(), nil

	case abi.SliceTy, abi.ArrayTy:
		if v.Kind != models.KindArray {
			return nil, fmt.Errorf("%s is not a list", v)
		}
		if t.T == abi.ArrayTy && len(v.Items) != t.Size {
			return nil, fmt.Errorf("expected %d items, got %d", t.Size, len(v.Items))
		}
		var out reflect.Value
		if t.T == abi.SliceTy {
			out = reflect.MakeSlice(t.GetType(), len(v.Items), len(v.Items))
		} else {
			out = reflect.New(t.GetType()).Elem()
		}
		for i, item := range v.Items {
			converted, err := ToGo(*t.Elem, item)
			if err != nil {
				return nil, fmt.Errorf("item %d: %w", i, err)
			}
			out.Index(i).Set(reflect.ValueOf(converted))
		}
		return out.Interface(), nil

	default:
		return nil, fmt.Errorf("unsupported abi type %s", t.String())
	}
}

// sizedInt returns the native Go integer type the packer requires for
// 8..64 bit types and *big.Int for the rest.
func sizedInt(t abi.Type, i *big.Int) interface{} {
	if t.T == abi.UintTy {
		switch t.Size {
		case 8:
			return uint8(i.Uint64())
		case 16:
			return uint16(i.Uint64())
		case 32:
			return uint32(i.Uint64())
		case 64:
			return i.Uint64()
		}
	} else {
		switch t.Size {
		case 8:
			return int8(i.Int64())
		case 16:
			return int16(i.Int64())
		case 32:
			return int32(i.Int64())
		case 64:
			return i.Int64()
		}
	}
	return new(big.Int).Set(i)
}

func valueBytes(v models.Value) ([]byte, error) {
	switch v.Kind {
	case models.KindBytes:
		return v.Bytes, nil
	case models.KindAddress:
		return v.Address.Bytes(), nil
	case models.KindString:
		b, err := hexutil.Decode(v.Str)
		if err != nil {
			return []byte(v.Str), nil
		}
		return b, nil
	case models.KindInteger:
		return v.Int.Bytes(), nil
	}
	return nil, fmt.Errorf("%s is not bytes", v)
}

// FromGo converts an unpacked ABI output into a Value
func FromGo(x interface{}) models.Value {
	switch t := x.(type) {
	case common.Address:
		return models.AddressValue(t)
	case *big.Int:
		return models.IntValue(t)
	case bool:
		return models.BoolValue(t)
	case string:
		return models.StringValue(t)
	case []byte:
		return models.BytesValue(t)
	case uint8:
		return models.IntValue(new(big.Int).SetUint64(uint64(t)))
	case uint16:
		return models.IntValue(new(big.Int).SetUint64(uint64(t)))
	case uint32:
		return models.IntValue(new(big.Int).SetUint64(uint64(t)))
	case uint64:
		return models.IntValue(new(big.Int).SetUint64(t))
	case int8:
		return models.Int64Value(int64(t))
	case int16:
		return models.Int64Value(int64(t))
	case int32:
		return models.Int64Value(int64(t))
	case int64:
		return models.Int64Value(t)
	}

	rv := reflect.ValueOf(x)
	switch rv.Kind() {
	case reflect.Array:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			b := make([]byte, rv.Len())
			reflect.Copy(reflect.ValueOf(b), rv)
			return models.BytesValue(b)
		}
		fallthrough
	case reflect.Slice:
		items := make([]models.Value, rv.Len())
		for i := range items {
			items[i] = FromGo(rv.Index(i).Interface())
		}
		return models.ArrayValue(items...)
	}
	return models.StringValue(fmt.Sprint(x))
}
