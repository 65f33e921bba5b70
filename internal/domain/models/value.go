package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// ValueKind is the type tag of a Value
type ValueKind string

const (
	KindAddress ValueKind = "address"
	KindInteger ValueKind = "integer"
	KindString  ValueKind = "string"
	KindBool    ValueKind = "bool"
	KindBytes   ValueKind = "bytes"
	KindArray   ValueKind = "array"
)

// DefaultNativeDecimals is used when a network does not declare its decimals
const DefaultNativeDecimals = 18

// Value is a resolved parameter or call argument.
type Value struct {
	Kind    ValueKind
	Address common.Address
	Int     *big.Int
	Str     string
	Bool    bool
	Bytes   []byte
	Items   []Value
}

func AddressValue(a common.Address) Value { return Value{Kind: KindAddress, Address: a} }

func IntValue(i *big.Int) Value { return Value{Kind: KindInteger, Int: new(big.Int).Set(i)} }

func Int64Value(i int64) Value { return Value{Kind: KindInteger, Int: big.NewInt(i)} }

func StringValue(s string) Value { return Value{Kind: KindString, Str: s} }

func BoolValue(b bool) Value { return Value{Kind: KindBool, Bool: b} }

func BytesValue(b []byte) Value { return Value{Kind: KindBytes, Bytes: common.CopyBytes(b)} }

func ArrayValue(items ...Value) Value {
	if items == nil {
		items = []Value{}
	}
	return Value{Kind: KindArray, Items: items}
}

// String renders the value the way it is written in plan files
func (v Value) String() string {
	switch v.Kind {
	case KindAddress:
		return v.Address.Hex()
	case KindInteger:
		if v.Int == nil {
			return "0"
		}
		return v.Int.String()
	case KindString:
		return v.Str
	case KindBool:
		return strconv.FormatBool(v.Bool)
	case KindBytes:
		return hexutil.Encode(v.Bytes)
	case KindArray:
		parts := make([]string, len(v.Items))
		for i, item := range v.Items {
			parts[i] = item.String()
		}
		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return "<invalid>"
	}
}

// AsAddress returns the value as an address when it can be read as one
func (v Value) AsAddress() (common.Address, bool) {
	switch v.Kind {
	case KindAddress:
		return v.Address, true
	case KindString:
		if common.IsHexAddress(v.Str) {
			return common.HexToAddress(v.Str), true
		}
	case KindBytes:
		if len(v.Bytes) == common.AddressLength {
			return common.BytesToAddress(v.Bytes), true
		}
	case KindInteger:
		if v.Int != nil && v.Int.Sign() >= 0 && v.Int.BitLen() <= 160 {
			return common.BigToAddress(v.Int), true
		}
	}
	return common.Address{}, false
}

// AsInt returns the value as an integer when it can be read as one
func (v Value) AsInt() (*big.Int, bool) {
	switch v.Kind {
	case KindInteger:
		if v.Int == nil {
			return new(big.Int), true
		}
		return v.Int, true
	case KindAddress:
		return new(big.Int).SetBytes(v.Address.Bytes()), true
	case KindString:
		i, err := ParseInteger(v.Str, DefaultNativeDecimals)
		if err == nil {
			return i, true
		}
	case KindBool:
		if v.Bool {
			return big.NewInt(1), true
		}
		return new(big.Int), true
	}
	return nil, false
}

// Equal compares two values, coercing between addresses, integers and their
// textual forms so a guard read can be compared with a plan literal.
func (v Value) Equal(o Value) bool {
	if v.Kind == KindArray || o.Kind == KindArray {
		if v.Kind != o.Kind || len(v.Items) != len(o.Items) {
			return false
		}
		for i := range v.Items {
			if !v.Items[i].Equal(o.Items[i]) {
				return false
			}
		}
		return true
	}

	if v.Kind == KindAddress || o.Kind == KindAddress {
		a, ok1 := v.AsAddress()
		b, ok2 := o.AsAddress()
		return ok1 && ok2 && a == b
	}

	if v.Kind == KindInteger || o.Kind == KindInteger {
		a, ok1 := v.AsInt()
		b, ok2 := o.AsInt()
		return ok1 && ok2 && a.Cmp(b) == 0
	}

	if v.Kind != o.Kind {
		if v.Kind == KindString || o.Kind == KindString {
			return v.String() == o.String()
		}
		return false
	}

	switch v.Kind {
	case KindString:
		return v.Str == o.Str
	case KindBool:
		return v.Bool == o.Bool
	case KindBytes:
		return bytes.Equal(v.Bytes, o.Bytes)
	}
	return false
}

// Interface returns a JSON friendly representation
func (v Value) Interface() any {
	switch v.Kind {
	case KindBool:
		return v.Bool
	case KindArray:
		out := make([]any, len(v.Items))
		for i, item := range v.Items {
			out[i] = item.Interface()
		}
		return out
	default:
		return v.String()
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Interface())
}

func (v *Value) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ValueFromAny(raw, DefaultNativeDecimals)
	if err != nil {
		return err
	}
	*v = parsed
	return nil
}

// ValueFromAny converts a decoded YAML or JSON scalar/list into a Value
func ValueFromAny(raw any, decimals int) (Value, error) {
	switch t := raw.(type) {
	case nil:
		return Value{}, fmt.Errorf("null is not a valid value")
	case bool:
		return BoolValue(t), nil
	case int:
		return Int64Value(int64(t)), nil
	case int64:
		return Int64Value(t), nil
	case uint64:
		return IntValue(new(big.Int).SetUint64(t)), nil
	case float64:
		// JSON numbers and YAML floats: only integral values are meaningful on chain
		f := new(big.Float).SetFloat64(t)
		i, acc := f.Int(nil)
		if acc != big.Exact {
			return Value{}, fmt.Errorf("non-integral number %v; use a unit suffix such as \"%v ether\"", t, t)
		}
		return IntValue(i), nil
	case string:
		return ParseLiteral(t, decimals), nil
	case []any:
		items := make([]Value, 0, len(t))
		for i, item := range t {
			parsed, err := ValueFromAny(item, decimals)
			if err != nil {
				return Value{}, fmt.Errorf("item %d: %w", i, err)
			}
			items = append(items, parsed)
		}
		return ArrayValue(items...), nil
	default:
		return Value{}, fmt.Errorf("unsupported value type %T", raw)
	}
}

// ParseLiteral infers the kind of an untyped textual literal
func ParseLiteral(s string, decimals int) Value {
	s = strings.TrimSpace(s)
	if common.IsHexAddress(s) && strings.HasPrefix(strings.ToLower(s), "0x") {
		return AddressValue(common.HexToAddress(s))
	}
	if i, err := ParseInteger(s, decimals); err == nil {
		return IntValue(i)
	}
	if b, err := hexutil.Decode(s); err == nil {
		return BytesValue(b)
	}
	return StringValue(s)
}

// ParseTyped parses s according to a parameter type. Array types accept a
// comma separated list.
func ParseTyped(typ, s string, decimals int) (Value, error) {
	typ = strings.TrimSpace(typ)
	s = strings.TrimSpace(s)

	if elem, ok := strings.CutSuffix(typ, "[]"); ok {
		if s == "" {
			return ArrayValue(), nil
		}
		parts := strings.Split(s, ",")
		items := make([]Value, 0, len(parts))
		for i, part := range parts {
			item, err := ParseTyped(elem, part, decimals)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}
			items = append(items, item)
		}
		return ArrayValue(items...), nil
	}

	switch {
	case typ == "":
		return ParseLiteral(s, decimals), nil
	case typ == "address":
		if !common.IsHexAddress(s) {
			return Value{}, fmt.Errorf("%q: %w", s, errInvalidAddress)
		}
		return AddressValue(common.HexToAddress(s)), nil
	case strings.HasPrefix(typ, "uint"), strings.HasPrefix(typ, "int"):
		i, err := ParseInteger(s, decimals)
		if err != nil {
			return Value{}, err
		}
		if strings.HasPrefix(typ, "uint") && i.Sign() < 0 {
			return Value{}, fmt.Errorf("%q: negative value for %s", s, typ)
		}
		return IntValue(i), nil
	case typ == "string":
		return StringValue(s), nil
	case typ == "bool":
		b, err := strconv.ParseBool(s)
		if err != nil {
			return Value{}, fmt.Errorf("%q: not a boolean", s)
		}
		return BoolValue(b), nil
	case strings.HasPrefix(typ, "bytes"):
		b, err := hexutil.Decode(s)
		if err != nil {
			return Value{}, fmt.Errorf("%q: %w", s, err)
		}
		return BytesValue(b), nil
	default:
		return Value{}, fmt.Errorf("unsupported parameter type %q", typ)
	}
}

var errInvalidAddress = fmt.Errorf("not a valid address")

// ParseInteger parses decimal or 0x-hex integers. Decimal numbers may carry a
// unit suffix (wei, gwei, ether) and a fractional part that the unit absorbs;
// "ether" scales by the native currency decimals.
func ParseInteger(s string, decimals int) (*big.Int, error) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "")
	if s == "" {
		return nil, fmt.Errorf("empty integer")
	}

	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		i, ok := new(big.Int).SetString(s[2:], 16)
		if !ok || len(s) == 2 {
			return nil, fmt.Errorf("%q: invalid hex integer", s)
		}
		return i, nil
	}

	number, unit, _ := strings.Cut(s, " ")
	unit = strings.TrimSpace(unit)
	exp := 0
	switch strings.ToLower(unit) {
	case "", "wei":
	case "gwei":
		exp = 9
	case "ether", "eth", "native":
		exp = decimals
		if exp <= 0 {
			exp = DefaultNativeDecimals
		}
	default:
		return nil, fmt.Errorf("%q: unknown unit %q", s, unit)
	}

	negative := strings.HasPrefix(number, "-")
	number = strings.TrimPrefix(number, "-")

	whole, frac, _ := strings.Cut(number, ".")
	if whole == "" {
		whole = "0"
	}
	if len(frac) > exp {
		return nil, fmt.Errorf("%q: too many decimal places for unit", s)
	}
	digits := whole + frac + strings.Repeat("0", exp-len(frac))
	for _, r := range digits {
		if r < '0' || r > '9' {
			return nil, fmt.Errorf("%q: invalid integer", s)
		}
	}

	i, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%q: invalid integer", s)
	}
	if negative {
		i.Neg(i)
	}
	return i, nil
}
