package models

import (
	"encoding/json"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseInteger(t *testing.T) {
	tests := []struct {
		in       string
		decimals int
		want     string
		wantErr  bool
	}{
		{in: "3833912037037", decimals: 18, want: "3833912037037"},
		{in: "12.5 ether", decimals: 18, want: "12500000000000000000"},
		{in: "0.3 ether", decimals: 18, want: "300000000000000000"},
		{in: "25 gwei", decimals: 18, want: "25000000000"},
		{in: "7 wei", decimals: 18, want: "7"},
		{in: "1 ether", decimals: 6, want: "1000000"},
		{in: "1_000_000", decimals: 18, want: "1000000"},
		{in: "0x1f", decimals: 18, want: "31"},
		{in: "-5", decimals: 18, want: "-5"},
		{in: "1.5", decimals: 18, wantErr: true},
		{in: "0.0000000001 gwei", decimals: 18, wantErr: true},
		{in: "5 dollars", decimals: 18, wantErr: true},
		{in: "0x", decimals: 18, wantErr: true},
		{in: "", decimals: 18, wantErr: true},
		{in: "12a", decimals: 18, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseInteger(tt.in, tt.decimals)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestParseLiteral(t *testing.T) {
	assert.Equal(t, KindAddress, ParseLiteral("0x5db0735cf88F85E78ed742215090c465979B5006", 18).Kind)
	assert.Equal(t, KindInteger, ParseLiteral("12.5 ether", 18).Kind)
	assert.Equal(t, KindInteger, ParseLiteral("0xdeadbeef", 18).Kind)
	assert.Equal(t, KindBytes, ParseLiteral("0x", 18).Kind)
	assert.Equal(t, KindString, ParseLiteral("Tesseract", 18).Kind)
}

func TestParseTyped(t *testing.T) {
	t.Run("arrays split on commas", func(t *testing.T) {
		v, err := ParseTyped("uint256[]", "5 ether, 10 ether,15 ether", 18)
		require.NoError(t, err)
		require.Len(t, v.Items, 3)
		assert.Equal(t, "15000000000000000000", v.Items[2].Int.String())
	})

	t.Run("empty array", func(t *testing.T) {
		v, err := ParseTyped("address[]", "", 18)
		require.NoError(t, err)
		assert.Equal(t, KindArray, v.Kind)
		assert.Empty(t, v.Items)
	})

	tests := []struct {
		typ, in string
		kind    ValueKind
		wantErr bool
	}{
		{typ: "address", in: "0x00000000000000000000000000000000000000a1", kind: KindAddress},
		{typ: "address", in: "0x123", wantErr: true},
		{typ: "uint8", in: "3", kind: KindInteger},
		{typ: "uint256", in: "-1", wantErr: true},
		{typ: "int256", in: "-1", kind: KindInteger},
		{typ: "bool", in: "true", kind: KindBool},
		{typ: "bool", in: "yes", wantErr: true},
		{typ: "string", in: "0x01", kind: KindString},
		{typ: "bytes32", in: "0x01", kind: KindBytes},
		{typ: "bytes", in: "zz", wantErr: true},
		{typ: "tuple", in: "x", wantErr: true},
		{typ: "", in: "42", kind: KindInteger},
	}
	for _, tt := range tests {
		t.Run(tt.typ+"/"+tt.in, func(t *testing.T) {
			v, err := ParseTyped(tt.typ, tt.in, 18)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.kind, v.Kind)
		})
	}
}

func TestValueEqual(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000000a1")

	tests := []struct {
		name string
		a, b Value
		want bool
	}{
		{name: "address and its hex string", a: AddressValue(addr), b: StringValue(addr.Hex()), want: true},
		{name: "address case insensitive", a: AddressValue(addr), b: StringValue("0x00000000000000000000000000000000000000A1"), want: true},
		{name: "different addresses", a: AddressValue(addr), b: AddressValue(common.Address{}), want: false},
		{name: "integer and unit string", a: IntValue(big.NewInt(5e18)), b: StringValue("5 ether"), want: true},
		{name: "integer and bool", a: Int64Value(1), b: BoolValue(true), want: true},
		{name: "arrays", a: ArrayValue(Int64Value(1), Int64Value(2)), b: ArrayValue(Int64Value(1), StringValue("2")), want: true},
		{name: "array length", a: ArrayValue(Int64Value(1)), b: ArrayValue(Int64Value(1), Int64Value(2)), want: false},
		{name: "array and scalar", a: ArrayValue(Int64Value(1)), b: Int64Value(1), want: false},
		{name: "bytes", a: BytesValue([]byte{1}), b: BytesValue([]byte{1}), want: true},
		{name: "bool and string", a: BoolValue(true), b: StringValue("true"), want: true},
		{name: "strings", a: StringValue("a"), b: StringValue("b"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
			assert.Equal(t, tt.want, tt.b.Equal(tt.a))
		})
	}
}

func TestValueJSON(t *testing.T) {
	addr := common.HexToAddress("0x00000000000000000000000000000000000000a1")
	in := []Value{AddressValue(addr), Int64Value(3833912037037), BoolValue(true), ArrayValue(Int64Value(1), Int64Value(2))}

	data, err := json.Marshal(in)
	require.NoError(t, err)
	assert.JSONEq(t, `["`+addr.Hex()+`","3833912037037",true,["1","2"]]`, string(data))

	var out []Value
	require.NoError(t, json.Unmarshal(data, &out))
	require.Len(t, out, len(in))
	for i := range in {
		assert.True(t, in[i].Equal(out[i]), "value %d", i)
	}
}

func TestValueFromAny(t *testing.T) {
	v, err := ValueFromAny([]any{1, "0.5 ether", true}, 18)
	require.NoError(t, err)
	require.Len(t, v.Items, 3)
	assert.Equal(t, "500000000000000000", v.Items[1].Int.String())

	_, err = ValueFromAny(1.5, 18)
	assert.ErrorContains(t, err, "non-integral")

	_, err = ValueFromAny(nil, 18)
	assert.Error(t, err)

	v, err = ValueFromAny(float64(1e6), 18)
	require.NoError(t, err)
	assert.Equal(t, "1000000", v.Int.String())
}
