package money

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func floatPtr(v float64) *float64 { return &v }

func TestFormatPrice(t *testing.T) {
	tests := []struct {
		name string
		in   *float64
		want string
	}{
		{name: "whole", in: floatPtr(20), want: "$20"},
		{name: "half up", in: floatPtr(20.005), want: "$20.01"},
		{name: "keeps trailing zero", in: floatPtr(20.6959), want: "$20.70"},
		{name: "nil", in: nil, want: ""},
		{name: "negative", in: floatPtr(-5.5), want: "-$5.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, FormatPrice(tt.in))
		})
	}
}

func TestParseRejectsNonNumeric(t *testing.T) {
	_, err := Parse("twelve dollars")
	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	require.Equal(t, "twelve dollars", fe.Value)
}

func TestArithmetic(t *testing.T) {
	price := MustParse("123.45")
	require.Equal(t, "246.90", price.MulInt(2).String())
	require.Equal(t, "61.725", price.MulFraction(decimal.RequireFromString("0.5")).Decimal().String())
	require.Equal(t, "61.73", price.MulFraction(decimal.RequireFromString("0.5")).RoundCents().String())
	require.Equal(t, "100.00", price.Sub(MustParse("23.45")).String())
	require.True(t, MustParse("0").IsZero())
	require.True(t, MustParse("1").Sub(MustParse("2")).IsNegative())
}

func TestJSONRoundTripKeepsDecimalString(t *testing.T) {
	var payload struct {
		Price Money `json:"price"`
		Other Money `json:"other"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"price":"19.99","other":5}`), &payload))
	require.Equal(t, "19.99", payload.Price.String())
	require.Equal(t, "5.00", payload.Other.String())

	out, err := json.Marshal(payload)
	require.NoError(t, err)
	require.JSONEq(t, `{"price":"19.99","other":"5.00"}`, string(out))
}

func TestUnmarshalInvalidPrice(t *testing.T) {
	var m Money
	err := json.Unmarshal([]byte(`"abc"`), &m)
	var fe *FormatError
	require.ErrorAs(t, err, &fe)
}
