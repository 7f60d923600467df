package types

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRBTC(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantWei string
		wantErr bool
	}{
		{name: "whole number", input: "1", wantWei: "1000000000000000000"},
		{name: "drop amount", input: "0.00000625", wantWei: "6250000000000"},
		{name: "daily cap", input: "0.00003125", wantWei: "31250000000000"},
		{name: "dust threshold", input: "0.00000001", wantWei: "10000000000"},
		{name: "full precision", input: "0.000000000000000001", wantWei: "1"},
		{name: "leading dot", input: ".5", wantWei: "500000000000000000"},
		{name: "zero", input: "0", wantWei: "0"},
		{name: "whitespace trimmed", input: " 2 ", wantWei: "2000000000000000000"},
		{name: "empty", input: "", wantErr: true},
		{name: "negative", input: "-1", wantErr: true},
		{name: "too many digits", input: "0.0000000000000000001", wantErr: true},
		{name: "not a number", input: "abc", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRBTC(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantWei, got.String())
		})
	}
}

func TestFormatRBTC(t *testing.T) {
	tests := []struct {
		name string
		wei  string
		want string
	}{
		{name: "one rbtc", wei: "1000000000000000000", want: "1.00000000"},
		{name: "drop amount", wei: "6250000000000", want: "0.00000625"},
		{name: "dust", wei: "10000000000", want: "0.00000001"},
		{name: "below display precision", wei: "1", want: "0.00000000"},
		{name: "zero", wei: "0", want: "0.00000000"},
		{name: "mixed", wei: "1500000000000000000", want: "1.50000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wei, ok := new(big.Int).SetString(tt.wei, 10)
			require.True(t, ok)
			assert.Equal(t, tt.want, FormatRBTC(wei))
		})
	}
}

func TestFormatRBTCNil(t *testing.T) {
	assert.Equal(t, "0.00000000", FormatRBTC(nil))
}

func TestParseFormatRoundTrip(t *testing.T) {
	for _, s := range []string{"0.00000625", "1.50000000", "0.00000001"} {
		wei, err := ParseRBTC(s)
		require.NoError(t, err)
		assert.Equal(t, s, FormatRBTC(wei))
	}
}
