package board

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestArgs(t *testing.T) {
	testCases := []struct {
		name  string
		parse func([]string) ([]interface{}, error)
		args  []string
		want  []interface{}
	}{
		{"finalize", FinalizeArgs, []string{"1234"}, []interface{}{uint32(1234)}},
		{"finalize hex", FinalizeArgs, []string{"0xdeadbeef"}, []interface{}{uint32(0xdeadbeef)}},
		{"peek u8", PeekArgs, []string{"u8", "16"}, []interface{}{uint8(0), uint32(16)}},
		{"peek u16", PeekArgs, []string{"u16", "0x12"}, []interface{}{uint8(1), uint32(0x12)}},
		{"peek u32", PeekArgs, []string{"u32", "20"}, []interface{}{uint8(2), uint32(20)}},
		{"poke", PokeArgs, []string{"u32", "0x14", "0xcafe"}, []interface{}{uint8(2), uint32(0x14), uint32(0xcafe)}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			values, err := tc.parse(tc.args)
			require.NoError(t, err)
			require.Equal(t, tc.want, values)
		})
	}
}

func TestArgsErrors(t *testing.T) {
	testCases := []struct {
		name  string
		parse func([]string) ([]interface{}, error)
		args  []string
	}{
		{"finalize missing", FinalizeArgs, nil},
		{"finalize negative", FinalizeArgs, []string{"-1"}},
		{"finalize overflow", FinalizeArgs, []string{"0x100000000"}},
		{"peek missing addr", PeekArgs, []string{"u8"}},
		{"peek width", PeekArgs, []string{"u64", "0"}},
		{"peek addr", PeekArgs, []string{"u8", "here"}},
		{"poke missing value", PokeArgs, []string{"u8", "16"}},
		{"poke width", PokeArgs, []string{"s8", "16", "1"}},
		{"poke value", PokeArgs, []string{"u8", "16", "x"}},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.parse(tc.args)
			require.Error(t, err)
		})
	}
}
