package schemaverify

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/cockroachdb/tblverify/table"
	"github.com/cockroachdb/tblverify/testutils"
	"github.com/stretchr/testify/require"
)

func cols(names ...string) []table.Column {
	ret := make([]table.Column, len(names))
	for i, n := range names {
		ret[i] = table.Column{Name: n}
	}
	return ret
}

func TestColumnCompare(t *testing.T) {
	for _, tc := range []struct {
		desc               string
		left, right        []string
		expectedCommon     []string
		expectedExtraneous [2][]string
	}{
		{
			desc:           "exactly the same",
			left:           []string{"a", "b", "c"},
			right:          []string{"a", "b", "c"},
			expectedCommon: []string{"a", "b", "c"},
		},
		{
			desc:               "everything only on the left",
			left:               []string{"a", "b", "c"},
			expectedCommon:     []string{},
			expectedExtraneous: [2][]string{{"a", "b", "c"}, nil},
		},
		{
			desc:               "everything only on the right",
			right:              []string{"a", "b", "c"},
			expectedCommon:     []string{},
			expectedExtraneous: [2][]string{nil, {"a", "b", "c"}},
		},
		{
			desc:               "one column differs on each side",
			left:               []string{"a", "b", "c"},
			right:              []string{"a", "b", "d"},
			expectedCommon:     []string{"a", "b"},
			expectedExtraneous: [2][]string{{"c"}, {"d"}},
		},
		{
			desc:               "interleaved",
			left:               []string{"a", "c", "e"},
			right:              []string{"b", "c", "d", "f"},
			expectedCommon:     []string{"c"},
			expectedExtraneous: [2][]string{{"a", "e"}, {"b", "d", "f"}},
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			res := compare([2]columnIterator{
				{columns: cols(tc.left...)},
				{columns: cols(tc.right...)},
			})
			require.Equal(t, tc.expectedCommon, res.CommonNames())
			require.Equal(t, tc.expectedExtraneous, res.Extraneous)
		})
	}
}

func TestVerify(t *testing.T) {
	ints := `[1, 2]`
	a := testutils.MakeTable(
		t,
		testutils.Col("zeta", arrow.PrimitiveTypes.Int64, ints),
		testutils.Col("alpha", arrow.PrimitiveTypes.Int64, ints),
		testutils.Col("only_a", arrow.PrimitiveTypes.Int64, ints),
		testutils.Col("tmp_a", arrow.PrimitiveTypes.Int64, ints),
	)
	b := testutils.MakeTable(
		t,
		testutils.Col("alpha", arrow.PrimitiveTypes.Int64, ints),
		testutils.Col("zeta", arrow.PrimitiveTypes.Int64, ints),
		testutils.Col("tmp_b", arrow.PrimitiveTypes.Int64, ints),
	)

	for _, tc := range []struct {
		desc               string
		cfg                FilterConfig
		expectedCommon     []string
		expectedExtraneous [2][]string
		expectedError      bool
	}{
		{
			desc:               "default filter",
			cfg:                DefaultFilterConfig(),
			expectedCommon:     []string{"alpha", "zeta"},
			expectedExtraneous: [2][]string{{"only_a", "tmp_a"}, {"tmp_b"}},
		},
		{
			desc:               "empty filter",
			cfg:                FilterConfig{},
			expectedCommon:     []string{"alpha", "zeta"},
			expectedExtraneous: [2][]string{{"only_a", "tmp_a"}, {"tmp_b"}},
		},
		{
			desc:               "filter out temporary columns",
			cfg:                FilterConfig{ColumnFilter: "^(alpha|zeta|only_a)$"},
			expectedCommon:     []string{"alpha", "zeta"},
			expectedExtraneous: [2][]string{{"only_a"}, nil},
		},
		{
			desc:          "bad filter",
			cfg:           FilterConfig{ColumnFilter: "("},
			expectedError: true,
		},
	} {
		t.Run(tc.desc, func(t *testing.T) {
			res, err := Verify([2]*table.Table{a, b}, tc.cfg)
			if tc.expectedError {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.expectedCommon, res.CommonNames())
			require.Equal(t, tc.expectedExtraneous, res.Extraneous)
			for _, c := range res.Common {
				require.Equal(t, c[0].Name, c[1].Name)
			}
		})
	}
}
