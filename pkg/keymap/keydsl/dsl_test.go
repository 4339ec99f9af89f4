package keydsl

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T {
	return &v
}

func TestParse(t *testing.T) {
	type testCase struct {
		input    string
		expected *Expression
	}
	testCases := []testCase{
		{
			input:    `KC_P7`,
			expected: &Expression{Name: "KC_P7"},
		},
		{
			input:    `_______`,
			expected: &Expression{Name: "_______"},
		},
		{
			input: `TO(NUMPADS)`,
			expected: &Expression{
				Name: "TO",
				Arguments: []*Argument{
					{Expr: &Expression{Name: "NUMPADS"}},
				},
			},
		},
		{
			input: `TO( 2 )`,
			expected: &Expression{
				Name: "TO",
				Arguments: []*Argument{
					{Number: ptr(2)},
				},
			},
		},
		{
			input: `LSFT(LCTL(KC_MINS))`,
			expected: &Expression{
				Name: "LSFT",
				Arguments: []*Argument{
					{Expr: &Expression{
						Name: "LCTL",
						Arguments: []*Argument{
							{Expr: &Expression{Name: "KC_MINS"}},
						},
					}},
				},
			},
		},
		{
			input:    `0x7E41`,
			expected: &Expression{Code: ptr(Code(0x7E41))},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.input, func(t *testing.T) {
			expr, err := Parse(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, expr)
		})
	}
}

func TestParseErrors(t *testing.T) {
	for _, input := range []string{``, `TO(`, `KC_A KC_B`, `(KC_A)`, `0xFFFFF`} {
		_, err := Parse(input)
		assert.Error(t, err, "input %q", input)
	}
}

func TestExpressionString(t *testing.T) {
	for _, input := range []string{`KC_A`, `TO(1)`, `LSFT(LCTL(KC_MINS))`, `0x7E41`} {
		expr, err := Parse(input)
		require.NoError(t, err)
		assert.Equal(t, input, expr.String())
	}
}
