// Package keydsl parses key expressions used in keymap layers, such as
// "KC_P7", "TO(NUMPADS)", "LSFT(KC_MINS)" or "0x7E41".
package keydsl

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	ruleHex        = lexer.SimpleRule{Name: "Hex", Pattern: `0[xX][0-9a-fA-F]+`}
	ruleNumber     = lexer.SimpleRule{Name: "Number", Pattern: `\d+`}
	ruleIdent      = lexer.SimpleRule{Name: "Ident", Pattern: `[A-Za-z_][A-Za-z0-9_]*`}
	rulePunct      = lexer.SimpleRule{Name: "Punct", Pattern: `[(),]`}
	ruleWhitespace = lexer.SimpleRule{Name: "Whitespace", Pattern: `[ \t]+`}
)

var expressionLexer = lexer.MustSimple([]lexer.SimpleRule{
	ruleWhitespace,
	ruleHex,
	ruleNumber,
	ruleIdent,
	rulePunct,
})

var expressionParser = participle.MustBuild[Expression](
	participle.Lexer(expressionLexer),
	participle.Elide(ruleWhitespace.Name),
)

type Expression struct {
	Code      *Code        `parser:"@Hex |" json:"code,omitempty"`
	Name      string       `parser:"@Ident" json:"name,omitempty"`
	Arguments []*Argument  `parser:"('(' (@@ (',' @@)*)? ')')?" json:"arguments,omitempty"`
}

type Argument struct {
	Number *int        `parser:"@Number |" json:"number,omitempty"`
	Expr   *Expression `parser:"@@" json:"expr,omitempty"`
}

type Code uint16

func (c *Code) Capture(values []string) error {
	v, err := strconv.ParseUint(values[0][2:], 16, 16)
	if err != nil {
		return fmt.Errorf("invalid keycode %s: %w", values[0], err)
	}
	*c = Code(v)
	return nil
}

// IsCall reports whether the expression has a parenthesised argument list.
func (e *Expression) IsCall() bool {
	return e.Arguments != nil
}

func (e *Expression) String() string {
	if e.Code != nil {
		return fmt.Sprintf("0x%04X", uint16(*e.Code))
	}
	if !e.IsCall() {
		return e.Name
	}
	args := make([]string, 0, len(e.Arguments))
	for _, arg := range e.Arguments {
		args = append(args, arg.String())
	}
	return fmt.Sprintf("%s(%s)", e.Name, strings.Join(args, ", "))
}

func (a *Argument) String() string {
	if a.Number != nil {
		return strconv.Itoa(*a.Number)
	}
	return a.Expr.String()
}

func Parse(expr string) (*Expression, error) {
	result, err := expressionParser.ParseString("", expr)
	if err != nil {
		return nil, err
	}
	return result, nil
}
