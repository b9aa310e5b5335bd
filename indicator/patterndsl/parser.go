package patterndsl

import (
	"time"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
)

var (
	ruleWhitespace = lexer.SimpleRule{Name: "Whitespace", Pattern: `[ \t]+`}
	ruleDuration   = lexer.SimpleRule{Name: "Duration", Pattern: `\d+(ns|us|µs|ms|s|m|h)`}
	ruleHex        = lexer.SimpleRule{Name: "Hex", Pattern: `#[0-9a-fA-F]{6}`}
	ruleNumber     = lexer.SimpleRule{Name: "Number", Pattern: `\d+`}
	ruleIdent      = lexer.SimpleRule{Name: "Ident", Pattern: `[a-zA-Z][\w-]*`}
	rulePunct      = lexer.SimpleRule{Name: "Punct", Pattern: `[(),]`}
)

var expressionLexer = lexer.MustSimple([]lexer.SimpleRule{
	ruleWhitespace,
	ruleDuration,
	ruleHex,
	ruleNumber,
	ruleIdent,
	rulePunct,
})

var expressionParser = participle.MustBuild[Expression](
	participle.Lexer(expressionLexer),
	participle.UseLookahead(2),
	participle.Elide(ruleWhitespace.Name),
)

// Expression is a pattern constructor call such as `solid(10, 0, 0)`.
// Parentheses are optional for constructors without arguments (`reset`).
type Expression struct {
	Name      string     `parser:"@Ident" json:"name"`
	Arguments []Argument `parser:"( '(' ( @@ ( ',' @@ )* )? ')' )?" json:"arguments,omitempty"`
}

type Argument struct {
	Duration *Duration `parser:"@Duration |" json:"duration,omitempty"`
	Hex      *string   `parser:"@Hex |" json:"hex,omitempty"`
	Number   *int      `parser:"@Number |" json:"number,omitempty"`
	Ident    *string   `parser:"@Ident" json:"ident,omitempty"`
}

type Duration time.Duration

func (d *Duration) Capture(values []string) error {
	duration, err := time.ParseDuration(values[0])
	if err != nil {
		return err
	}
	*d = Duration(duration)
	return nil
}
