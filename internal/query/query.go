// Package query filters catalog entries by a CEL expression.
//
// Expressions see the following variables:
//
//	name, summary, artifact, group, version, maturity  string
//	rating                                             double
//	licenses                                           list(string)
//	released                                           timestamp
//
// Example: rating >= 4.0 && "Apache 2" in licenses
package query

import (
	"fmt"
	"time"

	"github.com/dnswlt/dirsearch/internal/catalog"
	"github.com/google/cel-go/cel"
)

// Predicate is a compiled filter expression. It is safe for concurrent use.
type Predicate struct {
	expr string
	prg  cel.Program
}

func newEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("name", cel.StringType),
		cel.Variable("summary", cel.StringType),
		cel.Variable("artifact", cel.StringType),
		cel.Variable("group", cel.StringType),
		cel.Variable("version", cel.StringType),
		cel.Variable("maturity", cel.StringType),
		cel.Variable("rating", cel.DoubleType),
		cel.Variable("licenses", cel.ListType(cel.StringType)),
		cel.Variable("released", cel.TimestampType),
	)
}

// Compile parses and type-checks expr. The expression must evaluate to a bool.
func Compile(expr string) (*Predicate, error) {
	env, err := newEnv()
	if err != nil {
		return nil, fmt.Errorf("failed to create CEL environment: %v", err)
	}
	ast, iss := env.Compile(expr)
	if iss.Err() != nil {
		return nil, fmt.Errorf("invalid query %q: %w", expr, iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("invalid query %q: result type is %v, want bool", expr, ast.OutputType())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("invalid query %q: %w", expr, err)
	}
	return &Predicate{expr: expr, prg: prg}, nil
}

func (p *Predicate) String() string {
	return p.expr
}

// Match evaluates p against e.
func (p *Predicate) Match(e *catalog.Entry) (bool, error) {
	out, _, err := p.prg.Eval(activation(e))
	if err != nil {
		return false, fmt.Errorf("failed to evaluate query for %q: %w", e.Name, err)
	}
	b, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("query for %q returned %T, want bool", e.Name, out.Value())
	}
	return b, nil
}

// Filter returns the entries of es that match p, in order.
func (p *Predicate) Filter(es []*catalog.Entry) ([]*catalog.Entry, error) {
	var result []*catalog.Entry
	for _, e := range es {
		ok, err := p.Match(e)
		if err != nil {
			return nil, err
		}
		if ok {
			result = append(result, e)
		}
	}
	return result, nil
}

func activation(e *catalog.Entry) map[string]any {
	var group, version string
	if e.Coordinate != nil {
		group = e.Coordinate.Group
		version = e.Coordinate.Version
	}
	released := e.Released
	if released.IsZero() {
		released = time.Unix(0, 0).UTC()
	}
	return map[string]any{
		"name":     e.Name,
		"summary":  e.Summary,
		"artifact": e.ArtifactID,
		"group":    group,
		"version":  version,
		"maturity": e.Maturity,
		"rating":   e.RatingValue(),
		"licenses": e.LicenseNames(),
		"released": released,
	}
}
