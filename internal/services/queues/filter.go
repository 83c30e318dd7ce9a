package queuesvc

import (
	"fmt"
	"strings"

	"github.com/google/cel-go/cel"
)

// topicFilter wraps a compiled CEL program evaluated once per topic in an
// overview. When disabled, Match always returns true.
type topicFilter struct {
	prog    cel.Program
	enabled bool
}

func newTopicFilter(expr string) (topicFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return topicFilter{}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("topic", cel.StringType),
		cel.Variable("length", cel.IntType),
	)
	if err != nil {
		return topicFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return topicFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return topicFilter{}, iss2.Err()
	}
	if !checked.OutputType().IsExactType(cel.BoolType) {
		return topicFilter{}, fmt.Errorf("filter must evaluate to bool, got %s", checked.OutputType())
	}
	prog, err := env.Program(checked)
	if err != nil {
		return topicFilter{}, err
	}
	return topicFilter{prog: prog, enabled: true}, nil
}

// Match evaluates the filter for one topic. Evaluation errors count as no match.
func (f topicFilter) Match(topic string, length int) bool {
	if !f.enabled {
		return true
	}
	out, _, err := f.prog.Eval(map[string]any{
		"topic":  topic,
		"length": int64(length),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
