package provider

import (
	"fmt"
	"strings"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/rlch/completer"
)

// Rule is a compiled applicability expression, e.g.
//
//	surface == "notebook" && !(prefix endsWith "#")
//
// The expression sees the variables listed in ruleEnv and must yield a
// bool.
type Rule struct {
	source  string
	program *vm.Program
}

// CompileRule compiles source. Undefined variables and non-boolean results
// are compile errors.
func CompileRule(source string) (*Rule, error) {
	program, err := expr.Compile(source, expr.Env(ruleEnv(completer.Request{}, completer.Context{})), expr.AsBool())
	if err != nil {
		return nil, fmt.Errorf("compiling rule %q: %w", source, err)
	}

	return &Rule{source: source, program: program}, nil
}

// String returns the rule's source.
func (r *Rule) String() string { return r.source }

// Eval runs the rule against req in the surface described by cc.
func (r *Rule) Eval(req completer.Request, cc completer.Context) (bool, error) {
	out, err := expr.Run(r.program, ruleEnv(req, cc))
	if err != nil {
		return false, fmt.Errorf("evaluating rule %q: %w", r.source, err)
	}

	ok, _ := out.(bool)

	return ok, nil
}

func ruleEnv(req completer.Request, cc completer.Context) map[string]any {
	pos := completer.PositionOf(req.Text, req.Offset)
	line := ""
	if lines := strings.Split(req.Text, "\n"); pos.Line < len(lines) {
		line = lines[pos.Line]
	}

	return map[string]any{
		"surface":     string(cc.Surface.Kind),
		"surface_id":  cc.Surface.ID,
		"path":        cc.Surface.Path,
		"text":        req.Text,
		"offset":      req.Offset,
		"line":        line,
		"line_number": pos.Line,
		"column":      pos.Column,
		"prefix":      line[:completer.ByteIndex(line, pos.Column)],
		"has_session": cc.Session != nil,
		"has_editor":  cc.Editor != nil,
	}
}
