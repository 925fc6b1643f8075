// Package policy decides whether a verification record passes, using
// ordered CEL rules.
package policy

import (
	"fmt"

	"github.com/google/cel-go/cel"

	"github.com/benedictfischer09/sourcecode-verifier/internal/config"
	"github.com/benedictfischer09/sourcecode-verifier/internal/report"
)

type Effect string

const (
	Pass Effect = config.EffectPass
	Fail Effect = config.EffectFail
)

type compiledRule struct {
	name   string
	effect Effect
	prg    cel.Program
}

// Engine evaluates records against compiled rules. It is safe for
// concurrent use.
type Engine struct {
	rules         []compiledRule
	defaultEffect Effect
}

func New(cfg config.PolicyConfig) (*Engine, error) {
	env, err := config.NewPolicyEnv()
	if err != nil {
		return nil, fmt.Errorf("creating CEL environment: %w", err)
	}

	def := Effect(cfg.Default)
	if def == "" {
		def = Pass
	}

	e := &Engine{defaultEffect: def}
	for _, rule := range cfg.Rules {
		ast, issues := env.Compile(rule.Expression)
		if issues != nil && issues.Err() != nil {
			return nil, fmt.Errorf("rule %q: %w", rule.Name, issues.Err())
		}
		prg, err := env.Program(ast)
		if err != nil {
			return nil, fmt.Errorf("rule %q: %w", rule.Name, err)
		}
		e.rules = append(e.rules, compiledRule{
			name:   rule.Name,
			effect: Effect(rule.Effect),
			prg:    prg,
		})
	}
	return e, nil
}

// Evaluate returns the effect of the first matching rule and its name, or
// the default effect as "default:<effect>". A rule that errors or yields a
// non-boolean fails closed.
func (e *Engine) Evaluate(r report.Record) (Effect, string) {
	vars := activation(r)
	for _, rule := range e.rules {
		out, _, err := rule.prg.Eval(vars)
		if err != nil {
			return Fail, fmt.Sprintf("error:%s", rule.name)
		}
		matched, ok := out.Value().(bool)
		if !ok {
			return Fail, fmt.Sprintf("error:%s", rule.name)
		}
		if matched {
			return rule.effect, rule.name
		}
	}
	return e.defaultEffect, "default:" + string(e.defaultEffect)
}

// Decision is the verdict for one record.
type Decision struct {
	Record report.Record
	Effect Effect
	Rule   string
}

// EvaluateAll evaluates every record and reports whether all of them pass.
func (e *Engine) EvaluateAll(records []report.Record) ([]Decision, bool) {
	decisions := make([]Decision, len(records))
	passed := true
	for i, r := range records {
		effect, rule := e.Evaluate(r)
		decisions[i] = Decision{Record: r, Effect: effect, Rule: rule}
		if effect == Fail {
			passed = false
		}
	}
	return decisions, passed
}

func activation(r report.Record) map[string]any {
	return map[string]any{
		"name":          r.Package,
		"version":       r.Version,
		"repository":    r.Repository,
		"tag":           r.Tag,
		"status":        string(r.Status),
		"identical":     r.Identical,
		"artifact_only": nonNil(r.Files.ArtifactOnly),
		"source_only":   nonNil(r.Files.SourceOnly),
		"modified":      nonNil(r.Files.Modified),
		"error":         r.Error,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
