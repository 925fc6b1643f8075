package server

import (
	"context"
	"encoding/json"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/benedictfischer09/sourcecode-verifier/internal/cache"
	"github.com/benedictfischer09/sourcecode-verifier/internal/rules"
)

type explainOutput struct {
	Ignore   explainIgnore `json:"ignore"`
	Policy   explainPolicy `json:"policy"`
	Diff     explainDiff   `json:"diff"`
	CacheDir string        `json:"cache_dir"`
	NoCache  bool          `json:"no_cache,omitempty"`
	LogLevel string        `json:"log_level"`
}

type explainIgnore struct {
	Artifact []explainRule `json:"artifact"`
	Source   []explainRule `json:"source"`
	Display  []explainRule `json:"display"`
}

type explainRule struct {
	Pattern string `json:"pattern"`
	Kind    string `json:"kind"`
}

type explainPolicy struct {
	Default string              `json:"default"`
	Rules   []explainPolicyRule `json:"rules,omitempty"`
}

type explainPolicyRule struct {
	Name       string `json:"name"`
	Expression string `json:"expression"`
	Effect     string `json:"effect"`
}

type explainDiff struct {
	Engine  string `json:"engine"`
	Workers int    `json:"workers"`
}

func (s *Server) registerExplainTool() {
	s.server.AddTool(&mcp.Tool{
		Name:        "explain_rules",
		Description: "Show the effective ignore rules, policy and diff settings",
		InputSchema: json.RawMessage(`{"type":"object"}`),
	}, func(ctx context.Context, _ *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		audit(ctx, "explain_rules", "")
		result, _, err := textResult(s.explain())
		return result, err
	})
}

func (s *Server) explain() explainOutput {
	artifact, source := s.verifier.Rules()
	output := explainOutput{
		Ignore: explainIgnore{
			Artifact: describeRules(artifact),
			Source:   describeRules(source),
			Display:  describeRules(s.display),
		},
		Policy: explainPolicy{
			Default: s.cfg.Policy.Default,
		},
		Diff: explainDiff{
			Engine:  s.cfg.Diff.Engine,
			Workers: s.cfg.Diff.Workers,
		},
		CacheDir: cache.Resolve(s.cfg.CacheDir),
		NoCache:  s.cfg.NoCache,
		LogLevel: s.cfg.LogLevel,
	}

	for _, rule := range s.cfg.Policy.Rules {
		output.Policy.Rules = append(output.Policy.Rules, explainPolicyRule{
			Name:       rule.Name,
			Expression: rule.Expression,
			Effect:     rule.Effect,
		})
	}
	return output
}

func describeRules(rs *rules.RuleSet) []explainRule {
	out := []explainRule{}
	if rs == nil {
		return out
	}
	for _, r := range rs.Rules() {
		out = append(out, explainRule{Pattern: r.Pattern(), Kind: r.Kind().String()})
	}
	return out
}
