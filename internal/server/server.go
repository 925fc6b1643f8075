// Package server exposes verification as MCP tools.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"go.uber.org/zap"

	"github.com/benedictfischer09/sourcecode-verifier/internal/config"
	"github.com/benedictfischer09/sourcecode-verifier/internal/fetch"
	"github.com/benedictfischer09/sourcecode-verifier/internal/logging"
	"github.com/benedictfischer09/sourcecode-verifier/internal/policy"
	"github.com/benedictfischer09/sourcecode-verifier/internal/report"
	"github.com/benedictfischer09/sourcecode-verifier/internal/rules"
	"github.com/benedictfischer09/sourcecode-verifier/internal/tags"
	"github.com/benedictfischer09/sourcecode-verifier/internal/verify"
)

// Verifier is the part of a verify.Session the tools call.
type Verifier interface {
	Verify(ctx context.Context, req verify.Request) (*report.Record, error)
	VerifyLocal(ctx context.Context, artifactPath, sourcePath string) (*report.Record, error)
	ResolveRepository(ctx context.Context, req verify.Request) (fetch.Repository, error)
	ResolveTag(ctx context.Context, id verify.Identifier, repo fetch.Repository) (tags.VersionTag, error)
	Rules() (artifact, source *rules.RuleSet)
}

type Server struct {
	server   *mcp.Server
	verifier Verifier
	policy   *policy.Engine
	display  *rules.RuleSet
	cfg      *config.Config
	logger   *zap.Logger
	version  string
}

type Option func(*Server)

// WithVersion sets the implementation version announced to clients.
func WithVersion(v string) Option {
	return func(s *Server) { s.version = v }
}

func New(v Verifier, cfg *config.Config, logger *zap.Logger, opts ...Option) (*Server, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	engine, err := policy.New(cfg.Policy)
	if err != nil {
		return nil, fmt.Errorf("compiling policy: %w", err)
	}
	display, err := rules.DisplayRules(cfg.Ignore.Display)
	if err != nil {
		return nil, fmt.Errorf("display rules: %w", err)
	}

	s := &Server{
		verifier: v,
		policy:   engine,
		display:  display,
		cfg:      cfg,
		logger:   logger.Named("server"),
		version:  "dev",
	}
	for _, opt := range opts {
		opt(s)
	}

	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "sourcecode-verifier",
		Version: s.version,
	}, nil)
	s.server.AddReceivingMiddleware(logging.NewReceivingMiddleware(s.logger))

	s.registerVerifyTools()
	s.registerTagTool()
	s.registerExplainTool()
	return s, nil
}

// Run serves until the client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context, t mcp.Transport) error {
	s.logger.Info("serving", zap.String("version", s.version))
	return s.server.Run(ctx, t)
}

// Connect starts a session on t without blocking.
func (s *Server) Connect(ctx context.Context, t mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, t, nil)
}

type verifyPackageInput struct {
	Package      string `json:"package" jsonschema:"gem name, or name@version"`
	Version      string `json:"version,omitempty" jsonschema:"released version; optional when package is name@version"`
	Repository   string `json:"repository,omitempty" jsonschema:"owner/name or GitHub URL; located from registry metadata when empty"`
	Subdirectory string `json:"subdirectory,omitempty" jsonschema:"directory of a monorepo holding the gem"`
	IncludeDiff  bool   `json:"include_diff,omitempty" jsonschema:"include the unified diff in the result"`
}

type verifyLocalInput struct {
	ArtifactPath string `json:"artifact_path,omitempty" jsonschema:"directory holding the unpacked gem"`
	SourcePath   string `json:"source_path,omitempty" jsonschema:"directory holding the source checkout"`
	IncludeDiff  bool   `json:"include_diff,omitempty" jsonschema:"include the unified diff in the result"`
}

type decisionOutput struct {
	Effect policy.Effect `json:"effect"`
	Rule   string        `json:"rule"`
}

type verifyOutput struct {
	report.Record
	Policy        decisionOutput `json:"policy"`
	Diff          string         `json:"diff,omitempty"`
	DiffTruncated bool           `json:"diff_truncated,omitempty"`
}

func (s *Server) registerVerifyTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "verify_package",
		Description: "Compare a published gem with the tagged source in its repository",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in verifyPackageInput) (*mcp.CallToolResult, any, error) {
		audit(ctx, "verify_package", in.Package)
		req := verify.Request{
			Package:      in.Package,
			Version:      in.Version,
			Repository:   in.Repository,
			Subdirectory: in.Subdirectory,
		}
		rec, err := s.verifier.Verify(ctx, req)
		if err != nil {
			return s.failure(ctx, verify.Classify(err), err), nil, nil
		}
		return s.success(ctx, *rec, in.IncludeDiff)
	})

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "verify_local",
		Description: "Compare an unpacked gem directory with a source directory on disk",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in verifyLocalInput) (*mcp.CallToolResult, any, error) {
		audit(ctx, "verify_local", in.ArtifactPath)
		if in.ArtifactPath == "" || in.SourcePath == "" {
			return s.failure(ctx, report.Errored, errors.New("artifact_path and source_path are required")), nil, nil
		}
		rec, err := s.verifier.VerifyLocal(ctx, in.ArtifactPath, in.SourcePath)
		if err != nil {
			return s.failure(ctx, report.Errored, err), nil, nil
		}
		return s.success(ctx, *rec, in.IncludeDiff)
	})
}

func (s *Server) success(ctx context.Context, rec report.Record, includeDiff bool) (*mcp.CallToolResult, any, error) {
	effect, rule := s.policy.Evaluate(rec)
	if info := logging.GetAuditInfo(ctx); info != nil {
		info.Status = string(rec.Status)
		info.PolicyEffect = string(effect)
		info.PolicyRule = rule
	}

	out := verifyOutput{Record: rec, Policy: decisionOutput{Effect: effect, Rule: rule}}
	if includeDiff {
		out.Diff, out.DiffTruncated = report.TruncateDiff(rec.Diff, report.MaxHTMLDiffBytes)
	}
	return textResult(out)
}

func (s *Server) failure(ctx context.Context, status report.Status, err error) *mcp.CallToolResult {
	if info := logging.GetAuditInfo(ctx); info != nil {
		info.Status = string(status)
	}
	s.logger.Warn("tool failed", zap.String("status", string(status)), zap.Error(err))
	return &mcp.CallToolResult{
		IsError: true,
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf("%s: %v", status, err)}},
	}
}

func audit(ctx context.Context, tool, pkg string) {
	if info := logging.GetAuditInfo(ctx); info != nil {
		info.Tool = tool
		info.Package = pkg
	}
}

func textResult(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, nil, fmt.Errorf("marshaling result: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
