package server

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/benedictfischer09/sourcecode-verifier/internal/report"
	"github.com/benedictfischer09/sourcecode-verifier/internal/tags"
	"github.com/benedictfischer09/sourcecode-verifier/internal/verify"
)

type resolveTagInput struct {
	Project    string   `json:"project" jsonschema:"gem or project name used in tag templates"`
	Version    string   `json:"version" jsonschema:"version to find"`
	Tags       []string `json:"tags,omitempty" jsonschema:"tag names to search, in listing order; fetched from the repository when empty"`
	Repository string   `json:"repository,omitempty" jsonschema:"owner/name or GitHub URL used when tags is empty"`
}

type resolveTagOutput struct {
	tags.VersionTag
	Repository string   `json:"repository,omitempty"`
	Cascade    []string `json:"cascade"`
}

func (s *Server) registerTagTool() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "resolve_tag",
		Description: "Find the repository tag a released version was built from",
	}, func(ctx context.Context, _ *mcp.CallToolRequest, in resolveTagInput) (*mcp.CallToolResult, any, error) {
		audit(ctx, "resolve_tag", in.Project)
		if in.Project == "" || in.Version == "" {
			return s.failure(ctx, report.Errored, errors.New("project and version are required")), nil, nil
		}

		out := resolveTagOutput{Cascade: tags.Cascade(in.Project, in.Version)}
		if len(in.Tags) > 0 {
			tag, err := tags.Resolve(in.Project, in.Version, in.Tags)
			if err != nil {
				return s.failure(ctx, verify.Classify(err), err), nil, nil
			}
			out.VersionTag = tag
			return textResult(out)
		}

		req := verify.Request{Package: in.Project, Version: in.Version, Repository: in.Repository}
		repo, err := s.verifier.ResolveRepository(ctx, req)
		if err != nil {
			return s.failure(ctx, verify.Classify(err), err), nil, nil
		}
		tag, err := s.verifier.ResolveTag(ctx, verify.Identifier{Name: in.Project, Version: in.Version}, repo)
		if err != nil {
			return s.failure(ctx, verify.Classify(err), err), nil, nil
		}
		out.VersionTag = tag
		out.Repository = repo.String()
		return textResult(out)
	})
}
