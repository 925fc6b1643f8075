package cli

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/spf13/cobra"

	"github.com/benedictfischer09/sourcecode-verifier/internal/server"
)

func (a *app) newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve verification tools over MCP on stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			session, err := a.newSession()
			if err != nil {
				return &exitError{code: ExitUnverified, err: err}
			}
			srv, err := server.New(session, a.cfg, a.logger, server.WithVersion(a.info.Version))
			if err != nil {
				return &exitError{code: ExitUnverified, err: err}
			}
			if err := srv.Run(cmd.Context(), &mcp.StdioTransport{}); err != nil {
				return &exitError{code: ExitUnverified, err: err}
			}
			return nil
		},
	}
}
