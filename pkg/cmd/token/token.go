package token

import (
	"fmt"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/weave/internal/state"
)

func NewCmdToken(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a bearer token for the current owner.",
		Long: heredoc.Doc(`
			Signs a token for the configured owner (or --owner) with auth.secret.
			Pass it to the API as "Authorization: Bearer <token>".
		`),
		Example: heredoc.Doc(`
			curl -H "Authorization: Bearer $(weave token --owner alice)" localhost:8080/api/graph
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tokens, err := s.Tokens()
			if err != nil {
				return err
			}
			raw, err := tokens.Issue(s.Config.Owner)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), raw)
			return nil
		},
	}
	return cmd
}
