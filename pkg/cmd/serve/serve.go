package serve

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"

	"github.com/Paintersrp/weave/internal/backlinks"
	"github.com/Paintersrp/weave/internal/config"
	"github.com/Paintersrp/weave/internal/server"
	"github.com/Paintersrp/weave/internal/services/notes"
	"github.com/Paintersrp/weave/internal/state"
)

func NewCmdServe(s *state.State) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the notes and graph API over HTTP.",
		Long: heredoc.Doc(`
			Starts the JSON API. Every /api route expects a bearer token signed
			with auth.secret; create one with "weave token".

			GET /healthz and GET /metrics are served without a token.
		`),
		Example: heredoc.Doc(`
			WEAVE_AUTH_SECRET=change-me weave serve --addr :9000
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, s)
		},
	}

	cmd.Flags().String("addr", "", "Listen address (overrides server.addr)")
	cmd.Flags().Bool("text-logs", false, "Log as text instead of JSON")
	return cmd
}

func run(cmd *cobra.Command, s *state.State) error {
	tokens, err := s.Tokens()
	if err != nil {
		return err
	}

	addr := s.Config.Server.Addr
	if flagAddr, _ := cmd.Flags().GetString("addr"); flagAddr != "" {
		addr = flagAddr
	}

	logCfg := config.LogConfig{Level: s.Config.Log.Level, Format: "json"}
	if text, _ := cmd.Flags().GetBool("text-logs"); text {
		logCfg.Format = "text"
	}
	logger := state.NewLogger(logCfg, cmd.ErrOrStderr())

	m := backlinks.New(s.Store, logger, backlinks.WithConcurrency(s.Config.Backlinks.Concurrency))
	svc := notes.NewService(s.Store, m, state.GraphOptions(s.Config.Graph), logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := server.New(svc, tokens, logger)
	return srv.Run(ctx, addr, s.Config.Server.ReadTimeout, s.Config.Server.WriteTimeout)
}
