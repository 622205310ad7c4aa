package root

import (
	"github.com/MakeNowJust/heredoc/v2"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Paintersrp/weave/internal/constants"
	"github.com/Paintersrp/weave/internal/state"
	"github.com/Paintersrp/weave/pkg/cmd/backup"
	"github.com/Paintersrp/weave/pkg/cmd/folder"
	"github.com/Paintersrp/weave/pkg/cmd/graph"
	"github.com/Paintersrp/weave/pkg/cmd/notes"
	"github.com/Paintersrp/weave/pkg/cmd/serve"
	"github.com/Paintersrp/weave/pkg/cmd/token"
)

// NewCmdRoot builds the command tree around s. s is loaded from the config
// once flags are parsed, unless the caller already loaded it.
func NewCmdRoot(s *state.State, v *viper.Viper) *cobra.Command {
	cmd := &cobra.Command{
		Use:     constants.AppName,
		Short:   "Keep a linked note corpus and explore its graph.",
		Version: constants.Version,
		Long: heredoc.Doc(`
			weave stores notes that reference each other with [[Title]] links,
			keeps every note's backlinks current as notes change, and builds a
			laid out graph of the whole corpus.

			Run the API with "weave serve" or work from the terminal:

			  weave notes new "Graph theory" --content "see [[Euler]]"
			  weave notes backlinks Euler
			  weave graph --folder research
		`),
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return prepareState(cmd, s, v)
		},
	}
	cmd.SetUsageTemplate(constants.Help)

	flags := cmd.PersistentFlags()
	flags.String("config", "", "Config file (default $HOME/.weave/config.yaml)")
	flags.String("owner", "", "Owner whose notes are read and written")
	flags.String("store", "", "Store driver: memory, sqlite or postgres")
	flags.String("dsn", "", "Store connection string or SQLite file path")
	flags.String("log-level", "", "Log level: debug, info, warn or error")

	v.BindPFlag("config", flags.Lookup("config"))
	v.BindPFlag("owner", flags.Lookup("owner"))
	v.BindPFlag("store.driver", flags.Lookup("store"))
	v.BindPFlag("store.dsn", flags.Lookup("dsn"))
	v.BindPFlag("log.level", flags.Lookup("log-level"))

	cmd.AddCommand(
		serve.NewCmdServe(s),
		graph.NewCmdGraph(s),
		notes.NewCmdNotes(s),
		folder.NewCmdFolder(s),
		backup.NewCmdBackup(s),
		token.NewCmdToken(s),
	)

	return cmd
}

func prepareState(cmd *cobra.Command, s *state.State, v *viper.Viper) error {
	switch cmd.Name() {
	case "help", "completion", "__complete":
		return nil
	}

	if !s.Loaded() {
		if err := s.Load(cmd.Context(), v, cmd.ErrOrStderr()); err != nil {
			return err
		}
	}

	if f := cmd.Flags().Lookup("owner"); f != nil && f.Changed {
		s.Config.Owner = f.Value.String()
	}
	return nil
}
