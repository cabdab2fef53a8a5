package main

import (
	"fmt"
	"os"
	"os/signal"
	"text/tabwriter"

	"github.com/aretw0/rekitter"
	"github.com/aretw0/rekitter/internal/cli"
	"github.com/aretw0/rekitter/pkg/registry"
	"github.com/spf13/cobra"
)

var rosterCmd = &cobra.Command{
	Use:   "roster",
	Short: "Inspect the characters",
}

var rosterListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List the characters in speaking order",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		reg, err := rekitter.LoadRoster(cmd.Context(), rosterPath(cfg.Roster, cfg.RosterDir), registry.WithAvatarBase(cfg.AvatarBase))
		if err != nil {
			return err
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tROLE\tERA")
		for _, c := range reg.All() {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", c.ID, c.Name, c.Role, c.Era)
		}
		return w.Flush()
	},
}

var rosterValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the roster, optionally re-checking on every change",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		watch, _ := cmd.Flags().GetBool("watch")

		if !watch {
			reg, err := rekitter.LoadRoster(cmd.Context(), rosterPath(cfg.Roster, cfg.RosterDir))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ %d characters OK\n", reg.Len())
			return nil
		}

		if cfg.RosterDir == "" {
			return fmt.Errorf("--watch needs a roster directory")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()
		return cli.WatchRoster(ctx, cfg.RosterDir, logger, func(r cli.RosterReport) {
			prefix := ""
			if r.Changed != "" {
				prefix = r.Changed + ": "
			}
			if r.Err != nil {
				fmt.Fprintf(out, "✗ %s%v\n", prefix, r.Err)
				return
			}
			fmt.Fprintf(out, "✓ %s%d characters OK\n", prefix, r.Registry.Len())
		})
	},
}

var themesCmd = &cobra.Command{
	Use:   "themes",
	Short: "List the debate themes",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tTITLE\tHASHTAG")
		for _, t := range cfg.MergeThemes(rekitter.DefaultThemes()) {
			fmt.Fprintf(w, "%s\t%s\t%s\n", t.ID, t.Title, t.Tag())
		}
		return w.Flush()
	},
}

func rosterPath(file, dir string) string {
	if dir != "" {
		return dir
	}
	return file
}

func init() {
	rootCmd.AddCommand(rosterCmd, themesCmd)
	rosterCmd.AddCommand(rosterListCmd, rosterValidateCmd)
	rosterValidateCmd.Flags().BoolP("watch", "w", false, "Re-validate on every change (directory rosters only)")
}
