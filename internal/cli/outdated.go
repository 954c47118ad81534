package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var (
	outdatedIdentity string
	diffIdentity     string
)

func init() {
	pluginsOutdatedCmd.Flags().StringVarP(&outdatedIdentity, "username", "u", "", "GitHub username for the registry")
	pluginsDiffCmd.Flags().StringVarP(&diffIdentity, "username", "u", "", "GitHub username for the registry")

	pluginsCmd.AddCommand(pluginsOutdatedCmd, pluginsDiffCmd)
}

var pluginsOutdatedCmd = &cobra.Command{
	Use:   "outdated",
	Short: "List installed plugins whose registry files differ from disk",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := projectDir()
		if err != nil {
			return err
		}
		res, err := pluginService(cmd.Context(), dir).Outdated(cmd.Context(), outdatedIdentity)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		return finish(out, res, res.Failure, func() error {
			if res.Installed == 0 {
				fmt.Fprintln(out, "No plugins installed.")
				return nil
			}
			if len(res.Outdated) == 0 {
				fmt.Fprintf(out, "All %s up to date.\n", plural(res.Installed, "plugin is", "plugins are"))
				return nil
			}
			w := newTable(out)
			fmt.Fprintln(w, "PLUGIN\tINSTALLED\tLATEST\tCHANGE\tFILES")
			for _, p := range res.Outdated {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%d\n", p.ID, dash(p.InstalledVersion), dash(p.LatestVersion), dash(p.Change), len(p.ChangedFiles))
			}
			return w.Flush()
		})
	},
}

var pluginsDiffCmd = &cobra.Command{
	Use:   "diff <plugin-id>",
	Short: "Show a unified diff between the local plugin files and the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := projectDir()
		if err != nil {
			return err
		}
		res, err := pluginService(cmd.Context(), dir).Diff(cmd.Context(), args[0], diffIdentity)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		return finish(out, res, res.Failure, func() error {
			if res.UpToDate {
				fmt.Fprintf(out, "%s matches the registry.\n", res.Name)
				return nil
			}
			for _, f := range res.Files {
				if f.New {
					fmt.Fprintf(out, "new file: %s\n", f.Path)
					continue
				}
				fmt.Fprint(out, f.Unified)
				if !strings.HasSuffix(f.Unified, "\n") {
					fmt.Fprintln(out)
				}
			}
			return nil
		})
	},
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
