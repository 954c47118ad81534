package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(statusCmd)
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the project's variant, git state, registry setup, and installed plugins",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := projectDir()
		if err != nil {
			return err
		}
		res, err := pluginService(cmd.Context(), dir).Status(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		return finish(out, res, nil, func() error {
			w := newTable(out)
			fmt.Fprintf(w, "Variant:\t%s\n", res.Variant)
			fmt.Fprintf(w, "Version:\t%s\n", dash(res.Version))
			fmt.Fprintf(w, "Working tree:\t%s\n", yesNo(res.GitClean, "clean", "dirty or not a git repository"))
			fmt.Fprintf(w, "Registry:\t%s\n", yesNo(res.RegistryConfigured, "configured", "not configured (run: plugins init <github-username>)"))
			if err := w.Flush(); err != nil {
				return err
			}

			installed := 0
			for _, p := range res.Plugins {
				if p.Installed {
					installed++
				}
			}
			fmt.Fprintf(out, "\nPlugins (%d of %s installed)\n", installed, plural(len(res.Plugins), "plugin", "plugins"))
			for _, p := range res.Plugins {
				mark := " "
				if p.Installed {
					mark = "*"
				}
				fmt.Fprintf(out, "  %s %s\n", mark, p.ID)
			}
			return nil
		})
	},
}

func yesNo(ok bool, yes, no string) string {
	if ok {
		return yes
	}
	return no
}
