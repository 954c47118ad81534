package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kitforge/kit/internal/plugins"
)

var (
	addIdentity     string
	addSkipGitCheck bool
	addNoDeps       bool
)

func init() {
	pluginsAddCmd.Flags().StringVarP(&addIdentity, "username", "u", "", "GitHub username for the registry (saved for later runs)")
	pluginsAddCmd.Flags().BoolVar(&addSkipGitCheck, "skip-git-check", false, "Install even if the working tree has uncommitted changes")
	pluginsAddCmd.Flags().BoolVar(&addNoDeps, "no-deps", false, "Do not install the plugin's npm dependencies")

	pluginsCmd.AddCommand(pluginsListCmd, pluginsAddCmd, pluginsInitCmd)
	rootCmd.AddCommand(pluginsCmd)
}

var pluginsCmd = &cobra.Command{
	Use:     "plugins",
	Aliases: []string{"plugin"},
	Short:   "Install and update registry plugins",
}

var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List plugins available for this project's variant",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := projectDir()
		if err != nil {
			return err
		}
		res, err := pluginService(cmd.Context(), dir).List(cmd.Context())
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		return finish(out, res, nil, func() error {
			if len(res.Plugins) == 0 {
				fmt.Fprintf(out, "No plugins available for %s.\n", res.Variant)
				return nil
			}
			fmt.Fprintf(out, "Plugins for %s (catalog: %s)\n\n", res.Variant, res.Source)
			w := newTable(out)
			fmt.Fprintln(w, "ID\tNAME\tINSTALLED\tDESCRIPTION")
			for _, p := range res.Plugins {
				installed := "-"
				if p.Installed {
					installed = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.ID, p.Name, installed, p.Description)
			}
			return w.Flush()
		})
	},
}

var pluginsAddCmd = &cobra.Command{
	Use:   "add <plugin-id>",
	Short: "Install a plugin into the project",
	Long: `Fetch a plugin from the registry, write its files, install its dependencies,
run its codemod, and append its environment variables to .env.example and
.env.local. The working tree must be clean unless --skip-git-check is given.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := projectDir()
		if err != nil {
			return err
		}
		res, err := pluginService(cmd.Context(), dir).Install(cmd.Context(), plugins.InstallOptions{
			PluginID:         args[0],
			Identity:         addIdentity,
			SkipGitCheck:     addSkipGitCheck,
			SkipDependencies: addNoDeps,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		return finish(out, res, res.Failure, func() error {
			fmt.Fprintf(out, "Installed %s (%s)\n", res.PluginName, plural(len(res.Files), "file", "files"))
			for _, f := range res.Files {
				fmt.Fprintf(out, "  %s\n", f)
			}
			if len(res.EnvVars) > 0 {
				keys := make([]string, 0, len(res.EnvVars))
				for _, v := range res.EnvVars {
					keys = append(keys, v.Key)
				}
				fmt.Fprintf(out, "Added %s to %s\n", strings.Join(keys, ", "), strings.Join(res.EnvFiles, " and "))
			}
			for _, w := range res.Warnings {
				warn(cmd.ErrOrStderr(), "%s", w.Reason)
			}
			if res.PostInstallMessage != "" {
				fmt.Fprintf(out, "\n%s\n", res.PostInstallMessage)
			}
			return nil
		})
	},
}

var pluginsInitCmd = &cobra.Command{
	Use:   "init <github-username>",
	Short: "Save the GitHub username used to authenticate with the registry",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := projectDir()
		if err != nil {
			return err
		}
		res, err := pluginService(cmd.Context(), dir).InitRegistry(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		return finish(out, res, nil, func() error {
			fmt.Fprintf(out, "Registry configured for %s (%s)\n", res.Username, res.Variant)
			return nil
		})
	},
}
