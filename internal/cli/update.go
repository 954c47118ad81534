package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/kitforge/kit/internal/plugins"
	"github.com/kitforge/kit/internal/reconcile"
)

var (
	checkIdentity string

	applyIdentity     string
	applyFile         string
	applyAcceptRemote bool
	applyNoDeps       bool
)

func init() {
	pluginsCheckCmd.Flags().StringVarP(&checkIdentity, "username", "u", "", "GitHub username for the registry")

	pluginsApplyCmd.Flags().StringVarP(&applyIdentity, "username", "u", "", "GitHub username for the registry")
	pluginsApplyCmd.Flags().StringVarP(&applyFile, "file", "f", "", `JSON file of resolutions ([{"path","content","action"}]); "-" reads stdin`)
	pluginsApplyCmd.Flags().BoolVar(&applyAcceptRemote, "accept-remote", false, "Take the registry version of every changed file")
	pluginsApplyCmd.Flags().BoolVar(&applyNoDeps, "no-deps", false, "Do not install the plugin's npm dependencies")

	pluginsCmd.AddCommand(pluginsCheckCmd, pluginsApplyCmd)
}

var pluginsCheckCmd = &cobra.Command{
	Use:   "check <plugin-id>",
	Short: "Compare an installed plugin with the registry",
	Long: `Classify every file of a plugin by comparing the version installed with the
plugin (base), the file on disk (local), and the registry (remote). Use --json
to get the contents needed to resolve conflicts.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := projectDir()
		if err != nil {
			return err
		}
		res, err := pluginService(cmd.Context(), dir).CheckUpdate(cmd.Context(), plugins.CheckOptions{
			PluginID: args[0],
			Identity: checkIdentity,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		return finish(out, res, res.Failure, func() error {
			if !res.HasBaseVersions {
				warn(cmd.ErrOrStderr(), "no base versions recorded for %s; files that differ are reported as no_base", res.PluginID)
			}
			w := newTable(out)
			fmt.Fprintln(w, "STATUS\tPATH")
			for _, f := range res.Files {
				fmt.Fprintf(w, "%s\t%s\n", f.Status, f.Path)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintln(out)
			for _, s := range reconcile.Statuses {
				if n := res.Counts[s]; n > 0 {
					fmt.Fprintf(out, "  %-16s %s\n", s, printer.Sprint(n))
				}
			}
			if res.Counts.Pending() == 0 {
				fmt.Fprintln(out, "Plugin is up to date.")
			}
			return nil
		})
	},
}

var pluginsApplyCmd = &cobra.Command{
	Use:   "apply <plugin-id>",
	Short: "Write resolved plugin files and record them as the new base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if (applyFile == "") == !applyAcceptRemote {
			return fmt.Errorf("%w: pass exactly one of --file or --accept-remote", errUsage)
		}
		dir, err := projectDir()
		if err != nil {
			return err
		}
		svc := pluginService(cmd.Context(), dir)

		var files []plugins.ApplyFile
		if applyAcceptRemote {
			check, err := svc.CheckUpdate(cmd.Context(), plugins.CheckOptions{PluginID: args[0], Identity: applyIdentity})
			if err != nil {
				return err
			}
			if check.Failure != nil {
				return check.Failure
			}
			files = acceptRemote(check.Files)
		} else {
			files, err = readResolutions(cmd.InOrStdin(), applyFile)
			if err != nil {
				return err
			}
		}

		res, err := svc.ApplyUpdate(cmd.Context(), plugins.ApplyOptions{
			PluginID:         args[0],
			Identity:         applyIdentity,
			Files:            files,
			SkipDependencies: applyNoDeps,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		return finish(out, res, res.Failure, func() error {
			fmt.Fprintf(out, "Wrote %s, skipped %d, deleted %d\n",
				plural(len(res.Written), "file", "files"), len(res.Skipped), len(res.Deleted))
			if res.DependencyWarning != nil {
				warn(cmd.ErrOrStderr(), "%s", res.DependencyWarning.Reason)
			}
			return nil
		})
	},
}

// acceptRemote resolves every report in favour of the registry. Files
// deleted locally stay deleted.
func acceptRemote(reports []reconcile.FileReport) []plugins.ApplyFile {
	files := make([]plugins.ApplyFile, 0, len(reports))
	for _, r := range reports {
		switch r.Status {
		case reconcile.Unchanged, reconcile.DeletedLocally:
			files = append(files, plugins.ApplyFile{Path: r.Path, Action: plugins.ActionSkip})
		default:
			files = append(files, plugins.ApplyFile{Path: r.Path, Content: r.Remote, Action: plugins.ActionWrite})
		}
	}
	return files
}

func readResolutions(stdin io.Reader, path string) ([]plugins.ApplyFile, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading resolutions: %w", err)
	}
	var files []plugins.ApplyFile
	if err := json.Unmarshal(data, &files); err != nil {
		return nil, fmt.Errorf("%w: parsing resolutions: %v", errUsage, err)
	}
	return files, nil
}
