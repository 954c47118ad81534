package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kitforge/kit/internal/outcome"
	"github.com/kitforge/kit/internal/upstream"
)

var (
	resolveMessage string
	resolveForce   bool
)

func init() {
	projectResolveCmd.Flags().StringVarP(&resolveMessage, "message", "m", "", "Merge commit message (default: git's merge message)")
	projectResolveCmd.Flags().BoolVar(&resolveForce, "force", false, "Stage files even if they still contain conflict markers")

	projectCmd.AddCommand(projectPullCmd, projectResolveCmd)
	rootCmd.AddCommand(projectCmd)
}

var projectCmd = &cobra.Command{
	Use:   "project",
	Short: "Synchronize the project with its upstream template",
}

var projectPullCmd = &cobra.Command{
	Use:   "pull",
	Short: "Merge upstream template changes into the project",
	Long: `Configure the "upstream" remote for the project's variant if needed, fetch it,
and merge upstream/main. The working tree must be clean. When the merge stops on
conflicts, edit the listed files and run "project resolve".`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := projectDir()
		if err != nil {
			return err
		}
		sy, err := syncer(dir)
		if err != nil {
			return err
		}
		res, err := sy.Pull(cmd.Context())
		if err != nil {
			return err
		}

		f := res.Failure
		if res.HasConflicts {
			f = outcome.Fail(outcome.MergeConflict, "merge stopped with %s", plural(res.ConflictCount, "conflict", "conflicts"))
		}
		out := cmd.OutOrStdout()
		if res.HasConflicts && !jsonFlag {
			fmt.Fprintf(out, "Merge of %s stopped on conflicts:\n", upstream.MergeRef)
			for _, c := range res.Conflicts {
				fmt.Fprintf(out, "  %s\n", c.Path)
			}
			fmt.Fprintf(out, "\nEdit the files above, then run: %s project resolve\n", rootCmd.Name())
			return f
		}
		return finish(out, res, f, func() error {
			fmt.Fprintln(out, res.Message)
			return nil
		})
	},
}

var projectResolveCmd = &cobra.Command{
	Use:   "resolve [path...]",
	Short: "Stage resolved files and complete the upstream merge",
	Long: `Stage the given files as resolved, using their current content on disk, and
commit the merge once no conflicts remain. Without arguments every conflicted
file is staged.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		dir, err := projectDir()
		if err != nil {
			return err
		}
		sy, err := syncer(dir)
		if err != nil {
			return err
		}

		paths := args
		if len(paths) == 0 {
			conflicts, err := sy.Conflicts(cmd.Context())
			if err != nil {
				return err
			}
			for _, c := range conflicts {
				paths = append(paths, c.Path)
			}
			if len(paths) == 0 {
				return fmt.Errorf("%w: no conflicted files", errUsage)
			}
		}

		files, err := resolvedFiles(dir, paths, resolveForce)
		if err != nil {
			return err
		}
		res, err := sy.ResolveConflicts(cmd.Context(), files, resolveMessage)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if res.Failure != nil && !jsonFlag {
			fmt.Fprintf(out, "Staged %s. Still conflicted:\n", plural(len(res.Resolved), "file", "files"))
			for _, p := range res.Remaining {
				fmt.Fprintf(out, "  %s\n", p)
			}
			return res.Failure
		}
		return finish(out, res, res.Failure, func() error {
			fmt.Fprintln(out, res.Message)
			return nil
		})
	},
}

// resolvedFiles reads the working tree content of paths. Files that still
// carry conflict markers are rejected unless force is set.
func resolvedFiles(dir string, paths []string, force bool) ([]upstream.ResolvedFile, error) {
	files := make([]upstream.ResolvedFile, 0, len(paths))
	for _, p := range paths {
		rel := filepath.ToSlash(p)
		if filepath.IsAbs(p) {
			r, err := filepath.Rel(dir, p)
			if err != nil {
				return nil, fmt.Errorf("%w: %s is outside the project", errUsage, p)
			}
			rel = filepath.ToSlash(r)
		}
		data, err := os.ReadFile(filepath.Join(dir, filepath.FromSlash(rel)))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", rel, err)
		}
		if !force && hasConflictMarkers(string(data)) {
			return nil, fmt.Errorf("%w: %s still contains conflict markers (use --force to stage it anyway)", errUsage, rel)
		}
		files = append(files, upstream.ResolvedFile{Path: rel, Content: string(data)})
	}
	return files, nil
}

func hasConflictMarkers(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "<<<<<<< ") || strings.HasPrefix(line, ">>>>>>> ") {
			return true
		}
	}
	return false
}
