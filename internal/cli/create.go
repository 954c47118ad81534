package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/kitforge/kit/internal/branding"
	"github.com/kitforge/kit/internal/manifest"
	"github.com/kitforge/kit/internal/scaffold"
)

var (
	newVariant   string
	newDirectory string
)

func init() {
	newCmd.Flags().StringVar(&newVariant, "variant", "", "Kit variant to clone (see the variants command)")
	newCmd.Flags().StringVarP(&newDirectory, "dir", "d", "", "Parent directory for the project (default: current directory)")
	_ = newCmd.MarkFlagRequired("variant")

	rootCmd.AddCommand(newCmd, variantsCmd)
}

var newCmd = &cobra.Command{
	Use:   "new <name>",
	Short: "Create a new project from a kit variant",
	Long: `Clone the template repository of a kit variant into <dir>/<name>, install its
dependencies, and write the project marker. Set ` + branding.EnvVar("GITHUB_TOKEN") + ` to clone over
HTTPS with a token; otherwise SSH is used when GitHub accepts your key.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		parent := newDirectory
		if parent == "" {
			wd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("resolving working directory: %w", err)
			}
			parent = wd
		}
		parent, err := filepath.Abs(parent)
		if err != nil {
			return fmt.Errorf("resolving %s: %w", newDirectory, err)
		}

		res, err := creator().Create(cmd.Context(), scaffold.CreateOptions{
			Variant:   manifest.Variant(newVariant),
			Name:      args[0],
			Directory: parent,
			Token:     os.Getenv(branding.EnvVar("GITHUB_TOKEN")),
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		return finish(out, res, nil, func() error {
			fmt.Fprintln(out, res.Message)
			fmt.Fprintf(out, "  cd %s\n", res.ProjectPath)
			return nil
		})
	},
}

var variantsCmd = &cobra.Command{
	Use:   "variants",
	Short: "List the kit variants a project can be created from",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		variants := scaffold.Variants()
		out := cmd.OutOrStdout()
		return finish(out, variants, nil, func() error {
			w := newTable(out)
			fmt.Fprintln(w, "ID\tNAME\tDATABASE\tAUTH\tSTATUS")
			for _, v := range variants {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", v.ID, v.Name, v.Database, v.Auth, v.Status)
			}
			return w.Flush()
		})
	},
}
