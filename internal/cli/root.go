package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/kitforge/kit/internal/branding"
	"github.com/kitforge/kit/internal/config"
	"github.com/kitforge/kit/internal/platform"
)

var (
	buildVersion string
	buildCommit  string
	buildDate    string
)

var (
	projectFlag string
	verboseFlag bool
	jsonFlag    bool

	settings config.Settings
	logger   = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   branding.CLIName(),
	Short: branding.Description(),
	Long: branding.DisplayName() + ` installs plugins from the kit registry into generated projects,
keeps them up to date with a three-way comparison against the installed
version, and merges upstream template changes into your project.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		config.Load()
		settings = config.Resolve()

		l, err := platform.NewLogger(settings.LogLevel, verboseFlag, cmd.ErrOrStderr())
		if err != nil {
			return ExitError{Code: ExitInvalid, Kind: KindValidation, Err: fmt.Errorf("%s: %w", config.KeyLogLevel, err)}
		}
		logger = l
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&projectFlag, "project", "C", "", "Project directory (default: current directory)")
	rootCmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "Enable debug logging")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Emit JSON output")
}

// Execute runs the root command with build info injected via ldflags and
// returns the process exit code.
func Execute(version, commit, date string) int {
	buildVersion = version
	buildCommit = commit
	buildDate = date

	cmd, err := rootCmd.ExecuteC()
	defer func() { _ = logger.Sync() }()
	if err == nil || errors.Is(err, pflag.ErrHelp) {
		return 0
	}
	exitErr := NormalizeError(err)
	_ = writeCLIError(cmd.ErrOrStderr(), exitErr, jsonFlag)
	return exitErr.Code
}

// projectDir returns the --project directory, or the working directory.
func projectDir() (string, error) {
	if projectFlag != "" {
		return projectFlag, nil
	}
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("resolving working directory: %w", err)
	}
	return dir, nil
}
