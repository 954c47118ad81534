package upstream

import (
	"context"
	"strings"
	"time"

	"github.com/kitforge/kit/internal/branding"
	"github.com/kitforge/kit/internal/manifest"
	"github.com/kitforge/kit/internal/runtime"
)

const sshProbeTimeout = 10 * time.Second

// repos maps each variant to its template repository on GitHub.
var repos = map[manifest.Variant]string{
	manifest.VariantNextSupabase:        "kitforge/next-supabase-saas-kit-turbo",
	manifest.VariantNextDrizzle:         "kitforge/next-drizzle-saas-kit-turbo",
	manifest.VariantNextPrisma:          "kitforge/next-prisma-saas-kit-turbo",
	manifest.VariantReactRouterSupabase: "kitforge/react-router-supabase-saas-kit-turbo",
}

// Repo returns the owner/name of the template repository for v.
func Repo(v manifest.Variant) (string, bool) {
	r, ok := repos[v]
	return r, ok
}

// SSHURL returns the SSH clone URL of repo.
func SSHURL(repo string) string {
	return "git@" + branding.GitHubHost() + ":" + repo
}

// HTTPSURL returns the HTTPS clone URL of repo.
func HTTPSURL(repo string) string {
	return "https://" + branding.GitHubHost() + "/" + repo
}

// ExpectedURL returns the upstream URL for v in the requested transport.
func ExpectedURL(v manifest.Variant, ssh bool) string {
	repo := repos[v]
	if ssh {
		return SSHURL(repo)
	}
	return HTTPSURL(repo)
}

// URLMatches reports whether url points at the template repository of v in
// either transport. Trailing slashes and a .git suffix are ignored.
func URLMatches(url string, v manifest.Variant) bool {
	repo, ok := repos[v]
	if !ok {
		return false
	}
	normalized := strings.TrimSuffix(strings.TrimRight(strings.TrimSpace(url), "/"), ".git")
	return normalized == SSHURL(repo) || normalized == HTTPSURL(repo)
}

// HasSSHAccess probes whether the user can authenticate to GitHub over SSH.
// GitHub ends the session with exit status 1 even on success, so the banner
// is checked instead of the exit code.
func HasSSHAccess(ctx context.Context, r runtime.Runner) bool {
	out, err := r.Run(ctx, runtime.Command{
		Name:    "ssh",
		Args:    []string{"-T", "git@" + branding.GitHubHost(), "-o", "StrictHostKeyChecking=no", "-o", "BatchMode=yes"},
		Timeout: sshProbeTimeout,
	})
	if err != nil || out.TimedOut {
		return false
	}
	if out.ExitCode == 0 {
		return true
	}
	return strings.Contains(out.Stderr, "successfully authenticated")
}
