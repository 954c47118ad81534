// Package gitx is the git command surface used by the CLI. Repository
// inspection (working tree status, remote configuration) goes through
// go-git; operations that need the user's git setup (fetch with their
// credentials, merge, index stages, commit hooks) shell out to git.
package gitx

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"

	"github.com/kitforge/kit/internal/runtime"
)

// Repo is a git working tree.
type Repo struct {
	dir    string
	runner runtime.Runner
}

// Open returns a Repo for dir. A nil runner uses real subprocesses.
func Open(dir string, runner runtime.Runner) *Repo {
	if runner == nil {
		runner = &runtime.Exec{}
	}
	return &Repo{dir: dir, runner: runner}
}

// Dir returns the working tree path.
func (r *Repo) Dir() string { return r.dir }

func (r *Repo) open() (*git.Repository, error) {
	repo, err := git.PlainOpenWithOptions(r.dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open git repo: %w", err)
	}
	return repo, nil
}

// IsRepo reports whether dir is inside a git repository.
func (r *Repo) IsRepo() bool {
	_, err := r.open()
	return err == nil
}

// IsClean reports whether the working tree has no staged, unstaged or
// untracked changes. Files ignored by the user's system or global excludes
// count as clean, as they do for git status.
func (r *Repo) IsClean(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	repo, err := r.open()
	if err != nil {
		return false, err
	}
	wt, err := repo.Worktree()
	if err != nil {
		return false, fmt.Errorf("open worktree: %w", err)
	}
	wt.Excludes = append(wt.Excludes, userExcludes()...)
	status, err := wt.Status()
	if err != nil {
		return false, fmt.Errorf("read status: %w", err)
	}
	return status.IsClean(), nil
}

// userExcludes loads ignore patterns from the system gitconfig and the
// user's core.excludesFile. Without a configured excludes file git reads
// $XDG_CONFIG_HOME/git/ignore, so that is loaded instead. Unreadable files
// contribute nothing.
func userExcludes() []gitignore.Pattern {
	root := osfs.New("/")
	var patterns []gitignore.Pattern
	if ps, err := gitignore.LoadSystemPatterns(root); err == nil {
		patterns = append(patterns, ps...)
	}
	global, err := gitignore.LoadGlobalPatterns(root)
	if err == nil && len(global) > 0 {
		return append(patterns, global...)
	}
	return append(patterns, xdgIgnorePatterns()...)
}

func xdgIgnorePatterns() []gitignore.Pattern {
	base := os.Getenv("XDG_CONFIG_HOME")
	if base == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil
		}
		base = filepath.Join(home, ".config")
	}
	data, err := os.ReadFile(filepath.Join(base, "git", "ignore"))
	if err != nil {
		return nil
	}
	var patterns []gitignore.Pattern
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, " \t\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		patterns = append(patterns, gitignore.ParsePattern(line, nil))
	}
	return patterns
}

// RemoteURL returns the first URL of the named remote. ok is false when the
// remote is not configured.
func (r *Repo) RemoteURL(ctx context.Context, name string) (url string, ok bool, err error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	repo, err := r.open()
	if err != nil {
		return "", false, err
	}
	cfg, err := repo.Config()
	if err != nil {
		return "", false, fmt.Errorf("read git config: %w", err)
	}
	remote, found := cfg.Remotes[name]
	if !found || len(remote.URLs) == 0 {
		return "", false, nil
	}
	return remote.URLs[0], true, nil
}

// SetRemote points the named remote at url, adding it if needed.
func (r *Repo) SetRemote(ctx context.Context, name, url string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name = strings.TrimSpace(name)
	url = strings.TrimSpace(url)
	if name == "" || url == "" {
		return errors.New("remote name and url are required")
	}

	repo, err := r.open()
	if err != nil {
		return err
	}
	cfg, err := repo.Config()
	if err != nil {
		return fmt.Errorf("read git config: %w", err)
	}

	if existing, ok := cfg.Remotes[name]; ok {
		existing.URLs = []string{url}
		cfg.Remotes[name] = existing
	} else {
		cfg.Remotes[name] = &config.RemoteConfig{
			Name:  name,
			URLs:  []string{url},
			Fetch: []config.RefSpec{config.RefSpec(fmt.Sprintf("+refs/heads/*:refs/remotes/%s/*", name))},
		}
	}

	if err := repo.SetConfig(cfg); err != nil {
		return fmt.Errorf("write git config: %w", err)
	}
	return nil
}

// git runs a git subcommand in the working tree with a stable locale so
// output can be matched.
func (r *Repo) git(ctx context.Context, args ...string) (*runtime.Output, error) {
	return r.runner.Run(ctx, runtime.Command{
		Name: "git",
		Args: args,
		Dir:  r.dir,
		Env:  []string{"LC_ALL=C", "GIT_TERMINAL_PROMPT=0"},
	})
}

// mustGit runs git and turns a non-zero exit into an error.
func (r *Repo) mustGit(ctx context.Context, args ...string) (*runtime.Output, error) {
	out, err := r.git(ctx, args...)
	if err != nil {
		return nil, err
	}
	if !out.OK() {
		return out, fmt.Errorf("git %s: %s", subcommand(args), strings.TrimSpace(out.Combined()))
	}
	return out, nil
}

// Fetch fetches the named remote.
func (r *Repo) Fetch(ctx context.Context, remote string) error {
	_, err := r.mustGit(ctx, "fetch", remote)
	return err
}

// MergeResult is the outcome of a merge attempt.
type MergeResult struct {
	UpToDate bool
	Conflict bool
	Output   string
}

// Merge merges ref into the current branch without opening an editor. A
// conflicting merge is a result, not an error.
func (r *Repo) Merge(ctx context.Context, ref string) (*MergeResult, error) {
	out, err := r.git(ctx, "merge", ref, "--no-edit")
	if err != nil {
		return nil, err
	}
	combined := out.Combined()
	if out.OK() {
		return &MergeResult{
			UpToDate: strings.Contains(combined, "Already up to date") || strings.Contains(combined, "Already up-to-date"),
			Output:   combined,
		}, nil
	}
	if strings.Contains(combined, "CONFLICT") || strings.Contains(combined, "Automatic merge failed") {
		return &MergeResult{Conflict: true, Output: combined}, nil
	}
	return nil, fmt.Errorf("merge failed: %s", strings.TrimSpace(combined))
}

// UnmergedPaths lists files left in a conflicted state, exactly as they are
// named in the working tree.
func (r *Repo) UnmergedPaths(ctx context.Context) ([]string, error) {
	out, err := r.mustGit(ctx, "-c", "core.quotePath=false", "diff", "--name-only", "-z", "--diff-filter=U")
	if err != nil {
		return nil, err
	}
	return splitNUL(out.Stdout), nil
}

// Merge stages as numbered by git.
const (
	StageBase   = 1
	StageOurs   = 2
	StageTheirs = 3
)

// ShowStage returns the content of path at the given merge stage, or nil if
// the stage does not exist (e.g. the file was added on one side only).
func (r *Repo) ShowStage(ctx context.Context, stage int, path string) (*string, error) {
	out, err := r.git(ctx, "show", fmt.Sprintf(":%d:%s", stage, path))
	if err != nil {
		return nil, err
	}
	if !out.OK() {
		return nil, nil
	}
	s := out.Stdout
	return &s, nil
}

// Add stages paths.
func (r *Repo) Add(ctx context.Context, paths ...string) error {
	if len(paths) == 0 {
		return nil
	}
	_, err := r.mustGit(ctx, append([]string{"add", "--"}, paths...)...)
	return err
}

// Commit records the index. An empty message reuses the prepared message
// (the merge message when concluding a merge).
func (r *Repo) Commit(ctx context.Context, message string) error {
	args := []string{"commit", "--no-edit"}
	if message != "" {
		args = []string{"commit", "-m", message}
	}
	_, err := r.mustGit(ctx, args...)
	return err
}

// Clone clones url into dir using the system git.
func Clone(ctx context.Context, runner runtime.Runner, url, dir string) error {
	if runner == nil {
		runner = &runtime.Exec{}
	}
	out, err := runner.Run(ctx, runtime.Command{
		Name: "git",
		Args: []string{"clone", url, dir},
		Env:  []string{"GIT_TERMINAL_PROMPT=0"},
	})
	if err != nil {
		return err
	}
	if !out.OK() {
		return fmt.Errorf("git clone: %s", strings.TrimSpace(out.Stderr))
	}
	return nil
}

// subcommand skips leading "-c key=value" pairs.
func subcommand(args []string) string {
	for len(args) > 1 && args[0] == "-c" {
		args = args[2:]
	}
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

// splitNUL splits -z output. Paths are kept byte for byte.
func splitNUL(s string) []string {
	var out []string
	for _, p := range strings.Split(s, "\x00") {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
