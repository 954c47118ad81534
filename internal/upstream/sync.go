// Package upstream keeps a generated project in step with the template
// repository it was created from. It configures the "upstream" remote for
// the project's variant, merges upstream/main, reports conflicts with all
// three merge stages, and concludes the merge once conflicts are resolved.
package upstream

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitforge/kit/internal/branding"
	"github.com/kitforge/kit/internal/gitx"
	"github.com/kitforge/kit/internal/manifest"
	"github.com/kitforge/kit/internal/outcome"
	"github.com/kitforge/kit/internal/platform"
	"github.com/kitforge/kit/internal/runtime"
)

const (
	// RemoteName is the git remote pointing at the template repository.
	RemoteName = "upstream"
	// MergeRef is the upstream branch merged into the project.
	MergeRef = RemoteName + "/main"

	stageReaders = 8
)

// ConflictRecord describes one file left unmerged. Any of the versions may
// be absent, e.g. when the file was added on one side only.
type ConflictRecord struct {
	Path       string  `json:"path"`
	Conflicted *string `json:"conflicted,omitempty"`
	Base       *string `json:"base,omitempty"`
	Ours       *string `json:"ours,omitempty"`
	Theirs     *string `json:"theirs,omitempty"`
}

// PullResult is the outcome of Pull. Exactly one of three shapes is filled:
// success, conflicts (HasConflicts), or an expected Failure.
type PullResult struct {
	Success         bool             `json:"success"`
	Variant         manifest.Variant `json:"variant,omitempty"`
	UpstreamURL     string           `json:"upstreamUrl,omitempty"`
	AlreadyUpToDate bool             `json:"alreadyUpToDate,omitempty"`
	Message         string           `json:"message,omitempty"`
	HasConflicts    bool             `json:"hasConflicts,omitempty"`
	ConflictCount   int              `json:"conflictCount,omitempty"`
	Conflicts       []ConflictRecord `json:"conflicts,omitempty"`
	Instructions    string           `json:"instructions,omitempty"`
	Failure         *outcome.Failure `json:"failure,omitempty"`
}

// ResolvedFile is the caller's final content for a conflicted path.
type ResolvedFile struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

// ResolveResult is the outcome of ResolveConflicts.
type ResolveResult struct {
	Success   bool             `json:"success"`
	Resolved  []string         `json:"resolved"`
	Remaining []string         `json:"remaining,omitempty"`
	Message   string           `json:"message"`
	Failure   *outcome.Failure `json:"failure,omitempty"`
}

// Syncer synchronizes one project with its upstream template.
type Syncer struct {
	repo    *gitx.Repo
	variant manifest.Variant
	runner  runtime.Runner
	log     *zap.Logger
}

// New returns a Syncer for the project at dir. A nil runner uses real
// subprocesses.
func New(dir string, variant manifest.Variant, runner runtime.Runner, logger *zap.Logger) *Syncer {
	if runner == nil {
		runner = &runtime.Exec{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Syncer{
		repo:    gitx.Open(dir, runner),
		variant: variant,
		runner:  runner,
		log:     logger,
	}
}

func failedPull(f *outcome.Failure) *PullResult {
	return &PullResult{Success: false, Failure: f}
}

// Pull merges upstream/main into the current branch. A dirty tree or a
// mismatched remote is reported before any git state is touched.
func (s *Syncer) Pull(ctx context.Context) (*PullResult, error) {
	clean, err := s.repo.IsClean(ctx)
	if err != nil {
		return nil, err
	}
	if !clean {
		return failedPull(outcome.Fail(outcome.DirtyWorkingTree,
			"Git working directory has uncommitted changes. Please commit or stash them before pulling upstream updates.")), nil
	}

	url, err := s.ensureRemote(ctx)
	if err != nil {
		if f, ok := outcome.AsFailure(err); ok {
			return failedPull(f), nil
		}
		return nil, err
	}

	s.log.Debug("fetching upstream", zap.String("url", url))
	if err := s.repo.Fetch(ctx, RemoteName); err != nil {
		return nil, err
	}

	merge, err := s.repo.Merge(ctx, MergeRef)
	if err != nil {
		return nil, err
	}

	if !merge.Conflict {
		msg := "Successfully merged upstream changes."
		if merge.UpToDate {
			msg = "Already up to date."
		}
		return &PullResult{
			Success:         true,
			Variant:         s.variant,
			UpstreamURL:     url,
			AlreadyUpToDate: merge.UpToDate,
			Message:         msg,
		}, nil
	}

	conflicts, err := s.Conflicts(ctx)
	if err != nil {
		return nil, err
	}
	s.log.Info("merge stopped on conflicts", zap.Int("files", len(conflicts)))

	return &PullResult{
		Success:       false,
		Variant:       s.variant,
		UpstreamURL:   url,
		HasConflicts:  true,
		ConflictCount: len(conflicts),
		Conflicts:     conflicts,
		Instructions: fmt.Sprintf("Merge conflicts detected. For each conflict: review base, ours (local), and theirs (upstream) versions. "+
			"Produce resolved content and call %s_project_resolve_conflicts. "+
			"Ask the user for guidance when the intent behind local changes is unclear.", branding.CLIName()),
	}, nil
}

// ensureRemote adds the upstream remote when missing and validates it when
// present. A mismatch is returned as an UpstreamRemoteMismatch failure.
func (s *Syncer) ensureRemote(ctx context.Context) (string, error) {
	if _, ok := Repo(s.variant); !ok {
		return "", fmt.Errorf("no upstream repository known for variant %q", s.variant)
	}

	current, ok, err := s.repo.RemoteURL(ctx, RemoteName)
	if err != nil {
		return "", err
	}

	if !ok {
		url := ExpectedURL(s.variant, HasSSHAccess(ctx, s.runner))
		if err := s.repo.SetRemote(ctx, RemoteName, url); err != nil {
			return "", err
		}
		s.log.Info("added upstream remote", zap.String("url", url))
		return url, nil
	}

	if !URLMatches(current, s.variant) {
		expected := ExpectedURL(s.variant, strings.HasPrefix(current, "git@"))
		return "", outcome.Fail(outcome.UpstreamRemoteMismatch,
			"Upstream remote points to %q but expected %q for variant %q. "+
				"Please ask the user whether to update the upstream URL, then run: git remote set-url %s <correct-url>",
			current, expected, s.variant, RemoteName)
	}
	return current, nil
}

// Conflicts collects every unmerged path with its working tree content and
// merge stages. Paths are read concurrently; order follows git's listing.
func (s *Syncer) Conflicts(ctx context.Context) ([]ConflictRecord, error) {
	paths, err := s.repo.UnmergedPaths(ctx)
	if err != nil {
		return nil, err
	}

	records := make([]ConflictRecord, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(stageReaders)

	for i, p := range paths {
		g.Go(func() error {
			rec, err := s.conflictRecord(gctx, p)
			if err != nil {
				return err
			}
			records[i] = rec
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return records, nil
}

func (s *Syncer) conflictRecord(ctx context.Context, path string) (ConflictRecord, error) {
	rec := ConflictRecord{Path: path}

	full, err := platform.SafeJoin(s.repo.Dir(), path)
	if err != nil {
		return rec, err
	}
	if rec.Conflicted, err = platform.ReadOptional(full); err != nil {
		return rec, err
	}

	stages := []struct {
		n   int
		dst **string
	}{
		{gitx.StageBase, &rec.Base},
		{gitx.StageOurs, &rec.Ours},
		{gitx.StageTheirs, &rec.Theirs},
	}
	for _, st := range stages {
		content, err := s.repo.ShowStage(ctx, st.n, path)
		if err != nil {
			return rec, err
		}
		*st.dst = content
	}
	return rec, nil
}

// ResolveConflicts writes the resolved files, stages exactly those paths and
// commits the merge once no unmerged paths remain. An empty commit message
// keeps git's prepared merge message.
func (s *Syncer) ResolveConflicts(ctx context.Context, files []ResolvedFile, commitMessage string) (*ResolveResult, error) {
	paths := make([]string, 0, len(files))
	for _, f := range files {
		full, err := platform.SafeJoin(s.repo.Dir(), f.Path)
		if err != nil {
			return nil, fmt.Errorf("invalid path: %w", err)
		}
		if err := platform.WriteFile(full, []byte(f.Content)); err != nil {
			return nil, err
		}
		paths = append(paths, f.Path)
	}

	if err := s.repo.Add(ctx, paths...); err != nil {
		return nil, err
	}

	remaining, err := s.repo.UnmergedPaths(ctx)
	if err != nil {
		return nil, err
	}

	if len(remaining) > 0 {
		msg := fmt.Sprintf("%d file(s) resolved, but %d conflict(s) remain. Resolve the remaining files and call %s_project_resolve_conflicts again.",
			len(paths), len(remaining), branding.CLIName())
		return &ResolveResult{
			Success:   false,
			Resolved:  paths,
			Remaining: remaining,
			Message:   msg,
			Failure:   outcome.Fail(outcome.PartialConflictResolution, "%s", msg),
		}, nil
	}

	if err := s.repo.Commit(ctx, commitMessage); err != nil {
		return nil, err
	}
	return &ResolveResult{
		Success:  true,
		Resolved: paths,
		Message:  "All conflicts resolved and merge commit created.",
	}, nil
}
