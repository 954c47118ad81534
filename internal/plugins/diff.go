package plugins

import (
	"context"
	"fmt"
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/kitforge/kit/internal/outcome"
	"github.com/kitforge/kit/internal/platform"
)

// diffContext is the number of unchanged lines shown around each change.
const diffContext = 3

// FileDiff is one file that differs from the registry.
type FileDiff struct {
	Path    string `json:"path"`
	New     bool   `json:"new"`
	Unified string `json:"unified,omitempty"`
}

// DiffResult is the outcome of Diff.
type DiffResult struct {
	Success  bool             `json:"success"`
	PluginID string           `json:"pluginId,omitempty"`
	Name     string           `json:"name,omitempty"`
	UpToDate bool             `json:"upToDate"`
	Files    []FileDiff       `json:"files"`
	Failure  *outcome.Failure `json:"failure,omitempty"`
}

// Diff compares an installed plugin's files with the latest registry
// content. Files missing locally are reported as new; differing files carry
// a unified diff from local to registry.
func (s *Service) Diff(ctx context.Context, pluginID, identity string) (*DiffResult, error) {
	proj, err := s.project()
	if err != nil {
		return nil, err
	}
	v := proj.Variant

	plugin, f := s.lookup(pluginID, v)
	if f != nil {
		return &DiffResult{Failure: f}, nil
	}
	if !IsInstalled(s.dir, plugin, v) {
		return &DiffResult{Failure: outcome.Fail(outcome.NotInstalled, "Plugin %q is not installed.", plugin.Name)}, nil
	}
	id, f := s.resolveIdentity(identity)
	if f != nil {
		return &DiffResult{Failure: f}, nil
	}
	item, f, err := s.fetch(ctx, v, plugin.ID, id)
	if err != nil {
		return nil, err
	}
	if f != nil {
		return &DiffResult{Failure: f}, nil
	}

	res := &DiffResult{Success: true, PluginID: plugin.ID, Name: plugin.Name, Files: []FileDiff{}}
	for _, file := range item.Files {
		path, err := platform.SafeJoin(s.dir, file.Target)
		if err != nil {
			return nil, err
		}
		local, err := platform.ReadOptional(path)
		if err != nil {
			return nil, err
		}
		switch {
		case local == nil:
			res.Files = append(res.Files, FileDiff{Path: file.Target, New: true})
		case *local != file.Content:
			res.Files = append(res.Files, FileDiff{Path: file.Target, Unified: UnifiedDiff(file.Target, *local, file.Content)})
		}
	}
	res.UpToDate = len(res.Files) == 0
	return res, nil
}

type lineOp struct {
	kind byte // ' ', '-', '+'
	text string
}

func lineOps(from, to string) []lineOp {
	dmp := diffmatchpatch.New()
	a, b, lines := dmp.DiffLinesToChars(from, to)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lines)

	var ops []lineOp
	for _, d := range diffs {
		kind := byte(' ')
		switch d.Type {
		case diffmatchpatch.DiffDelete:
			kind = '-'
		case diffmatchpatch.DiffInsert:
			kind = '+'
		}
		for _, line := range strings.SplitAfter(d.Text, "\n") {
			if line == "" {
				continue
			}
			ops = append(ops, lineOp{kind: kind, text: line})
		}
	}
	return ops
}

// UnifiedDiff renders a line diff from local to remote in unified format
// with three lines of context. Identical inputs yield "".
func UnifiedDiff(path, local, remote string) string {
	ops := lineOps(local, remote)

	// Ranges of ops to print, merged when their context overlaps.
	type span struct{ start, end int }
	var spans []span
	for i, op := range ops {
		if op.kind == ' ' {
			continue
		}
		start, end := max(0, i-diffContext), min(len(ops), i+diffContext+1)
		if n := len(spans); n > 0 && start <= spans[n-1].end {
			spans[n-1].end = max(spans[n-1].end, end)
			continue
		}
		spans = append(spans, span{start, end})
	}
	if len(spans) == 0 {
		return ""
	}

	var b strings.Builder
	fmt.Fprintf(&b, "--- a/%s\n+++ b/%s\n", path, path)

	oldLine, newLine, pos := 1, 1, 0
	for _, sp := range spans {
		for ; pos < sp.start; pos++ {
			oldLine, newLine = advance(ops[pos].kind, oldLine, newLine)
		}
		oldCount, newCount := 0, 0
		for _, op := range ops[sp.start:sp.end] {
			if op.kind != '+' {
				oldCount++
			}
			if op.kind != '-' {
				newCount++
			}
		}
		fmt.Fprintf(&b, "@@ -%s +%s @@\n", hunkRange(oldLine, oldCount), hunkRange(newLine, newCount))
		for ; pos < sp.end; pos++ {
			op := ops[pos]
			b.WriteByte(op.kind)
			b.WriteString(op.text)
			if !strings.HasSuffix(op.text, "\n") {
				b.WriteString("\n\\ No newline at end of file\n")
			}
			oldLine, newLine = advance(op.kind, oldLine, newLine)
		}
	}
	return b.String()
}

func advance(kind byte, oldLine, newLine int) (int, int) {
	switch kind {
	case '-':
		return oldLine + 1, newLine
	case '+':
		return oldLine, newLine + 1
	default:
		return oldLine + 1, newLine + 1
	}
}

func hunkRange(start, count int) string {
	if count == 0 {
		return fmt.Sprintf("%d,0", start-1)
	}
	if count == 1 {
		return fmt.Sprintf("%d", start)
	}
	return fmt.Sprintf("%d,%d", start, count)
}
