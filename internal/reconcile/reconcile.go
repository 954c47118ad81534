// Package reconcile classifies a file by comparing its last synchronized
// (base) content, its working-tree (local) content, and the latest remote
// content. It is the whole-file form of a three-way merge decision: no
// line-level merge is attempted, divergent files are reported as conflicts.
package reconcile

// FileStatus is the outcome of a three-way comparison.
type FileStatus string

const (
	Unchanged      FileStatus = "unchanged"
	Updated        FileStatus = "updated"
	Conflict       FileStatus = "conflict"
	Added          FileStatus = "added"
	DeletedLocally FileStatus = "deleted_locally"
	NoBase         FileStatus = "no_base"
)

// Statuses lists every FileStatus in reporting order.
var Statuses = []FileStatus{Unchanged, Updated, Conflict, Added, DeletedLocally, NoBase}

// Classify computes the status of a file. A nil base or local means the
// version is absent. The first matching rule wins.
func Classify(base, local *string, remote string) FileStatus {
	if local != nil && *local == remote {
		return Unchanged
	}

	if base == nil {
		if local == nil {
			return Added
		}
		return NoBase
	}

	switch {
	case local == nil:
		return DeletedLocally
	case *base == *local:
		return Updated
	case *base == remote:
		return Unchanged
	default:
		return Conflict
	}
}

// FileReport is the per-file payload of an update check. Only the versions a
// resolver needs for the given status are populated.
type FileReport struct {
	Path   string     `json:"path"`
	Status FileStatus `json:"status"`
	Base   *string    `json:"base,omitempty"`
	Local  *string    `json:"local,omitempty"`
	Remote *string    `json:"remote,omitempty"`
}

// Report classifies a file and trims the versions to those relevant for the
// resulting status.
func Report(path string, base, local *string, remote string) FileReport {
	status := Classify(base, local, remote)
	r := FileReport{Path: path, Status: status}

	switch status {
	case Updated, Added:
		r.Remote = &remote
	case Conflict:
		r.Base, r.Local, r.Remote = base, local, &remote
	case NoBase:
		r.Local, r.Remote = local, &remote
	case DeletedLocally:
		r.Base, r.Remote = base, &remote
	}
	return r
}

// Counts tallies reports per status. Every status is present, zero or not.
type Counts map[FileStatus]int

// NewCounts returns Counts with all statuses initialized to zero.
func NewCounts() Counts {
	c := make(Counts, len(Statuses))
	for _, s := range Statuses {
		c[s] = 0
	}
	return c
}

// Tally counts the statuses of the given reports.
func Tally(reports []FileReport) Counts {
	c := NewCounts()
	for _, r := range reports {
		c[r.Status]++
	}
	return c
}

// Pending returns the number of files that need attention (anything but unchanged).
func (c Counts) Pending() int {
	n := 0
	for s, v := range c {
		if s != Unchanged {
			n += v
		}
	}
	return n
}
