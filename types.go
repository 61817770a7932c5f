// Package versioning derives PEP 440 version strings from Git repository state.
package versioning

import (
	"fmt"
	"strings"

	"github.com/go-git/go-billy/v5"
	"go.uber.org/zap"
)

// Facts is a snapshot of the repository state one resolution works from
type Facts struct {
	// Branch is the currently checked-out branch
	Branch string

	// ParentBranch is the branch this one forked from, empty when unknown
	ParentBranch string

	// LatestCommit is the full hash of the tip commit
	LatestCommit string

	// BaseTag is the nearest reachable tag, possibly package-prefixed
	BaseTag string

	// LongDescribe is the raw tag-N-gHASH string BaseTag was parsed from
	LongDescribe string

	// CommitsSinceTag counts commits between BaseTag and the tip
	CommitsSinceTag int

	// ShortHash is the abbreviated tip hash from the describe output
	ShortHash string

	// TaggedCommit is the full hash of the commit BaseTag points to
	TaggedCommit string
}

// Options configures version resolution behavior
type Options struct {
	// PkgName, when set, is the package name release tags must carry as a
	// "<PkgName>-" prefix (tags like steelhead-1.2.0)
	PkgName string

	// PkgFile is a path that must be tracked by Git before repository
	// state is trusted. Required.
	PkgFile string

	// Fallback is the file the resolved version is persisted to and read
	// from when no repository is available (default: "RELEASE-VERSION")
	Fallback string

	// Dir is the directory Git commands run in and the fallback file is
	// resolved against (default: current directory)
	Dir string

	// Git runs the underlying queries (default: a GitClient for Dir)
	Git Runner

	// FS holds the fallback file (default: the OS filesystem rooted at Dir)
	FS billy.Filesystem

	// Logger receives debug traces of queries and decisions (default: nop)
	Logger *zap.Logger
}

// NotRepositoryError reports that no usable Git state is reachable: a query
// wrote to its error stream, the git binary could not be started, or the
// identifying file is not tracked. Resolve recovers it by reading the
// fallback file; every other error propagates.
type NotRepositoryError struct {
	Stderr string
}

func (e *NotRepositoryError) Error() string {
	if e.Stderr == "" {
		return "not a git repository"
	}
	return "not a git repository: " + e.Stderr
}

// InvalidTagError reports a tag that fails the PEP 440 grammar, a describe
// string that cannot be parsed, or a tag listing with no usable entry
type InvalidTagError struct {
	Reason string
}

func (e *InvalidTagError) Error() string {
	return "invalid tag: " + e.Reason
}

// InvalidBranchError reports a branch name that cannot be embedded in a
// PEP 440 local version segment
type InvalidBranchError struct {
	Branch string
}

func (e *InvalidBranchError) Error() string {
	return fmt.Sprintf("invalid branch: %q is not usable as a local version segment", e.Branch)
}

// InvalidCommandError reports a query carrying possibly-invalid user input
// that Git rejected
type InvalidCommandError struct {
	Args   []string
	Stderr string
}

func (e *InvalidCommandError) Error() string {
	return fmt.Sprintf("invalid command 'git %s': %s", strings.Join(e.Args, " "), e.Stderr)
}
