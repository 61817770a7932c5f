// Package versioning derives PEP 440 version strings from Git repository state.
package versioning

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-git/go-billy/v5/osfs"
	"go.uber.org/zap"
)

const (
	// DefaultFallbackFile is where resolved versions are persisted for use
	// outside a checkout
	DefaultFallbackFile = "RELEASE-VERSION"

	// UnknownVersion is returned when neither a repository nor a fallback
	// file is available
	UnknownVersion = "unknown"
)

// The accepted release grammar is the public PEP 440 subset: a final segment
// of dot-separated integers, then optional pre-release, post-release and
// development segments in that order.
const (
	reInteger = `[0-9]+`
	reFinal   = reInteger + `(?:\.` + reInteger + `)*`
	rePre     = `(?:a|b|c)` + reInteger
	rePost    = `\.post` + reInteger
	reDev     = `\.dev` + reInteger
)

var (
	pep440 = regexp.MustCompile(`^` + reFinal + `(?:` + rePre + `)?(?:` + rePost + `)?(?:` + reDev + `)?\s*$`)

	// the alphabet allowed inside a PEP 440 local version segment
	localSegment = regexp.MustCompile(`^[A-Za-z0-9.\-_]+$`)

	trailingInt = regexp.MustCompile(`[0-9]+$`)
)

// ValidateTag checks a tag against the PEP 440 release grammar. A non-empty
// pkgName requires the tag to carry a "<pkgName>-" prefix, with the
// remainder matching the grammar.
func ValidateTag(tag, pkgName string) error {
	if pkgName == "" {
		if !pep440.MatchString(tag) {
			return &InvalidTagError{Reason: fmt.Sprintf("'%s' does not follow PEP440", tag)}
		}
		return nil
	}

	prefix := pkgName + "-"
	if !strings.HasPrefix(tag, prefix) {
		return &InvalidTagError{Reason: fmt.Sprintf("'%s' does not start with '%s'", tag, prefix)}
	}
	if !pep440.MatchString(tag[len(prefix):]) {
		return &InvalidTagError{Reason: fmt.Sprintf("'%s' does not follow '%s' + PEP440", tag, prefix)}
	}
	return nil
}

func validLocalSegment(s string) bool {
	return localSegment.MatchString(s)
}

// isDev reports whether version carries a development release segment. A
// version consisting only of ".dev0" has no release to develop towards, so
// the segment must not sit at the start.
func isDev(version string) bool {
	return strings.Index(version, ".dev") > 0
}

// incrementRightmost adds n to the trailing integer of version, leaving
// every other character untouched: "1.2.3" plus 1 is "1.2.4", "2.0.dev5"
// plus 3 is "2.0.dev8".
func incrementRightmost(version string, n int) (string, error) {
	loc := trailingInt.FindStringIndex(version)
	if loc == nil {
		return "", &InvalidTagError{Reason: fmt.Sprintf("'%s' has no trailing integer to increment", version)}
	}
	num, err := strconv.Atoi(version[loc[0]:])
	if err != nil {
		return "", &InvalidTagError{Reason: fmt.Sprintf("'%s' has no trailing integer to increment", version)}
	}
	return version[:loc[0]] + strconv.Itoa(num+n), nil
}

// synthesize turns extracted facts into a version string, first matching
// rule wins.
func synthesize(g Runner, facts Facts, pkgName string, logger *zap.Logger) (string, error) {
	// The tip commit is the tagged commit: release the tag verbatim
	if facts.LatestCommit == facts.TaggedCommit {
		logger.Debug("tip commit is tagged", zap.String("tag", facts.BaseTag))
		return facts.BaseTag, nil
	}

	// The base tag sits on the branch this one forked from: a branch-local
	// build, carrying its provenance in a local version segment
	origin, known, err := branchOfCommit(g, facts.TaggedCommit)
	if err != nil {
		return "", err
	}
	if known && facts.ParentBranch != "" && origin == facts.ParentBranch {
		if !validLocalSegment(facts.Branch) {
			return "", &InvalidBranchError{Branch: facts.Branch}
		}
		tag, err := nonDevTag(g, pkgName)
		if err != nil {
			return "", err
		}
		version := fmt.Sprintf("%s+git.%s.%d.%s", tag, facts.Branch, facts.CommitsSinceTag, facts.ShortHash)
		logger.Debug("base tag is on parent branch", zap.String("version", version))
		return version, nil
	}

	// A development window is already open at the base tag: advance it by
	// the commits made since
	if isDev(facts.BaseTag) {
		logger.Debug("development window open", zap.String("tag", facts.BaseTag))
		return incrementRightmost(facts.BaseTag, facts.CommitsSinceTag)
	}

	// Otherwise open a development window strictly after the release
	next, err := incrementRightmost(facts.BaseTag, 1)
	if err != nil {
		return "", err
	}
	version := fmt.Sprintf("%s.dev%d", next, facts.CommitsSinceTag)
	logger.Debug("opening development window", zap.String("version", version))
	return version, nil
}

// Resolve derives the version string for the repository described by opts
// and persists it to the fallback file. Outside a repository, or when
// opts.PkgFile is not tracked, the fallback file's contents are returned
// instead, or UnknownVersion when the file does not exist. Grammar and
// branch-name failures are never recovered.
//
// A resolution issues its queries strictly in sequence; concurrent
// resolutions against one fallback path must be serialized by the caller.
func Resolve(opts Options) (string, error) {
	if opts.PkgFile == "" {
		return "", fmt.Errorf("pkg file is required")
	}

	if opts.Fallback == "" {
		opts.Fallback = DefaultFallbackFile
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Git == nil {
		opts.Git = NewGitClient(opts.Dir, opts.Logger)
	}
	if opts.FS == nil {
		dir := opts.Dir
		if dir == "" {
			dir = "."
		}
		opts.FS = osfs.New(dir)
	}

	version, err := resolveFromRepository(opts)
	if err != nil {
		var notRepo *NotRepositoryError
		if errors.As(err, &notRepo) {
			opts.Logger.Debug("no repository, reading fallback file",
				zap.String("path", opts.Fallback),
				zap.String("stderr", notRepo.Stderr))
			return loadVersion(opts.FS, opts.Fallback)
		}
		return "", err
	}

	if err := saveVersion(opts.FS, opts.Fallback, version); err != nil {
		return "", err
	}
	return version, nil
}

func resolveFromRepository(opts Options) (string, error) {
	if err := verifyTracked(opts.Git, opts.PkgFile); err != nil {
		return "", err
	}

	facts, err := extractFacts(opts.Git, opts.PkgName)
	if err != nil {
		return "", err
	}

	return synthesize(opts.Git, facts, opts.PkgName, opts.Logger)
}
