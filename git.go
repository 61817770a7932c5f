// Package versioning derives PEP 440 version strings from Git repository state.
package versioning

import (
	"bytes"
	"errors"
	"fmt"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// Runner issues read-only queries to Git and returns their trimmed standard
// output. dir, when non-empty, is the directory the command runs in.
// userInput marks queries whose arguments carry possibly-invalid user input:
// their error-stream output reports an InvalidCommandError instead of a
// NotRepositoryError.
type Runner interface {
	Run(args []string, dir string, userInput bool) (string, error)
}

// GitClient runs queries against the git binary. Queries run without a
// timeout, so a hung git process blocks the caller.
type GitClient struct {
	// Dir is the base directory commands run in when a query does not name
	// its own; empty means the process working directory
	Dir string

	logger *zap.Logger
}

// NewGitClient returns a Runner executing the git binary in dir. A nil
// logger disables query tracing.
func NewGitClient(dir string, logger *zap.Logger) *GitClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GitClient{Dir: dir, logger: logger}
}

// Run implements Runner. Failure is signaled by the error stream, not the
// exit status: any stderr output means there is no repository to query (or,
// for userInput queries, a rejected argument), and a git binary that cannot
// be started counts the same way.
func (c *GitClient) Run(args []string, dir string, userInput bool) (string, error) {
	workDir := c.Dir
	switch {
	case dir == "":
	case filepath.IsAbs(dir) || c.Dir == "":
		workDir = dir
	default:
		workDir = filepath.Join(c.Dir, dir)
	}

	cmd := exec.Command("git", args...)
	cmd.Dir = workDir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	c.logger.Debug("running git query",
		zap.Strings("args", args),
		zap.String("dir", workDir))

	runErr := cmd.Run()

	if msg := strings.TrimSpace(stderr.String()); msg != "" {
		if userInput {
			return "", &InvalidCommandError{Args: args, Stderr: msg}
		}
		return "", &NotRepositoryError{Stderr: msg}
	}

	var exitErr *exec.ExitError
	if runErr != nil && !errors.As(runErr, &exitErr) {
		// the binary itself could not be started
		return "", &NotRepositoryError{Stderr: runErr.Error()}
	}

	out := strings.TrimSpace(stdout.String())
	c.logger.Debug("git query output", zap.String("stdout", out))
	return out, nil
}

// extractFacts builds the repository snapshot a resolution works from. Each
// step is one query; the first failing query aborts extraction.
func extractFacts(g Runner, pkgName string) (Facts, error) {
	branch, err := currentBranch(g)
	if err != nil {
		return Facts{}, err
	}

	parent, err := parentBranch(g, branch)
	if err != nil {
		return Facts{}, err
	}

	// --long and --abbrev are mutually exclusive describe options: the
	// first call yields the tag-N-gHASH form, the second the bare tag
	long, err := describe(g, -1)
	if err != nil {
		return Facts{}, err
	}
	tag, err := describe(g, 0)
	if err != nil {
		return Facts{}, err
	}
	if err := ValidateTag(tag, pkgName); err != nil {
		return Facts{}, err
	}

	commits, sha, err := parseDescribe(long, tag)
	if err != nil {
		return Facts{}, err
	}

	taggedCommit, err := commitOfTag(g, tag)
	if err != nil {
		return Facts{}, err
	}

	latest, err := latestCommit(g)
	if err != nil {
		return Facts{}, err
	}

	return Facts{
		Branch:          branch,
		ParentBranch:    parent,
		LatestCommit:    latest,
		BaseTag:         tag,
		LongDescribe:    long,
		CommitsSinceTag: commits,
		ShortHash:       sha,
		TaggedCommit:    taggedCommit,
	}, nil
}

func describe(g Runner, abbrev int) (string, error) {
	args := []string{"describe"}
	if abbrev >= 0 {
		args = append(args, fmt.Sprintf("--abbrev=%d", abbrev))
	} else {
		args = append(args, "--long")
	}
	return g.Run(args, "", false)
}

// parseDescribe splits the long describe form into the commit count and the
// short hash left over once the bare tag is removed from it.
func parseDescribe(long, tag string) (int, string, error) {
	rest := strings.ReplaceAll(long, tag, "")

	var parts []string
	for _, p := range strings.Split(rest, "-") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	if len(parts) != 2 {
		return 0, "", &InvalidTagError{Reason: fmt.Sprintf(
			"parsing error: '%s' with tag '%s' removed should leave a commit count and a hash", long, tag)}
	}

	commits, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, "", &InvalidTagError{Reason: fmt.Sprintf(
			"parsing error: commit count '%s' in '%s' is not a number", parts[0], long)}
	}

	return commits, strings.TrimPrefix(parts[1], "g"), nil
}

func currentBranch(g Runner) (string, error) {
	out, err := g.Run([]string{"branch"}, "", false)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(out, "\n") {
		if !strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		return fields[len(fields)-1], nil
	}
	return "", &NotRepositoryError{Stderr: "no current branch in branch listing"}
}

// parentBranch recovers the branch the current one forked from out of the
// ancestry listing: the first line marked with the current-branch indicator
// that does not name the branch itself carries the parent name in its first
// bracket pair. Empty when no such line exists.
func parentBranch(g Runner, branch string) (string, error) {
	out, err := g.Run([]string{"show-branch"}, "", false)
	if err != nil {
		return "", err
	}
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, "*") || strings.Contains(line, branch) {
			continue
		}

		// lines look like " +* [parent] commit subject"
		open := strings.Index(line, "[")
		if open < 0 {
			return "", nil
		}
		rest := line[open+1:]
		end := strings.Index(rest, "]")
		if end < 0 {
			return "", nil
		}
		return rest[:end], nil
	}
	return "", nil
}

// nonDevTag returns the most recent tag by tagger date whose name does not
// mark a development release.
func nonDevTag(g Runner, pkgName string) (string, error) {
	out, err := g.Run([]string{
		"for-each-ref", "--sort=taggerdate",
		"--format=%(refname) %(taggerdate)", "refs/tags",
	}, "", false)
	if err != nil {
		return "", err
	}

	tag := ""
	for _, line := range strings.Split(out, "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 || strings.Contains(fields[0], ".dev") {
			continue
		}
		// ties within one tagger date keep listing order, last one wins
		tag = strings.TrimPrefix(fields[0], "refs/tags/")
	}
	if tag == "" {
		return "", &InvalidTagError{Reason: "no non-development tag found"}
	}
	if err := ValidateTag(tag, pkgName); err != nil {
		return "", err
	}
	return tag, nil
}

// commitOfTag resolves the commit a tag points to: the first entry of the
// reverse-chronological listing rooted at the tag. The tag name counts as
// user input, so a rejected name surfaces as an InvalidCommandError.
func commitOfTag(g Runner, tag string) (string, error) {
	out, err := g.Run([]string{"rev-list", tag}, "", true)
	if err != nil {
		return "", err
	}
	head, _, _ := strings.Cut(out, "\n")
	return head, nil
}

func latestCommit(g Runner) (string, error) {
	return g.Run([]string{"log", "-n", "1", "--pretty=format:%H"}, "", false)
}

// branchOfCommit recovers which branch a commit originated on from the
// reference log. ok is false when no reflog entry mentions the commit or the
// first mention is not a local branch, which rules out branch-local versions
// without failing.
func branchOfCommit(g Runner, commit string) (string, bool, error) {
	out, err := g.Run([]string{"reflog", "show", "--all"}, "", false)
	if err != nil {
		return "", false, err
	}

	needle := commit
	if len(needle) > 7 {
		needle = needle[:7]
	}
	for _, line := range strings.Split(out, "\n") {
		if !strings.Contains(line, needle) {
			continue
		}

		// entries look like "bb994b4 refs/heads/master@{2}: pull: Fast-for"
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return "", false, nil
		}
		ref := strings.TrimSuffix(fields[1], ":")
		if at := strings.Index(ref, "@{"); at >= 0 {
			ref = ref[:at]
		}
		name := strings.TrimPrefix(ref, "refs/heads/")
		if name == ref {
			return "", false, nil
		}
		return name, true, nil
	}
	return "", false, nil
}

// verifyTracked confirms pkgFile is tracked by Git, guarding against a tree
// that merely sits inside someone else's repository.
func verifyTracked(g Runner, pkgFile string) error {
	dir, base := filepath.Split(pkgFile)
	_, err := g.Run([]string{"ls-files", base, "--error-unmatch"}, dir, false)
	return err
}
