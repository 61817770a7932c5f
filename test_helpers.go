package versioning

import (
	"fmt"
	"os/exec"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var testSignature = &object.Signature{
	Name:  "test",
	Email: "test@example.com",
	When:  time.Now(),
}

// gitStep is one scripted response a scriptedGit hands out
type gitStep struct {
	out string
	err error
}

// scriptedGit replays canned query responses in order and records every call
// for sequence assertions
type scriptedGit struct {
	steps []gitStep
	calls [][]string
	dirs  []string
}

func (s *scriptedGit) Run(args []string, dir string, userInput bool) (string, error) {
	s.calls = append(s.calls, args)
	s.dirs = append(s.dirs, dir)
	if len(s.calls) > len(s.steps) {
		return "", fmt.Errorf("unscripted git call: %v", args)
	}
	step := s.steps[len(s.calls)-1]
	return step.out, step.err
}

// testRepoCreate creates an on-disk repository readable by both go-git and
// the real git binary
func testRepoCreate(path string) (*git.Repository, error) {
	return git.PlainInit(path, false)
}

// testRepoCommit writes filename and commits it, returning the commit hash
func testRepoCommit(repo *git.Repository, filename, content, message string) (plumbing.Hash, error) {
	workTree, err := repo.Worktree()
	if err != nil {
		return plumbing.ZeroHash, err
	}

	err = writeFile(workTree.Filesystem, filename, content)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	_, err = workTree.Add(filename)
	if err != nil {
		return plumbing.ZeroHash, err
	}

	return workTree.Commit(message, &git.CommitOptions{Author: testSignature})
}

// testRepoTag creates an annotated tag; describe ignores lightweight ones
func testRepoTag(repo *git.Repository, name string, commit plumbing.Hash) error {
	_, err := repo.CreateTag(name, commit, &git.CreateTagOptions{
		Tagger:  testSignature,
		Message: name,
	})
	return err
}

// writeFile writes content to a file in the given filesystem
func writeFile(fs billy.Filesystem, filename, content string) error {
	file, err := fs.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()

	_, err = file.Write([]byte(content))
	return err
}

// gitBinaryAvailable reports whether a git executable is on PATH; tests
// driving the exec adapter skip without one
func gitBinaryAvailable() bool {
	_, err := exec.LookPath("git")
	return err == nil
}
