package main

import (
	"encoding/json"
	"io/ioutil"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCLIShowVersion(t *testing.T) {
	cli := &CLI{ShowVersion: true}

	// Capture stdout
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := cli.showVersion()
	require.NoError(t, err)

	w.Close()
	os.Stdout = oldStdout

	output, _ := ioutil.ReadAll(r)
	outputStr := string(output)

	require.Contains(t, outputStr, "gitpy-versioning version")
	require.Contains(t, outputStr, "dev") // Default version should be "dev"
}

func TestCLIShowVersionJSON(t *testing.T) {
	cli := &CLI{ShowVersion: true, JSON: true}

	// Capture stdout
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := cli.showVersion()
	require.NoError(t, err)

	w.Close()
	os.Stdout = oldStdout

	output, _ := ioutil.ReadAll(r)

	var versionInfo map[string]string
	err = json.Unmarshal(output, &versionInfo)
	require.NoError(t, err)

	require.Equal(t, "dev", versionInfo["version"])
	require.Equal(t, "gitpy-versioning", versionInfo["name"])
}

func TestCLIResolveNonGitDir(t *testing.T) {
	// Create a temporary non-git directory
	tmpDir, err := ioutil.TempDir("", "non-git")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	cli := &CLI{Dir: tmpDir, PkgFile: "."}

	// Capture stdout
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err = cli.resolveVersion()
	require.NoError(t, err)

	w.Close()
	os.Stdout = oldStdout

	output, _ := ioutil.ReadAll(r)
	outputStr := strings.TrimSpace(string(output))

	require.Equal(t, "unknown", outputStr)
}

func TestCLIResolveNonGitDirJSON(t *testing.T) {
	tmpDir, err := ioutil.TempDir("", "non-git")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	cli := &CLI{Dir: tmpDir, PkgFile: ".", JSON: true}

	// Capture stdout
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err = cli.resolveVersion()
	require.NoError(t, err)

	w.Close()
	os.Stdout = oldStdout

	output, _ := ioutil.ReadAll(r)

	var resolved map[string]string
	err = json.Unmarshal(output, &resolved)
	require.NoError(t, err)

	require.Equal(t, "unknown", resolved["version"])
}

func TestCLIResolveReadsFallbackFile(t *testing.T) {
	tmpDir, err := ioutil.TempDir("", "non-git")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	err = ioutil.WriteFile(filepath.Join(tmpDir, "RELEASE-VERSION"), []byte("3.2.1"), 0o644)
	require.NoError(t, err)

	cli := &CLI{Dir: tmpDir, PkgFile: "."}

	// Capture stdout
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err = cli.resolveVersion()
	require.NoError(t, err)

	w.Close()
	os.Stdout = oldStdout

	output, _ := ioutil.ReadAll(r)
	require.Equal(t, "3.2.1\n", string(output))
}

func TestCLIRun(t *testing.T) {
	t.Run("Show version", func(t *testing.T) {
		cli := &CLI{ShowVersion: true}

		// Capture stdout to avoid polluting test output
		oldStdout := os.Stdout
		r, w, _ := os.Pipe()
		os.Stdout = w

		err := cli.Run()
		require.NoError(t, err)

		w.Close()
		os.Stdout = oldStdout

		output, _ := ioutil.ReadAll(r)
		require.Contains(t, string(output), "gitpy-versioning version")
	})

	t.Run("Resolve in non-git directory", func(t *testing.T) {
		tmpDir, err := ioutil.TempDir("", "non-git")
		require.NoError(t, err)
		defer os.RemoveAll(tmpDir)

		cli := &CLI{Dir: tmpDir, PkgFile: "."}

		// Capture stdout to avoid polluting test output
		oldStdout := os.Stdout
		r, w, _ := os.Pipe()
		os.Stdout = w

		err = cli.Run()
		require.NoError(t, err)

		w.Close()
		os.Stdout = oldStdout

		output, _ := ioutil.ReadAll(r)
		require.Equal(t, "unknown\n", string(output))
	})

	t.Run("Missing pkg file is an error", func(t *testing.T) {
		cli := &CLI{}

		err := cli.Run()
		require.Error(t, err)
		require.Contains(t, err.Error(), "pkg file is required")
	})
}
