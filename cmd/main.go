package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	versioning "github.com/riverbed/gitpy-versioning"
	"go.uber.org/zap"
)

// Version will be set by build process
var Version = "dev"

type CLI struct {
	PkgName     string `short:"n" help:"Package name release tags must carry as a '<name>-' prefix (e.g. 'steelhead' for tags like steelhead-1.2.0)"`
	PkgFile     string `short:"f" default:"." help:"Path that must be tracked by git before repository state is trusted"`
	Fallback    string `default:"RELEASE-VERSION" help:"File the resolved version is persisted to and read from outside a checkout"`
	Dir         string `short:"C" help:"Run as if started in this directory (default: current directory)"`
	JSON        bool   `short:"j" help:"Output as JSON"`
	Debug       bool   `help:"Trace git queries and resolution decisions to stderr"`
	ShowVersion bool   `help:"Show version information" name:"version"`
}

func main() {
	var cli CLI

	kong.Parse(&cli,
		kong.Name("gitpy-versioning"),
		kong.Description("Derive a PEP 440 version string from Git repository state"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": Version,
		},
	)

	err := cli.Run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func (c *CLI) Run() error {
	if c.ShowVersion {
		return c.showVersion()
	}

	return c.resolveVersion()
}

func (c *CLI) showVersion() error {
	versionInfo := map[string]string{
		"version": Version,
		"name":    "gitpy-versioning",
	}

	if c.JSON {
		return json.NewEncoder(os.Stdout).Encode(versionInfo)
	}

	fmt.Printf("gitpy-versioning version %s\n", Version)
	return nil
}

func (c *CLI) resolveVersion() error {
	logger := zap.NewNop()
	if c.Debug {
		built, err := zap.NewDevelopment()
		if err != nil {
			return fmt.Errorf("building logger: %w", err)
		}
		logger = built
		defer func() { _ = logger.Sync() }()
	}

	version, err := versioning.Resolve(versioning.Options{
		PkgName:  c.PkgName,
		PkgFile:  c.PkgFile,
		Fallback: c.Fallback,
		Dir:      c.Dir,
		Logger:   logger,
	})
	if err != nil {
		return fmt.Errorf("resolving version: %w", err)
	}

	if c.JSON {
		return json.NewEncoder(os.Stdout).Encode(map[string]string{"version": version})
	}

	fmt.Println(version)
	return nil
}
