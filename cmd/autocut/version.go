package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"runtime"

	"autocut/config"
	"autocut/internal/appdirs"
	"autocut/internal/deps"
	"autocut/log"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

var errRedisRequired = errors.New("queue.redis_addr (or REDIS_ADDR) must be set to run a worker")

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "version",
		Short:       "Print version information",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigCheck: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			printVersion(cmd.OutOrStdout())
		},
	}
}

func newDiagnoseCmd() *cobra.Command {
	return &cobra.Command{
		Use:         "diagnose",
		Short:       "Print runtime paths and external tool status",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipConfigCheck: "true"},
		Run: func(cmd *cobra.Command, args []string) {
			printDiagnose(cmd.OutOrStdout())
		},
	}
}

func printVersion(w io.Writer) {
	fmt.Fprintf(w, "version: %s\ncommit: %s\ndate: %s\n", version, commit, date)
}

func printDiagnose(w io.Writer) {
	fmt.Fprintf(w, "runtime: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	fmt.Fprintf(w, "version: %s\n", version)

	if wd, err := os.Getwd(); err == nil {
		fmt.Fprintf(w, "working_dir: %s\n", wd)
	} else {
		fmt.Fprintf(w, "working_dir: <error: %v>\n", err)
	}

	printPath(w, "config", config.ResolveConfigPath)
	printPath(w, "log", log.ResolveLogFilePath)
	printPath(w, "output", config.OutputDir)
	printPath(w, "database", appdirs.ResolveDBPath)

	states := deps.ResolveDependencyStates(
		deps.BuildDependencyInventory(config.Conf.Bin, config.Conf.Download.Provider),
		deps.NewPathResolver())
	fmt.Fprintln(w, deps.FormatDependencyReport(states))
}

func printPath(w io.Writer, name string, resolve func() (string, error)) {
	value, err := resolve()
	if err != nil {
		fmt.Fprintf(w, "path.%s: <error: %v>\n", name, err)
		return
	}

	if _, err = os.Stat(value); err == nil {
		fmt.Fprintf(w, "path.%s: %s (exists)\n", name, value)
		return
	}
	if os.IsNotExist(err) {
		fmt.Fprintf(w, "path.%s: %s (missing)\n", name, value)
		return
	}

	fmt.Fprintf(w, "path.%s: %s (error=%v)\n", name, value, err)
}
