package main

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"quill/internal/backend/ssamod"
	"quill/internal/driver"
)

var (
	runEntry string
)

func init() {
	runCmd.Flags().StringVar(&runEntry, "entry", "", "entry function (default: quill.toml run.main, then \"main\")")
}

var runCmd = &cobra.Command{
	Use:   "run [program] [-- args]",
	Short: "Compile a program and execute its entry function",
	Long: `Compile a checked program and run it on the built-in SSA machine.
Arguments after -- are passed to the entry function as integers.`,
	Args: cobra.ArbitraryArgs,
	RunE: runRun,
}

func runRun(cmd *cobra.Command, args []string) error {
	var progArgs []string
	if n := cmd.ArgsLenAtDash(); n >= 0 {
		progArgs = args[n:]
		args = args[:n]
	}
	if len(args) > 1 {
		return errors.New("run takes at most one program path")
	}

	path, manifest, err := resolveProgramPath(args)
	if err != nil {
		return err
	}
	prog, err := driver.LoadProgram(path)
	if err != nil {
		return err
	}
	build, bag, err := compileProgram(cmd, prog, manifest, false)
	if err != nil {
		return err
	}
	if bag.HasErrors() {
		return errors.New("build failed")
	}

	entry := runEntry
	if entry == "" {
		entry = "main"
		if manifest != nil && manifest.Config.Run.Main != "" {
			entry = manifest.Config.Run.Main
		}
	}
	symbol, ok := build.Entry[entry]
	if !ok {
		return fmt.Errorf("no compiled entry function %q", entry)
	}

	words := make([]int64, 0, len(progArgs))
	for _, a := range progArgs {
		w, err := strconv.ParseInt(a, 10, 64)
		if err != nil {
			return fmt.Errorf("argument %q is not an integer: %w", a, err)
		}
		words = append(words, w)
	}

	machine := ssamod.NewMachine(build.Module)
	res, err := machine.Run(symbol, words...)
	if err != nil {
		var trap *ssamod.TrapError
		if errors.As(err, &trap) {
			return fmt.Errorf("program trapped: %s", trap.Msg)
		}
		return err
	}
	if res.HasValue {
		fmt.Fprintln(cmd.OutOrStdout(), res.Word)
	}
	return nil
}
