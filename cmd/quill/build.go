package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"quill/internal/ast"
	"quill/internal/diag"
	"quill/internal/diagfmt"
	"quill/internal/driver"
	"quill/internal/layout"
	"quill/internal/observ"
	"quill/internal/prof"
	"quill/internal/project"
	"quill/internal/ui"
)

var buildCmd = &cobra.Command{
	Use:   "build [program]",
	Short: "Compile a checked program to SSA",
	Long: `Compile a checked program (msgpack, produced by the front end) down to SSA.
With no argument the program path comes from quill.toml.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runBuild,
}

var (
	buildUIFlag     string
	buildCPUProfile string
	buildMemProfile string
)

func init() {
	buildCmd.Flags().StringVar(&buildUIFlag, "ui", "auto", "interactive progress (auto|on|off)")
	buildCmd.Flags().StringVar(&buildCPUProfile, "cpuprofile", "", "write a CPU profile to the given path")
	buildCmd.Flags().StringVar(&buildMemProfile, "memprofile", "", "write a heap profile to the given path")
}

func runBuild(cmd *cobra.Command, args []string) error {
	if buildCPUProfile != "" {
		stop, err := prof.StartCPU(buildCPUProfile)
		if err != nil {
			return err
		}
		defer stop()
	}

	timer := observ.NewTimer()
	loadPhase := timer.Begin("load")
	path, manifest, err := resolveProgramPath(args)
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	prog, err := driver.LoadProgram(path)
	if err != nil {
		return err
	}
	timer.End(loadPhase, path)

	compilePhase := timer.Begin("compile")
	build, bag, err := compileProgram(cmd, prog, manifest, shouldUseTUI())
	if err != nil {
		return err
	}
	timer.End(compilePhase, fmt.Sprintf("%d function(s)", len(build.Entry)))
	quiet, _ := cmd.Flags().GetBool("quiet")
	if bag.HasErrors() {
		return errors.New("build failed")
	}
	if manifest != nil && manifest.Config.Build.Cache {
		cachePhase := timer.Begin("cache")
		cache, cerr := driver.OpenArtifactCache("quill")
		if cerr != nil {
			return cerr
		}
		digest := driver.DigestBytes(data)
		if cerr := cache.Put(digest, driver.NewArtifact(build, digest)); cerr != nil {
			return cerr
		}
		timer.End(cachePhase, "")
	}
	if !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "compiled %d function(s), %d instantiation(s)\n",
			len(build.Entry), build.Store.Len())
	}
	if timings, _ := cmd.Flags().GetBool("timings"); timings {
		fmt.Fprint(cmd.ErrOrStderr(), timer.Summary())
	}
	if buildMemProfile != "" {
		if err := prof.WriteMem(buildMemProfile); err != nil {
			return err
		}
	}
	return nil
}

// compileFromArgs resolves the program path, decodes it, compiles and
// renders diagnostics.
func compileFromArgs(cmd *cobra.Command, args []string, useTUI bool) (*driver.Build, *diag.Bag, error) {
	path, manifest, err := resolveProgramPath(args)
	if err != nil {
		return nil, nil, err
	}
	prog, err := driver.LoadProgram(path)
	if err != nil {
		return nil, nil, err
	}
	return compileProgram(cmd, prog, manifest, useTUI)
}

func compileProgram(cmd *cobra.Command, prog *ast.Program, manifest *project.Manifest, useTUI bool) (*driver.Build, *diag.Bag, error) {
	jobs, _ := cmd.Flags().GetInt("jobs")
	maxDiags, _ := cmd.Flags().GetInt("max-diagnostics")
	quiet, _ := cmd.Flags().GetBool("quiet")
	if manifest != nil {
		if jobs == 0 {
			jobs = manifest.Config.Build.Jobs
		}
		if m := manifest.Config.Build.MaxDiagnostics; m > 0 && maxDiags == 100 {
			maxDiags = m
		}
	}

	opts := driver.Options{Jobs: jobs, MaxDiagnostics: maxDiags}
	if manifest != nil {
		tgt, ok := layout.TargetByTriple(manifest.Config.Build.Target)
		if !ok {
			return nil, nil, fmt.Errorf("unknown target triple %q in %s",
				manifest.Config.Build.Target, project.ManifestName)
		}
		opts.Target = tgt
	}

	useTUI = useTUI && !quiet
	var events chan ui.Event
	var uiDone chan error
	if useTUI {
		events = make(chan ui.Event, 64)
		uiDone = make(chan error, 1)
		total := countRoots(prog)
		go func() {
			uiDone <- ui.RunProgress("quill build", total, events)
		}()
		opts.Progress = func(name string, done, total int) {
			events <- ui.Event{Func: name, Done: done, Total: total}
		}
	}

	build, err := driver.Compile(context.Background(), prog, opts)
	if useTUI {
		close(events)
		<-uiDone
	}
	if err != nil {
		return nil, nil, err
	}

	mode, err := colorMode(cmd)
	if err != nil {
		return nil, nil, err
	}
	diagfmt.Render(cmd.ErrOrStderr(), build.Bag, mode, isTerminal(os.Stderr))
	if !quiet {
		diagfmt.Summary(cmd.ErrOrStderr(), build.Bag, mode, isTerminal(os.Stderr))
	}
	return build, build.Bag, nil
}

func resolveProgramPath(args []string) (string, *project.Manifest, error) {
	manifest, found, err := project.Load(".")
	if err != nil {
		return "", nil, err
	}
	if !found {
		manifest = nil
	}
	if len(args) == 1 {
		return args[0], manifest, nil
	}
	if manifest == nil || manifest.Config.Run.Program == "" {
		return "", nil, errors.New("no program given and no quill.toml with run.program found")
	}
	return filepath.Join(manifest.Root, manifest.Config.Run.Program), manifest, nil
}

func countRoots(prog *ast.Program) int {
	n := 0
	for _, f := range prog.Funcs {
		if !f.IsGeneric() {
			n++
		}
	}
	return n
}

func colorMode(cmd *cobra.Command) (diagfmt.Mode, error) {
	s, _ := cmd.Flags().GetString("color")
	return diagfmt.ParseMode(s)
}

func shouldUseTUI() bool {
	switch buildUIFlag {
	case "on":
		return true
	case "off":
		return false
	default:
		return isTerminal(os.Stdout)
	}
}
