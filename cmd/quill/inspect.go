package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"quill/internal/driver"
	"quill/internal/mono"
)

var (
	inspectSSA    bool
	inspectInsts  bool
	inspectCached bool
)

func init() {
	inspectCmd.Flags().BoolVar(&inspectSSA, "ssa", true, "print the emitted SSA")
	inspectCmd.Flags().BoolVar(&inspectInsts, "instantiations", false, "print the generic instantiation listing")
	inspectCmd.Flags().BoolVar(&inspectCached, "cached", false, "read from the artifact cache instead of compiling")
}

var inspectCmd = &cobra.Command{
	Use:   "inspect [program]",
	Short: "Show what a program compiles to",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runInspect,
}

func runInspect(cmd *cobra.Command, args []string) error {
	out := cmd.OutOrStdout()

	if inspectCached {
		path, _, err := resolveProgramPath(args)
		if err != nil {
			return err
		}
		art, hit, err := cachedArtifact(path)
		if err != nil {
			return err
		}
		if !hit {
			return errors.New("no cached artifact for this program; run `quill build` first")
		}
		if inspectSSA {
			fmt.Fprint(out, art.SSAText)
		}
		if inspectInsts {
			fmt.Fprint(out, art.Instantiations)
		}
		return nil
	}

	build, bag, err := compileFromArgs(cmd, args, false)
	if err != nil {
		return err
	}
	if bag.HasErrors() {
		return errors.New("build failed")
	}
	if inspectSSA {
		build.Module.Print(out)
	}
	if inspectInsts {
		mono.DumpInstantiations(out, build.Store.Uses())
	}
	return nil
}

func cachedArtifact(path string) (*driver.Artifact, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}
	cache, err := driver.OpenArtifactCache("quill")
	if err != nil {
		return nil, false, err
	}
	return cache.Get(driver.DigestBytes(data))
}
