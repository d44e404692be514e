// Command lc3 is the toolchain's CLI dispatcher: an "asm" subcommand that
// assembles (and optionally links) a source file, and a "load" subcommand
// that runs an assembled image to completion.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/kjellberg/lc3toolchain/assembler"
	"github.com/kjellberg/lc3toolchain/config"
	"github.com/kjellberg/lc3toolchain/image"
	"github.com/kjellberg/lc3toolchain/ioagent"
	"github.com/kjellberg/lc3toolchain/isa"
	"github.com/kjellberg/lc3toolchain/linker"
	"github.com/kjellberg/lc3toolchain/logging"
	"github.com/kjellberg/lc3toolchain/symtab"
	"github.com/kjellberg/lc3toolchain/vm"
)

func main() {
	var caseSensitive bool
	var noSymFile bool
	var verboseLog bool
	var linkObjs []string
	var configPath string

	root := &cobra.Command{
		Use:           "lc3",
		Short:         "LC-3 assembler, linker, and virtual machine",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to an lc3.toml settings file")

	asmCmd := &cobra.Command{
		Use:   "asm <src.asm>",
		Short: "Assemble a source file to a .obj image (and .obj.sym sidecar)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAsm(args[0], caseSensitive, noSymFile, verboseLog, linkObjs, configPath)
		},
	}
	asmCmd.Flags().BoolVar(&caseSensitive, "case-sensitive", false, "treat labels as case-sensitive")
	asmCmd.Flags().BoolVar(&noSymFile, "no-sym-file", false, "suppress the .obj.sym sidecar")
	asmCmd.Flags().BoolVar(&verboseLog, "verbose-log", false, "write debug-level trace to stderr")
	asmCmd.Flags().StringArrayVar(&linkObjs, "link", nil, "companion .obj files to resolve .IMPORT symbols against")

	loadCmd := &cobra.Command{
		Use:   "load <primary.obj> [companion.obj]...",
		Short: "Load an image (and any companions) into a fresh VM and run to halt",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLoad(args[0], args[1:], verboseLog, configPath)
		},
	}
	loadCmd.Flags().BoolVar(&verboseLog, "verbose-log", false, "write debug-level trace to stderr")

	root.AddCommand(asmCmd, loadCmd)
	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func runAsm(srcPath string, caseSensitive, noSymFile, verboseLog bool, linkObjs []string, configPath string) error {
	logger := logging.Default(verboseLog)

	// Without an explicit --config, look for lc3.toml next to the source
	// file; Load treats a missing file as all-defaults.
	if configPath == "" {
		configPath = filepath.Join(filepath.Dir(srcPath), "lc3.toml")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	caseSensitive = caseSensitive || cfg.Assembler.CaseSensitive
	noSymFile = noSymFile || cfg.Assembler.NoSymFile
	if len(cfg.TrapVectors) > 0 {
		isa.ApplyTrapVectorOverrides(cfg.TrapVectors)
		logger.Infof("applied %d trap vector override(s) from config", len(cfg.TrapVectors))
	}

	src, err := os.ReadFile(srcPath)
	if err != nil {
		return fmt.Errorf("lc3 asm: %w", err)
	}

	companions, err := loadCompanions(linkObjs)
	if err != nil {
		return err
	}

	logger.Infof("assembling %s", srcPath)
	result, errs := assembler.Assemble(string(src), assembler.Options{
		FileName:      srcPath,
		CaseSensitive: caseSensitive,
		Companions:    companions,
	})
	if errs != nil {
		fmt.Fprintln(os.Stderr, errs.Error())
		return fmt.Errorf("lc3 asm: %d error(s)", len(errs.Errors))
	}

	objPath := withExt(srcPath, ".obj")
	objFile, err := os.Create(objPath)
	if err != nil {
		return fmt.Errorf("lc3 asm: %w", err)
	}
	defer objFile.Close()
	if err := image.WriteObject(objFile, result.Image); err != nil {
		return fmt.Errorf("lc3 asm: %w", err)
	}
	logger.Infof("wrote %s", objPath)

	if !noSymFile {
		symPath := objPath + ".sym"
		symFile, err := os.Create(symPath)
		if err != nil {
			return fmt.Errorf("lc3 asm: %w", err)
		}
		defer symFile.Close()
		if err := image.WriteSymbols(symFile, result.Image.Symbols); err != nil {
			return fmt.Errorf("lc3 asm: %w", err)
		}
		logger.Infof("wrote %s", symPath)
	}

	return nil
}

// loadCompanions reads each --link object's .obj header (for its origin)
// and its .obj.sym sidecar (for its exported symbols), building the
// linker.Companion list assembler.Assemble consults to resolve .IMPORT
// symbols at assembly time.
func loadCompanions(objPaths []string) ([]linker.Companion, error) {
	var companions []linker.Companion
	for _, objPath := range objPaths {
		objFile, err := os.Open(objPath)
		if err != nil {
			return nil, fmt.Errorf("lc3 asm: --link %s: %w", objPath, err)
		}
		loaded, err := image.ReadObject(objFile)
		objFile.Close()
		if err != nil {
			return nil, fmt.Errorf("lc3 asm: --link %s: %w", objPath, err)
		}

		symPath := objPath + ".sym"
		symFile, err := os.Open(symPath)
		if err != nil {
			return nil, fmt.Errorf("lc3 asm: --link %s: missing sidecar %s: %w", objPath, symPath, err)
		}
		symbols, err := image.ReadSymbols(symFile)
		symFile.Close()
		if err != nil {
			return nil, fmt.Errorf("lc3 asm: --link %s: %w", objPath, err)
		}

		companions = append(companions, linker.Companion{
			Name:    filepath.Base(objPath),
			Origin:  loaded.Origin,
			Symbols: filterExports(symbols),
		})
	}
	return companions, nil
}

func filterExports(symbols []*symtab.Symbol) []*symtab.Symbol {
	var out []*symtab.Symbol
	for _, s := range symbols {
		if s.Status == symtab.Export {
			out = append(out, s)
		}
	}
	return out
}

func runLoad(primaryPath string, companionPaths []string, verboseLog bool, configPath string) error {
	logger := logging.Default(verboseLog)

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	machine := vm.New(logger)
	machine.MaxCycles = cfg.VM.MaxCycles
	if haltVector, ok := cfg.TrapVectors["HALT"]; ok {
		machine.HaltVector = uint16(haltVector)
	}

	type loadedImage struct {
		path   string
		loaded *image.Loaded
	}
	images := make([]loadedImage, 0, 1+len(companionPaths))
	ranges := make([]linker.Range, 0, 1+len(companionPaths))
	for _, p := range append([]string{primaryPath}, companionPaths...) {
		f, err := os.Open(p)
		if err != nil {
			return fmt.Errorf("lc3 load: %w", err)
		}
		loaded, err := image.ReadObject(f)
		f.Close()
		if err != nil {
			return fmt.Errorf("lc3 load: %w", err)
		}
		images = append(images, loadedImage{path: p, loaded: loaded})
		ranges = append(ranges, linker.Range{
			Name:   filepath.Base(p),
			Origin: loaded.Origin,
			Len:    uint16(len(loaded.Words)),
		})
	}
	if err := linker.CheckOverlap(ranges); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return fmt.Errorf("lc3 load: images overlap")
	}

	for i, li := range images {
		machine.LoadWords(li.loaded.Origin, li.loaded.Words)
		if i == 0 {
			machine.SetOrigin(li.loaded.Origin)
			logger.Infof("loaded %s at origin x%04X (%d words)", li.path, li.loaded.Origin, len(li.loaded.Words))
		} else {
			logger.Infof("loaded companion %s at origin x%04X", li.path, li.loaded.Origin)
		}
	}

	errs := make(chan error, 1)
	poll := time.Duration(cfg.IO.PollIntervalMillis) * time.Millisecond
	go ioagent.Keyboard(os.Stdin, machine.KeyboardRecord)
	go ioagent.Display(os.Stdout, machine.DisplayRecord, poll, errs)

	runErr := machine.Run()
	if !ioagent.AwaitAcknowledged(50*time.Millisecond, machine.KeyboardRecord, machine.DisplayRecord) {
		// The keyboard agent may be parked in a blocked terminal read; the
		// spin is bounded so a halted machine still exits promptly.
		logger.Debugf("I/O agent did not acknowledge shutdown before the deadline")
	}
	select {
	case ioErr := <-errs:
		return fmt.Errorf("lc3 load: %w", ioErr)
	default:
	}
	if runErr != nil {
		return fmt.Errorf("lc3 load: %w", runErr)
	}
	return nil
}

// withExt replaces path's extension with ext.
func withExt(path, ext string) string {
	base := strings.TrimSuffix(path, filepath.Ext(path))
	return base + ext
}
