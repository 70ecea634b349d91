package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	slogmulti "github.com/samber/slog-multi"

	"github.com/agenthands/svm/pkg/asm"
	"github.com/agenthands/svm/pkg/config"
	"github.com/agenthands/svm/pkg/progfile"
	"github.com/agenthands/svm/pkg/vm"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage: svm [asm|run|dis] ...")
		os.Exit(1)
	}

	switch os.Args[1] {
	case "asm":
		runAsm()
	case "run":
		runRun()
	case "dis":
		runDis()
	default:
		fmt.Println("Unknown command:", os.Args[1])
		os.Exit(1)
	}
}

func runAsm() {
	asmCmd := flag.NewFlagSet("asm", flag.ExitOnError)
	out := asmCmd.String("o", "", "output path (default: source path with .svm extension)")
	raw := asmCmd.Bool("raw", false, "write headerless bytecode instead of a program container")

	if len(os.Args) < 3 {
		fmt.Println("Usage: svm asm <source.asm> [-o out] [-raw]")
		os.Exit(1)
	}
	srcPath := os.Args[2]
	asmCmd.Parse(os.Args[3:])

	src, err := os.ReadFile(srcPath)
	if err != nil {
		fmt.Printf("Error reading file: %v\n", err)
		os.Exit(1)
	}

	program, labels, err := asm.AssembleWithLabels(string(src))
	if err != nil {
		fmt.Printf("Assembly Error: %v\n", err)
		os.Exit(1)
	}

	if *raw {
		path := *out
		if path == "" {
			path = replaceExt(srcPath, ".bin")
		}
		if err := os.WriteFile(path, program, 0o644); err != nil {
			fmt.Printf("Error writing %s: %v\n", path, err)
			os.Exit(1)
		}
		return
	}

	path := *out
	if path == "" {
		path = replaceExt(srcPath, ".svm")
	}
	f := &progfile.File{
		Source:  filepath.Base(srcPath),
		Program: program,
		Labels:  labels,
	}
	if err := progfile.Write(path, f); err != nil {
		fmt.Printf("Error writing %s: %v\n", path, err)
		os.Exit(1)
	}
}

func runRun() {
	runCmd := flag.NewFlagSet("run", flag.ExitOnError)
	confPath := runCmd.String("config", "svm.toml", "configuration file")
	trace := runCmd.Bool("trace", false, "log every dispatched instruction (needs log level debug)")

	if len(os.Args) < 3 {
		fmt.Println("Usage: svm run <program.svm|program.bin|source.asm> [-config svm.toml] [-trace]")
		os.Exit(1)
	}
	path := os.Args[2]
	runCmd.Parse(os.Args[3:])

	cfg, err := config.Load(*confPath)
	if err != nil {
		fmt.Printf("Config Error: %v\n", err)
		os.Exit(1)
	}
	logger, err := newLogger(cfg)
	if err != nil {
		fmt.Printf("Config Error: %v\n", err)
		os.Exit(1)
	}

	program, err := loadProgram(path)
	if err != nil {
		fmt.Printf("Error loading program: %v\n", err)
		os.Exit(1)
	}

	m := vm.NewMachine(cfg.Stack.ControlDepth)
	if *trace {
		m.Trace = logger
	}

	stack := make([]int32, cfg.Stack.Depth)
	depth, err := m.Execute(program, stack, 0)
	if err != nil {
		fmt.Printf("Runtime Error: %v\n", err)
		os.Exit(1)
	}
	logger.Debug("execution finished", "stack_depth", depth)
}

func runDis() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: svm dis <program.svm|program.bin>")
		os.Exit(1)
	}
	path := os.Args[2]

	var program []byte
	var labels map[string]int
	if filepath.Ext(path) == ".svm" {
		f, err := progfile.Read(path)
		if err != nil {
			fmt.Printf("Error loading program: %v\n", err)
			os.Exit(1)
		}
		program, labels = f.Program, f.Labels
	} else {
		data, err := os.ReadFile(path)
		if err != nil {
			fmt.Printf("Error reading file: %v\n", err)
			os.Exit(1)
		}
		program = data
	}

	if err := asm.Disassemble(program, labels, os.Stdout); err != nil {
		fmt.Printf("Error: %v\n", err)
		os.Exit(1)
	}
}

// loadProgram accepts a container, raw bytecode, or assembly source,
// picked by extension.
func loadProgram(path string) ([]byte, error) {
	switch filepath.Ext(path) {
	case ".svm":
		f, err := progfile.Read(path)
		if err != nil {
			return nil, err
		}
		return f.Program, nil
	case ".asm", ".s":
		src, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		return asm.Assemble(string(src))
	default:
		return os.ReadFile(path)
	}
}

// newLogger builds the tool logger: a text handler on stderr, plus a
// JSON handler appending to the configured log file, fanned out
// together.
func newLogger(cfg *config.Config) (*slog.Logger, error) {
	level, err := cfg.SlogLevel()
	if err != nil {
		return nil, err
	}

	handlers := []slog.Handler{
		slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}),
	}
	if cfg.Log.File != "" {
		f, err := os.OpenFile(cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("cannot open log file: %w", err)
		}
		handlers = append(handlers, slog.NewJSONHandler(f, &slog.HandlerOptions{Level: level}))
	}

	return slog.New(slogmulti.Fanout(handlers...)), nil
}

func replaceExt(path, ext string) string {
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}
