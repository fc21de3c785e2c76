// Package compiler drives the Bluespec compiler (bsc) to turn a BSV package
// into Verilog netlists.
package compiler

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/charmbracelet/log"
	"mvdan.cc/sh/v3/syntax"
)

// DefaultPath is the compiler used when BSC_PATH is not set.
const DefaultPath = "bsc"

// ErrCompilerFailed is matched by every *InvocationError.
var ErrCompilerFailed = errors.New("compiler invocation failed")

// Invocation describes one bsc run.
type Invocation struct {
	Package    string   // BSV source file or package to compile
	Top        string   // top-level module to generate
	VDir       string   // Verilog output directory
	BDir       string   // object output directory
	SearchPath string   // -p value, empty for bsc's default
	Defines    []string // macro definitions, passed as -D
	Flags      []string // extra flags passed through verbatim
}

// Args returns the bsc argument list, without the compiler itself.
func (inv Invocation) Args() []string {
	args := []string{"-vdir", inv.VDir, "-bdir", inv.BDir}
	if inv.SearchPath != "" {
		args = append(args, "-p", inv.SearchPath)
	}
	for _, d := range inv.Defines {
		args = append(args, "-D", d)
	}
	args = append(args, inv.Flags...)
	args = append(args, "-verilog", "-g", inv.Top, "-u", inv.Package)
	return args
}

// InvocationError reports a compiler run that could not start or exited
// non-zero.
type InvocationError struct {
	Command  []string
	ExitCode int // -1 when the process never ran
	Output   string
	Err      error
}

func (e *InvocationError) Error() string {
	if e.ExitCode < 0 {
		return fmt.Sprintf("execution of command %q failed: %v", CommandLine(e.Command), e.Err)
	}
	return fmt.Sprintf("execution of command %q failed: return code %d", CommandLine(e.Command), e.ExitCode)
}

func (e *InvocationError) Unwrap() error {
	return e.Err
}

func (e *InvocationError) Is(target error) bool {
	return target == ErrCompilerFailed
}

// Compiler runs bsc and relays its output to a logger.
type Compiler struct {
	Path   string
	Logger *log.Logger
}

// New returns a compiler using path, or DefaultPath when path is empty.
func New(path string, logger *log.Logger) *Compiler {
	if path == "" {
		path = DefaultPath
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Compiler{Path: path, Logger: logger}
}

// Run executes the invocation. Standard error is merged into standard output
// and every line is logged as it arrives. The full output is kept on failure.
func (c *Compiler) Run(ctx context.Context, inv Invocation) error {
	if inv.Top == "" {
		return errors.New("compiler: top-level module is required")
	}
	if inv.Package == "" {
		return errors.New("compiler: package file is required")
	}

	argv := append([]string{c.Path}, inv.Args()...)
	c.Logger.Info("running compiler", "command", CommandLine(argv))

	output, err := runMerged(ctx, c.Logger.WithPrefix("bsc"), argv)
	if err == nil {
		return nil
	}

	ierr := &InvocationError{Command: argv, ExitCode: -1, Output: output, Err: err}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		ierr.ExitCode = exitErr.ExitCode()
	}
	return ierr
}

// runMerged starts argv with stdout and stderr on one pipe and logs each
// line. It returns the combined output.
func runMerged(ctx context.Context, logger *log.Logger, argv []string) (string, error) {
	pr, pw, err := os.Pipe()
	if err != nil {
		return "", fmt.Errorf("create output pipe: %w", err)
	}
	defer pr.Close()

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = pw
	cmd.Stderr = pw
	if err := cmd.Start(); err != nil {
		pw.Close()
		return "", err
	}
	// The child holds its own copy; ours must be closed for EOF to arrive.
	pw.Close()

	var out bytes.Buffer
	scanner := bufio.NewScanner(pr)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		out.WriteString(line)
		out.WriteByte('\n')
		logger.Info(line)
	}
	scanErr := scanner.Err()

	if err := cmd.Wait(); err != nil {
		return out.String(), err
	}
	if scanErr != nil {
		return out.String(), fmt.Errorf("read compiler output: %w", scanErr)
	}
	return out.String(), nil
}

// CommandLine renders argv as a bash command line.
func CommandLine(argv []string) string {
	parts := make([]string, len(argv))
	for i, arg := range argv {
		quoted, err := syntax.Quote(arg, syntax.LangBash)
		if err != nil {
			quoted = fmt.Sprintf("%q", arg)
		}
		parts[i] = quoted
	}
	return strings.Join(parts, " ")
}
