package compiler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
)

// DefaultBluetcl is the Tcl shell shipped with bsc.
const DefaultBluetcl = "bluetcl"

const probeScript = "puts $env(BLUESPECDIR)\n"

// ProbeLibraryRoot asks bluetcl for its BLUESPECDIR. The last non-empty line
// of its output is taken as the answer.
func ProbeLibraryRoot(ctx context.Context, bluetcl string) (string, error) {
	if bluetcl == "" {
		bluetcl = DefaultBluetcl
	}

	cmd := exec.CommandContext(ctx, bluetcl)
	cmd.Stdin = strings.NewReader(probeScript)
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		ierr := &InvocationError{Command: []string{bluetcl}, ExitCode: -1, Output: out.String(), Err: err}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			ierr.ExitCode = exitErr.ExitCode()
		}
		return "", ierr
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\r\n"), "\n")
	root := strings.TrimSpace(lines[len(lines)-1])
	if root == "" {
		return "", fmt.Errorf("%s printed no BLUESPECDIR", bluetcl)
	}
	return root, nil
}
