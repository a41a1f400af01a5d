package provider

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"
)

// CommandRunner runs an external diagnostic command and returns its stdout.
type CommandRunner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec. The process is killed when ctx ends.
type ExecRunner struct{}

// Run executes name with args. On failure the command's stderr is appended to the error.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	if _, err := exec.LookPath(name); err != nil {
		return nil, err
	}

	out, err := exec.CommandContext(ctx, name, args...).Output()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && len(exitErr.Stderr) > 0 {
			return out, &commandError{err: err, stderr: strings.TrimSpace(string(exitErr.Stderr))}
		}
		return out, err
	}
	return out, nil
}

type commandError struct {
	err    error
	stderr string
}

func (e *commandError) Error() string {
	return e.err.Error() + ": " + e.stderr
}

func (e *commandError) Unwrap() error {
	return e.err
}

// JavaProcess is one JVM reported by jps.
type JavaProcess struct {
	PID       int
	MainClass string
}

// DiscoverJavaProcesses lists running JVMs using `jps -l`.
// The tools themselves and processes jps cannot attach to are skipped.
func DiscoverJavaProcesses(ctx context.Context, runner CommandRunner) ([]JavaProcess, error) {
	if runner == nil {
		runner = ExecRunner{}
	}
	out, err := runner.Run(ctx, "jps", "-l")
	if err != nil {
		return nil, err
	}

	processes := make([]JavaProcess, 0)
	scanner := bufio.NewScanner(bytes.NewReader(out))
	for scanner.Scan() {
		fields := strings.SplitN(strings.TrimSpace(scanner.Text()), " ", 2)
		pid, err := strconv.Atoi(fields[0])
		if err != nil {
			continue
		}
		mainClass := ""
		if len(fields) > 1 {
			mainClass = strings.TrimSpace(fields[1])
		}
		if skipProcess(mainClass) {
			continue
		}
		processes = append(processes, JavaProcess{PID: pid, MainClass: mainClass})
	}
	return processes, nil
}

func skipProcess(mainClass string) bool {
	for _, pattern := range []string{
		"sun.tools.jps.Jps",
		"sun.tools.jcmd.JCmd",
		"sun.tools.jstack.JStack",
		"-- process information unavailable",
	} {
		if strings.Contains(mainClass, pattern) {
			return true
		}
	}
	return false
}
