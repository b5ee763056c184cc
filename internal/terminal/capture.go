package terminal

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/creack/pty"
)

const (
	envUserPromptCommand = "CLA_USER_SHELL_PROMPT_COMMAND"
	envPromptCommand     = "PROMPT_COMMAND"
	defaultShell         = "/usr/bin/sh"
	defaultTerm          = "xterm"
)

// StartCapturing spawns an interactive shell under a pty, recording every
// command/output pair to a log file under $XDG_STATE_HOME, matching the
// original reader's start_capturing entrypoint. It blocks until the shell
// exits, returning the shell's exit error from cmd.Wait, if any.
func StartCapturing() error {
	shell := os.Getenv("SHELL")
	if shell == "" {
		shell = defaultShell
	}

	term := os.Getenv("TERM")
	if term == "" {
		term = defaultTerm
	}

	promptCommand := os.Getenv(envUserPromptCommand)
	if promptCommand == "" {
		promptCommand = os.Getenv(envPromptCommand)
	}

	logPath, err := LogFilePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
		return err
	}
	logFile, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	defer logFile.Close()

	recorder := NewRecorder(logFile)

	cmd := exec.Command(shell, "-i")
	cmd.Env = append(os.Environ(), "TERM="+term)
	if promptCommand != "" {
		cmd.Env = append(cmd.Env, "PROMPT_COMMAND="+PromptMarker+promptCommand+PromptMarker)
	}

	ptmx, err := pty.Start(cmd)
	if err != nil {
		return err
	}
	defer ptmx.Close()

	stdinDone := make(chan struct{})
	go func() {
		defer close(stdinDone)
		_, _ = io.Copy(ptmx, os.Stdin)
	}()

	buf := make([]byte, 1024)
	for {
		n, readErr := ptmx.Read(buf)
		if n > 0 {
			recorder.consume(buf[:n])
			_, _ = os.Stdout.Write(buf[:n])
		}
		if readErr != nil {
			break
		}
	}

	waitErr := cmd.Wait()
	_ = recorder.WriteJSONBlock()
	return waitErr
}

// LogFilePath returns the path StartCapturing writes its session log to,
// exported so callers (e.g. the client's --with-output flag) can read the
// same file back with ParseFile.
func LogFilePath() (string, error) {
	stateHome := os.Getenv("XDG_STATE_HOME")
	if stateHome == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		stateHome = filepath.Join(home, ".local", "state")
	}
	return filepath.Join(stateHome, "command-line-assistant", "terminal.log"), nil
}
