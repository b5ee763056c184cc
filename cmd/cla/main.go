// Command cla is the command-line-assistant client. It composes the
// caller's query/stdin/attachment/terminal-output into a single question,
// resolves the caller's internal user id, and asks the daemon over the
// bus. Argument parsing, subcommand wiring, and output rendering beyond a
// bare stdout print are explicitly out of scope.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rhel-lightspeed/command-line-assistant/internal/busclient"
	"github.com/rhel-lightspeed/command-line-assistant/internal/config"
	"github.com/rhel-lightspeed/command-line-assistant/internal/input"
	"github.com/rhel-lightspeed/command-line-assistant/internal/models"
	"github.com/rhel-lightspeed/command-line-assistant/internal/terminal"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "shell" {
		if err := terminal.StartCapturing(); err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}

	attachmentPath := flag.String("attachment", "", "path to a file whose contents are attached to the query")
	useLastOutput := flag.Bool("with-output", false, "attach the most recent recorded terminal output")
	flag.Parse()

	var query string
	if args := flag.Args(); len(args) > 0 {
		query = args[0]
	}

	stdin := readStdinIfPiped()
	attachment := readAttachment(*attachmentPath)
	terminalOutput := ""
	if *useLastOutput {
		terminalOutput = readLastTerminalOutput()
	}

	sources := input.Sources{Query: query, Stdin: stdin, Attachment: attachment, TerminalOutput: terminalOutput}
	result, err := input.Compose(sources)
	if err != nil {
		return err
	}
	if result.Warning != "" {
		fmt.Fprintln(os.Stderr, "warning:", result.Warning)
	}

	client := busclient.New(cfg.Bus.SocketPath)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	effectiveUID := uint32(os.Geteuid())
	var internalUserID string
	if err := client.Call(ctx, "com.redhat.lightspeed.user", "GetUserId",
		map[string]any{"effective_user_id": effectiveUID}, &internalUserID); err != nil {
		return fmt.Errorf("resolving user identity: %w", err)
	}

	var chatID string
	if err := client.Call(ctx, "com.redhat.lightspeed.chat", "GetLatestChatFromUser",
		map[string]any{"user_id": internalUserID}, &chatID); err != nil {
		if err := client.Call(ctx, "com.redhat.lightspeed.chat", "CreateChat",
			map[string]any{"user_id": internalUserID, "name": "default", "description": ""}, &chatID); err != nil {
			return fmt.Errorf("creating chat: %w", err)
		}
	}

	var response models.Response
	askArgs := map[string]any{
		"chat_id": chatID,
		"user_id": internalUserID,
		"message_input": models.Question{
			Message: result.Message,
		},
	}
	if err := client.Call(ctx, "com.redhat.lightspeed.chat", "AskQuestion", askArgs, &response); err != nil {
		return fmt.Errorf("asking question: %w", err)
	}

	fmt.Println(response.Message)

	writeArgs := map[string]any{
		"chat_id":  chatID,
		"user_id":  internalUserID,
		"question": result.Message,
		"response": response.Message,
	}
	if err := client.Call(ctx, "com.redhat.lightspeed.history", "WriteHistory", writeArgs, nil); err != nil {
		fmt.Fprintln(os.Stderr, "warning: could not save history:", err)
	}

	return nil
}

func readStdinIfPiped() string {
	stat, err := os.Stdin.Stat()
	if err != nil || (stat.Mode()&os.ModeCharDevice) != 0 {
		return ""
	}
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return ""
	}
	return string(data)
}

func readAttachment(path string) string {
	if path == "" {
		return ""
	}
	data, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning: could not read attachment:", err)
		return ""
	}
	return string(data)
}

// readLastTerminalOutput returns the output of the most recent recorded
// command from the shell-capture log, for use with --with-output.
func readLastTerminalOutput() string {
	logPath, err := terminal.LogFilePath()
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning: could not locate terminal log:", err)
		return ""
	}
	blocks, err := terminal.ParseFile(logPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "warning: could not read terminal log:", err)
		return ""
	}
	return terminal.FindOutputByIndex(blocks, -1)
}
