// Package busclient is the client side of the Unix-socket bus: it dials
// the daemon's socket, sends one line-delimited JSON request, and decodes
// the matching response line.
package busclient

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"time"

	"github.com/google/uuid"

	"github.com/rhel-lightspeed/command-line-assistant/internal/apperrors"
)

type Client struct {
	socketPath string
}

func New(socketPath string) *Client {
	return &Client{socketPath: socketPath}
}

// Call sends one request and waits for its response, unmarshaling the
// result into out (a pointer) when the call succeeds.
func (c *Client) Call(ctx context.Context, object, method string, args interface{}, out interface{}) error {
	dialer := net.Dialer{}
	conn, err := dialer.DialContext(ctx, "unix", c.socketPath)
	if err != nil {
		return apperrors.New(apperrors.CodeStorageUnavailable, fmt.Sprintf("daemon unreachable: %s", err))
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(30 * time.Second))
	}

	argsRaw, err := json.Marshal(args)
	if err != nil {
		return err
	}

	req := struct {
		Object string          `json:"object"`
		Method string          `json:"method"`
		Args   json.RawMessage `json:"args"`
		ID     string          `json:"id"`
	}{Object: object, Method: method, Args: argsRaw, ID: uuid.NewString()}

	line, err := json.Marshal(req)
	if err != nil {
		return err
	}
	if _, err := conn.Write(append(line, '\n')); err != nil {
		return apperrors.New(apperrors.CodeStorageUnavailable, fmt.Sprintf("failed writing to daemon: %s", err))
	}

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 4096), 10*1024*1024)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return apperrors.New(apperrors.CodeStorageUnavailable, fmt.Sprintf("failed reading from daemon: %s", err))
		}
		return apperrors.New(apperrors.CodeStorageUnavailable, "daemon closed connection without responding")
	}

	var resp struct {
		ID     string          `json:"id"`
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return err
	}
	if resp.Error != nil {
		return apperrors.New(apperrors.Code(resp.Error.Code), resp.Error.Message)
	}
	if out == nil || len(resp.Result) == 0 {
		return nil
	}
	return json.Unmarshal(resp.Result, out)
}
