// Package client talks to a running daemon from the outside: one framed
// command per raw-socket connection, or one JSON document per HTTP request.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/hpungsan/clipd/internal/errors"
	"github.com/hpungsan/clipd/internal/protocol"
)

// DefaultTimeout bounds one whole exchange when the context carries no
// deadline of its own.
const DefaultTimeout = 10 * time.Second

// Raw speaks the framed text protocol on the daemon's raw socket.
type Raw struct {
	addr    string
	timeout time.Duration
}

func NewRaw(addr string) *Raw {
	return &Raw{addr: addr, timeout: DefaultTimeout}
}

// Do sends one command line and returns the daemon's rendered reply with
// the trailing newline removed.
func (c *Raw) Do(ctx context.Context, line string) (string, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return "", errors.NewUnavailable(c.addr, err)
	}
	defer conn.Close()

	deadline := time.Now().Add(c.timeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(deadline) {
		deadline = dl
	}
	_ = conn.SetDeadline(deadline)

	if err := protocol.WriteFrame(conn, line); err != nil {
		return "", fmt.Errorf("send command: %w", err)
	}

	reply, err := io.ReadAll(conn)
	if err != nil {
		return "", fmt.Errorf("read reply: %w", err)
	}
	return strings.TrimSuffix(string(reply), "\n"), nil
}

// Run encodes cmd to its text form and performs the exchange.
func (c *Raw) Run(ctx context.Context, cmd protocol.Command) (string, error) {
	line, err := protocol.Encode(cmd)
	if err != nil {
		return "", err
	}
	return c.Do(ctx, line)
}

// HTTP speaks the JSON command endpoint.
type HTTP struct {
	base string
	hc   *http.Client
}

func NewHTTP(base string) *HTTP {
	return &HTTP{
		base: strings.TrimSuffix(base, "/"),
		hc:   &http.Client{Timeout: DefaultTimeout},
	}
}

// Do posts cmd as a command document and decodes the payload document. A
// non-200 response comes back as a ClipError carrying the server's code and
// status.
func (c *HTTP) Do(ctx context.Context, cmd protocol.Command) (protocol.Payload, error) {
	body, err := json.Marshal(cmd)
	if err != nil {
		return protocol.Payload{}, fmt.Errorf("encode command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/command", bytes.NewReader(body))
	if err != nil {
		return protocol.Payload{}, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.hc.Do(req)
	if err != nil {
		return protocol.Payload{}, errors.NewUnavailable(c.base, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return protocol.Payload{}, decodeError(resp)
	}

	var p protocol.Payload
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return protocol.Payload{}, fmt.Errorf("decode payload: %w", err)
	}
	return p, nil
}

func decodeError(resp *http.Response) error {
	var doc struct {
		Error struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Status  int    `json:"status"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil || doc.Error.Code == "" {
		return &errors.ClipError{
			Code:    errors.ErrInternal,
			Status:  resp.StatusCode,
			Message: fmt.Sprintf("unexpected response status %d", resp.StatusCode),
		}
	}
	return &errors.ClipError{
		Code:    errors.ErrorCode(doc.Error.Code),
		Status:  doc.Error.Status,
		Message: doc.Error.Message,
	}
}
