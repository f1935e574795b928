package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/clipd/internal/errors"
	"github.com/hpungsan/clipd/internal/protocol"
)

// Commander submits one command to a running daemon and returns its payload.
// The HTTP client satisfies it; command failures (not found, failed save)
// arrive inside the payload, only transport failures surface as errors.
type Commander interface {
	Do(ctx context.Context, cmd protocol.Command) (protocol.Payload, error)
}

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	daemon Commander
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(daemon Commander) *Handlers {
	return &Handlers{daemon: daemon}
}

// Request types for each tool

// AddRequest represents the arguments for add.
type AddRequest struct {
	Text string `json:"text"`
}

// DeleteRequest represents the arguments for delete.
type DeleteRequest struct {
	From int  `json:"from"`
	To   *int `json:"to,omitempty"`
}

// ListRequest represents the arguments for list.
type ListRequest struct {
	From          *int `json:"from,omitempty"`
	To            *int `json:"to,omitempty"`
	PreviewLength *int `json:"preview_length,omitempty"`
}

// GetRequest represents the arguments for get.
type GetRequest struct {
	Index int `json:"index"`
}

// SetRequest represents the arguments for set.
type SetRequest struct {
	Index int `json:"index"`
}

// InsertRequest represents the arguments for insert.
type InsertRequest struct {
	Path string `json:"path"`
}

// TagRequest represents the arguments for tag and untag.
type TagRequest struct {
	Index int    `json:"index"`
	Tag   string `json:"tag"`
}

// PinRequest represents the arguments for pin.
type PinRequest struct {
	Index   int    `json:"index"`
	PinChar string `json:"pin_char"`
}

// UnpinRequest represents the arguments for unpin.
type UnpinRequest struct {
	Index int `json:"index"`
}

// SelectRequest represents the arguments for select.
type SelectRequest struct {
	Pin       string   `json:"pin,omitempty"`
	Tags      []string `json:"tags,omitempty"`
	Substring string   `json:"substring,omitempty"`
}

// Handler implementations

// HandleAdd handles the add tool call.
func (h *Handlers) HandleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[AddRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	if input.Text == "" {
		return errorResult(errors.NewInvalidRequest("text is required")), nil
	}
	return h.submit(ctx, protocol.NewAdd(input.Text))
}

// HandleDelete handles the delete tool call.
func (h *Handlers) HandleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[DeleteRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.submit(ctx, protocol.NewDel(input.From, input.To))
}

// HandleList handles the list tool call.
func (h *Handlers) HandleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[ListRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.submit(ctx, protocol.NewList(input.From, input.To, input.PreviewLength))
}

// HandleGet handles the get tool call.
func (h *Handlers) HandleGet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[GetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.submit(ctx, protocol.NewGet(input.Index))
}

// HandleSet handles the set tool call.
func (h *Handlers) HandleSet(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SetRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.submit(ctx, protocol.NewSet(input.Index))
}

// HandleInsert handles the insert tool call.
func (h *Handlers) HandleInsert(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[InsertRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.submit(ctx, protocol.NewInsert(input.Path))
}

// HandleTag handles the tag tool call.
func (h *Handlers) HandleTag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TagRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.submit(ctx, protocol.NewTag(input.Index, input.Tag))
}

// HandleUntag handles the untag tool call.
func (h *Handlers) HandleUntag(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[TagRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.submit(ctx, protocol.NewUntag(input.Index, input.Tag))
}

// HandlePin handles the pin tool call.
func (h *Handlers) HandlePin(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PinRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.submit(ctx, protocol.NewPin(input.Index, input.PinChar))
}

// HandleUnpin handles the unpin tool call.
func (h *Handlers) HandleUnpin(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[UnpinRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.submit(ctx, protocol.NewUnpin(input.Index))
}

// HandleTags handles the tags tool call.
func (h *Handlers) HandleTags(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.submit(ctx, protocol.NewBare(protocol.CmdTags))
}

// HandleCount handles the count tool call.
func (h *Handlers) HandleCount(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.submit(ctx, protocol.NewBare(protocol.CmdCount))
}

// HandleSave handles the save tool call.
func (h *Handlers) HandleSave(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.submit(ctx, protocol.NewBare(protocol.CmdSave))
}

// HandleLoad handles the load tool call.
func (h *Handlers) HandleLoad(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return h.submit(ctx, protocol.NewBare(protocol.CmdLoad))
}

// HandleSelect handles the select tool call.
func (h *Handlers) HandleSelect(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[SelectRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}
	return h.submit(ctx, protocol.NewSelect(input.Pin, input.Tags, input.Substring))
}

// submit forwards the command to the daemon and wraps the outcome.
func (h *Handlers) submit(ctx context.Context, cmd protocol.Command) (*mcp.CallToolResult, error) {
	payload, err := h.daemon.Do(ctx, cmd)
	if err != nil {
		return errorResult(err), nil
	}
	return successResult(payload)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// Only code, message, and status are exposed; details can carry file
// paths and wrapped causes that do not belong in tool output.
func errorResult(err error) *mcp.CallToolResult {
	errorObj := map[string]any{
		"code":    errors.ErrInternal,
		"message": "an internal error occurred",
		"status":  500,
	}

	var cerr *errors.ClipError
	if stderrors.As(err, &cerr) {
		errorObj = map[string]any{
			"code":    cerr.Code,
			"message": cerr.Message,
			"status":  cerr.Status,
		}
	}

	content, _ := json.Marshal(map[string]any{"error": errorObj})
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
