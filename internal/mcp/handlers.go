package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/kuitang/wordfeed/internal/errs"
	"github.com/kuitang/wordfeed/internal/obs"
	"github.com/kuitang/wordfeed/internal/words"
)

// Handler implements MCP tool call handling.
type Handler struct {
	words *words.Service
}

// NewHandler creates a new MCP handler over the word service.
// A nil service leaves every word tool failing with failed_precondition.
func NewHandler(wordService *words.Service) *Handler {
	return &Handler{words: wordService}
}

// toolErrorPayload is the JSON body of an IsError tool result.
type toolErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type listArgs struct {
	Page     int `json:"page,omitempty"`
	PageSize int `json:"page_size,omitempty"`
}

type createArgs struct {
	Word string `json:"word"`
}

type updateArgs struct {
	ID   int    `json:"id"`
	Word string `json:"word"`
}

type deleteArgs struct {
	ID int `json:"id"`
}

// createToolHandler returns a tool handler function for the given tool name.
func (h *Handler) createToolHandler(name string) func(ctx context.Context, req *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, args map[string]any) (*mcp.CallToolResult, any, error) {
		result, err := h.HandleToolCall(ctx, name, args)
		if err != nil {
			obs.From(ctx).With("pkg", "mcp").Warn("mcp_tool_failed",
				"tool", name, "code", string(errs.CodeOf(err)), "error", err.Error())
			return toolError(err), nil, nil
		}
		return result, nil, nil
	}
}

// HandleToolCall routes tool calls to appropriate handlers.
func (h *Handler) HandleToolCall(ctx context.Context, name string, arguments map[string]any) (*mcp.CallToolResult, error) {
	switch name {
	case toolWordList, toolWordCreate, toolWordUpdate, toolWordDelete:
	default:
		return nil, errs.New(errs.NotFound, fmt.Sprintf("unknown tool: %s", name))
	}
	if h.words == nil {
		return nil, errs.New(errs.FailedPrecondition, "word tools are unavailable on this MCP endpoint")
	}

	switch name {
	case toolWordList:
		return h.handleList(ctx, arguments)
	case toolWordCreate:
		return h.handleCreate(ctx, arguments)
	case toolWordUpdate:
		return h.handleUpdate(ctx, arguments)
	default:
		return h.handleDelete(ctx, arguments)
	}
}

func (h *Handler) handleList(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	var in listArgs
	if err := decodeToolArgs(args, &in); err != nil {
		return nil, err
	}
	if in.Page < 1 {
		in.Page = 1
	}
	if in.PageSize < 1 {
		in.PageSize = words.DefaultPageSize
	}
	page, err := h.words.List(ctx, in.Page, in.PageSize)
	if err != nil {
		return nil, err
	}
	return newToolResultJSON(page), nil
}

func (h *Handler) handleCreate(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	var in createArgs
	if err := decodeToolArgs(args, &in); err != nil {
		return nil, err
	}
	created, err := h.words.Create(ctx, in.Word)
	if err != nil {
		return nil, err
	}
	return newToolResultJSON(created), nil
}

func (h *Handler) handleUpdate(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	var in updateArgs
	if err := decodeToolArgs(args, &in); err != nil {
		return nil, err
	}
	updated, err := h.words.Update(ctx, in.ID, in.Word)
	if err != nil {
		return nil, err
	}
	return newToolResultJSON(updated), nil
}

func (h *Handler) handleDelete(ctx context.Context, args map[string]any) (*mcp.CallToolResult, error) {
	var in deleteArgs
	if err := decodeToolArgs(args, &in); err != nil {
		return nil, err
	}
	result, err := h.words.Delete(ctx, in.ID)
	if err != nil {
		return nil, err
	}
	return newToolResultJSON(result), nil
}

// decodeToolArgs converts loosely typed tool arguments into a struct,
// rejecting unknown fields and mistyped values.
func decodeToolArgs(args map[string]any, out any) error {
	if args == nil {
		args = map[string]any{}
	}
	raw, err := json.Marshal(args)
	if err != nil {
		return errs.Wrap(errs.InvalidArgument, "invalid tool arguments", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(out); err != nil {
		return errs.Wrap(errs.InvalidArgument, "invalid tool arguments: "+err.Error(), err)
	}
	return nil
}

func newToolResultJSON(value any) *mcp.CallToolResult {
	data := marshalAny(value)
	if data == nil {
		return toolError(errs.New(errs.Internal, "failed to marshal response"))
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}
}

// toolError shapes err as a JSON error payload. Uncoded errors are reported
// as internal without their message.
func toolError(err error) *mcp.CallToolResult {
	payload := toolErrorPayload{
		Code:    string(errs.CodeOf(err)),
		Message: errs.MessageOf(err),
	}
	data := marshalAny(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
		IsError: true,
	}
}

func marshalAny(value any) []byte {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return nil
	}
	return data
}
