package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/licsalert/licsalert/core"
	"github.com/licsalert/licsalert/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	mgr     contract.StateManager
}

func (h *toolHandler) handleRunLicsalert(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if v := request.GetString("volcano", ""); v != "" {
		cfg.Volcano = v
	}
	err := contract.RevalidateRun(cfg,
		request.GetString("dataset_path", ""),
		request.GetInt("baseline", 0),
		request.GetInt("t_recalculate", 0))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid run parameters: %v", err)), nil
	}

	result, _, err := core.GetRunResult(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("licsalert failed: %v", err)), nil
	}

	return jsonResult(result)
}

func (h *toolHandler) handleMonitorLicsalert(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg := h.baseCfg.Clone()
	if v := request.GetString("volcano", ""); v != "" {
		cfg.Volcano = v
	}
	if err := contract.RevalidateRun(cfg, request.GetString("dataset_path", ""), 0, 0); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("invalid monitor parameters: %v", err)), nil
	}

	result, _, err := core.GetMonitorResult(core.WithSuppressHeader(ctx), cfg, h.mgr)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("monitoring failed: %v", err)), nil
	}

	return jsonResult(result)
}

func (h *toolHandler) handleGetStateStatus(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	if h.mgr == nil || h.mgr.GetStateStore() == nil {
		return mcp.NewToolResultError("state store is not initialized"), nil
	}
	status, err := h.mgr.GetStateStore().GetStatus()
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("status failed: %v", err)), nil
	}

	return jsonResult(status)
}

// jsonResult renders v as indented JSON, reporting encoding failures as tool errors.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
