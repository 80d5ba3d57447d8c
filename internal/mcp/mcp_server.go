// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"

	"github.com/licsalert/licsalert/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the licsalert MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, mgr contract.StateManager) *server.MCPServer {
	s := server.NewMCPServer(
		"LiCSAlert Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		mgr:     mgr,
	}

	// --- 1. Tool: run_licsalert ---
	s.AddTool(mcp.NewTool("run_licsalert",
		mcp.WithDescription("Run the LiCSAlert deformation detector on a dataset manifest and store the result."),
		mcp.WithString("dataset_path", mcp.Description("Path to the dataset manifest (YAML)."), mcp.Required()),
		mcp.WithNumber("baseline", mcp.Description("Number of baseline interferograms. Defaults to the manifest value.")),
		mcp.WithNumber("t_recalculate", mcp.Description("Rolling line window in time steps. Defaults to the manifest value or 10.")),
		mcp.WithString("volcano", mcp.Description("Name to store the result under. Defaults to the manifest value.")),
	), h.handleRunLicsalert)

	// --- 2. Tool: monitor_licsalert ---
	s.AddTool(mcp.NewTool("monitor_licsalert",
		mcp.WithDescription("Score new interferograms against the stored baseline of a volcano."),
		mcp.WithString("dataset_path", mcp.Description("Path to the dataset manifest (YAML) including the new interferograms."), mcp.Required()),
		mcp.WithString("volcano", mcp.Description("Volcano whose stored baseline is used. Defaults to the manifest value.")),
	), h.handleMonitorLicsalert)

	// --- 3. Tool: get_state_status ---
	s.AddTool(mcp.NewTool("get_state_status",
		mcp.WithDescription("Report what the state store holds: backend, run counts and volcanoes."),
	), h.handleGetStateStatus)

	return s
}

// StartMCPServer starts the licsalert MCP server.
func StartMCPServer(_ context.Context, baseCfg *contract.Config, mgr contract.StateManager) error {
	s := NewMCPServer(baseCfg, mgr)
	return server.ServeStdio(s)
}
