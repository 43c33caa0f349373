package mcpserver

import (
	"github.com/mark3labs/mcp-go/server"
)

// Version is reported to MCP clients during initialization.
const Version = "1.0.0"

// NewMCPServer creates a configured MCP server with all fraudwatch tools registered.
func NewMCPServer(cfg Config) *server.MCPServer {
	s := server.NewMCPServer("fraudwatch", Version)
	h := NewHandlers(NewClient(cfg))

	s.AddTool(ToolAnalyzeTransaction, h.HandleAnalyzeTransaction)
	s.AddTool(ToolGenerateTransactions, h.HandleGenerateTransactions)
	s.AddTool(ToolGetDetectionStats, h.HandleGetDetectionStats)
	s.AddTool(ToolGetMerchantStatistics, h.HandleGetMerchantStatistics)
	s.AddTool(ToolGetRecentAnalyses, h.HandleGetRecentAnalyses)
	s.AddTool(ToolSimulateBatch, h.HandleSimulateBatch)

	return s
}
