// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes idftab tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/ecowise/idftab/internal/convert"
	"github.com/ecowise/idftab/internal/tabulate"
)

// Server wraps the MCP server with idftab tools.
type Server struct {
	mcp *server.MCPServer
	svc *convert.Service
}

// New creates a new MCP server with all idftab tools registered.
func New(svc *convert.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"idftab",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("convert_idf",
		mcp.WithDescription("Convert an EnergyPlus IDF document into tabular rows. "+
			"Returns the consolidated sheet as CSV. Read the row format first via "+
			"the get_row_contract tool or the idftab://row-format resource."),
		mcp.WithString("idf", mcp.Required(), mcp.Description("Raw IDF document text")),
		mcp.WithString("version", mcp.Description("Optional schema version override (e.g. 9.4)")),
	), s.convertIDF)

	s.mcp.AddTool(mcp.NewTool("update_idf",
		mcp.WithDescription("Write an edited sheet back into an IDF document. "+
			"The rows CSV MUST be the sheet produced by convert_idf with only "+
			"Value cells changed; row order and count are identity."),
		mcp.WithString("idf", mcp.Required(), mcp.Description("Original IDF document text")),
		mcp.WithString("rows", mcp.Required(), mcp.Description("Edited sheet CSV following the row format contract")),
		mcp.WithString("version", mcp.Description("Optional schema version override")),
	), s.updateIDF)

	s.mcp.AddTool(mcp.NewTool("detect_version",
		mcp.WithDescription("Report a document's declared version and the schema version idftab would use for it."),
		mcp.WithString("idf", mcp.Required(), mcp.Description("Raw IDF document text")),
	), s.detectVersion)

	s.mcp.AddTool(mcp.NewTool("list_versions",
		mcp.WithDescription("List the schema versions available in the catalog."),
	), s.listVersions)

	s.mcp.AddTool(mcp.NewTool("get_row_contract",
		mcp.WithDescription("Returns the canonical idftab row format contract. "+
			"Call this before editing sheets to ensure correct structure."),
	), s.getRowContract)

	// Resource: row format contract.
	s.mcp.AddResource(
		mcp.NewResource("idftab://row-format", "Row Format Contract",
			mcp.WithResourceDescription("Canonical tabular row format produced by convert and consumed by update."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readRowFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func (s *Server) convertIDF(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("idf")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	version := ""
	if v, vErr := req.RequireString("version"); vErr == nil {
		version = v
	}

	res, err := s.svc.Convert(ctx, convert.ConvertRequest{Name: "mcp.idf", Text: text, Version: version})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var sb strings.Builder
	if err := tabulate.RenderCSV(res.Output.AllRows, &sb); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(sb.String()), nil
}

func (s *Server) updateIDF(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("idf")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rowsCSV, err := req.RequireString("rows")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	version := ""
	if v, vErr := req.RequireString("version"); vErr == nil {
		version = v
	}

	rows, err := tabulate.ParseRowsCSV(strings.NewReader(rowsCSV))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	res, err := s.svc.Update(ctx, convert.UpdateRequest{
		Name: "mcp.idf", Text: text, Version: version, EditedRows: rows, Verify: true,
	})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	report, _ := json.MarshalIndent(res.Report, "", "  ")
	return mcp.NewToolResultText(string(report) + "\n\n" + res.Text), nil
}

func (s *Server) detectVersion(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("idf")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.svc.Detect(text)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out, _ := json.MarshalIndent(res, "", "  ")
	return mcp.NewToolResultText(string(out)), nil
}

func (s *Server) listVersions(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tags := s.svc.Versions()
	if len(tags) == 0 {
		return mcp.NewToolResultText("no schema versions loaded"), nil
	}
	return mcp.NewToolResultText(strings.Join(tags, "\n")), nil
}

func (s *Server) getRowContract(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(RowFormatContract), nil
}

func (s *Server) readRowFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "idftab://row-format",
			MIMEType: "text/markdown",
			Text:     RowFormatContract,
		},
	}, nil
}
