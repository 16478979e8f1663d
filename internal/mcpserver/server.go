// Package mcpserver provides an MCP (Model Context Protocol) server
// that exposes trihash tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/trihash/internal/base96"
	"github.com/starford/trihash/internal/composite"
	"github.com/starford/trihash/internal/export"
	"github.com/starford/trihash/internal/hashservice"
	"github.com/starford/trihash/internal/models"
)

const frameFormatURI = "trihash://frame-format"

// Server wraps the MCP server with trihash tools.
type Server struct {
	mcp *server.MCPServer
	svc *hashservice.Service
}

// New creates a new MCP server with all trihash tools registered.
func New(svc *hashservice.Service) *Server {
	s := &Server{svc: svc}

	s.mcp = server.NewMCPServer(
		"trihash",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("hash_record",
		mcp.WithDescription("Store a record and generate one 48-symbol identifier per frame. "+
			"Hashing an existing record again supersedes its previous identifiers."),
		mcp.WithString("fields", mcp.Required(), mcp.Description(`Record fields as a JSON object of strings, e.g. {"title":"x"}`)),
		mcp.WithString("id", mcp.Description("Record ID; generated when empty")),
	), s.hashRecord)

	s.mcp.AddTool(mcp.NewTool("export_identifiers",
		mcp.WithDescription("Export the current identifiers of stored records."),
		mcp.WithString("record_ids", mcp.Required(), mcp.Description("Comma-separated record IDs")),
		mcp.WithString("format", mcp.Description("structured (default), compact, symbol or identifiers")),
	), s.exportIdentifiers)

	s.mcp.AddTool(mcp.NewTool("import_identifiers",
		mcp.WithDescription("Read a structured, compact or symbol payload back into field/identifier mappings."),
		mcp.WithString("payload", mcp.Required(), mcp.Description("Export payload")),
		mcp.WithString("format", mcp.Required(), mcp.Description("structured, compact or symbol")),
	), s.importIdentifiers)

	s.mcp.AddTool(mcp.NewTool("decode_segment",
		mcp.WithDescription("Decode a 16-symbol Base96 segment, or split and decode a 48-symbol identifier, to hex."),
		mcp.WithString("segment", mcp.Required(), mcp.Description("Segment or identifier")),
	), s.decodeSegment)

	s.mcp.AddTool(mcp.NewTool("verify_identifier",
		mcp.WithDescription("Recompute the content and time segments of a stored identifier from its record."),
		mcp.WithString("record_id", mcp.Required(), mcp.Description("Record ID")),
		mcp.WithString("hash_field", mcp.Required(), mcp.Description("Hash field, e.g. sem_content_hash")),
	), s.verifyIdentifier)

	s.mcp.AddTool(mcp.NewTool("lookup_content",
		mcp.WithDescription("Find records whose framed content hashes to the given SCH segment."),
		mcp.WithString("sch", mcp.Required(), mcp.Description("16-symbol SCH segment")),
	), s.lookupContent)

	s.mcp.AddTool(mcp.NewTool("list_frames",
		mcp.WithDescription("Describe the active frame set: schema, frames and checksum."),
	), s.listFrames)

	s.mcp.AddTool(mcp.NewTool("get_frame_contract",
		mcp.WithDescription("Returns the frame document format. "+
			"Call this before writing frame documents or interpreting identifiers."),
	), s.getFrameContract)

	// Resource: frame document contract.
	s.mcp.AddResource(
		mcp.NewResource(frameFormatURI, "Frame Document Contract",
			mcp.WithResourceDescription("Frame document format and identifier layout."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readFrameFormatResource,
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

func jsonResult(v any) (*mcp.CallToolResult, error) {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(out)), nil
}

func identifierValues(m export.Mapping) map[string]string {
	out := make(map[string]string, len(m))
	for field, id := range m {
		out[field] = id.Value
	}
	return out
}

func (s *Server) hashRecord(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("fields")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var fields map[string]string
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("fields must be a JSON object of strings: %v", err)), nil
	}
	id := req.GetString("id", "")
	if id == "" {
		id = uuid.NewString()
	}

	res, err := s.svc.HashRecord(ctx, models.Record{ID: id, Fields: fields})
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(map[string]any{
		"record_id":       res.RecordID,
		"identifiers":     identifierValues(res.Identifiers),
		"frames_checksum": res.FramesChecksum,
	})
}

func (s *Server) exportIdentifiers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("record_ids")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}
	f, err := export.ParseFormat(req.GetString("format", export.Structured.String()))
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	data, err := s.svc.Export(ctx, ids, f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) importIdentifiers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	payload, err := req.RequireString("payload")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	name, err := req.RequireString("format")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	f, err := export.ParseFormat(name)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	ms, err := s.svc.Import(ctx, []byte(payload), f)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	out := make([]map[string]string, len(ms))
	for i, m := range ms {
		out[i] = identifierValues(m)
	}
	return jsonResult(out)
}

func (s *Server) decodeSegment(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	seg, err := req.RequireString("segment")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	segments := []string{seg}
	if utf8.RuneCountInString(seg) == composite.Len {
		id, err := composite.Parse(seg, 0)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		segments = []string{id.SCH(), id.CUID(), id.UUID()}
	}

	lines := make([]string, len(segments))
	for i, s := range segments {
		d, err := base96.Decode(s)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		lines[i] = s + " " + d.String()
	}
	return mcp.NewToolResultText(strings.Join(lines, "\n")), nil
}

func (s *Server) verifyIdentifier(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	recordID, err := req.RequireString("record_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	field, err := req.RequireString("hash_field")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if err := s.svc.Verify(ctx, recordID, field); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText("valid"), nil
}

func (s *Server) lookupContent(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sch, err := req.RequireString("sch")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rows, err := s.svc.LookupSCH(ctx, sch)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(rows) == 0 {
		return mcp.NewToolResultText("no records found"), nil
	}
	return jsonResult(rows)
}

func (s *Server) listFrames(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	set := s.svc.Frames()
	if set == nil {
		return mcp.NewToolResultError("no frames loaded"), nil
	}
	return jsonResult(map[string]any{
		"checksum": set.Checksum(),
		"schema":   set.Schema(),
		"frames":   set.Frames(),
	})
}

func (s *Server) getFrameContract(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultText(FrameFormatContract), nil
}

func (s *Server) readFrameFormatResource(_ context.Context, _ mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      frameFormatURI,
			MIMEType: "text/markdown",
			Text:     FrameFormatContract,
		},
	}, nil
}
