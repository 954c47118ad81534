package toolserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/kitforge/kit/internal/branding"
)

const maxMessageSize = 16 << 20

// ServeStdio serves the tools as an MCP server over line-delimited JSON-RPC
// on r and w until r is exhausted or ctx is cancelled.
func (s *Server) ServeStdio(ctx context.Context, r io.Reader, w io.Writer) error {
	stdio := server.NewStdioServer(s.mcpServer())
	stdio.SetErrorLogger(zap.NewStdLog(s.log.Named("stdio")))

	err := stdio.Listen(ctx, r, w)
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// mcpServer registers every tool, in order, with a fresh MCP server. Calls
// go through Call so schema checks and metrics apply to both transports.
func (s *Server) mcpServer() *server.MCPServer {
	ms := server.NewMCPServer(branding.CLIName(), s.env.Version,
		server.WithToolCapabilities(false),
	)
	for _, name := range s.order {
		t := s.tools[name]
		ms.AddTool(mcp.NewToolWithRawSchema(t.Name, t.Description, t.InputSchema), s.mcpHandler(t.Name))
	}
	return ms
}

func (s *Server) mcpHandler(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, err := json.Marshal(req.Params.Arguments)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
		}
		res, err := s.Call(ctx, name, args)
		if err != nil {
			if !errors.Is(err, ErrInvalidArguments) {
				s.log.Error("tool call", zap.String("tool", name), zap.Error(err))
			}
			return nil, err
		}
		if res.IsError {
			return mcp.NewToolResultError(res.Text()), nil
		}
		return mcp.NewToolResultText(res.Text()), nil
	}
}
