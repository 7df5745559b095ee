// Package mcp registers the debate tools on an MCP server so agent clients
// can drive debates over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/shopspring/decimal"

	"github.com/Nucleus-Lab/daocouncil/internal/debate"
)

// NewServer creates an MCPServer with the debate tools registered.
func NewServer(svc *debate.Service, version string) *server.MCPServer {
	srv := server.NewMCPServer(
		"daocouncil",
		version,
		server.WithToolCapabilities(true),
	)

	registerCreateDebate(srv, svc)
	registerPostMessage(srv, svc)
	registerGetDebate(srv, svc)
	registerGetMessages(srv, svc)
	registerGetJurorResults(srv, svc)
	registerGetSettlement(srv, svc)

	return srv
}

func registerCreateDebate(srv *server.MCPServer, svc *debate.Service) {
	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"topic":             map[string]string{"type": "string", "description": "The debate topic"},
			"sides":             map[string]any{"type": "array", "items": map[string]string{"type": "string"}, "description": "Ordered position descriptions"},
			"juror_personas":    map[string]any{"type": "array", "items": map[string]string{"type": "string"}, "description": "Optional personas; generated when omitted"},
			"funding":           map[string]string{"type": "string", "description": "Funding amount in ETH"},
			"action":            map[string]string{"type": "string", "description": "Directive executed at settlement"},
			"creator_address":   map[string]string{"type": "string", "description": "Wallet address of the creator"},
			"message_threshold": map[string]string{"type": "integer", "description": "Messages before the debate ends"},
		},
		"required": []string{"topic", "sides", "creator_address"},
	})
	tool := mcp.NewToolWithRawSchema("create_debate",
		"Open a new debate with AI jurors and a provisioned custodial vault", schema)

	srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()

		funding := decimal.Zero
		if raw := stringArg(args, "funding"); raw != "" {
			var err error
			funding, err = decimal.NewFromString(raw)
			if err != nil {
				return mcp.NewToolResultError("funding must be a decimal ETH amount"), nil
			}
		}

		out, err := svc.CreateDebate(ctx, debate.CreateDebateInput{
			Topic:            stringArg(args, "topic"),
			Sides:            stringSliceArg(args, "sides"),
			JurorPersonas:    stringSliceArg(args, "juror_personas"),
			Funding:          funding,
			Action:           stringArg(args, "action"),
			CreatorAddress:   stringArg(args, "creator_address"),
			MessageThreshold: intArg(args, "message_threshold"),
		})
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(out)
	})
}

func registerPostMessage(srv *server.MCPServer, svc *debate.Service) {
	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"debate_id":      map[string]string{"type": "string"},
			"author_address": map[string]string{"type": "string"},
			"author_name":    map[string]string{"type": "string"},
			"body":           map[string]string{"type": "string"},
			"stance":         map[string]string{"type": "integer", "description": "Optional side index the author argues for"},
		},
		"required": []string{"debate_id", "author_address", "body"},
	})
	tool := mcp.NewToolWithRawSchema("post_message",
		"Post a message to a debate; jurors re-evaluate in the background", schema)

	srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := req.GetArguments()
		in := debate.PostMessageInput{
			DebateID:      stringArg(args, "debate_id"),
			AuthorAddress: stringArg(args, "author_address"),
			AuthorName:    stringArg(args, "author_name"),
			Body:          stringArg(args, "body"),
		}
		if raw, ok := args["stance"].(float64); ok {
			stance := int(raw)
			in.Stance = &stance
		}
		msg, err := svc.PostMessage(ctx, in)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(msg)
	})
}

func registerGetDebate(srv *server.MCPServer, svc *debate.Service) {
	tool := mcp.NewToolWithRawSchema("get_debate",
		"Fetch a debate with its jurors and wallet addresses", debateIDSchema())
	srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		info, err := svc.GetDebate(stringArg(req.GetArguments(), "debate_id"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(info)
	})
}

func registerGetMessages(srv *server.MCPServer, svc *debate.Service) {
	tool := mcp.NewToolWithRawSchema("get_messages",
		"Fetch a debate's message history in order", debateIDSchema())
	srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		messages, err := svc.GetMessages(stringArg(req.GetArguments(), "debate_id"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(messages)
	})
}

func registerGetJurorResults(srv *server.MCPServer, svc *debate.Service) {
	tool := mcp.NewToolWithRawSchema("get_juror_results",
		"Fetch every juror's decision history for a debate", debateIDSchema())
	srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		results, err := svc.GetJurorResults(stringArg(req.GetArguments(), "debate_id"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(results)
	})
}

func registerGetSettlement(srv *server.MCPServer, svc *debate.Service) {
	tool := mcp.NewToolWithRawSchema("get_settlement",
		"Fetch the settlement result of an ended debate", debateIDSchema())
	srv.AddTool(tool, func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		result, err := svc.GetSettlement(stringArg(req.GetArguments(), "debate_id"))
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return jsonResult(result)
	})
}

// --- helpers ---

func debateIDSchema() json.RawMessage {
	schema, _ := json.Marshal(map[string]any{
		"type": "object",
		"properties": map[string]any{
			"debate_id": map[string]string{"type": "string"},
		},
		"required": []string{"debate_id"},
	})
	return schema
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding tool result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func stringArg(args map[string]any, key string) string {
	s, _ := args[key].(string)
	return s
}

func intArg(args map[string]any, key string) int {
	f, _ := args[key].(float64)
	return int(f)
}

func stringSliceArg(args map[string]any, key string) []string {
	raw, ok := args[key].([]any)
	if !ok {
		return nil
	}
	out := make([]string, 0, len(raw))
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
