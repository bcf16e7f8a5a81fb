package mcp

import (
	"encoding/json"
	"log/slog"
	"time"

	"github.com/mcp-gateway/gateway/internal/tool"
)

// ServerInfo identifies this gateway to clients on initialize.
type ServerInfo struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// Server is the C7 JSON-RPC dispatcher. It owns no transport: callers feed
// it decoded Messages (from HTTP or tests) and get back the Messages to send
// in response.
type Server struct {
	registry *tool.Registry
	info     ServerInfo
	logger   *slog.Logger
}

func NewServer(registry *tool.Registry, info ServerInfo, logger *slog.Logger) *Server {
	return &Server{registry: registry, info: info, logger: logger}
}

// ToolList exposes the registry's current tool definitions, used by C8 to
// attach the canonical tool list to an AdapterRequest.
func (s *Server) ToolList() []tool.Tool {
	return s.registry.List()
}

// HandleEnvelope decodes a raw JSON-RPC request body, dispatches each
// message, and returns the raw bytes to write back: nil for a single
// notification, and an empty JSON array for a batch made only of
// notifications.
func (s *Server) HandleEnvelope(body []byte) []byte {
	messages, batch, err := DecodeEnvelope(body)
	if err != nil {
		resp := NewParseErrorResponse(err.Error())
		out, _ := json.Marshal(resp)
		return out
	}

	responses := make([]Message, 0, len(messages))
	for _, msg := range messages {
		resp, hasResponse := s.Dispatch(msg)
		if hasResponse {
			responses = append(responses, resp)
		}
	}

	if len(responses) == 0 {
		if batch {
			out, _ := json.Marshal([]Message{})
			return out
		}
		return nil
	}

	if !batch && len(responses) == 1 {
		out, _ := json.Marshal(responses[0])
		return out
	}

	out, _ := json.Marshal(responses)
	return out
}

// Dispatch routes one decoded message to its handler. The second return
// value is false for notifications, which produce no response envelope.
func (s *Server) Dispatch(msg Message) (Message, bool) {
	if msg.IsNotification() {
		s.handleNotification(msg)
		return Message{}, false
	}

	id := *msg.ID

	switch msg.Method {
	case "initialize":
		return s.handleInitialize(id, msg.Params), true
	case "ping":
		return NewResponse(id, map[string]any{
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"server":    s.info.Name,
		}), true
	case "tools/list":
		return s.handleToolsList(id, msg.Params), true
	case "tools/call":
		return s.handleToolsCall(id, msg.Params), true
	default:
		return NewErrorResponse(id, CodeMethodNotFound, "method not found: "+msg.Method, nil), true
	}
}

func (s *Server) handleNotification(msg Message) {
	switch msg.Method {
	case "notifications/initialized":
		s.logger.Debug("client marked initialized")
	case "notifications/cancelled":
		var params struct {
			RequestID any    `json:"requestId"`
			Reason    string `json:"reason"`
		}
		_ = json.Unmarshal(msg.Params, &params)
		s.logger.Info("cancellation requested", "request_id", params.RequestID, "reason", params.Reason)
	default:
		s.logger.Debug("unhandled notification", "method", msg.Method)
	}
}

type initializeParams struct {
	ProtocolVersion string         `json:"protocolVersion"`
	Capabilities    map[string]any `json:"capabilities"`
	ClientInfo      struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"clientInfo"`
}

func (s *Server) handleInitialize(id RequestID, raw json.RawMessage) Message {
	var params initializeParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return NewErrorResponse(id, CodeInvalidParams, "invalid initialize params: "+err.Error(), nil)
	}
	if params.ProtocolVersion == "" || params.ClientInfo.Name == "" {
		return NewErrorResponse(id, CodeInvalidParams, "initialize requires protocolVersion and clientInfo", nil)
	}
	if params.ProtocolVersion != ProtocolVersion {
		s.logger.Warn("client protocol version mismatch", "client_version", params.ProtocolVersion, "server_version", ProtocolVersion)
	}

	return NewResponse(id, map[string]any{
		"protocolVersion": ProtocolVersion,
		"capabilities": map[string]any{
			"tools":   map[string]any{"listChanged": true},
			"logging": map[string]any{},
		},
		"serverInfo": s.info,
	})
}

func (s *Server) handleToolsList(id RequestID, raw json.RawMessage) Message {
	var params struct {
		Cursor string `json:"cursor"`
	}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &params); err != nil {
			return NewErrorResponse(id, CodeInvalidParams, "invalid tools/list params: "+err.Error(), nil)
		}
	}

	all := s.registry.List()
	page, nextCursor, err := paginate(all, params.Cursor)
	if err != nil {
		return NewErrorResponse(id, CodeInvalidParams, err.Error(), nil)
	}

	result := map[string]any{"tools": page}
	if nextCursor != "" {
		result["nextCursor"] = nextCursor
	}
	return NewResponse(id, result)
}

type toolsCallParams struct {
	Name      string         `json:"name"`
	Arguments map[string]any `json:"arguments"`
}

func (s *Server) handleToolsCall(id RequestID, raw json.RawMessage) Message {
	var params toolsCallParams
	if err := json.Unmarshal(raw, &params); err != nil {
		return NewErrorResponse(id, CodeInvalidParams, "invalid tools/call params: "+err.Error(), nil)
	}
	if params.Name == "" {
		return NewErrorResponse(id, CodeInvalidParams, "tools/call requires a name", nil)
	}

	result, content, structured, execErr := s.callTool(params.Name, params.Arguments)
	if execErr != nil {
		switch execErr.(type) {
		case *tool.NotFoundError:
			return NewErrorResponse(id, CodeToolNotFound, execErr.Error(), nil)
		case *tool.ValidationError:
			return NewErrorResponse(id, CodeInvalidParams, execErr.Error(), nil)
		default:
			return NewResponse(id, map[string]any{
				"content": []map[string]any{{"type": "text", "text": "Tool execution failed: " + execErr.Error()}},
				"isError": true,
			})
		}
	}

	response := map[string]any{"content": content, "isError": resultSignalsError(result)}
	if structured != nil {
		response["structuredContent"] = structured
	}
	return NewResponse(id, response)
}

// resultSignalsError recognizes the built-in tools' own `{status:"error",
// ...}` convention for config-validation failures (§7's config-error row:
// handlers never raise for this case, they return it as a normal result),
// and surfaces it as isError:true at the tools/call envelope level per §8
// Scenario C.
func resultSignalsError(result any) bool {
	dict, ok := result.(map[string]any)
	if !ok {
		return false
	}
	status, ok := dict["status"].(string)
	return ok && status == "error"
}

// callTool dispatches through the registry and renders the result per
// §4.7: a dictionary result populates structuredContent in addition to a
// single text content item carrying its JSON encoding.
func (s *Server) callTool(name string, args map[string]any) (any, []map[string]any, map[string]any, error) {
	execResult, err := s.registry.Execute(name, args)
	if err != nil {
		return nil, nil, nil, err
	}

	content := []map[string]any{{"type": "text", "text": renderText(execResult.Result)}}

	var structured map[string]any
	if dict, ok := execResult.Result.(map[string]any); ok {
		structured = dict
	}

	return execResult.Result, content, structured, nil
}

func renderText(result any) string {
	if s, ok := result.(string); ok {
		return s
	}
	encoded, err := json.Marshal(result)
	if err != nil {
		return ""
	}
	return string(encoded)
}
