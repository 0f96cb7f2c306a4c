// Package stdio serves a built server over standard input and output using
// the official MCP Go SDK for the wire protocol. The adapter translates each
// SDK request into a dispatch and the dispatch result back into the SDK's
// envelope; protocol framing, initialization and capability negotiation stay
// entirely inside the SDK.
package stdio

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/google/uuid"
	sdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tersePrompts/fastMCP4J-sub002/fastmcp"
	"github.com/tersePrompts/fastMCP4J-sub002/mcp"
)

// Server bridges a fastmcp.Server to an SDK server speaking stdio. A stdio
// transport carries exactly one client, so the adapter owns one session
// identity for the whole connection.
type Server struct {
	srv       *fastmcp.Server
	sdkServer *sdk.Server
	sessionID string
	log       *slog.Logger
}

// Option configures the stdio adapter.
type Option func(*Server)

// WithLogger sets the slog handler for adapter diagnostics.
func WithLogger(h slog.Handler) Option {
	return func(s *Server) {
		if h != nil {
			s.log = slog.New(h)
		}
	}
}

// NewServer builds the SDK-facing view of srv: every registered tool,
// resource and prompt is added to an SDK server with a handler that routes
// through the dispatch pipeline.
func NewServer(srv *fastmcp.Server, opts ...Option) (*Server, error) {
	if srv == nil {
		return nil, fmt.Errorf("stdio: nil server")
	}
	s := &Server{
		srv:       srv,
		sessionID: uuid.NewString(),
		log:       slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}

	info := srv.Info()
	s.sdkServer = sdk.NewServer(&sdk.Implementation{
		Name:    info.Name,
		Title:   info.Title,
		Version: info.Version,
	}, &sdk.ServerOptions{
		Instructions: srv.Instructions(),
	})

	desc := srv.Descriptor()
	for _, td := range desc.Tools {
		tool := td.Tool()
		schema, err := bridgeSchema(tool.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("stdio: tool %q schema: %w", tool.Name, err)
		}
		s.sdkServer.AddTool(&sdk.Tool{
			Name:        tool.Name,
			Description: tool.Description,
			InputSchema: schema,
		}, s.toolHandler(tool.Name))
	}
	for _, rd := range desc.Resources {
		res := rd.Resource()
		s.sdkServer.AddResource(&sdk.Resource{
			URI:         res.URI,
			Name:        res.Name,
			Description: res.Description,
			MIMEType:    res.MimeType,
		}, s.resourceHandler(res.URI))
	}
	for _, pd := range desc.Prompts {
		prompt := pd.Prompt()
		var args []*sdk.PromptArgument
		for _, a := range prompt.Arguments {
			args = append(args, &sdk.PromptArgument{
				Name:        a.Name,
				Description: a.Description,
				Required:    a.Required,
			})
		}
		s.sdkServer.AddPrompt(&sdk.Prompt{
			Name:        prompt.Name,
			Description: prompt.Description,
			Arguments:   args,
		}, s.promptHandler(prompt.Name))
	}
	return s, nil
}

// Run starts the server lifecycle and serves the stdio transport until the
// client disconnects or ctx is cancelled.
func (s *Server) Run(ctx context.Context) error {
	if err := s.srv.Start(ctx); err != nil {
		return fmt.Errorf("stdio: start server: %w", err)
	}
	s.srv.Registry().SessionStarted(ctx, s.sessionID)
	s.log.Info("serving stdio",
		slog.String("server", s.srv.Info().Name),
		slog.String("session_id", s.sessionID))

	err := s.sdkServer.Run(ctx, &sdk.StdioTransport{})

	// Teardown uses a detached context: the serve context is typically
	// already cancelled when we get here.
	down := context.WithoutCancel(ctx)
	s.srv.Registry().SessionEnded(down, s.sessionID)
	s.srv.Stop(down)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("stdio: serve: %w", err)
	}
	return nil
}

func (s *Server) toolHandler(name string) sdk.ToolHandler {
	return func(ctx context.Context, req *sdk.CallToolRequest) (*sdk.CallToolResult, error) {
		var args map[string]any
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return &sdk.CallToolResult{
					Content: []sdk.Content{&sdk.TextContent{Text: "invalid arguments: " + err.Error()}},
					IsError: true,
				}, nil
			}
		}
		res := s.srv.DispatchSession(ctx, s.sessionID, name, args).Await(ctx)
		return toSDKCallResult(res.ToCallToolResult()), nil
	}
}

func (s *Server) resourceHandler(uri string) sdk.ResourceHandler {
	return func(ctx context.Context, req *sdk.ReadResourceRequest) (*sdk.ReadResourceResult, error) {
		res := s.srv.DispatchResource(ctx, uri, nil).Await(ctx)
		if !res.Success {
			return nil, errors.New(res.ErrorMessage)
		}
		return &sdk.ReadResourceResult{
			Contents: []*sdk.ResourceContents{toSDKResourceContents(uri, res)},
		}, nil
	}
}

func (s *Server) promptHandler(name string) sdk.PromptHandler {
	return func(ctx context.Context, req *sdk.GetPromptRequest) (*sdk.GetPromptResult, error) {
		args := make(map[string]any, len(req.Params.Arguments))
		for k, v := range req.Params.Arguments {
			args[k] = v
		}
		res := s.srv.DispatchPrompt(ctx, name, args).Await(ctx)
		if !res.Success {
			return nil, errors.New(res.ErrorMessage)
		}
		return toSDKPromptResult(res), nil
	}
}

// bridgeSchema converts the simplified input schema into the SDK's schema
// type through its JSON form.
func bridgeSchema(in mcp.ToolInputSchema) (*jsonschema.Schema, error) {
	buf, err := json.Marshal(in)
	if err != nil {
		return nil, err
	}
	var out jsonschema.Schema
	if err := json.Unmarshal(buf, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func toSDKCallResult(in *mcp.CallToolResult) *sdk.CallToolResult {
	out := &sdk.CallToolResult{IsError: in.IsError}
	for _, block := range in.Content {
		out.Content = append(out.Content, &sdk.TextContent{Text: block.Text})
	}
	if len(out.Content) == 0 {
		out.Content = []sdk.Content{&sdk.TextContent{Text: ""}}
	}
	if in.StructuredContent != nil {
		out.StructuredContent = in.StructuredContent
	}
	return out
}

// toSDKResourceContents rebuilds resource contents from a dispatch result.
// Handlers returning a ResourceContents value pass through field by field;
// anything else is served as the textual content.
func toSDKResourceContents(uri string, res fastmcp.DispatchResult) *sdk.ResourceContents {
	if res.Structured != nil {
		var rc mcp.ResourceContents
		if buf, err := json.Marshal(res.Structured); err == nil {
			if err := json.Unmarshal(buf, &rc); err == nil && rc.URI != "" {
				out := &sdk.ResourceContents{URI: rc.URI, MIMEType: rc.MimeType, Text: rc.Text}
				if rc.Blob != "" {
					if raw, err := base64.StdEncoding.DecodeString(rc.Blob); err == nil {
						out.Blob = raw
						out.Text = ""
					}
				}
				return out
			}
		}
	}
	return &sdk.ResourceContents{URI: uri, Text: res.Content}
}

// toSDKPromptResult maps a prompt dispatch to the SDK envelope. A handler
// may return rendered PromptMessage values; plain text becomes a single user
// message.
func toSDKPromptResult(res fastmcp.DispatchResult) *sdk.GetPromptResult {
	var messages []mcp.PromptMessage
	if err := json.Unmarshal([]byte(res.Content), &messages); err == nil && len(messages) > 0 && messages[0].Role != "" {
		out := &sdk.GetPromptResult{}
		for _, m := range messages {
			out.Messages = append(out.Messages, &sdk.PromptMessage{
				Role:    sdk.Role(m.Role),
				Content: &sdk.TextContent{Text: m.Content.Text},
			})
		}
		return out
	}
	return &sdk.GetPromptResult{
		Messages: []*sdk.PromptMessage{
			{Role: "user", Content: &sdk.TextContent{Text: res.Content}},
		},
	}
}
