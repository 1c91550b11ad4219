// Package mcpserver exposes the translators, the migrator and the validator
// as MCP tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/agentic-research/pipeconv/api"
	"github.com/agentic-research/pipeconv/internal/convolver"
	"github.com/agentic-research/pipeconv/internal/eqapo"
	"github.com/agentic-research/pipeconv/internal/legacy"
	"github.com/agentic-research/pipeconv/internal/query"
	"github.com/agentic-research/pipeconv/internal/validate"
	"github.com/agentic-research/pipeconv/internal/workspace"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// Options configure the tool defaults.
type Options struct {
	Version  string
	Channels int
	Migrate  bool

	// Workspace backs list_files. The tool reports an error when nil.
	Workspace *workspace.Workspace
}

// Server holds the MCP server and the tool handlers.
type Server struct {
	opts   Options
	logger *slog.Logger
	mcp    *server.MCPServer
}

// New registers every tool on a fresh MCP server.
func New(opts Options, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	if opts.Channels < 1 {
		opts.Channels = 2
	}
	s := &Server{
		opts:   opts,
		logger: logger,
		mcp: server.NewMCPServer("pipeconv", opts.Version,
			server.WithToolCapabilities(false),
			server.WithInstructions("Convert Convolver and EqualizerAPO configs to CamillaDSP pipelines, "+
				"migrate old CamillaDSP configs and check them."),
		),
	}
	s.register()
	return s
}

// MCP returns the underlying server.
func (s *Server) MCP() *server.MCPServer {
	return s.mcp
}

// ServeStdio blocks serving requests on stdin/stdout.
func (s *Server) ServeStdio() error {
	s.logger.Info("serving MCP over stdio", "version", s.opts.Version)
	return server.ServeStdio(s.mcp)
}

func (s *Server) register() {
	s.mcp.AddTool(mcp.NewTool("translate_convolver",
		mcp.WithDescription("Translate a Convolver text config into a CamillaDSP config (YAML)."),
		mcp.WithString("text", mcp.Required(), mcp.Description("Convolver config file contents")),
		mcp.WithBoolean("migrate", mcp.Description("Upgrade the result to the current schema"),
			mcp.DefaultBool(s.opts.Migrate)),
	), s.translateConvolver)

	s.mcp.AddTool(mcp.NewTool("translate_eqapo",
		mcp.WithDescription("Translate an EqualizerAPO config into a CamillaDSP config (YAML)."),
		mcp.WithString("text", mcp.Required(), mcp.Description("EqualizerAPO config file contents")),
		mcp.WithNumber("channels", mcp.Description("Number of channels"),
			mcp.DefaultNumber(float64(s.opts.Channels))),
		mcp.WithBoolean("migrate", mcp.Description("Upgrade the result to the current schema"),
			mcp.DefaultBool(s.opts.Migrate)),
	), s.translateEqAPO)

	s.mcp.AddTool(mcp.NewTool("migrate_config",
		mcp.WithDescription("Migrate a CamillaDSP config (YAML or JSON) to the current schema."),
		mcp.WithString("config", mcp.Required(), mcp.Description("Config file contents")),
	), s.migrateConfig)

	s.mcp.AddTool(mcp.NewTool("identify_version",
		mcp.WithDescription("Report which CamillaDSP schema version a config was written for."),
		mcp.WithString("config", mcp.Required(), mcp.Description("Config file contents")),
	), s.identifyVersion)

	s.mcp.AddTool(mcp.NewTool("validate_config",
		mcp.WithDescription("Check a CamillaDSP config for dangling references and out of range channels."),
		mcp.WithString("config", mcp.Required(), mcp.Description("Config file contents")),
	), s.validateConfig)

	s.mcp.AddTool(mcp.NewTool("query_config",
		mcp.WithDescription("Evaluate a JSONPath expression against a CamillaDSP config."),
		mcp.WithString("config", mcp.Required(), mcp.Description("Config file contents")),
		mcp.WithString("expression", mcp.Required(), mcp.Description("JSONPath, e.g. $.filters.*.type")),
	), s.queryConfig)

	s.mcp.AddTool(mcp.NewTool("list_files",
		mcp.WithDescription("List the configs or coefficient files in the configured directories."),
		mcp.WithString("kind", mcp.Required(), mcp.Enum("configs", "coeffs"),
			mcp.Description("configs or coeffs")),
	), s.listFiles)
}

func (s *Server) translateConvolver(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	cfg, warnings, err := convolver.Translate(text, s.logger)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return s.render(cfg, warnings, req.GetBool("migrate", s.opts.Migrate))
}

func (s *Server) translateEqAPO(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	text, err := req.RequireString("text")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	channels := req.GetInt("channels", s.opts.Channels)
	if channels < 1 {
		return mcp.NewToolResultErrorf("channels must be at least 1, got %d", channels), nil
	}
	cfg, warnings := eqapo.Translate(text, channels, s.logger)
	return s.render(cfg, warnings, req.GetBool("migrate", s.opts.Migrate))
}

func (s *Server) migrateConfig(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, res := decodeArg(req)
	if res != nil {
		return res, nil
	}
	return s.render(cfg, nil, true)
}

func (s *Server) identifyVersion(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, res := decodeArg(req)
	if res != nil {
		return res, nil
	}
	v, reason := legacy.Explain(cfg)
	if reason == "" {
		return mcp.NewToolResultText(fmt.Sprintf("version %d", v)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("version %d: %s", v, reason)), nil
}

func (s *Server) validateConfig(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, res := decodeArg(req)
	if res != nil {
		return res, nil
	}
	issues := validate.Config(cfg)
	if len(issues) == 0 {
		return mcp.NewToolResultText("config is valid"), nil
	}
	return mcp.NewToolResultError(validate.Format(issues)), nil
}

func (s *Server) queryConfig(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	cfg, res := decodeArg(req)
	if res != nil {
		return res, nil
	}
	expr, err := req.RequireString("expression")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	matches, err := query.Config(cfg, expr)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	values := make([]any, len(matches))
	for i, m := range matches {
		values[i] = m.Value()
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encode query result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) listFiles(_ context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	kind, err := req.RequireString("kind")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ws := s.opts.Workspace
	if ws == nil {
		return mcp.NewToolResultError("no workspace configured"), nil
	}
	var names []string
	switch kind {
	case "configs":
		names, err = ws.Configs()
	case "coeffs":
		names, err = ws.Coefficients()
	default:
		return mcp.NewToolResultErrorf("kind must be configs or coeffs, got %q", kind), nil
	}
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(strings.Join(names, "\n")), nil
}

func decodeArg(req mcp.CallToolRequest) (*api.Config, *mcp.CallToolResult) {
	text, err := req.RequireString("config")
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	cfg, err := api.Decode([]byte(text))
	if err != nil {
		return nil, mcp.NewToolResultError(err.Error())
	}
	return cfg, nil
}

// render encodes cfg as YAML. Warnings go first as YAML comments so the
// text stays loadable.
func (s *Server) render(cfg *api.Config, warnings []string, migrate bool) (*mcp.CallToolResult, error) {
	if migrate {
		cfg = legacy.Migrate(cfg, s.logger)
	}
	data, err := api.EncodeYAML(cfg)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	for _, w := range warnings {
		b.WriteString("# warning: ")
		b.WriteString(w)
		b.WriteByte('\n')
	}
	b.Write(data)
	return mcp.NewToolResultText(b.String()), nil
}
