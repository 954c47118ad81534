package toolserver

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kitforge/kit/internal/manifest"
	"github.com/kitforge/kit/internal/outcome"
	"github.com/kitforge/kit/internal/plugins"
	"github.com/kitforge/kit/internal/scaffold"
	"github.com/kitforge/kit/internal/upstream"
)

var (
	// ErrUnknownTool is returned by Call for a name no tool answers to.
	ErrUnknownTool = errors.New("unknown tool")
	// ErrInvalidArguments wraps argument validation failures.
	ErrInvalidArguments = errors.New("invalid arguments")
)

// Env builds the services a tool call runs against. Plugins and Upstream
// are called once per call with the request's project path.
type Env struct {
	Plugins  func(projectDir string) (*plugins.Service, error)
	Upstream func(projectDir string) (*upstream.Syncer, error)
	Creator  *scaffold.Creator
	Version  string
	Logger   *zap.Logger
}

// Content is one block of a tool result.
type Content struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Result is what a tool call returns. IsError marks expected failures and
// operation errors; the reason is the text content.
type Result struct {
	Content []Content `json:"content"`
	IsError bool      `json:"isError,omitempty"`
}

// Text returns the concatenated text content.
func (r *Result) Text() string {
	var s string
	for _, c := range r.Content {
		s += c.Text
	}
	return s
}

func textResult(text string) *Result {
	return &Result{Content: []Content{{Type: "text", Text: text}}}
}

func errorResult(text string) *Result {
	r := textResult(text)
	r.IsError = true
	return r
}

// handler runs a tool. It returns the payload to encode, an expected failure,
// or an operation error.
type handler func(ctx context.Context, s *Server, args json.RawMessage) (any, *outcome.Failure, error)

// Tool describes a callable tool.
type Tool struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	InputSchema json.RawMessage `json:"inputSchema"`

	schema *manifest.Schema
	run    handler
}

// Server dispatches tool calls.
type Server struct {
	env     Env
	tools   map[string]*Tool
	order   []string
	metrics *metrics
	log     *zap.Logger
}

// New builds a Server with every tool registered. Metrics are recorded in a
// private registry served by Handler.
func New(env Env) (*Server, error) {
	logger := env.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		env:     env,
		tools:   make(map[string]*Tool),
		metrics: newMetrics(prometheus.NewRegistry()),
		log:     logger.Named("toolserver"),
	}
	for _, t := range definitions() {
		schema, err := manifest.CompileSchema(t.Name+".json", t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", t.Name, err)
		}
		t.schema = schema
		s.tools[t.Name] = t
		s.order = append(s.order, t.Name)
	}
	return s, nil
}

// Tools lists the registered tools in registration order.
func (s *Server) Tools() []Tool {
	out := make([]Tool, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, *s.tools[name])
	}
	return out
}

// Call runs the named tool. Unknown tools and arguments that fail the tool's
// input schema are returned as errors; everything else, including failures
// of the operation itself, comes back as a Result.
func (s *Server) Call(ctx context.Context, name string, args json.RawMessage) (*Result, error) {
	t, ok := s.tools[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}
	if len(args) == 0 || string(args) == "null" {
		args = json.RawMessage("{}")
	}

	vr, err := t.schema.Validate(args)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	if err := vr.Err(name + " arguments"); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}

	start := time.Now()
	payload, failure, err := t.run(ctx, s, args)
	elapsed := time.Since(start)

	var res *Result
	switch {
	case err != nil:
		s.log.Warn("tool call failed", zap.String("tool", name), zap.Error(err))
		s.metrics.observe(name, outcomeError, elapsed)
		res = errorResult(err.Error())
	case failure != nil:
		s.log.Info("tool call returned a failure", zap.String("tool", name), zap.String("kind", string(failure.Kind)))
		s.metrics.observe(name, outcomeFailure, elapsed)
		res = errorResult(failure.Reason)
	default:
		data, err := json.MarshalIndent(payload, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding %s result: %w", name, err)
		}
		s.metrics.observe(name, outcomeOK, elapsed)
		res = textResult(string(data))
	}
	return res, nil
}

func decode(args json.RawMessage, v any) error {
	if err := json.Unmarshal(args, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	return nil
}
