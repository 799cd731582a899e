// Package lsp implements a Language Server Protocol server that publishes
// policy diagnostics for the package of every opened or saved document.
package lsp

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"

	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"
	"go.uber.org/zap"

	cerrors "github.com/choreo-dev/policy-validator/internal/compiler/errors"
)

// AnalyzeFunc loads the package in dir and returns its policy diagnostics.
// Diagnostic files are relative to dir unless absolute.
type AnalyzeFunc func(ctx context.Context, dir string) (cerrors.ErrorList, error)

// Server implements the LSP server
type Server struct {
	analyze AnalyzeFunc

	// conn is the JSON-RPC connection
	conn jsonrpc2.Conn

	// client is the LSP client interface
	client protocol.Client

	logger *zap.Logger

	// workspaceRoot is the root directory of the workspace
	workspaceRoot string

	capabilities protocol.ServerCapabilities

	// published tracks, per package directory, the documents that currently
	// carry diagnostics so they can be cleared once fixed
	mu        sync.Mutex
	published map[string]map[protocol.DocumentURI]struct{}

	// cancel is used to signal server shutdown
	cancel context.CancelFunc
}

// NewServer creates a new LSP server instance
func NewServer(analyze AnalyzeFunc, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		analyze:   analyze,
		logger:    logger,
		published: make(map[string]map[protocol.DocumentURI]struct{}),
		capabilities: protocol.ServerCapabilities{
			TextDocumentSync: protocol.TextDocumentSyncOptions{
				OpenClose: true,
				Change:    protocol.TextDocumentSyncKindNone,
				Save: &protocol.SaveOptions{
					IncludeText: false,
				},
			},
		},
	}
}

// Run serves LSP over rwc until the client exits or ctx is cancelled
func (s *Server) Run(ctx context.Context, rwc io.ReadWriteCloser) error {
	s.logger.Info("starting policy language server")

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	defer cancel()

	conn := jsonrpc2.NewConn(jsonrpc2.NewStream(rwc))
	s.conn = conn
	s.client = protocol.ClientDispatcher(conn, s.logger)

	conn.Go(ctx, s.handler())

	select {
	case <-ctx.Done():
	case <-conn.Done():
	}

	s.logger.Info("shutting down policy language server")
	return conn.Close()
}

// handler returns the JSON-RPC handler function
func (s *Server) handler() jsonrpc2.Handler {
	return func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		s.logger.Debug("received", zap.String("method", req.Method()))

		switch req.Method() {
		case protocol.MethodInitialize:
			return s.handleInitialize(ctx, reply, req)
		case protocol.MethodInitialized:
			return reply(ctx, nil, nil)
		case protocol.MethodShutdown:
			return reply(ctx, nil, nil)
		case protocol.MethodExit:
			return s.handleExit(ctx, reply)
		case protocol.MethodTextDocumentDidOpen:
			var params protocol.DidOpenTextDocumentParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse didOpen params")
			}
			s.check(ctx, params.TextDocument.URI)
			return reply(ctx, nil, nil)
		case protocol.MethodTextDocumentDidSave:
			var params protocol.DidSaveTextDocumentParams
			if err := json.Unmarshal(req.Params(), &params); err != nil {
				return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse didSave params")
			}
			s.check(ctx, params.TextDocument.URI)
			return reply(ctx, nil, nil)
		case protocol.MethodTextDocumentDidClose, protocol.MethodTextDocumentDidChange:
			return reply(ctx, nil, nil)
		default:
			return reply(ctx, nil, jsonrpc2.ErrMethodNotFound)
		}
	}
}

// handleInitialize handles the initialize request
func (s *Server) handleInitialize(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
	var params protocol.InitializeParams
	if err := json.Unmarshal(req.Params(), &params); err != nil {
		return s.replyWithError(ctx, reply, jsonrpc2.InvalidParams, "Failed to parse initialize params")
	}

	switch {
	case len(params.WorkspaceFolders) > 0:
		s.workspaceRoot = uri.URI(params.WorkspaceFolders[0].URI).Filename()
	case params.RootURI != "":
		s.workspaceRoot = params.RootURI.Filename()
	case params.RootPath != "":
		s.workspaceRoot = params.RootPath
	}
	s.logger.Info("initialized", zap.String("workspace", s.workspaceRoot))

	return reply(ctx, protocol.InitializeResult{
		Capabilities: s.capabilities,
		ServerInfo: &protocol.ServerInfo{
			Name: "policy-validator",
		},
	}, nil)
}

// handleExit replies, then triggers shutdown
func (s *Server) handleExit(ctx context.Context, reply jsonrpc2.Replier) error {
	if err := reply(ctx, nil, nil); err != nil {
		s.logger.Warn("reply to exit failed", zap.Error(err))
	}
	if s.cancel != nil {
		s.cancel()
	}
	return nil
}

// check analyzes the package holding doc and publishes its diagnostics.
// Documents of the package that no longer have diagnostics are cleared.
func (s *Server) check(ctx context.Context, doc protocol.DocumentURI) {
	dir := filepath.Dir(doc.Filename())

	diags, err := s.analyze(ctx, dir)
	if err != nil {
		// sources that do not load yet keep their last diagnostics
		s.logger.Warn("analysis failed", zap.String("dir", dir), zap.Error(err))
		return
	}

	for _, d := range diags {
		if d.File != "" && !filepath.IsAbs(d.File) {
			d.File = filepath.Join(dir, filepath.FromSlash(d.File))
		}
	}

	current := make(map[protocol.DocumentURI]struct{})
	for _, params := range diags.ToProtocol() {
		params := params
		current[params.URI] = struct{}{}
		s.publish(ctx, &params)
	}

	s.mu.Lock()
	stale := s.published[dir]
	s.published[dir] = current
	s.mu.Unlock()

	for u := range stale {
		if _, ok := current[u]; !ok {
			s.publish(ctx, &protocol.PublishDiagnosticsParams{URI: u, Diagnostics: []protocol.Diagnostic{}})
		}
	}
}

func (s *Server) publish(ctx context.Context, params *protocol.PublishDiagnosticsParams) {
	if err := s.client.PublishDiagnostics(ctx, params); err != nil {
		s.logger.Warn("publish diagnostics failed", zap.String("uri", string(params.URI)), zap.Error(err))
	}
}

// replyWithError sends an LSP-compliant error response
func (s *Server) replyWithError(ctx context.Context, reply jsonrpc2.Replier, code jsonrpc2.Code, message string) error {
	return reply(ctx, nil, &jsonrpc2.Error{
		Code:    code,
		Message: message,
	})
}

// Stdio is the io.ReadWriteCloser over stdin and stdout used by editors
type Stdio struct{}

func (Stdio) Read(p []byte) (int, error) {
	return os.Stdin.Read(p)
}

func (Stdio) Write(p []byte) (int, error) {
	return os.Stdout.Write(p)
}

func (Stdio) Close() error {
	if err := os.Stdin.Close(); err != nil {
		return err
	}
	return os.Stdout.Close()
}
