package lsp

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.lsp.dev/jsonrpc2"
	"go.lsp.dev/protocol"
	"go.lsp.dev/uri"

	cerrors "github.com/choreo-dev/policy-validator/internal/compiler/errors"
	"github.com/choreo-dev/policy-validator/internal/compiler/symbols"
)

// testClient is the editor side of a piped connection. It records every
// publishDiagnostics notification the server sends.
type testClient struct {
	conn        jsonrpc2.Conn
	diagnostics chan protocol.PublishDiagnosticsParams
}

func startServer(t *testing.T, analyze AnalyzeFunc) (*testClient, chan error) {
	t.Helper()

	serverEnd, clientEnd := net.Pipe()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	done := make(chan error, 1)
	go func() {
		done <- NewServer(analyze, nil).Run(ctx, serverEnd)
	}()

	client := &testClient{
		conn:        jsonrpc2.NewConn(jsonrpc2.NewStream(clientEnd)),
		diagnostics: make(chan protocol.PublishDiagnosticsParams, 10),
	}
	client.conn.Go(ctx, func(ctx context.Context, reply jsonrpc2.Replier, req jsonrpc2.Request) error {
		if req.Method() == protocol.MethodTextDocumentPublishDiagnostics {
			var params protocol.PublishDiagnosticsParams
			if err := json.Unmarshal(req.Params(), &params); err == nil {
				client.diagnostics <- params
			}
		}
		return reply(ctx, nil, nil)
	})
	t.Cleanup(func() { client.conn.Close() })

	return client, done
}

func (c *testClient) initialize(t *testing.T, root string) protocol.InitializeResult {
	t.Helper()
	var result protocol.InitializeResult
	_, err := c.conn.Call(context.Background(), protocol.MethodInitialize, &protocol.InitializeParams{
		RootURI: protocol.DocumentURI(uri.File(root)),
	}, &result)
	require.NoError(t, err)
	return result
}

func (c *testClient) open(t *testing.T, path string) {
	t.Helper()
	err := c.conn.Notify(context.Background(), protocol.MethodTextDocumentDidOpen, &protocol.DidOpenTextDocumentParams{
		TextDocument: protocol.TextDocumentItem{URI: protocol.DocumentURI(uri.File(path)), LanguageID: "go", Version: 1},
	})
	require.NoError(t, err)
}

func (c *testClient) save(t *testing.T, path string) {
	t.Helper()
	err := c.conn.Notify(context.Background(), protocol.MethodTextDocumentDidSave, &protocol.DidSaveTextDocumentParams{
		TextDocument: protocol.TextDocumentIdentifier{URI: protocol.DocumentURI(uri.File(path))},
	})
	require.NoError(t, err)
}

func (c *testClient) next(t *testing.T) protocol.PublishDiagnosticsParams {
	t.Helper()
	select {
	case params := <-c.diagnostics:
		return params
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for diagnostics")
		return protocol.PublishDiagnosticsParams{}
	}
}

func nonPublic(file string, line int) *cerrors.CompilerError {
	return cerrors.NewNonPublicPolicy(symbols.Location{File: file, Line: line, Column: 6}, "addHeader")
}

func TestServer_Initialize(t *testing.T) {
	client, _ := startServer(t, func(context.Context, string) (cerrors.ErrorList, error) { return nil, nil })

	result := client.initialize(t, t.TempDir())
	require.NotNil(t, result.ServerInfo)
	assert.Equal(t, "policy-validator", result.ServerInfo.Name)
}

func TestServer_PublishesDiagnosticsOnOpen(t *testing.T) {
	dir := t.TempDir()
	var gotDir string
	client, _ := startServer(t, func(_ context.Context, d string) (cerrors.ErrorList, error) {
		gotDir = d
		return cerrors.ErrorList{nonPublic("policy.go", 7)}, nil
	})
	client.initialize(t, dir)

	client.open(t, filepath.Join(dir, "policy.go"))
	params := client.next(t)

	assert.Equal(t, dir, gotDir)
	assert.Equal(t, protocol.DocumentURI(uri.File(filepath.Join(dir, "policy.go"))), params.URI)
	require.Len(t, params.Diagnostics, 1)
	assert.Equal(t, "a policy should be 'public'", params.Diagnostics[0].Message)
	assert.Equal(t, uint32(6), params.Diagnostics[0].Range.Start.Line)
	assert.Equal(t, protocol.DiagnosticSeverityError, params.Diagnostics[0].Severity)
}

func TestServer_ClearsFixedDocumentsOnSave(t *testing.T) {
	dir := t.TempDir()
	var mu sync.Mutex
	results := []cerrors.ErrorList{
		{nonPublic("a.go", 3), nonPublic("b.go", 9)},
		{nonPublic("b.go", 9)},
	}
	client, _ := startServer(t, func(context.Context, string) (cerrors.ErrorList, error) {
		mu.Lock()
		defer mu.Unlock()
		r := results[0]
		if len(results) > 1 {
			results = results[1:]
		}
		return r, nil
	})
	client.initialize(t, dir)

	client.open(t, filepath.Join(dir, "a.go"))
	first := []protocol.DocumentURI{client.next(t).URI, client.next(t).URI}
	assert.Equal(t, []protocol.DocumentURI{
		protocol.DocumentURI(uri.File(filepath.Join(dir, "a.go"))),
		protocol.DocumentURI(uri.File(filepath.Join(dir, "b.go"))),
	}, first)

	client.save(t, filepath.Join(dir, "a.go"))
	b := client.next(t)
	assert.Equal(t, protocol.DocumentURI(uri.File(filepath.Join(dir, "b.go"))), b.URI)
	assert.Len(t, b.Diagnostics, 1)

	cleared := client.next(t)
	assert.Equal(t, protocol.DocumentURI(uri.File(filepath.Join(dir, "a.go"))), cleared.URI)
	assert.Empty(t, cleared.Diagnostics)
}

func TestServer_AnalysisFailureKeepsDiagnostics(t *testing.T) {
	dir := t.TempDir()
	calls := 0
	client, _ := startServer(t, func(context.Context, string) (cerrors.ErrorList, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("undefined: mediation")
		}
		return cerrors.ErrorList{}, nil
	})
	client.initialize(t, dir)

	client.open(t, filepath.Join(dir, "policy.go"))
	client.save(t, filepath.Join(dir, "policy.go"))

	// the failed analysis publishes nothing, the clean one publishes nothing new
	select {
	case params := <-client.diagnostics:
		t.Fatalf("unexpected diagnostics for %s", params.URI)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestServer_UnknownMethod(t *testing.T) {
	client, _ := startServer(t, func(context.Context, string) (cerrors.ErrorList, error) { return nil, nil })

	_, err := client.conn.Call(context.Background(), protocol.MethodTextDocumentHover, &protocol.HoverParams{}, nil)
	require.Error(t, err)
}

func TestServer_ExitStopsRun(t *testing.T) {
	client, done := startServer(t, func(context.Context, string) (cerrors.ErrorList, error) { return nil, nil })
	client.initialize(t, t.TempDir())

	require.NoError(t, client.conn.Notify(context.Background(), protocol.MethodExit, nil))

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop after exit")
	}
}
