package toolserver

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcReply struct {
	ID     json.RawMessage `json:"id"`
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// stdioSession runs ServeStdio over pipes. Tool calls may be answered out of
// order, so replies are collected and keyed by id.
type stdioSession struct {
	in      *io.PipeWriter
	replies chan rpcReply
	done    chan error
}

func startStdio(t *testing.T, s *Server) *stdioSession {
	t.Helper()
	inR, inW := io.Pipe()
	outR, outW := io.Pipe()
	sess := &stdioSession{in: inW, replies: make(chan rpcReply, 32), done: make(chan error, 1)}

	go func() {
		sess.done <- s.ServeStdio(context.Background(), inR, outW)
		_ = outW.Close()
	}()
	go func() {
		sc := bufio.NewScanner(outR)
		sc.Buffer(make([]byte, 64*1024), maxMessageSize)
		for sc.Scan() {
			var r rpcReply
			if json.Unmarshal(sc.Bytes(), &r) == nil {
				sess.replies <- r
			}
		}
		close(sess.replies)
	}()
	return sess
}

func (sess *stdioSession) send(t *testing.T, lines ...string) {
	t.Helper()
	for _, line := range lines {
		_, err := io.WriteString(sess.in, line+"\n")
		require.NoError(t, err)
	}
}

func (sess *stdioSession) recv(t *testing.T, n int) map[string]rpcReply {
	t.Helper()
	got := make(map[string]rpcReply, n)
	timeout := time.After(5 * time.Second)
	for len(got) < n {
		select {
		case r, ok := <-sess.replies:
			require.True(t, ok, "server closed its output after %d replies", len(got))
			got[string(r.ID)] = r
		case <-timeout:
			t.Fatalf("timed out after %d of %d replies", len(got), n)
		}
	}
	return got
}

func (sess *stdioSession) close(t *testing.T) {
	t.Helper()
	require.NoError(t, sess.in.Close())
	select {
	case err := <-sess.done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("ServeStdio did not return after end of input")
	}
}

func TestServeStdio(t *testing.T) {
	s, _ := newTestServer(t)
	sess := startStdio(t, s)

	sess.send(t,
		`{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"protocolVersion":"2024-11-05","capabilities":{},"clientInfo":{"name":"test","version":"0"}}}`,
		`{"jsonrpc":"2.0","method":"notifications/initialized"}`,
		`{"jsonrpc":"2.0","id":2,"method":"tools/list"}`,
		`{"jsonrpc":"2.0","id":"three","method":"tools/call","params":{"name":"kit_list_variants","arguments":{}}}`,
		`{"jsonrpc":"2.0","id":4,"method":"ping"}`,
	)
	replies := sess.recv(t, 4)
	sess.close(t)

	var init struct {
		ProtocolVersion string            `json:"protocolVersion"`
		ServerInfo      map[string]string `json:"serverInfo"`
	}
	require.NoError(t, json.Unmarshal(replies["1"].Result, &init))
	assert.Equal(t, "2024-11-05", init.ProtocolVersion)
	assert.Equal(t, "kit", init.ServerInfo["name"])
	assert.Equal(t, "1.0.0-test", init.ServerInfo["version"])

	var list struct {
		Tools []struct {
			Name        string          `json:"name"`
			InputSchema json.RawMessage `json:"inputSchema"`
		} `json:"tools"`
	}
	require.NoError(t, json.Unmarshal(replies["2"].Result, &list))
	var names []string
	for _, tool := range list.Tools {
		names = append(names, tool.Name)
		assert.NotEmpty(t, tool.InputSchema, tool.Name)
	}
	var want []string
	for _, tool := range s.Tools() {
		want = append(want, tool.Name)
	}
	assert.ElementsMatch(t, want, names)

	call, ok := replies[`"three"`]
	require.True(t, ok, "string ids are echoed back")
	var res Result
	require.NoError(t, json.Unmarshal(call.Result, &res))
	assert.False(t, res.IsError)
	assert.Contains(t, res.Text(), "react-router-supabase")

	assert.Nil(t, replies["4"].Error)
}

func TestServeStdio_ToolFailureIsResult(t *testing.T) {
	s, dir := newTestServer(t)
	sess := startStdio(t, s)

	project, _ := json.Marshal(dir)
	sess.send(t, `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"kit_add_plugin","arguments":{"projectPath":`+string(project)+`,"pluginId":"nope"}}}`)
	reply := sess.recv(t, 1)["1"]
	sess.close(t)

	require.Nil(t, reply.Error)
	var res Result
	require.NoError(t, json.Unmarshal(reply.Result, &res))
	assert.True(t, res.IsError)
	assert.NotEmpty(t, res.Text())
}

func TestServeStdio_Errors(t *testing.T) {
	s, _ := newTestServer(t)

	tests := []struct {
		name        string
		line        string
		wantCode    int
		wantMessage string
	}{
		{name: "parse error", line: `{not json`, wantCode: -32700},
		{name: "unknown method", line: `{"jsonrpc":"2.0","id":1,"method":"resources/nope"}`, wantCode: -32601},
		{name: "unknown tool", line: `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"kit_nope"}}`, wantMessage: "kit_nope"},
		{name: "invalid arguments", line: `{"jsonrpc":"2.0","id":1,"method":"tools/call","params":{"name":"kit_status","arguments":{}}}`, wantMessage: "invalid arguments"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sess := startStdio(t, s)
			sess.send(t, tt.line)
			var reply rpcReply
			for _, r := range sess.recv(t, 1) {
				reply = r
			}
			sess.close(t)

			require.NotNil(t, reply.Error)
			if tt.wantCode != 0 {
				assert.Equal(t, tt.wantCode, reply.Error.Code)
			}
			assert.Contains(t, reply.Error.Message, tt.wantMessage)
		})
	}
}

func TestServeStdio_CancelledContext(t *testing.T) {
	s, _ := newTestServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	inR, inW := io.Pipe()
	defer inW.Close()

	done := make(chan error, 1)
	go func() { done <- s.ServeStdio(ctx, inR, io.Discard) }()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("ServeStdio ignored the cancelled context")
	}
}
