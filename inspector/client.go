// ABOUTME: Remote inspection client speaking the DevTools protocol
// ABOUTME: Takes heap snapshots and evaluates expressions over a websocket

// Package inspector talks to a debugged JavaScript runtime over its remote
// debugging websocket. It supplies the raw heap snapshot bytes and can
// evaluate expressions in the target, which the analyzer uses to fetch
// untruncated creation-stack strings.
package inspector

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gorilla/websocket"
)

// Client is the contract the leak analysis needs from an inspection client
type Client interface {
	// HeapSnapshot takes a heap snapshot of the inspected runtime and
	// returns the raw serialized payload
	HeapSnapshot(ctx context.Context) ([]byte, error)

	// EvaluateExpression evaluates a JavaScript expression in the inspected
	// runtime and returns the result rendered as a string
	EvaluateExpression(ctx context.Context, expr string) (string, error)
}

// RemoteClient implements Client against a DevTools websocket endpoint,
// e.g. ws://localhost:9222/devtools/page/<id>.
type RemoteClient struct {
	mu     sync.Mutex // one command round trip at a time
	conn   *websocket.Conn
	nextID int64
}

var _ Client = (*RemoteClient)(nil)

// Dial connects to a DevTools websocket endpoint
func Dial(ctx context.Context, url string) (*RemoteClient, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dialing inspector at %s: %w", url, err)
	}
	return &RemoteClient{conn: conn}, nil
}

// Close shuts the websocket connection down
func (c *RemoteClient) Close() error {
	return c.conn.Close()
}

// request is an outgoing protocol command
type request struct {
	ID     int64  `json:"id"`
	Method string `json:"method"`
	Params any    `json:"params,omitempty"`
}

// message is any incoming protocol frame: a command response when ID is
// set, an event notification otherwise.
type message struct {
	ID     int64           `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
	Result json.RawMessage `json:"result"`
	Error  *callError      `json:"error"`
}

type callError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *callError) Error() string {
	return fmt.Sprintf("inspector error %d: %s", e.Code, e.Message)
}

// HeapSnapshot asks the heap profiler for a snapshot. The payload arrives as
// a series of addHeapSnapshotChunk events before the command response.
func (c *RemoteClient) HeapSnapshot(ctx context.Context) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.send(ctx, "HeapProfiler.takeHeapSnapshot", map[string]any{
		"reportProgress": false,
	})
	if err != nil {
		return nil, err
	}

	var payload []byte
	for {
		msg, err := c.read(ctx)
		if err != nil {
			return nil, fmt.Errorf("reading heap snapshot: %w", err)
		}
		switch {
		case msg.Method == "HeapProfiler.addHeapSnapshotChunk":
			var params struct {
				Chunk string `json:"chunk"`
			}
			if err := json.Unmarshal(msg.Params, &params); err != nil {
				return nil, fmt.Errorf("decoding snapshot chunk: %w", err)
			}
			payload = append(payload, params.Chunk...)
		case msg.ID == id:
			if msg.Error != nil {
				return nil, msg.Error
			}
			return payload, nil
		}
	}
}

// EvaluateExpression evaluates expr in the inspected runtime
func (c *RemoteClient) EvaluateExpression(ctx context.Context, expr string) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	id, err := c.send(ctx, "Runtime.evaluate", map[string]any{
		"expression":    expr,
		"returnByValue": true,
	})
	if err != nil {
		return "", err
	}

	for {
		msg, err := c.read(ctx)
		if err != nil {
			return "", fmt.Errorf("evaluating expression: %w", err)
		}
		if msg.ID != id {
			// Unrelated event; skip.
			continue
		}
		if msg.Error != nil {
			return "", msg.Error
		}
		var result struct {
			Result struct {
				Value json.RawMessage `json:"value"`
			} `json:"result"`
		}
		if err := json.Unmarshal(msg.Result, &result); err != nil {
			return "", fmt.Errorf("decoding evaluation result: %w", err)
		}
		var s string
		if err := json.Unmarshal(result.Result.Value, &s); err == nil {
			return s, nil
		}
		return string(result.Result.Value), nil
	}
}

// send writes one command frame and returns its id
func (c *RemoteClient) send(ctx context.Context, method string, params any) (int64, error) {
	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetWriteDeadline(deadline); err != nil {
			return 0, err
		}
	}
	c.nextID++
	req := request{ID: c.nextID, Method: method, Params: params}
	if err := c.conn.WriteJSON(req); err != nil {
		return 0, fmt.Errorf("sending %s: %w", method, err)
	}
	return req.ID, nil
}

// read reads one incoming frame, honoring the context deadline
func (c *RemoteClient) read(ctx context.Context) (*message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if deadline, ok := ctx.Deadline(); ok {
		if err := c.conn.SetReadDeadline(deadline); err != nil {
			return nil, err
		}
	}
	var msg message
	if err := c.conn.ReadJSON(&msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
