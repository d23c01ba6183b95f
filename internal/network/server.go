package network

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"

	"github.com/panjf2000/ants/v2"

	"github.com/leengari/gridsql/internal/engine"
)

// Request is one client query with its positional arguments.
type Request struct {
	Query string `json:"query"`
	Args  []any  `json:"args,omitempty"`
}

// Response carries a result set or an error back to the client.
type Response struct {
	Columns []string `json:"columns,omitempty"`
	Rows    [][]any  `json:"rows,omitempty"`
	Error   string   `json:"error,omitempty"`
}

// Start runs the client-facing TCP server. Connection handlers are
// bounded by a worker pool so a connection flood degrades to queuing
// instead of unbounded goroutines.
func Start(port int, maxConns int, eng *engine.Engine, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	addr := fmt.Sprintf(":%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding to %s: %w", addr, err)
	}
	defer listener.Close()

	pool, err := ants.NewPool(maxConns)
	if err != nil {
		return fmt.Errorf("creating connection pool: %w", err)
	}
	defer pool.Release()

	logger.Info("listening for clients", "port", port, "max_connections", maxConns)

	for {
		conn, err := listener.Accept()
		if err != nil {
			logger.Error("accept failed", "error", err)
			continue
		}
		c := conn
		if err := pool.Submit(func() {
			handleConnection(c, eng, logger)
		}); err != nil {
			logger.Error("connection rejected", "remote", c.RemoteAddr(), "error", err)
			c.Close()
		}
	}
}

func handleConnection(conn net.Conn, eng *engine.Engine, logger *slog.Logger) {
	defer conn.Close()

	decoder := json.NewDecoder(conn)
	encoder := json.NewEncoder(conn)

	for {
		var req Request
		if err := decoder.Decode(&req); err != nil {
			if err == io.EOF {
				return // Connection closed gracefully
			}
			logger.Error("decode error", "remote", conn.RemoteAddr(), "error", err)
			_ = encoder.Encode(&Response{Error: fmt.Sprintf("invalid request: %v", err)})
			return
		}

		if req.Query == "exit" || req.Query == "\\q" {
			return
		}

		result, err := eng.Execute(context.Background(), req.Query, req.Args...)
		if err != nil {
			if err := encoder.Encode(&Response{Error: err.Error()}); err != nil {
				logger.Error("encode error", "remote", conn.RemoteAddr(), "error", err)
				return
			}
			continue
		}

		resp := &Response{Columns: result.Columns, Rows: make([][]any, len(result.Rows))}
		for i, row := range result.Rows {
			resp.Rows[i] = row
		}
		if err := encoder.Encode(resp); err != nil {
			logger.Error("encode error", "remote", conn.RemoteAddr(), "error", err)
			return
		}
	}
}
