package network

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/leengari/gridsql/internal/coordinator"
	"github.com/leengari/gridsql/internal/executor"
	"github.com/leengari/gridsql/internal/wire"
)

// ServeCluster runs the partition sub-request listener. Peers send one
// frame per sub-request and read one frame back on the same
// connection.
func ServeCluster(port int, maxConns int, exec *executor.Local, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	addr := fmt.Sprintf(":%d", port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("binding cluster port %s: %w", addr, err)
	}
	defer listener.Close()

	pool, err := ants.NewPool(maxConns)
	if err != nil {
		return fmt.Errorf("creating cluster pool: %w", err)
	}
	defer pool.Release()

	logger.Info("listening for cluster peers", "port", port)

	for {
		conn, err := listener.Accept()
		if err != nil {
			logger.Error("cluster accept failed", "error", err)
			continue
		}
		c := conn
		if err := pool.Submit(func() {
			serveClusterConn(c, exec, logger)
		}); err != nil {
			c.Close()
		}
	}
}

func serveClusterConn(conn net.Conn, exec *executor.Local, logger *slog.Logger) {
	defer conn.Close()

	for {
		var req wire.SubRequest
		if err := wire.ReadFrame(conn, &req); err != nil {
			if err == io.EOF {
				return
			}
			logger.Error("cluster frame decode failed", "remote", conn.RemoteAddr(), "error", err)
			return
		}

		resp := wire.SubResponse{}
		partial, err := exec.Execute(context.Background(), &req.Fragment)
		if err != nil {
			resp.Err = err.Error()
		} else {
			resp.Partial = partial
		}

		if err := wire.WriteFrame(conn, &resp); err != nil {
			logger.Error("cluster frame encode failed", "remote", conn.RemoteAddr(), "error", err)
			return
		}
	}
}

// RemoteTransport sends fragments to the peer owning the partition.
// Dial and I/O failures surface as PartitionUnavailableError so the
// coordinator's retry can distinguish them from execution errors.
type RemoteTransport struct {
	// Addr resolves a partition to a peer address.
	Addr func(partition int) string

	DialTimeout time.Duration
}

func (t *RemoteTransport) Execute(ctx context.Context, frag *executor.Fragment) (*executor.Partial, error) {
	dialTimeout := t.DialTimeout
	if dialTimeout == 0 {
		dialTimeout = 2 * time.Second
	}

	conn, err := net.DialTimeout("tcp", t.Addr(frag.Partition), dialTimeout)
	if err != nil {
		return nil, &coordinator.PartitionUnavailableError{Partition: frag.Partition, Cause: err}
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	if err := wire.WriteFrame(conn, &wire.SubRequest{Fragment: *frag}); err != nil {
		return nil, &coordinator.PartitionUnavailableError{Partition: frag.Partition, Cause: err}
	}

	var resp wire.SubResponse
	if err := wire.ReadFrame(conn, &resp); err != nil {
		return nil, &coordinator.PartitionUnavailableError{Partition: frag.Partition, Cause: err}
	}
	if resp.Err != "" {
		return nil, errors.New(resp.Err)
	}
	return resp.Partial, nil
}
