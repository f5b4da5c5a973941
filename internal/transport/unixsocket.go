package transport

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net"
	"os"

	"github.com/acolita/shellsession-mcp/internal/rpc"
	"golang.org/x/sync/errgroup"
)

// UnixSocket serves a Dispatcher on a listening Unix domain socket. Each
// accepted client runs its own independent read/dispatch/write loop.
type UnixSocket struct {
	dispatcher  *rpc.Dispatcher
	path        string
	unlinkStale bool
	logger      *slog.Logger

	listener net.Listener
}

// NewUnixSocket builds a UnixSocket transport listening at path. When
// unlinkStale is set, a pre-existing file at path is removed before
// binding, so a server killed without cleanup can restart on the same path.
func NewUnixSocket(dispatcher *rpc.Dispatcher, path string, unlinkStale bool, logger *slog.Logger) *UnixSocket {
	return &UnixSocket{dispatcher: dispatcher, path: path, unlinkStale: unlinkStale, logger: logger}
}

// Run listens and serves clients until ctx is canceled, at which point the
// listener and every open client connection are closed, the socket file
// removed, and every in-flight client loop is allowed to observe the closed
// connection before Run returns.
func (u *UnixSocket) Run(ctx context.Context) error {
	if u.unlinkStale {
		if _, err := os.Stat(u.path); err == nil {
			_ = os.Remove(u.path)
		}
	}

	ln, err := net.Listen("unix", u.path)
	if err != nil {
		return err
	}
	u.listener = ln

	group, groupCtx := errgroup.WithContext(ctx)
	group.Go(func() error {
		<-groupCtx.Done()
		_ = ln.Close()
		return nil
	})

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				_ = os.Remove(u.path)
				_ = group.Wait()
				return ctx.Err()
			default:
				if errors.Is(err, net.ErrClosed) {
					_ = os.Remove(u.path)
					_ = group.Wait()
					return nil
				}
				u.logger.Error("accept failed", slog.String("error", err.Error()))
				continue
			}
		}

		group.Go(func() error {
			// Closing the connection on cancellation unblocks serveClient's
			// read so group.Wait can return.
			stop := context.AfterFunc(groupCtx, func() { _ = conn.Close() })
			defer stop()
			u.serveClient(conn)
			return nil
		})
	}
}

func (u *UnixSocket) serveClient(conn net.Conn) {
	defer conn.Close()

	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)
	writer := bufio.NewWriter(conn)

	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		lineCopy := append([]byte(nil), line...)

		resp, ok := u.dispatcher.HandleLine(lineCopy)
		if !ok {
			continue
		}
		if _, err := writer.Write(resp); err != nil {
			return
		}
		if err := writer.WriteByte('\n'); err != nil {
			return
		}
		if err := writer.Flush(); err != nil {
			return
		}
	}
}
