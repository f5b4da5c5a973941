// Package transport implements the two wire transports over which the
// dispatcher is served: newline-framed stdio, and a listening Unix domain
// socket.
package transport

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"sync"

	"github.com/acolita/shellsession-mcp/internal/rpc"
)

// Stdio serves a Dispatcher over newline-delimited JSON on the given
// reader/writer, dispatching each request with an id on its own goroutine
// so a long-running tool call never blocks other requests. Writes are
// serialized through a single mutex so interleaved responses can never
// corrupt the wire.
type Stdio struct {
	dispatcher *rpc.Dispatcher
	in         io.Reader
	out        io.Writer
	logger     *slog.Logger

	writeMu sync.Mutex
}

// NewStdio builds a Stdio transport reading in and writing responses to out.
func NewStdio(dispatcher *rpc.Dispatcher, in io.Reader, out io.Writer, logger *slog.Logger) *Stdio {
	return &Stdio{dispatcher: dispatcher, in: in, out: out, logger: logger}
}

// Run reads lines until the reader hits EOF, blocking until every in-flight
// request has been answered. ctx is checked after each line is read, so a
// cancellation is noticed only when the next line arrives; a read that is
// already blocked is not interrupted.
func (s *Stdio) Run(ctx context.Context) error {
	var wg sync.WaitGroup
	scanner := bufio.NewScanner(s.in)
	scanner.Buffer(make([]byte, 64*1024), 4*1024*1024)

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			wg.Wait()
			return ctx.Err()
		default:
		}

		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		// Copy the line: bufio.Scanner reuses its buffer on the next Scan.
		lineCopy := append([]byte(nil), line...)

		wg.Add(1)
		go func() {
			defer wg.Done()
			resp, ok := s.dispatcher.HandleLine(lineCopy)
			if !ok {
				return
			}
			s.write(resp)
		}()
	}

	wg.Wait()
	return scanner.Err()
}

func (s *Stdio) write(resp []byte) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	if _, err := s.out.Write(resp); err != nil {
		s.logger.Error("stdio write failed", slog.String("error", err.Error()))
		return
	}
	if _, err := s.out.Write([]byte("\n")); err != nil {
		s.logger.Error("stdio write failed", slog.String("error", err.Error()))
	}
}
