package engine

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"
)

var errWouldBlock = errors.New("no data available")

// rawLine is one line exactly as the child wrote it. Joining
// Text+Terminator over all lines reproduces the stream.
type rawLine struct {
	Text       string
	Terminator string // "\n", "\r\n", or "" for a final partial line
}

// chunkSource performs bounded, non-blocking reads. poll returns
// errWouldBlock after waiting at most one poll interval for data.
type chunkSource interface {
	poll(p []byte) (int, error)
	close()
}

// newChunkSource prefers read deadlines on pollable files and falls back
// to a pump goroutine for anything else.
func newChunkSource(r io.Reader, chunk int, interval time.Duration) chunkSource {
	if f, ok := r.(*os.File); ok {
		if err := f.SetReadDeadline(time.Time{}); err == nil {
			return &deadlineSource{f: f, interval: interval}
		}
	}
	return newPumpSource(r, chunk, interval)
}

type deadlineSource struct {
	f        *os.File
	interval time.Duration
}

func (s *deadlineSource) poll(p []byte) (int, error) {
	if err := s.f.SetReadDeadline(time.Now().Add(s.interval)); err != nil {
		return 0, err
	}
	n, err := s.f.Read(p)
	if errors.Is(err, os.ErrDeadlineExceeded) {
		return n, errWouldBlock
	}
	return n, err
}

func (s *deadlineSource) close() {}

type chunk struct {
	data []byte
	err  error
}

// pumpSource moves blocking reads off the polling goroutine. The pump
// exits on the first read error or once close is called.
type pumpSource struct {
	chunks   chan chunk
	done     chan struct{}
	interval time.Duration
	pending  []byte
	err      error
}

func newPumpSource(r io.Reader, size int, interval time.Duration) *pumpSource {
	s := &pumpSource{
		chunks:   make(chan chunk),
		done:     make(chan struct{}),
		interval: interval,
	}
	go func() {
		for {
			buf := make([]byte, size)
			n, err := r.Read(buf)
			select {
			case s.chunks <- chunk{data: buf[:n], err: err}:
			case <-s.done:
				return
			}
			if err != nil {
				return
			}
		}
	}()
	return s
}

func (s *pumpSource) poll(p []byte) (int, error) {
	if len(s.pending) == 0 && s.err == nil {
		timer := time.NewTimer(s.interval)
		defer timer.Stop()
		select {
		case c := <-s.chunks:
			s.pending, s.err = c.data, c.err
		case <-timer.C:
			return 0, errWouldBlock
		}
	}
	n := copy(p, s.pending)
	s.pending = s.pending[n:]
	if len(s.pending) > 0 {
		return n, nil
	}
	err := s.err
	if err == nil && n == 0 {
		return 0, errWouldBlock
	}
	return n, err
}

func (s *pumpSource) close() {
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// lineReader splits a chunked byte stream into lines.
type lineReader struct {
	src        chunkSource
	chunk      int
	interval   time.Duration
	drainPolls int
	buf        []byte
	emit       func(rawLine)
}

func newLineReader(r io.Reader, cfg Config, emit func(rawLine)) *lineReader {
	drain := int(cfg.DrainGrace / cfg.PollInterval)
	if drain < 1 {
		drain = 1
	}
	return &lineReader{
		src:        newChunkSource(r, cfg.ChunkSize, cfg.PollInterval),
		chunk:      cfg.ChunkSize,
		interval:   cfg.PollInterval,
		drainPolls: drain,
		emit:       emit,
	}
}

// run reads until the stream ends after the process exits, the context is
// done, or a read fails. On context end the partial line is dropped and the
// context error returned; read failures wrap ErrStreamRead.
func (r *lineReader) run(ctx context.Context, exited <-chan struct{}) error {
	p := make([]byte, r.chunk)
	idle := 0
	for {
		if err := ctx.Err(); err != nil {
			r.buf = nil
			return err
		}

		n, err := r.src.poll(p)
		if n > 0 {
			idle = 0
			r.buf = append(r.buf, p[:n]...)
			r.flushLines()
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			r.buf = nil
			return ctxErr
		}

		switch {
		case err == nil:
		case errors.Is(err, errWouldBlock):
			// A background grandchild can hold the stream open after the
			// process itself has gone; give it a short grace period.
			if closed(exited) {
				idle++
				if idle >= r.drainPolls {
					r.flushPartial()
					return nil
				}
			}
		case isEndOfStream(err):
			if closed(exited) {
				r.flushPartial()
				return nil
			}
			timer := time.NewTimer(r.interval)
			select {
			case <-ctx.Done():
			case <-exited:
			case <-timer.C:
			}
			timer.Stop()
		default:
			return fmt.Errorf("%w: %v", ErrStreamRead, err)
		}
	}
}

func (r *lineReader) flushLines() {
	consumed := 0
	for {
		i := bytes.IndexByte(r.buf[consumed:], '\n')
		if i < 0 {
			break
		}
		line := r.buf[consumed : consumed+i]
		term := "\n"
		if len(line) > 0 && line[len(line)-1] == '\r' {
			line = line[:len(line)-1]
			term = "\r\n"
		}
		r.emit(rawLine{Text: decode(line), Terminator: term})
		consumed += i + 1
	}
	if consumed > 0 {
		r.buf = append([]byte(nil), r.buf[consumed:]...)
	}
}

func (r *lineReader) flushPartial() {
	if len(r.buf) > 0 {
		r.emit(rawLine{Text: decode(r.buf)})
	}
	r.buf = nil
}

func (r *lineReader) close() {
	r.src.close()
}

// decode converts bytes to text, replacing invalid UTF-8 with U+FFFD.
func decode(b []byte) string {
	return strings.ToValidUTF8(string(b), "\uFFFD")
}

func closed(ch <-chan struct{}) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}
