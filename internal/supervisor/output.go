package supervisor

import (
	"bytes"
	"sync"

	"github.com/rs/zerolog"
)

// maxLineBytes bounds a pending line; longer output is logged in pieces.
const maxLineBytes = 64 * 1024

// lineLogger forwards complete lines written by a subprocess to the logger.
type lineLogger struct {
	mu     sync.Mutex
	log    zerolog.Logger
	stream string
	buf    []byte
	max    int
}

func newLineLogger(log zerolog.Logger, stream string) *lineLogger {
	return &lineLogger{log: log, stream: stream, max: maxLineBytes}
}

func (lw *lineLogger) Write(p []byte) (int, error) {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.buf = append(lw.buf, p...)
	for {
		idx := bytes.IndexByte(lw.buf, '\n')
		if idx < 0 {
			break
		}
		lw.emit(lw.buf[:idx])
		lw.buf = lw.buf[idx+1:]
	}
	for lw.max > 0 && len(lw.buf) >= lw.max {
		lw.emit(lw.buf[:lw.max])
		lw.buf = lw.buf[lw.max:]
	}
	return len(p), nil
}

// Flush logs a trailing line that had no newline.
func (lw *lineLogger) Flush() {
	lw.mu.Lock()
	defer lw.mu.Unlock()
	lw.emit(lw.buf)
	lw.buf = nil
}

func (lw *lineLogger) emit(line []byte) {
	line = bytes.TrimRight(line, "\r")
	if len(line) > 0 {
		lw.log.Info().Str("stream", lw.stream).Msg(string(line))
	}
}

// limitedBuffer keeps only the last max bytes written to it.
type limitedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
	max int
}

func (b *limitedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	n, err := b.buf.Write(p)
	if b.buf.Len() > b.max {
		data := b.buf.Bytes()
		keep := append([]byte(nil), data[len(data)-b.max:]...)
		b.buf.Reset()
		b.buf.Write(keep)
	}
	return n, err
}

func (b *limitedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}
