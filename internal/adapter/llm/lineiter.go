package llm

import (
	"bytes"
	"fmt"
	"log/slog"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/sagemakerruntime/types"
)

// Line is one newline-delimited record recovered from a response stream.
type Line struct {
	// Data holds the record bytes with the trailing delimiter stripped.
	Data []byte
	// TTFT is the instant the stream as a whole produced its first
	// complete line. Identical on every Line from the same reader.
	TTFT time.Time
	// At is the instant this line became complete.
	At time.Time
}

// LineReader reassembles newline-delimited JSON records from the
// arbitrarily chunked SageMaker response stream.
//
// It keeps every received byte in an append-only buffer and tracks a read
// cursor into it; consumed bytes are never re-read but also never freed,
// which keeps the bookkeeping trivial for the lifetime of one request.
// Payload events append to the buffer, any other event type is logged and
// skipped. The reader is not safe for concurrent use and cannot be
// restarted once Next has returned false.
type LineReader struct {
	events <-chan types.ResponseStream
	logger *slog.Logger

	buf []byte
	pos int

	ttft    time.Time
	drained bool

	now func() time.Time
}

// NewLineReader wraps a SageMaker response event channel.
func NewLineReader(events <-chan types.ResponseStream, logger *slog.Logger) *LineReader {
	return &LineReader{
		events: events,
		logger: logger,
		now:    time.Now,
	}
}

// Next returns the next complete line, blocking on the event channel when
// the buffer holds no complete line yet. It returns false once the channel
// is exhausted and the buffer fully consumed.
func (r *LineReader) Next() (Line, bool) {
	for {
		// Always rescan from the cursor: the buffer may have grown
		// since the previous attempt.
		if i := bytes.IndexByte(r.buf[r.pos:], '\n'); i >= 0 {
			line := r.buf[r.pos : r.pos+i]
			r.pos += i + 1
			return r.produce(line), true
		}

		// The endpoint closes its enclosing JSON array with a bare "]"
		// that never gets a trailing newline. Treat a single unconsumed
		// byte at the very end of the buffer as a complete final line so
		// it is not silently dropped. Transport quirk, not a general
		// line-parsing rule.
		if len(r.buf) > 0 && r.pos == len(r.buf)-1 {
			line := r.buf[r.pos:]
			r.pos = len(r.buf)
			return r.produce(line), true
		}

		evt, ok := <-r.events
		if !ok {
			// Give unconsumed bytes one more pass: the final chunk may
			// have landed without a trailing delimiter.
			if r.pos < len(r.buf) && !r.drained {
				r.drained = true
				continue
			}
			return Line{}, false
		}

		switch e := evt.(type) {
		case *types.ResponseStreamMemberPayloadPart:
			r.buf = append(r.buf, e.Value.Bytes...)
		default:
			r.logger.Warn("unknown stream event type", "event", fmt.Sprintf("%T", evt))
		}
	}
}

// produce stamps a completed line. The timestamp is taken fresh here, not
// when the delimiter was found.
func (r *LineReader) produce(data []byte) Line {
	now := r.now()
	if r.ttft.IsZero() {
		r.ttft = now
	}
	return Line{Data: data, TTFT: r.ttft, At: now}
}
