package agent

import (
	"bytes"
	"strings"

	"github.com/tidwall/gjson"
)

// The wire protocol is SSE-style: "event: <type>" lines set context for the
// "data: <json>" lines that follow, and a literal [DONE] payload closes the
// stream.
const (
	eventLinePrefix  = "event:"
	dataLinePrefix   = "data:"
	streamTerminator = "[DONE]"
)

// FrameKind distinguishes the two logical line types of the stream protocol.
type FrameKind int

const (
	// FrameEvent carries an event-type name that applies to following data frames.
	FrameEvent FrameKind = iota
	// FrameData carries one JSON payload.
	FrameData
)

// Frame is one decoded logical line of the streaming transport.
type Frame struct {
	Kind  FrameKind
	Value string
}

// FrameDecoder turns raw transport chunks into complete frames. Chunks may be
// split at arbitrary byte offsets; partial lines stay buffered until their
// terminator arrives. The decoder is owned by exactly one stream consumption.
type FrameDecoder struct {
	buf     bytes.Buffer
	done    bool
	dropped int
}

func NewFrameDecoder() *FrameDecoder {
	return &FrameDecoder{}
}

// Feed appends a chunk and returns every frame completed by it. After the
// stream terminator has been seen, Feed returns nil for all further input.
func (d *FrameDecoder) Feed(chunk []byte) []Frame {
	if d.done {
		return nil
	}
	d.buf.Write(chunk)

	var frames []Frame
	for {
		raw := d.buf.Bytes()
		idx := bytes.IndexByte(raw, '\n')
		if idx < 0 {
			break
		}
		line := string(raw[:idx])
		d.buf.Next(idx + 1)

		frame, ok := d.decodeLine(line)
		if d.done {
			break
		}
		if ok {
			frames = append(frames, frame)
		}
	}
	return frames
}

// decodeLine classifies one complete line. Data payloads that are not valid
// JSON are dropped silently: upstream implementations occasionally emit
// malformed keep-alive lines and one bad frame must not abort the stream.
func (d *FrameDecoder) decodeLine(line string) (Frame, bool) {
	line = strings.TrimRight(line, "\r")
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return Frame{}, false
	}

	switch {
	case strings.HasPrefix(trimmed, eventLinePrefix):
		name := strings.TrimSpace(trimmed[len(eventLinePrefix):])
		if name == "" {
			return Frame{}, false
		}
		return Frame{Kind: FrameEvent, Value: name}, true
	case strings.HasPrefix(trimmed, dataLinePrefix):
		payload := strings.TrimSpace(trimmed[len(dataLinePrefix):])
		if payload == streamTerminator {
			d.done = true
			return Frame{}, false
		}
		if !gjson.Valid(payload) {
			d.dropped++
			return Frame{}, false
		}
		return Frame{Kind: FrameData, Value: payload}, true
	default:
		// Comment lines and unknown fields are ignored for forward compatibility.
		return Frame{}, false
	}
}

// Done reports whether the stream terminator has been decoded.
func (d *FrameDecoder) Done() bool { return d.done }

// Dropped returns how many malformed data payloads were discarded.
func (d *FrameDecoder) Dropped() int { return d.dropped }
