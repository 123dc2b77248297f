package agent

import (
	"context"
	"encoding/json"
	"io"
	"strings"

	openai "github.com/openai/openai-go"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

// Event types and step tags observed on the wire. Unrecognized values are
// ignored so future agent versions do not break consumption.
const (
	eventCompletionChunk = "chat.completion.chunk"

	stepTypePlan     = "research_plan"
	stepTypeResearch = "research"
	stepTypeThink    = "think"
)

// StreamConsumer drives one live event stream to completion. It owns a fresh
// decoder and accumulator per Run call; a consumer must not be shared across
// concurrent audits.
type StreamConsumer struct {
	sink   ProgressSink
	logger *zap.Logger
}

func NewStreamConsumer(sink ProgressSink, logger *zap.Logger) *StreamConsumer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StreamConsumer{sink: sink, logger: logger}
}

// rawAccumulator collects content fragments for one in-flight consumption.
// Once a structured object arrived it takes precedence at finalization; later
// text tokens belong to a different content channel and never replace it.
type rawAccumulator struct {
	text   strings.Builder
	object json.RawMessage
}

func (a *rawAccumulator) finalize() RawResult {
	if a.object != nil {
		return RawResult{Object: a.object}
	}
	return RawResult{Text: a.text.String()}
}

// Run consumes r until the stream terminator or EOF and returns the raw
// terminal output. Transport failures surface as TransportError; retrying is
// the orchestrator's decision, never done here. Cancelling ctx aborts the
// consumption; the caller releases r.
func (c *StreamConsumer) Run(ctx context.Context, r io.Reader) (RawResult, error) {
	dec := NewFrameDecoder()
	acc := &rawAccumulator{}
	currentEvent := ""
	lastSearch := ""

	buf := make([]byte, 4096)
	for !dec.Done() {
		if err := ctx.Err(); err != nil {
			return RawResult{}, &TransportError{Op: "stream", Err: err, Raw: acc.text.String()}
		}
		n, err := r.Read(buf)
		if n > 0 {
			for _, frame := range dec.Feed(buf[:n]) {
				switch frame.Kind {
				case FrameEvent:
					currentEvent = frame.Value
				case FrameData:
					c.handleData(currentEvent, frame.Value, acc, &lastSearch)
				}
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return RawResult{}, &TransportError{Op: "stream", Err: err, Raw: acc.text.String()}
		}
	}

	if dropped := dec.Dropped(); dropped > 0 {
		c.logger.Debug("dropped malformed stream payloads", zap.Int("count", dropped))
	}
	return acc.finalize(), nil
}

// handleData routes one data payload into content accumulation or a progress
// event. Payload shapes vary across agent API versions, so the content channel
// is probed before the typed decode.
func (c *StreamConsumer) handleData(event, payload string, acc *rawAccumulator, lastSearch *string) {
	delta := gjson.Get(payload, "choices.0.delta")

	if event == eventCompletionChunk {
		if content := delta.Get("content"); content.Exists() {
			if content.IsObject() {
				// The agent returned the whole structured answer atomically.
				acc.object = json.RawMessage(content.Raw)
				c.sink.emit(ProgressEvent{Kind: ProgressStructuredChunk})
				return
			}
			var chunk openai.ChatCompletionChunk
			token := ""
			if err := json.Unmarshal([]byte(payload), &chunk); err == nil && len(chunk.Choices) > 0 {
				token = chunk.Choices[0].Delta.Content
			} else {
				token = content.String()
			}
			if token != "" {
				acc.text.WriteString(token)
				c.sink.emit(ProgressEvent{Kind: ProgressTextAppended, Size: len(token)})
			}
			return
		}
	}

	step := delta.Get("step_details")
	if !step.Exists() {
		// Older API versions put step details at the top level.
		step = gjson.Get(payload, "step_details")
	}
	if step.Exists() {
		c.handleStep(step, lastSearch)
	}
	// Tool calls and unknown shapes are ignored.
}

func (c *StreamConsumer) handleStep(step gjson.Result, lastSearch *string) {
	text := step.Get("step").String()
	switch step.Get("type").String() {
	case stepTypePlan:
		if text == "" {
			text = "Planning..."
		}
		c.sink.emit(ProgressEvent{Kind: ProgressPlan, Text: text})
	case stepTypeResearch:
		// Consecutive duplicates would only add noise to the progress sink.
		if text == *lastSearch {
			return
		}
		*lastSearch = text
		c.sink.emit(ProgressEvent{Kind: ProgressSearching, Text: text})
	case stepTypeThink:
		c.sink.emit(ProgressEvent{Kind: ProgressThinking, Text: text})
	}
}
