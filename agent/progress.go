package agent

// ProgressKind tags the variant carried by a ProgressEvent.
type ProgressKind int

const (
	// ProgressPlan reports the agent's research plan text.
	ProgressPlan ProgressKind = iota
	// ProgressSearching reports a search step the agent is performing.
	ProgressSearching
	// ProgressThinking reports agent reasoning text.
	ProgressThinking
	// ProgressStructuredChunk signals that a complete structured payload
	// arrived atomically on the content channel.
	ProgressStructuredChunk
	// ProgressTextAppended signals that text tokens were appended to the
	// content buffer. Only the size is reported, not the content.
	ProgressTextAppended
)

// ProgressEvent is one live status update produced while a consumer drives a
// response to completion. Events are delivered in decode order.
type ProgressEvent struct {
	Kind ProgressKind
	// Text carries the step message for Plan/Searching/Thinking events.
	Text string
	// Size carries the appended byte count for TextAppended events.
	Size int
}

// ProgressSink receives progress events. A nil sink discards them.
type ProgressSink func(ProgressEvent)

func (s ProgressSink) emit(ev ProgressEvent) {
	if s != nil {
		s(ev)
	}
}
