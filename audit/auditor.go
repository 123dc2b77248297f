package audit

import (
	"context"
	"errors"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"

	"newsgrader/agent"
)

// Input validation failures, surfaced before any network call is attempted.
var (
	ErrMissingURL        = errors.New("audit: target url is required")
	ErrMissingCredential = errors.New("audit: api key is required")
)

// Depth selects the agent mode: fast and likely synchronous, or deep and
// asynchronous.
type Depth string

const (
	DepthFast Depth = "mini"
	DepthDeep Depth = "pro"
)

// ParseDepth accepts both the wire names and their human aliases.
func ParseDepth(s string) (Depth, error) {
	switch s {
	case "", "mini", "fast":
		return DepthFast, nil
	case "pro", "deep":
		return DepthDeep, nil
	}
	return "", errors.New("audit: depth must be mini or pro")
}

// Request describes one audit invocation. It is immutable and owned by the
// RunAudit call that receives it.
type Request struct {
	URL    string
	APIKey string
	Depth  Depth
}

// Options tunes an Auditor. Zero values select defaults.
type Options struct {
	PollPolicy agent.PollPolicy
	Clock      clockwork.Clock
	CacheTTL   time.Duration
	// StreamBudget bounds a streamed consumption's wall clock. The upstream
	// stream has no liveness guarantee of its own, so it mirrors the polling
	// budget by default.
	StreamBudget time.Duration
	// SubmitInterval spaces the bounded initiation retries.
	SubmitInterval time.Duration
}

// Auditor is the public entry point: it initiates an audit, drives whichever
// transport the server selected, and returns one normalized result. All
// configuration is explicit; there is no process-wide state.
type Auditor struct {
	api            agent.API
	pollPolicy     agent.PollPolicy
	clock          clockwork.Clock
	cache          *resultCache
	streamBudget   time.Duration
	submitInterval time.Duration
	logger         *zap.Logger
}

const submitRetries = 2

func NewAuditor(api agent.API, opts Options, logger *zap.Logger) (*Auditor, error) {
	if api == nil {
		return nil, errors.New("audit: agent client is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	policy := opts.PollPolicy
	if policy.Interval <= 0 || policy.MaxAttempts <= 0 {
		policy = agent.DefaultPollPolicy()
	}
	clock := opts.Clock
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	budget := opts.StreamBudget
	if budget <= 0 {
		budget = time.Duration(policy.MaxAttempts) * policy.Interval
	}
	submitInterval := opts.SubmitInterval
	if submitInterval <= 0 {
		submitInterval = 2 * time.Second
	}
	return &Auditor{
		api:            api,
		pollPolicy:     policy,
		clock:          clock,
		cache:          newResultCache(opts.CacheTTL),
		streamBudget:   budget,
		submitInterval: submitInterval,
		logger:         logger,
	}, nil
}

// RunAudit audits one URL. Progress events are forwarded to sink in decode
// order; a nil sink discards them. Exactly one of the result or the error is
// meaningful.
func (a *Auditor) RunAudit(ctx context.Context, req Request, sink agent.ProgressSink) (Result, error) {
	if req.URL == "" {
		return Result{}, ErrMissingURL
	}
	if req.APIKey == "" {
		return Result{}, ErrMissingCredential
	}
	if req.Depth == "" {
		req.Depth = DepthFast
	}

	if res, ok := a.cache.get(req); ok {
		a.logger.Debug("audit served from cache", zap.String("url", req.URL))
		return res, nil
	}

	raw, err := a.acquire(ctx, req, sink)
	if err != nil {
		return Result{}, err
	}
	res, err := Normalize(raw)
	if err != nil {
		return Result{}, err
	}
	a.cache.put(req, res)
	return res, nil
}

// acquire performs the initiation call and drives the transport the server
// chose to a raw terminal payload.
func (a *Auditor) acquire(ctx context.Context, req Request, sink agent.ProgressSink) (agent.RawResult, error) {
	rr := agent.ResearchRequest{
		Input:        BuildInstruction(req.URL),
		Model:        string(req.Depth),
		OutputSchema: OutputSchema(),
		Stream:       true,
	}

	// The stream budget doubles as the submit/stream deadline; polling runs
	// on the parent context because it enforces its own attempt budget.
	streamCtx, cancel := context.WithTimeout(ctx, a.streamBudget)
	defer cancel()

	resp, err := a.submit(streamCtx, rr)
	if err != nil {
		return agent.RawResult{}, err
	}

	if resp.Stream != nil {
		defer resp.Stream.Close()
		consumer := agent.NewStreamConsumer(sink, a.logger)
		return consumer.Run(streamCtx, resp.Stream)
	}

	status := resp.Status
	switch {
	case status == nil:
		return agent.RawResult{}, &agent.TransportError{Op: "research", Err: errors.New("empty response")}
	case status.Status == agent.StatusCompleted:
		return status.RawContent(), nil
	case status.Status == agent.StatusFailed:
		return agent.RawResult{}, &agent.JobFailedError{RequestID: status.RequestID, Detail: status.Error}
	case status.RequestID == "":
		return agent.RawResult{}, &agent.TransportError{Op: "research", Err: errors.New("response carried neither content nor request id")}
	}

	a.logger.Debug("audit queued, polling", zap.String("request_id", status.RequestID))
	poller := agent.NewPoller(a.api, a.pollPolicy, a.clock, a.logger)
	return poller.Wait(ctx, agent.JobHandle{RequestID: status.RequestID})
}

// submit retries the initiation call a small, bounded number of times on
// transient transport failures. Consumers themselves never retry.
func (a *Auditor) submit(ctx context.Context, rr agent.ResearchRequest) (*agent.ResearchResponse, error) {
	var resp *agent.ResearchResponse
	backoff := retry.WithMaxRetries(submitRetries, retry.NewConstant(a.submitInterval))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var callErr error
		resp, callErr = a.api.Research(ctx, rr)
		var transport *agent.TransportError
		if errors.As(callErr, &transport) && transport.Temporary() {
			a.logger.Debug("research submit failed, retrying", zap.Error(callErr))
			return retry.RetryableError(callErr)
		}
		return callErr
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}
