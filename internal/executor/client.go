package executor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"gauntlet/internal/common"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Result is the normalized outcome of one sandbox call. Error carries the
// classified failure message and is empty on a clean run. TimeMs is the
// wall-clock duration of the whole round-trip, not just in-sandbox time.
type Result struct {
	Output string `json:"output"`
	Error  string `json:"error,omitempty"`
	TimeMs int64  `json:"time_ms"`
}

// Client dispatches one (code, language, stdin) unit to the sandbox.
//
// The only hard error it returns is ErrUnsupportedLanguage (wrapped);
// transport failures, timeouts, and every sandbox-side failure come back as
// a structured Result so a single testcase can never abort a batch.
type Client interface {
	Execute(ctx context.Context, code, language, stdin string, timeLimitSeconds int) (Result, error)
}

type Options struct {
	BaseURL                 string
	CompileTimeoutMs        int
	DefaultTimeLimitSeconds int
	// RequestGraceMs pads the client-side deadline past the sandbox's own
	// budgets so a well-behaved sandbox times out first.
	RequestGraceMs  int
	RuntimeCacheTTL time.Duration
}

type pistonClient struct {
	opts    Options
	http    *http.Client
	catalog *runtimeCatalog
	log     *zap.Logger
}

// NewPistonClient talks to a Piston-compatible execution API.
func NewPistonClient(opts Options, rdb *redis.Client, log *zap.Logger) Client {
	if opts.CompileTimeoutMs <= 0 {
		opts.CompileTimeoutMs = 10000
	}
	if opts.DefaultTimeLimitSeconds <= 0 {
		opts.DefaultTimeLimitSeconds = 5
	}
	if opts.RequestGraceMs <= 0 {
		opts.RequestGraceMs = 2000
	}
	httpClient := &http.Client{}
	return &pistonClient{
		opts:    opts,
		http:    httpClient,
		catalog: newRuntimeCatalog(opts.BaseURL, httpClient, rdb, opts.RuntimeCacheTTL, log),
		log:     log,
	}
}

type executeFile struct {
	Name    string `json:"name,omitempty"`
	Content string `json:"content"`
}

type executeRequest struct {
	Language       string        `json:"language"`
	Version        string        `json:"version"`
	Files          []executeFile `json:"files"`
	Stdin          string        `json:"stdin"`
	CompileTimeout int           `json:"compile_timeout"`
	RunTimeout     int           `json:"run_timeout"`
}

type stageResult struct {
	Stdout string  `json:"stdout"`
	Stderr string  `json:"stderr"`
	Code   int     `json:"code"`
	Signal *string `json:"signal"`
}

type executeResponse struct {
	Compile *stageResult `json:"compile,omitempty"`
	Run     stageResult  `json:"run"`
}

func (c *pistonClient) Execute(ctx context.Context, code, language, stdin string, timeLimitSeconds int) (Result, error) {
	start := time.Now()
	elapsed := func() int64 { return time.Since(start).Milliseconds() }

	rt, err := c.catalog.Resolve(ctx, language)
	if err != nil {
		if errors.Is(err, common.ErrUnsupportedLanguage) {
			return Result{}, err
		}
		// Catalog transport trouble is recovered like any other transport
		// failure, as a failed structured result.
		return Result{Error: "sandbox runtime catalog unavailable: " + err.Error(), TimeMs: elapsed()}, nil
	}

	if timeLimitSeconds <= 0 {
		timeLimitSeconds = c.opts.DefaultTimeLimitSeconds
	}
	runTimeoutMs := timeLimitSeconds * 1000

	// The client-side deadline must fire even if the sandbox hangs.
	deadline := time.Duration(c.opts.CompileTimeoutMs+runTimeoutMs+c.opts.RequestGraceMs) * time.Millisecond
	callCtx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	body, err := json.Marshal(executeRequest{
		Language:       rt.Language,
		Version:        rt.Version,
		Files:          []executeFile{{Name: "main", Content: code}},
		Stdin:          stdin,
		CompileTimeout: c.opts.CompileTimeoutMs,
		RunTimeout:     runTimeoutMs,
	})
	if err != nil {
		return Result{Error: "failed to encode sandbox request: " + err.Error(), TimeMs: elapsed()}, nil
	}

	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, c.opts.BaseURL+"/api/v2/execute", bytes.NewReader(body))
	if err != nil {
		return Result{Error: "failed to build sandbox request: " + err.Error(), TimeMs: elapsed()}, nil
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("Sandbox request failed",
			zap.String("language", rt.Language),
			zap.Error(err))
		return Result{Error: "sandbox request failed: " + err.Error(), TimeMs: elapsed()}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{
			Error:  fmt.Sprintf("sandbox returned status %d: %s", resp.StatusCode, bytes.TrimSpace(snippet)),
			TimeMs: elapsed(),
		}, nil
	}

	var execResp executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&execResp); err != nil {
		return Result{Error: "malformed sandbox response: " + err.Error(), TimeMs: elapsed()}, nil
	}

	return classify(execResp, elapsed()), nil
}

// classify folds the sandbox's compile/run stages into one Result:
// compile failure, signal-terminated run (covers timeout kills and
// crashes), or clean completion. A non-zero exit without a signal is still
// a clean completion; pass/fail is decided upstream on stdout alone.
func classify(resp executeResponse, timeMs int64) Result {
	if resp.Compile != nil && resp.Compile.Code != 0 {
		msg := resp.Compile.Stderr
		if msg == "" {
			msg = resp.Compile.Stdout
		}
		if msg == "" {
			msg = "Compilation error"
		}
		return Result{Error: msg, TimeMs: timeMs}
	}

	run := resp.Run
	if run.Code != 0 && run.Signal != nil && *run.Signal != "" {
		msg := run.Stderr
		if msg == "" {
			msg = fmt.Sprintf("process terminated by signal %s", *run.Signal)
		}
		return Result{Output: run.Stdout, Error: msg, TimeMs: timeMs}
	}

	return Result{Output: run.Stdout, Error: run.Stderr, TimeMs: timeMs}
}
