package executor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"gauntlet/internal/common"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var testRuntimes = []Runtime{
	{Language: "python", Version: "3.12.0", Aliases: []string{"py", "python3"}},
	{Language: "go", Version: "1.22.0", Aliases: []string{"golang"}},
}

// fakeSandbox is a minimal Piston-compatible server: a fixed runtime
// catalog and a pluggable execute handler.
type fakeSandbox struct {
	*httptest.Server
	catalogHits atomic.Int64
	execute     http.HandlerFunc
}

func newFakeSandbox(t *testing.T, execute http.HandlerFunc) *fakeSandbox {
	t.Helper()
	fs := &fakeSandbox{execute: execute}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/v2/runtimes", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		fs.catalogHits.Add(1)
		json.NewEncoder(w).Encode(testRuntimes)
	})
	mux.HandleFunc("/api/v2/execute", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		if fs.execute == nil {
			http.Error(w, "execute not stubbed", http.StatusNotImplemented)
			return
		}
		fs.execute(w, r)
	})

	fs.Server = httptest.NewServer(mux)
	t.Cleanup(fs.Close)
	return fs
}

func respondExecute(t *testing.T, w http.ResponseWriter, resp executeResponse) {
	t.Helper()
	assert.NoError(t, json.NewEncoder(w).Encode(resp))
}

func newTestClient(t *testing.T, baseURL string) (Client, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	client := NewPistonClient(Options{BaseURL: baseURL, RuntimeCacheTTL: time.Minute}, rdb, zap.NewNop())
	return client, mr
}

func TestExecuteCleanRun(t *testing.T) {
	sandbox := newFakeSandbox(t, func(w http.ResponseWriter, r *http.Request) {
		var req executeRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			return
		}
		assert.Equal(t, "python", req.Language)
		assert.Equal(t, "3.12.0", req.Version)
		assert.Equal(t, "5\n", req.Stdin)
		if assert.Len(t, req.Files, 1) {
			assert.Equal(t, "print(int(input())*2)", req.Files[0].Content)
		}
		assert.Equal(t, 2000, req.RunTimeout)

		respondExecute(t, w, executeResponse{Run: stageResult{Stdout: "10\n"}})
	})
	client, _ := newTestClient(t, sandbox.URL)

	result, err := client.Execute(context.Background(), "print(int(input())*2)", "python", "5\n", 2)
	require.NoError(t, err)
	assert.Equal(t, "10\n", result.Output)
	assert.Empty(t, result.Error)
	assert.GreaterOrEqual(t, result.TimeMs, int64(0))
}

func TestExecuteNonZeroExitWithoutSignalIsClean(t *testing.T) {
	sandbox := newFakeSandbox(t, func(w http.ResponseWriter, r *http.Request) {
		respondExecute(t, w, executeResponse{Run: stageResult{Stdout: "partial\n", Code: 1}})
	})
	client, _ := newTestClient(t, sandbox.URL)

	result, err := client.Execute(context.Background(), "code", "python", "", 2)
	require.NoError(t, err)
	assert.Equal(t, "partial\n", result.Output)
	assert.Empty(t, result.Error, "exit status alone is not a failure")
}

func TestExecuteCompileFailure(t *testing.T) {
	tests := []struct {
		name    string
		compile stageResult
		want    string
	}{
		{"stderr preferred", stageResult{Code: 1, Stderr: "main.go:3: undefined: x", Stdout: "noise"}, "main.go:3: undefined: x"},
		{"stdout fallback", stageResult{Code: 1, Stdout: "syntax error"}, "syntax error"},
		{"silent compiler", stageResult{Code: 2}, "Compilation error"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			compile := tc.compile
			sandbox := newFakeSandbox(t, func(w http.ResponseWriter, r *http.Request) {
				respondExecute(t, w, executeResponse{Compile: &compile, Run: stageResult{}})
			})
			client, _ := newTestClient(t, sandbox.URL)

			result, err := client.Execute(context.Background(), "bad code", "go", "", 2)
			require.NoError(t, err)
			assert.Equal(t, tc.want, result.Error)
			assert.Empty(t, result.Output)
		})
	}
}

func TestExecuteSignalKilledRun(t *testing.T) {
	signal := "SIGKILL"
	sandbox := newFakeSandbox(t, func(w http.ResponseWriter, r *http.Request) {
		respondExecute(t, w, executeResponse{Run: stageResult{Stdout: "before the kill", Code: 137, Signal: &signal}})
	})
	client, _ := newTestClient(t, sandbox.URL)

	result, err := client.Execute(context.Background(), "while True: pass", "python", "", 1)
	require.NoError(t, err)
	assert.Equal(t, "process terminated by signal SIGKILL", result.Error)
	assert.Equal(t, "before the kill", result.Output, "partial output survives the kill")
}

func TestExecuteSignalKilledRunKeepsStderr(t *testing.T) {
	signal := "SIGSEGV"
	sandbox := newFakeSandbox(t, func(w http.ResponseWriter, r *http.Request) {
		respondExecute(t, w, executeResponse{Run: stageResult{Code: 139, Signal: &signal, Stderr: "segmentation fault"}})
	})
	client, _ := newTestClient(t, sandbox.URL)

	result, err := client.Execute(context.Background(), "code", "python", "", 1)
	require.NoError(t, err)
	assert.Equal(t, "segmentation fault", result.Error)
}

func TestExecuteUnsupportedLanguage(t *testing.T) {
	sandbox := newFakeSandbox(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("execute must not be reached for an unsupported language")
	})
	client, _ := newTestClient(t, sandbox.URL)

	_, err := client.Execute(context.Background(), "code", "cobol", "", 2)
	require.ErrorIs(t, err, common.ErrUnsupportedLanguage)
	assert.Contains(t, err.Error(), `"cobol"`)
	assert.Contains(t, err.Error(), "go, python", "message lists the supported languages")
}

func TestExecuteTransportFailureIsStructured(t *testing.T) {
	client, mr := newTestClient(t, "http://127.0.0.1:1")

	// Pre-seed the catalog so Resolve succeeds and the execute call itself
	// is what fails.
	data, err := json.Marshal(testRuntimes)
	require.NoError(t, err)
	require.NoError(t, mr.Set(runtimeCacheKey, string(data)))

	result, err := client.Execute(context.Background(), "code", "python", "", 2)
	require.NoError(t, err, "transport failure must not become a hard error")
	assert.Contains(t, result.Error, "sandbox request failed")
	assert.Empty(t, result.Output)
}

func TestExecuteCatalogUnavailableIsStructured(t *testing.T) {
	client, _ := newTestClient(t, "http://127.0.0.1:1")

	result, err := client.Execute(context.Background(), "code", "python", "", 2)
	require.NoError(t, err)
	assert.Contains(t, result.Error, "sandbox runtime catalog unavailable")
}

func TestExecuteNon200IsStructured(t *testing.T) {
	sandbox := newFakeSandbox(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "queue full", http.StatusServiceUnavailable)
	})
	client, _ := newTestClient(t, sandbox.URL)

	result, err := client.Execute(context.Background(), "code", "python", "", 2)
	require.NoError(t, err)
	assert.Contains(t, result.Error, "sandbox returned status 503")
	assert.Contains(t, result.Error, "queue full")
}

func TestExecuteMalformedResponseIsStructured(t *testing.T) {
	sandbox := newFakeSandbox(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("this is not json"))
	})
	client, _ := newTestClient(t, sandbox.URL)

	result, err := client.Execute(context.Background(), "code", "python", "", 2)
	require.NoError(t, err)
	assert.Contains(t, result.Error, "malformed sandbox response")
}

func TestExecuteClientSideDeadlineFires(t *testing.T) {
	release := make(chan struct{})
	sandbox := newFakeSandbox(t, func(w http.ResponseWriter, r *http.Request) {
		// Hang past the client's deadline.
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	t.Cleanup(func() { close(release) })

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	client := NewPistonClient(Options{
		BaseURL:          sandbox.URL,
		CompileTimeoutMs: 50,
		RequestGraceMs:   50,
		RuntimeCacheTTL:  time.Minute,
	}, rdb, zap.NewNop())

	start := time.Now()
	result, err := client.Execute(context.Background(), "code", "python", "", 1)
	require.NoError(t, err)
	assert.Contains(t, result.Error, "sandbox request failed")
	assert.Less(t, time.Since(start), 5*time.Second, "deadline fires even when the sandbox hangs")
}
