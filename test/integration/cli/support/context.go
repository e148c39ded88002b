package support

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/MeKo-Tech/peoplecount/internal/testutil"
)

// TestContext holds the state for integration tests.
type TestContext struct {
	// Command execution state
	LastCommand   string
	LastOutput    string
	LastStderr    string
	LastError     error
	LastExitCode  int
	LastStartTime time.Time
	LastDuration  time.Duration

	// Test environment
	TempDir string
	Scenes  map[string]testutil.Scene

	// Environment variables set by the scenario, with their previous values
	envRestore map[string]*string
	prevDir    string

	// Server state
	HTTPServer *httptest.Server

	// HTTP response state
	LastHTTPStatusCode int
	LastHTTPResponse   []byte
	LastHTTPHeaders    http.Header
}

// NewTestContext creates a new test context with its own temp directory.
func NewTestContext() (*TestContext, error) {
	tempDir, err := os.MkdirTemp("", "peoplecount-test-*")
	if err != nil {
		return nil, fmt.Errorf("failed to create temp directory: %w", err)
	}
	return &TestContext{
		TempDir:    tempDir,
		Scenes:     map[string]testutil.Scene{},
		envRestore: map[string]*string{},
	}, nil
}

// Cleanup stops the server, restores the environment and removes the temp
// directory.
func (testCtx *TestContext) Cleanup() error {
	testCtx.StopServer()

	if testCtx.prevDir != "" {
		_ = os.Chdir(testCtx.prevDir)
		testCtx.prevDir = ""
	}
	for name, prev := range testCtx.envRestore {
		if prev == nil {
			_ = os.Unsetenv(name)
		} else {
			_ = os.Setenv(name, *prev)
		}
	}
	testCtx.envRestore = map[string]*string{}

	if err := os.RemoveAll(testCtx.TempDir); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp directory %s: %w", testCtx.TempDir, err)
	}
	return nil
}

// StopServer closes the test server if one is running.
func (testCtx *TestContext) StopServer() {
	if testCtx.HTTPServer != nil {
		testCtx.HTTPServer.Close()
		testCtx.HTTPServer = nil
	}
}

// SetEnv sets an environment variable for the rest of the scenario.
func (testCtx *TestContext) SetEnv(name, value string) error {
	if _, tracked := testCtx.envRestore[name]; !tracked {
		if prev, ok := os.LookupEnv(name); ok {
			testCtx.envRestore[name] = &prev
		} else {
			testCtx.envRestore[name] = nil
		}
	}
	return os.Setenv(name, value)
}

// Path returns name resolved inside the scenario's temp directory.
func (testCtx *TestContext) Path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(testCtx.TempDir, name)
}

// substituteCommandVariables replaces {tmp} with the scenario's temp directory.
func (testCtx *TestContext) substituteCommandVariables(command string) string {
	return strings.ReplaceAll(command, "{tmp}", testCtx.TempDir)
}
