package testutil

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// IntegrationTestSuite provides base functionality for checkpoint store
// integration tests that need a live backend.
type IntegrationTestSuite struct {
	suite.Suite
	ctx       context.Context
	cancel    context.CancelFunc
	tempDir   string
	startTime time.Time
}

// SetupSuite runs before all tests in the suite
func (s *IntegrationTestSuite) SetupSuite() {
	s.ctx, s.cancel = context.WithTimeout(context.Background(), 2*time.Minute)
	s.startTime = time.Now()
	s.tempDir = s.T().TempDir()
}

// TearDownSuite runs after all tests in the suite
func (s *IntegrationTestSuite) TearDownSuite() {
	s.cancel()
	s.T().Logf("integration suite completed in %v", time.Since(s.startTime))
}

// Context returns the suite context
func (s *IntegrationTestSuite) Context() context.Context {
	return s.ctx
}

// TempDir returns the suite's temporary directory
func (s *IntegrationTestSuite) TempDir() string {
	return s.tempDir
}

// IntegrationTest marks a test as an integration test
func IntegrationTest(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
}

// RequireEnv returns the value of the environment variable name, skipping the
// test when it is unset. Store tests use it to locate their backend, e.g.
// PARTSYNC_TEST_POSTGRES_DSN.
func RequireEnv(t *testing.T, name string) string {
	t.Helper()
	IntegrationTest(t)
	v := os.Getenv(name)
	if v == "" {
		t.Skipf("%s not set", name)
	}
	return v
}

// GetEnv returns the environment variable name or def when unset.
func GetEnv(name, def string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return def
}

// TestEnvironment bundles a context and a temp directory.
type TestEnvironment struct {
	t       *testing.T
	ctx     context.Context
	cancel  context.CancelFunc
	tempDir string
}

// NewTestEnvironment creates a new test environment. Cleanup is registered
// with t automatically.
func NewTestEnvironment(t *testing.T) *TestEnvironment {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	env := &TestEnvironment{
		t:       t,
		ctx:     ctx,
		cancel:  cancel,
		tempDir: t.TempDir(),
	}
	t.Cleanup(env.Cleanup)
	return env
}

// Context returns the test context
func (e *TestEnvironment) Context() context.Context {
	return e.ctx
}

// TempDir returns the temporary directory
func (e *TestEnvironment) TempDir() string {
	return e.tempDir
}

// Path joins elem onto the temporary directory.
func (e *TestEnvironment) Path(elem ...string) string {
	return filepath.Join(append([]string{e.tempDir}, elem...)...)
}

// WriteFile creates a file under the temporary directory.
func (e *TestEnvironment) WriteFile(name string, content []byte) string {
	path := e.Path(name)
	require.NoError(e.t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(e.t, os.WriteFile(path, content, 0o644))
	return path
}

// Cleanup cancels the environment context.
func (e *TestEnvironment) Cleanup() {
	e.cancel()
}
