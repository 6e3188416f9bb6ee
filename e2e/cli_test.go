package e2e_test

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/averho/chatgate/internal/api"
	"github.com/averho/chatgate/internal/config"
	"github.com/averho/chatgate/internal/factory"
	"github.com/averho/chatgate/internal/model"
	"github.com/averho/chatgate/internal/storage/memory"
	"github.com/averho/chatgate/internal/testutil"
)

const testSecret = "e2e-test-secret"

// cliRunner manages CLI binary execution
type cliRunner struct {
	binaryPath string
	serverURL  string
}

func newCLIRunner(t *testing.T, serverURL string) *cliRunner {
	t.Helper()

	projectRoot := findProjectRoot(t)

	binaryPath := filepath.Join(t.TempDir(), "chatgate-test")
	cmd := exec.Command("go", "build", "-o", binaryPath, "./cmd/chatgate")
	cmd.Dir = projectRoot
	output, err := cmd.CombinedOutput()
	require.NoError(t, err, "failed to build CLI: %s", string(output))

	return &cliRunner{
		binaryPath: binaryPath,
		serverURL:  serverURL,
	}
}

func (r *cliRunner) run(token string, args ...string) (string, error) {
	fullArgs := append([]string{"--server", r.serverURL}, args...)
	if token != "" {
		fullArgs = append(fullArgs, "--token", token)
	}

	cmd := exec.Command(r.binaryPath, fullArgs...)
	cmd.Env = append(os.Environ(), "CHATGATE_SECRET="+testSecret)
	output, err := cmd.CombinedOutput()
	return string(output), err
}

func findProjectRoot(t *testing.T) string {
	t.Helper()

	dir, err := os.Getwd()
	require.NoError(t, err)

	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			t.Fatal("could not find project root (go.mod)")
		}
		dir = parent
	}
}

// testServer manages a real gateway process for e2e tests
type testServer struct {
	addr  string
	store *memory.Storage
}

func startTestServer(t *testing.T) *testServer {
	t.Helper()

	// Find a free port
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := listener.Addr().String()
	require.NoError(t, listener.Close())

	cfg := config.Config{
		HTTPAddr:       addr,
		JWTSecret:      testSecret,
		AllowedOrigins: config.DefaultAllowedOrigins,
		StorageType:    factory.StorageTypeMemory,
	}

	logger := testutil.NopLogger()
	app, err := factory.New(context.Background(), cfg, logger)
	require.NoError(t, err)

	router := api.NewRouter(api.RouterConfig{
		Logger:         logger,
		Verifier:       app.Verifier,
		Authz:          app.Authz,
		Gateway:        app.Gateway,
		AllowedOrigins: cfg.AllowedOrigins,
	})

	serverCfg := api.DefaultServerConfig()
	serverCfg.Addr = addr
	server := api.NewServer(router, serverCfg, logger)

	go func() { _ = server.Start() }()
	t.Cleanup(func() {
		_ = app.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(ctx)
	})

	serverURL := "http://" + addr
	waitForServer(t, serverURL+"/api/v1/health")

	return &testServer{
		addr:  serverURL,
		store: app.Store.(*memory.Storage),
	}
}

func waitForServer(t *testing.T, url string) {
	t.Helper()

	client := &http.Client{Timeout: 100 * time.Millisecond}
	deadline := time.Now().Add(5 * time.Second)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(50 * time.Millisecond)
	}

	t.Fatal("server did not become ready in time")
}

// Tests

func TestCLI_HealthCheck(t *testing.T) {
	ts := startTestServer(t)
	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("", "health")
	require.NoError(t, err, "output: %s", output)
	assert.Equal(t, "ok", strings.TrimSpace(output))
}

func TestCLI_RoomCommands(t *testing.T) {
	ts := startTestServer(t)
	ts.store.Add(model.Membership{UserID: 1, RoomID: 7, Role: model.RoleModerator})
	cli := newCLIRunner(t, ts.addr)

	// Mint a token for the moderator
	output, err := cli.run("", "token", "--user-id", "1", "--username", "alice")
	require.NoError(t, err, "output: %s", output)
	token := strings.TrimSpace(output)
	require.NotEmpty(t, token)

	// Presence in a room the user belongs to
	output, err = cli.run(token, "room", "presence", "7")
	require.NoError(t, err, "output: %s", output)
	assert.Contains(t, output, "room 7: 0 connection(s)")

	// Broadcast as moderator
	output, err = cli.run(token, "room", "broadcast", "7", "announcement", "--data", `{"text":"hi"}`)
	require.NoError(t, err, "output: %s", output)
	assert.Contains(t, output, "broadcast announcement to room 7 accepted")
}

func TestCLI_RoomAuthorization(t *testing.T) {
	ts := startTestServer(t)
	ts.store.Add(model.Membership{UserID: 2, RoomID: 7, Role: model.RoleMember})
	cli := newCLIRunner(t, ts.addr)

	output, err := cli.run("", "token", "--user-id", "2", "--username", "bob")
	require.NoError(t, err, "output: %s", output)
	token := strings.TrimSpace(output)

	// A plain member cannot broadcast
	output, err = cli.run(token, "room", "broadcast", "7", "announcement")
	assert.Error(t, err)
	assert.Contains(t, output, "Insufficient room permissions")

	// Nor see presence for a room they are not in
	output, err = cli.run(token, "room", "presence", "8")
	assert.Error(t, err)
	assert.Contains(t, output, "Not a member of this room")
}

func TestCLI_ErrorHandling(t *testing.T) {
	ts := startTestServer(t)
	cli := newCLIRunner(t, ts.addr)

	// Room commands without a token
	output, err := cli.run("", "room", "presence", "7")
	assert.Error(t, err)
	assert.Contains(t, strings.ToLower(output), "unauthorized")

	// Minting without a user id
	output, err = cli.run("", "token", "--username", "alice")
	assert.Error(t, err, "output: %s", output)
}
