//go:build integration

package integration

// Test environment setup and server lifecycle management.
//
// Each test creates an empty temporary database and applies the migrations before the server starts,
// so the schema reflects the latest code. The database is dropped after each test.
//
// By default the server logs are not included in the test output, you can enable them with:
//
//	ENABLE_SERVER_LOGS=true go test -tags=integration -v ./test/integration
//

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cardpass/pass-issuer/internal/config"
	"github.com/cardpass/pass-issuer/internal/crypto"
	"github.com/cardpass/pass-issuer/internal/crypto/cryptotest"
	"github.com/cardpass/pass-issuer/internal/database"
	"github.com/cardpass/pass-issuer/internal/logger"
	"github.com/cardpass/pass-issuer/internal/server"
	"github.com/cardpass/pass-issuer/internal/services"
)

const (
	testAPIKey = "integration-test-api-key"
	testTenant = "acme"
	testQuota  = 3
)

// testEnv provides access to the test db, redis and server for integration tests
type testEnv struct {
	baseURL  string
	cfg      *config.ServerEnvironment
	pool     *pgxpool.Pool
	redis    *miniredis.Miniredis
	identity *cryptotest.Identity
	shutdown func()
}

// startInProcessServer starts the pass server in-process for testing.
// The caller must call shutdown when the test completes.
func startInProcessServer(t *testing.T) *testEnv {
	t.Helper()

	testEnv := &testEnv{}

	t.Log("Starting in-process server...")

	var (
		ctx         = context.Background()
		host        = "localhost"
		port        = findFreePort(t)
		environment = "test"
		logLevel    = logger.ParseLogLevel("none")
	)

	if os.Getenv("ENABLE_SERVER_LOGS") == "true" {
		logLevel = logger.ParseLogLevel("debug")
	}

	// signing identity
	testEnv.identity = cryptotest.NewIdentity(t)
	keysDir := t.TempDir()
	if err := crypto.SaveKeystoreFile(testEnv.identity.Blob, keysDir, "pass.p12"); err != nil {
		t.Fatalf("Failed to write keystore: %v", err)
	}

	// configure db and redis
	testDatabaseURL := setupTestDatabase(t)
	testEnv.redis = miniredis.RunT(t)

	testEnvVars := map[string]string{
		"HOST":           host,
		"PORT":           fmt.Sprintf("%d", port),
		"ENVIRONMENT":    environment,
		"LOG_LEVEL":      logLevel.String(),
		"RATE_LIMIT_RPS": "0",

		"DATABASE_URL":     testDatabaseURL,
		"RATE_LIMIT_STORE": "redis",
		"REDIS_URL":        "redis://" + testEnv.redis.Addr(),
		"ISSUANCE_QUOTA":   fmt.Sprintf("%d", testQuota),
		"ISSUANCE_WINDOW":  "1h",

		"KEYSTORE_PATH":        filepath.Join(keysDir, "pass.p12"),
		"KEYSTORE_PASSPHRASE":  cryptotest.Passphrase,
		"PASS_TYPE_IDENTIFIER": cryptotest.PassTypeIdentifier,
		"TEAM_IDENTIFIER":      cryptotest.TeamIdentifier,
		"API_KEYS":             testTenant + ":" + services.HashAPIKey(testAPIKey),
	}
	for key, value := range testEnvVars {
		t.Setenv(key, value)
	}

	cfg, err := config.NewServerConfig()
	if err != nil {
		t.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.InitLogger(logLevel, "test")

	testEnv.pool, err = database.NewPool(ctx, database.PoolConfig{
		DatabaseURL: cfg.DatabaseURL,
		MaxConns:    cfg.DBMaxConnections,
		PingTimeout: cfg.DatabasePingTimeout,
	})
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}
	if err := database.Migrate(ctx, testEnv.pool); err != nil {
		testEnv.pool.Close()
		t.Fatalf("Failed to apply database migrations: %v", err)
	}

	serverCtx, serverCancel := context.WithCancel(ctx)

	serverInstance, err := server.NewServer(serverCtx, testEnv.pool, cfg, appLogger)
	if err != nil {
		serverCancel()
		testEnv.pool.Close()
		t.Fatalf("Failed to create server: %v", err)
	}

	serverDone := make(chan error, 1)
	go func() {
		defer close(serverDone)
		if err := serverInstance.Start(serverCtx); err != nil {
			serverDone <- err
		}
	}()

	testEnv.shutdown = func() {
		t.Log("Stopping server...")

		serverCancel()

		select {
		case err := <-serverDone:
			if err != nil {
				t.Logf("❌ Server shutdown with error: %v", err)
			} else {
				t.Log("✅ Server shut down gracefully")
			}
		case <-time.After(5 * time.Second):
			t.Log("⚠️ Server shutdown timeout")
		}

		// closes the pool and the redis client
		serverInstance.Shutdown()
	}

	testEnv.baseURL = fmt.Sprintf("http://localhost:%d", port)
	testEnv.cfg = cfg

	if !waitForServer(t, testEnv.baseURL+"/health/live", 30*time.Second) {
		t.Fatal("Server failed to start within timeout")
	}

	t.Log("✅ Server started")
	return testEnv
}

func findFreePort(t *testing.T) int {
	t.Helper()
	listener, err := net.Listen("tcp", ":0")
	if err != nil {
		t.Fatalf("Failed to find free port: %v", err)
	}
	defer listener.Close()

	addr := listener.Addr().(*net.TCPAddr)
	return addr.Port
}

func waitForServer(t *testing.T, url string, timeout time.Duration) bool {
	t.Helper()

	client := &http.Client{Timeout: 1 * time.Second}
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return true
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
	return false
}

// Test database configuration

type databaseConfig struct {
	userAndPassword string
	dbname          string
	host            string
	port            int
}

func (d *databaseConfig) connectionURL() string {
	return fmt.Sprintf("postgres://%s@%s:%d/%s?sslmode=disable",
		d.userAndPassword, d.host, d.port, d.dbname)
}

func (d *databaseConfig) WithDatabase(dbname string) *databaseConfig {
	return &databaseConfig{
		userAndPassword: d.userAndPassword,
		host:            d.host,
		port:            d.port,
		dbname:          dbname,
	}
}

func localDatabaseConfig() *databaseConfig {
	return &databaseConfig{
		userAndPassword: "pass-dev",
		dbname:          "tmp_pass_integration_test",
		host:            "localhost",
		port:            15433,
	}
}

func ciDatabaseConfig() *databaseConfig {
	return &databaseConfig{
		userAndPassword: "postgres:postgres",
		dbname:          "tmp_pass_integration_test",
		host:            "localhost",
		port:            5432,
	}
}

// setupTestDatabase creates an empty test db and returns its connection URL.
// the function auto-detects if it is running in CI (github actions) and uses the appropriate database config
func setupTestDatabase(t *testing.T) string {
	t.Helper()

	ctx := context.Background()
	config := *localDatabaseConfig()
	if os.Getenv("GITHUB_ACTIONS") == "true" {
		config = *ciDatabaseConfig()
	}

	// connect to the postgres database to create the test database
	postgresConnectionURL := config.WithDatabase("postgres").connectionURL()

	// this pool stays open until the test database is dropped in cleanup
	postgresPool, err := pgxpool.New(ctx, postgresConnectionURL)
	if err != nil {
		t.Fatalf("Unable to create postgres connection pool: %v", err)
	}

	if err := postgresPool.Ping(ctx); err != nil {
		t.Fatalf("Can't ping PostgreSQL server %s", postgresConnectionURL)
	}

	if _, err := postgresPool.Exec(ctx, "DROP DATABASE IF EXISTS "+config.dbname); err != nil {
		t.Fatalf("DROP DATABASE IF EXISTS Failed : %v", err)
	}

	if _, err := postgresPool.Exec(ctx, "CREATE DATABASE "+config.dbname); err != nil {
		t.Fatalf("CREATE DATABASE Failed : %v", err)
	}

	// cleanups run last-in first-out: drop the database, then close the pool
	t.Cleanup(func() {
		postgresPool.Close()
	})
	t.Cleanup(func() {
		if _, err := postgresPool.Exec(ctx, "DROP DATABASE IF EXISTS "+config.dbname+" WITH (FORCE)"); err != nil {
			t.Errorf("Failed to drop test database: %v", err)
		}
	})

	t.Logf("Database ready: %s", config.dbname)
	return config.connectionURL()
}
