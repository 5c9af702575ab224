// test/e2e/e2e_test.go
package e2e

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cohort-workers/internal/common/config"
	"cohort-workers/internal/common/database"
	"cohort-workers/internal/common/logger"
	"cohort-workers/internal/genai"
	"cohort-workers/internal/models"

	analyzeresponses "cohort-workers/internal/workers/onboarding/analyze-responses"
	classifycohort "cohort-workers/internal/workers/onboarding/classify-cohort"
	generatefollowup "cohort-workers/internal/workers/onboarding/generate-follow-up"
	saveresponse "cohort-workers/internal/workers/onboarding/save-response"
)

var (
	zeebeClient zbc.Client
	zapLog      *zap.Logger
)

func TestMain(m *testing.M) {
	if os.Getenv("E2E_TESTS") == "" {
		fmt.Println("E2E_TESTS not set, skipping end-to-end suite")
		os.Exit(0)
	}

	var err error
	zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
		GatewayAddress:         "localhost:26500",
		UsePlaintextConnection: true,
	})
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to Zeebe: %v", err))
	}

	zapLog, _ = zap.NewProduction()

	code := m.Run()

	zeebeClient.Close()
	os.Exit(code)
}

func TestFullE2E(t *testing.T) {
	_, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NotNil(t, cfg)

	t.Log("Starting full E2E test with real services...")

	assertAllServicesConnectivity(t, cfg)
	createDatabaseTables(t, cfg)
	testAllWorkers(t, cfg, zapLog)

	t.Log("Full E2E workflow successful")
}

func assertAllServicesConnectivity(t *testing.T, cfg *config.Config) {
	t.Log("Checking service connectivity...")

	// The suite runs against a local docker-compose stack regardless of
	// what the loaded config points at.
	cfg.Database.Postgres.Host = "localhost"
	cfg.Database.Redis.Address = "localhost:6379"

	db, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err, "PostgreSQL connection failed")
	assert.NoError(t, db.Ping(context.Background()), "PostgreSQL ping failed")
	db.Close()
	t.Log("PostgreSQL connected")

	rdb, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err, "Redis client creation failed")
	assert.NoError(t, rdb.Ping(context.Background()), "Redis ping failed")
	rdb.Close()
	t.Log("Redis connected")

	_, err = zeebeClient.NewTopologyCommand().Send(context.Background())
	assert.NoError(t, err, "Zeebe topology request failed")
	t.Log("Zeebe connected")
}

func createDatabaseTables(t *testing.T, cfg *config.Config) {
	t.Log("Creating database tables...")

	dbClient, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	defer dbClient.Close()

	db := dbClient.DB

	queries := []string{
		`CREATE TABLE IF NOT EXISTS onboarding_sessions (
			id VARCHAR(255) PRIMARY KEY,
			user_id VARCHAR(255) NOT NULL,
			status VARCHAR(50) DEFAULT 'active',
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS onboarding_responses (
			id VARCHAR(255) PRIMARY KEY,
			session_id VARCHAR(255) NOT NULL,
			slot_id VARCHAR(100) NOT NULL,
			response TEXT NOT NULL,
			signals JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			UNIQUE(session_id, slot_id)
		)`,
		`CREATE TABLE IF NOT EXISTS cohort_results (
			id VARCHAR(255) PRIMARY KEY,
			session_id VARCHAR(255) NOT NULL,
			generation VARCHAR(100) NOT NULL,
			confidence DOUBLE PRECISION,
			region VARCHAR(255),
			micro_generation VARCHAR(100),
			cusp BOOLEAN DEFAULT false,
			result JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS audit_log (
			id SERIAL PRIMARY KEY,
			event_type VARCHAR(100) NOT NULL,
			resource_type VARCHAR(100) NOT NULL,
			resource_id VARCHAR(255) NOT NULL,
			details JSONB,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)`,
	}

	for _, query := range queries {
		_, err := db.ExecContext(context.Background(), query)
		if err != nil {
			t.Logf("Warning: Failed to create table: %v", err)
		}
	}

	t.Log("Database tables created/verified")
}

func testAllWorkers(t *testing.T, cfg *config.Config, log *zap.Logger) {
	t.Log("Testing all onboarding workers with real services...")

	dbClient, err := database.NewPostgres(cfg.Database.Postgres)
	require.NoError(t, err)
	defer dbClient.Close()
	db := dbClient.DB

	rdbClient, err := database.NewRedis(cfg.Database.Redis)
	require.NoError(t, err)
	defer rdbClient.Close()
	rdb := rdbClient.Client

	testCases := []struct {
		name   string
		testFn func(*testing.T, *zap.Logger, *sql.DB, *redis.Client)
	}{
		{"analyze-responses", testAnalyzeResponses},
		{"generate-follow-up", testGenerateFollowUp},
		{"classify-cohort", testClassifyCohort},
		{"save-response", testSaveResponse},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			tc.testFn(t, log, db, rdb)
		})
	}
}

func testAnalyzeResponses(t *testing.T, log *zap.Logger, db *sql.DB, rdb *redis.Client) {
	handler := analyzeresponses.NewHandler(&analyzeresponses.Config{
		Timeout: 10 * time.Second,
	}, logger.NewZapAdapter(log))

	output, err := handler.Execute(context.Background(), map[string]interface{}{
		"sessionId": fmt.Sprintf("e2e-%d", time.Now().UnixNano()),
		"responses": map[string]interface{}{
			"birthDate":  "I was born in 1985",
			"background": "I grew up in Columbus",
		},
	})
	require.NoError(t, err)
	assert.False(t, output.NeedsFollowUp)
	assert.True(t, output.HasBirthTimeframe)
	assert.True(t, output.HasGeography)
}

func testGenerateFollowUp(t *testing.T, log *zap.Logger, db *sql.DB, rdb *redis.Client) {
	// No GenAI endpoint is assumed in the compose stack; the orchestrator
	// falls back to the question bank when generation is unreachable.
	genaiClient := genai.NewClient(&genai.Config{
		BaseURL:    "http://localhost:18080/generate",
		MaxRetries: 1,
		Timeout:    3 * time.Second,
	}, logger.NewZapAdapter(log))

	handler := generatefollowup.NewHandler(&generatefollowup.Config{
		Timeout:             30 * time.Second,
		StateTTL:            time.Hour,
		MaxAttempts:         4,
		SimilarityThreshold: 0.7,
	}, rdb, genaiClient, logger.NewZapAdapter(log))

	output, err := handler.Execute(context.Background(), &generatefollowup.Input{
		SessionID:         fmt.Sprintf("e2e-%d", time.Now().UnixNano()),
		NeedsFollowUp:     true,
		HasBirthTimeframe: true,
		HasGeography:      false,
	})
	require.NoError(t, err)
	assert.True(t, output.NeedsFollowUp)
	assert.NotEmpty(t, output.Question)
	assert.Equal(t, []string{"geography"}, output.MissingFields)
}

func testClassifyCohort(t *testing.T, log *zap.Logger, db *sql.DB, rdb *redis.Client) {
	handler := classifycohort.NewHandler(&classifycohort.Config{
		Timeout:  10 * time.Second,
		CacheTTL: time.Hour,
	}, db, rdb, logger.NewZapAdapter(log))

	year := 1985
	output, err := handler.Execute(context.Background(), &classifycohort.Input{
		SessionID: fmt.Sprintf("e2e-%d", time.Now().UnixNano()),
		Signals: models.ExtractedSignals{
			BirthYear: &year,
			Locations: []string{"Columbus"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, models.GenMillennial, output.Generation)
	assert.NotEmpty(t, output.ResultID)
}

func testSaveResponse(t *testing.T, log *zap.Logger, db *sql.DB, rdb *redis.Client) {
	handler := saveresponse.NewHandler(&saveresponse.Config{
		Timeout: 10 * time.Second,
	}, db, logger.NewZapAdapter(log))

	year := 1985
	output, err := handler.Execute(context.Background(), &saveresponse.Input{
		SessionID: fmt.Sprintf("e2e-%d", time.Now().UnixNano()),
		SlotID:    models.SlotBirthDate,
		Response:  "I was born in 1985 in Columbus",
		Signals: models.ExtractedSignals{
			BirthYear: &year,
			Locations: []string{"Columbus"},
		},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, output.ResponseID)
	assert.Equal(t, models.SlotBirthDate, output.SlotID)
}

func BenchmarkAnalyzeResponses(b *testing.B) {
	handler := analyzeresponses.NewHandler(&analyzeresponses.Config{
		Timeout: 10 * time.Second,
	}, logger.NewNoOpLogger())

	variables := map[string]interface{}{
		"sessionId": "bench-session",
		"responses": map[string]interface{}{
			"birthDate":  "I was born in 1985",
			"background": "I grew up in Columbus and spent summers in Denver",
			"influences": "Lots of grunge music and dial-up internet",
		},
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := handler.Execute(context.Background(), variables); err != nil {
			b.Fatal(err)
		}
	}
}
