package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"babyprep/backend/internal/auth"
	"babyprep/backend/internal/config"
	"babyprep/backend/internal/db"
	"babyprep/backend/internal/logger"
)

var (
	testPool              *pgxpool.Pool
	baseTestConfig        config.Config
	integrationDBReady    bool
	integrationSkipReason string
)

// testNow is the fixed clock used by integration routers.
var testNow = time.Date(2026, time.March, 10, 3, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	baseTestConfig = newTestConfig()

	testDatabaseURL := strings.TrimSpace(os.Getenv("TEST_DATABASE_URL"))
	if testDatabaseURL == "" {
		integrationSkipReason = "integration tests skipped: TEST_DATABASE_URL is not set"
		fmt.Fprintln(os.Stderr, integrationSkipReason)
		os.Exit(m.Run())
	}
	testDatabaseURL = withSimpleProtocol(testDatabaseURL)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	pool, err := db.Connect(ctx, testDatabaseURL, "UTC")
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "integration test setup failed: cannot connect TEST_DATABASE_URL: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel = context.WithTimeout(context.Background(), 5*time.Second)
	err = pool.Ping(ctx)
	cancel()
	if err != nil {
		pool.Close()
		fmt.Fprintf(os.Stderr, "integration test setup failed: database ping failed: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel = context.WithTimeout(context.Background(), 15*time.Second)
	err = db.EnsureSchema(ctx, pool)
	if err == nil {
		err = ValidateRuntimeSchema(ctx, pool)
	}
	cancel()
	if err != nil {
		pool.Close()
		fmt.Fprintf(os.Stderr, "integration test setup failed: %v\n", err)
		os.Exit(1)
	}

	testPool = pool
	integrationDBReady = true

	exitCode := m.Run()
	testPool.Close()
	os.Exit(exitCode)
}

func withSimpleProtocol(rawURL string) string {
	parsed, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return rawURL
	}
	queries := parsed.Query()
	queries.Set("default_query_exec_mode", "simple_protocol")
	parsed.RawQuery = queries.Encode()
	return parsed.String()
}

func newTestConfig() config.Config {
	cfg := config.Config{
		AppEnv:        "test",
		AppName:       "BabyPrep API Test",
		APIPrefix:     "/api/v1",
		AppPort:       "0",
		DatabaseURL:   "test",
		DBTimezone:    "UTC",
		JWTSecret:     "test-secret-1234567890",
		JWTAlgorithm:  "HS256",
		JWTAudience:   "",
		JWTIssuer:     "babyprep-test",
		TokenTTLHours: 1,
		CORSAllowOrigins: []string{
			"http://localhost:5173",
			"http://127.0.0.1:5173",
			"http://localhost:3000",
		},
		OpenAIModel:       "gpt-4o-mini",
		AIMaxOutputTokens: 200,
		AITimeoutSeconds:  2,
		LogLevel:          "error",
		LogFormat:         "text",
	}

	if v := strings.TrimSpace(os.Getenv("TEST_JWT_SECRET")); v != "" {
		cfg.JWTSecret = v
	}
	return cfg
}

// stubGoogle and stubKakao stand in for the social providers.
type stubGoogle struct {
	identity auth.SocialIdentity
	err      error
}

func (s stubGoogle) Verify(context.Context, string, bool) (auth.SocialIdentity, error) {
	return s.identity, s.err
}

type stubKakao struct {
	identity auth.SocialIdentity
	err      error
}

func (s stubKakao) Verify(context.Context, string) (auth.SocialIdentity, error) {
	return s.identity, s.err
}

func testOptions(extra ...Option) []Option {
	opts := []Option{
		WithLogger(logger.Discard()),
		WithAIClient(nil),
		WithGoogleVerifier(stubGoogle{err: auth.ErrProviderNotConfigured}),
		WithKakaoVerifier(stubKakao{err: auth.ErrProviderNotConfigured}),
		WithClock(func() time.Time { return testNow }),
	}
	return append(opts, extra...)
}

// newUnitRouter serves routes that never reach the database.
func newUnitRouter(t *testing.T, extra ...Option) *gin.Engine {
	t.Helper()
	return New(baseTestConfig, nil, testOptions(extra...)...).Router()
}

func requireIntegration(t *testing.T) {
	t.Helper()
	if !integrationDBReady {
		if integrationSkipReason == "" {
			integrationSkipReason = "integration tests skipped: TEST_DATABASE_URL is not configured"
		}
		t.Skip(integrationSkipReason)
	}
}

func newTestRouter(t *testing.T, extra ...Option) *gin.Engine {
	t.Helper()
	requireIntegration(t)
	return New(baseTestConfig, testPool, testOptions(extra...)...).Router()
}

func resetDatabase(t *testing.T) {
	t.Helper()
	requireIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := testPool.Exec(
		ctx,
		`TRUNCATE TABLE
			"Notification",
			"CalendarEvent",
			"UserSupplement",
			"CustomSupplement",
			"SupplementNutrient",
			"Supplement",
			"Nutrient",
			"UserSetting",
			"DoctorsNote",
			"Tip",
			"PeriodInfo",
			"PregnancyInfo",
			"UserProfile",
			"User"
		RESTART IDENTITY CASCADE`,
	)
	if err != nil {
		t.Fatalf("reset database: %v", err)
	}
}

func seedUser(t *testing.T, userID string) string {
	t.Helper()
	requireIntegration(t)
	if strings.TrimSpace(userID) == "" {
		userID = testID()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	email := "user-" + userID[:8] + "@example.com"
	_, err := testPool.Exec(
		ctx,
		`INSERT INTO "User" (id, email, provider, nickname, "isPregnant", "createdAt", "updatedAt")
		 VALUES ($1, $2, 'local', $3, TRUE, NOW(), NOW())`,
		userID,
		email,
		"user-"+userID[:8],
	)
	if err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return userID
}

func seedProfile(t *testing.T, userID string, height, preWeight, currentWeight float64) {
	t.Helper()
	requireIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := testPool.Exec(
		ctx,
		`INSERT INTO "UserProfile" ("userId", height, "initialWeight", "currentWeight", "updatedAt")
		 VALUES ($1, $2, $3, $4, NOW())`,
		userID,
		height,
		preWeight,
		currentWeight,
	)
	if err != nil {
		t.Fatalf("seed profile: %v", err)
	}
}

func seedPregnancy(t *testing.T, userID string, start, due time.Time) {
	t.Helper()
	requireIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := upsertPregnancyInfo(ctx, testPool, userID, &start, &due); err != nil {
		t.Fatalf("seed pregnancy: %v", err)
	}
}

func seedTodo(t *testing.T, userID, text string, date time.Time) string {
	t.Helper()
	requireIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	todoID := testID()
	_, err := testPool.Exec(
		ctx,
		`INSERT INTO "CalendarEvent" (id, "userId", type, title, "eventDate", completed, "createdAt", "updatedAt")
		 VALUES ($1, $2, 'todo', $3, $4, FALSE, NOW(), NOW())`,
		todoID,
		userID,
		text,
		date,
	)
	if err != nil {
		t.Fatalf("seed todo: %v", err)
	}
	return todoID
}

func countRows(t *testing.T, query string, args ...any) int {
	t.Helper()
	requireIntegration(t)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int
	if err := testPool.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return count
}

func signToken(t *testing.T, sub string, overrides map[string]any) string {
	t.Helper()
	return signTokenWithConfig(t, baseTestConfig, sub, overrides)
}

func signTokenWithConfig(t *testing.T, cfg config.Config, sub string, overrides map[string]any) string {
	t.Helper()

	claims := jwt.MapClaims{
		"exp": time.Now().UTC().Add(1 * time.Hour).Unix(),
		"iat": time.Now().UTC().Add(-1 * time.Minute).Unix(),
	}
	if strings.TrimSpace(sub) != "" {
		claims["sub"] = sub
	}
	if strings.TrimSpace(cfg.JWTAudience) != "" {
		claims["aud"] = cfg.JWTAudience
	}
	if strings.TrimSpace(cfg.JWTIssuer) != "" {
		claims["iss"] = cfg.JWTIssuer
	}
	for key, value := range overrides {
		if value == nil {
			delete(claims, key)
			continue
		}
		claims[key] = value
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func performRequest(
	t *testing.T,
	router http.Handler,
	method, targetPath, token string,
	body any,
	headers map[string]string,
) *httptest.ResponseRecorder {
	t.Helper()

	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, targetPath, bytes.NewReader(payload))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if strings.TrimSpace(token) != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for key, value := range headers {
		req.Header.Set(key, value)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeJSONMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response JSON: %v; body=%s", err, rec.Body.String())
	}
	return payload
}

func decodeJSONList(t *testing.T, rec *httptest.ResponseRecorder) []map[string]any {
	t.Helper()
	var payload []map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode response JSON list: %v; body=%s", err, rec.Body.String())
	}
	return payload
}

func decodeStringList(t *testing.T, raw any) []string {
	t.Helper()
	values, ok := raw.([]any)
	if !ok {
		t.Fatalf("expected []any, got %T", raw)
	}
	result := make([]string, 0, len(values))
	for _, item := range values {
		s, ok := item.(string)
		if !ok {
			t.Fatalf("expected string list item, got %T", item)
		}
		result = append(result, s)
	}
	return result
}

func responseDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	body := decodeJSONMap(t, rec)
	detail, _ := body["detail"].(string)
	return detail
}

func testID() string {
	return uuid.NewString()
}
