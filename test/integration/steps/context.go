// Package steps provides step definitions for BDD integration tests.
package steps

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/cucumber/godog"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/propertyledger/backend/config"
	"github.com/propertyledger/backend/internal/infra/db"
	"github.com/propertyledger/backend/internal/infra/dependency"
	"github.com/propertyledger/backend/internal/integration/persistence/model"
	"github.com/propertyledger/backend/test/integration/mock"
)

// settleTimeout bounds how long a scenario waits for queued maintenance.
const settleTimeout = 5 * time.Second

// TestContext holds the test state for each scenario.
type TestContext struct {
	// HTTP
	server       *httptest.Server
	response     *http.Response
	responseBody []byte

	// Request building
	requestHeaders map[string]string

	// Auth
	accessToken string
	users       map[string]uuid.UUID

	// Ledger state by scenario alias
	properties map[string]uuid.UUID
	entries    map[string]int64

	// Wiring
	cfg      *config.Config
	db       *mock.Db
	injector *dependency.Injector
}

// contextKey is used to store TestContext in context.Context.
type contextKey struct{}

// GetTestContext retrieves the TestContext from context.
func GetTestContext(ctx context.Context) *TestContext {
	if tc, ok := ctx.Value(contextKey{}).(*TestContext); ok {
		return tc
	}
	return nil
}

// SetTestContext stores the TestContext in context.
func SetTestContext(ctx context.Context, tc *TestContext) context.Context {
	return context.WithValue(ctx, contextKey{}, tc)
}

func models() map[string]any {
	return map[string]any{
		"properties":     &model.PropertyModel{},
		"ledger_entries": &model.LedgerEntryModel{},
		"rollup_records": &model.RollupRecordModel{},
	}
}

// InitializeTestSuite sets up resources before any scenarios run.
func InitializeTestSuite(ctx *godog.TestSuiteContext) {
	ctx.BeforeSuite(func() {
		gin.SetMode(gin.TestMode)
		mock.NewDb(models())
		mock.NewRedis()
	})

	ctx.AfterSuite(func() {
		mock.CloseRedis()
	})
}

// InitializeScenario registers all step definitions.
func InitializeScenario(ctx *godog.ScenarioContext) {
	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		database := mock.NewDb(models())
		if err := database.ClearDB(); err != nil {
			return ctx, fmt.Errorf("failed to clear database: %w", err)
		}
		redisClient := mock.NewRedis()
		if err := mock.ClearRedis(redisClient); err != nil {
			return ctx, fmt.Errorf("failed to clear redis: %w", err)
		}

		cfg := config.Load()
		cfg.Server.Environment = "test"
		cfg.JWT.Secret = "integration-secret"
		cfg.Maintenance.LockBackend = config.LockBackendRedis
		cfg.Events.Transport = config.TransportInProcess
		cfg.Reconciliation.Interval = 0

		inj, err := dependency.NewInjector(cfg, db.NewDatabase(database.DbConn), db.NewRedis(redisClient))
		if err != nil {
			return ctx, fmt.Errorf("failed to wire dependencies: %w", err)
		}

		tc := &TestContext{
			server:         httptest.NewServer(inj.Router.Setup(cfg.Server.Environment)),
			requestHeaders: make(map[string]string),
			users:          make(map[string]uuid.UUID),
			properties:     make(map[string]uuid.UUID),
			entries:        make(map[string]int64),
			cfg:            cfg,
			db:             database,
			injector:       inj,
		}

		return SetTestContext(ctx, tc), nil
	})

	ctx.After(func(ctx context.Context, sc *godog.Scenario, err error) (context.Context, error) {
		tc := GetTestContext(ctx)
		if tc == nil {
			return ctx, nil
		}
		if tc.server != nil {
			tc.server.Close()
		}
		closeCtx, cancel := context.WithTimeout(context.Background(), settleTimeout)
		defer cancel()
		if closeErr := tc.injector.Close(closeCtx); closeErr != nil {
			return ctx, fmt.Errorf("failed to close dependencies: %w", closeErr)
		}
		return ctx, nil
	})

	registerAPISteps(ctx)
	registerResponseSteps(ctx)
	registerLedgerSteps(ctx)
}

// registerAPISteps registers HTTP request steps.
func registerAPISteps(ctx *godog.ScenarioContext) {
	ctx.Step(`^I send a "([^"]*)" request to "([^"]*)"$`, iSendARequestTo)
	ctx.Step(`^I send a "([^"]*)" request to "([^"]*)" with body:$`, iSendARequestToWithBody)
	ctx.Step(`^I set header "([^"]*)" to "([^"]*)"$`, iSetHeaderTo)
	ctx.Step(`^I am authenticated as "([^"]*)"$`, iAmAuthenticatedAs)
}

// registerResponseSteps registers response assertion steps.
func registerResponseSteps(ctx *godog.ScenarioContext) {
	ctx.Step(`^the response status should be (\d+)$`, theResponseStatusShouldBe)
	ctx.Step(`^the response should be JSON$`, theResponseShouldBeJSON)
	ctx.Step(`^the response should contain "([^"]*)"$`, theResponseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should be "([^"]*)"$`, theResponseFieldShouldBe)
	ctx.Step(`^the response field "([^"]*)" should exist$`, theResponseFieldShouldExist)
}

// expand replaces {property:Name} and {entry:alias} placeholders in endpoint.
func (tc *TestContext) expand(endpoint string) string {
	for name, id := range tc.properties {
		endpoint = strings.ReplaceAll(endpoint, "{property:"+name+"}", id.String())
	}
	for alias, id := range tc.entries {
		endpoint = strings.ReplaceAll(endpoint, "{entry:"+alias+"}", fmt.Sprintf("%d", id))
	}
	return endpoint
}

// do sends a request to the test server and records the response.
func (tc *TestContext) do(method, endpoint string, body io.Reader) error {
	req, err := http.NewRequest(method, tc.server.URL+tc.expand(endpoint), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for key, value := range tc.requestHeaders {
		req.Header.Set(key, value)
	}
	if tc.accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+tc.accessToken)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}

	tc.response = resp
	tc.responseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// doJSON marshals payload and sends it.
func (tc *TestContext) doJSON(method, endpoint string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}
	return tc.do(method, endpoint, bytes.NewReader(raw))
}

func (tc *TestContext) responseJSON() (map[string]any, error) {
	var data map[string]any
	if err := json.Unmarshal(tc.responseBody, &data); err != nil {
		return nil, fmt.Errorf("failed to parse response JSON: %w", err)
	}
	return data, nil
}

func (tc *TestContext) expectStatus(expected int) error {
	if tc.response == nil {
		return fmt.Errorf("no response received")
	}
	if tc.response.StatusCode != expected {
		return fmt.Errorf("expected status %d, got %d. Body: %s", expected, tc.response.StatusCode, string(tc.responseBody))
	}
	return nil
}

func iSendARequestTo(ctx context.Context, method, endpoint string) (context.Context, error) {
	tc := GetTestContext(ctx)
	if tc == nil {
		return ctx, fmt.Errorf("test context not found")
	}
	return ctx, tc.do(method, endpoint, nil)
}

func iSendARequestToWithBody(ctx context.Context, method, endpoint string, body *godog.DocString) (context.Context, error) {
	tc := GetTestContext(ctx)
	if tc == nil {
		return ctx, fmt.Errorf("test context not found")
	}
	return ctx, tc.do(method, endpoint, strings.NewReader(tc.expand(body.Content)))
}

func iSetHeaderTo(ctx context.Context, header, value string) (context.Context, error) {
	tc := GetTestContext(ctx)
	if tc == nil {
		return ctx, fmt.Errorf("test context not found")
	}
	tc.requestHeaders[header] = value
	return ctx, nil
}

// iAmAuthenticatedAs signs a token for email, creating a stable user ID per email.
func iAmAuthenticatedAs(ctx context.Context, email string) (context.Context, error) {
	tc := GetTestContext(ctx)
	if tc == nil {
		return ctx, fmt.Errorf("test context not found")
	}
	token, err := tc.injector.TokenService().GenerateAccessToken(tc.userID(email), email, time.Hour)
	if err != nil {
		return ctx, fmt.Errorf("failed to sign token: %w", err)
	}
	tc.accessToken = token
	return ctx, nil
}

func (tc *TestContext) userID(email string) uuid.UUID {
	id, ok := tc.users[email]
	if !ok {
		id = uuid.New()
		tc.users[email] = id
	}
	return id
}

func theResponseStatusShouldBe(ctx context.Context, expectedStatus int) error {
	tc := GetTestContext(ctx)
	if tc == nil {
		return fmt.Errorf("test context not found")
	}
	return tc.expectStatus(expectedStatus)
}

func theResponseShouldBeJSON(ctx context.Context) error {
	tc := GetTestContext(ctx)
	if tc == nil {
		return fmt.Errorf("test context not found")
	}
	var js json.RawMessage
	if err := json.Unmarshal(tc.responseBody, &js); err != nil {
		return fmt.Errorf("response is not valid JSON: %w", err)
	}
	return nil
}

func theResponseShouldContain(ctx context.Context, expected string) error {
	tc := GetTestContext(ctx)
	if tc == nil {
		return fmt.Errorf("test context not found")
	}
	if !strings.Contains(string(tc.responseBody), expected) {
		return fmt.Errorf("response does not contain '%s'. Body: %s", expected, string(tc.responseBody))
	}
	return nil
}

func theResponseFieldShouldBe(ctx context.Context, field, expected string) error {
	tc := GetTestContext(ctx)
	if tc == nil {
		return fmt.Errorf("test context not found")
	}

	data, err := tc.responseJSON()
	if err != nil {
		return err
	}

	value, ok := data[field]
	if !ok {
		return fmt.Errorf("field '%s' not found in response", field)
	}

	actual := fmt.Sprintf("%v", value)
	if actual != expected {
		return fmt.Errorf("field '%s' expected '%s', got '%s'", field, expected, actual)
	}
	return nil
}

func theResponseFieldShouldExist(ctx context.Context, field string) error {
	tc := GetTestContext(ctx)
	if tc == nil {
		return fmt.Errorf("test context not found")
	}

	data, err := tc.responseJSON()
	if err != nil {
		return err
	}
	if _, ok := data[field]; !ok {
		return fmt.Errorf("field '%s' not found in response", field)
	}
	return nil
}
