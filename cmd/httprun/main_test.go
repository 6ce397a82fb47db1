package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blackcoderx/httprun/internal/config"
	"github.com/blackcoderx/httprun/internal/model"
	"github.com/blackcoderx/httprun/internal/report"
)

func TestInferDependenciesFindsResponseReference(t *testing.T) {
	first := &model.Request{RequestID: "createUser", Method: "POST", URL: "https://api.example.com/users", Headers: model.NewOrderedHeaders()}
	second := &model.Request{Method: "GET", URL: "https://api.example.com/users/{{createUser.response.body.id}}", Headers: model.NewOrderedHeaders()}

	deps := inferDependencies([]*model.Request{first, second})
	assert.Equal(t, []int{0}, deps[1])
	assert.Nil(t, deps[0])
}

func TestInferDependenciesIgnoresForwardReferences(t *testing.T) {
	// Request 0 references an id that only appears later; it must not
	// be treated as a dependency since it can never be satisfied.
	first := &model.Request{Method: "GET", URL: "https://api.example.com/x/{{later.response.body.id}}", Headers: model.NewOrderedHeaders()}
	second := &model.Request{RequestID: "later", Method: "POST", URL: "https://api.example.com/y", Headers: model.NewOrderedHeaders()}

	deps := inferDependencies([]*model.Request{first, second})
	assert.Nil(t, deps[0])
}

func TestInferDependenciesScansHeadersAndBody(t *testing.T) {
	first := &model.Request{RequestID: "login", Method: "POST", URL: "https://api.example.com/login", Headers: model.NewOrderedHeaders()}
	second := &model.Request{
		Method: "POST", URL: "https://api.example.com/act",
		Headers: model.NewOrderedHeaders(),
		Body:    &model.Body{Kind: model.BodyRaw, Raw: `{"token":"{{login.response.body.token}}"}`},
	}
	second.Headers.Set("Authorization", "Bearer {{login.response.body.token}}")

	deps := inferDependencies([]*model.Request{first, second})
	assert.Equal(t, []int{0}, deps[1])
}

func TestInferDependenciesFindsBareVariableCapture(t *testing.T) {
	// No # @name/.response reference at all: the dependency is implicit
	// in the @token = $.access_token VariableUpdate the first request
	// populates and the second references as a bare {{token}}.
	first := &model.Request{
		Method: "POST", URL: "https://api.example.com/login", Headers: model.NewOrderedHeaders(),
		Updates: []model.VariableUpdate{{Key: "token", Source: "$.access_token"}},
	}
	second := &model.Request{Method: "GET", URL: "https://api.example.com/me", Headers: model.NewOrderedHeaders()}
	second.Headers.Set("Authorization", "Bearer {{token}}")

	deps := inferDependencies([]*model.Request{first, second})
	assert.Equal(t, []int{0}, deps[1])
	assert.Nil(t, deps[0])
}

func TestAllPassedTrueWhenEveryResultPasses(t *testing.T) {
	results := []*model.RequestResult{
		{TestResults: []model.TestResult{{Passed: true}}},
		{Skipped: true},
	}
	assert.True(t, allPassed(results))
}

func TestAllPassedFalseWhenOneFails(t *testing.T) {
	results := []*model.RequestResult{
		{TestResults: []model.TestResult{{Passed: true}}},
		{TestResults: []model.TestResult{{Passed: false}}},
	}
	assert.False(t, allPassed(results))
}

func TestResolveTimeoutPrefersFlagOverConfig(t *testing.T) {
	old := timeoutMS
	defer func() { timeoutMS = old }()

	timeoutMS = 0
	cfg := &config.Config{}
	cfg.Timeouts.RequestMS = 15000
	assert.Equal(t, 15*time.Second, resolveTimeout(cfg))

	timeoutMS = 5000
	assert.Equal(t, 5*time.Second, resolveTimeout(cfg))
}

func TestWriteHTTPFileRendersNamedRequestsAndBodies(t *testing.T) {
	reqs := []*model.Request{
		{Name: "create user", Method: "POST", URL: "https://api.example.com/users", Headers: model.NewOrderedHeaders(), Body: &model.Body{Kind: model.BodyRaw, Raw: `{"name":"a"}`}},
	}
	reqs[0].Headers.Set("Content-Type", "application/json")

	path := filepath.Join(t.TempDir(), "out.http")
	require.NoError(t, writeHTTPFile(path, reqs))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, "### create user")
	assert.Contains(t, out, "POST https://api.example.com/users")
	assert.Contains(t, out, "Content-Type: application/json")
	assert.Contains(t, out, `{"name":"a"}`)
}

func TestWriteReportFileChoosesEncodingByExtension(t *testing.T) {
	rep := report.Build(nil, time.Now(), time.Now(), false)

	yamlPath := filepath.Join(t.TempDir(), "out.yaml")
	require.NoError(t, writeReportFile(rep, yamlPath))
	yamlData, err := os.ReadFile(yamlPath)
	require.NoError(t, err)
	assert.Contains(t, string(yamlData), "status: ok")

	jsonPath := filepath.Join(t.TempDir(), "out.json")
	require.NoError(t, writeReportFile(rep, jsonPath))
	jsonData, err := os.ReadFile(jsonPath)
	require.NoError(t, err)
	assert.Contains(t, string(jsonData), `"status": "ok"`)
}
