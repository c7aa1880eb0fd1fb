package main

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/swift-ingestion/config"
	"github.com/target/swift-ingestion/internal/connector"
	"github.com/target/swift-ingestion/internal/domain/model"
	"github.com/target/swift-ingestion/internal/service"
)

func TestBuildCreateRequest(t *testing.T) {
	req, err := buildCreateRequest(submitOptions{
		Source: "News_API",
		Params: `{"query":"Acme Ltd"}`,
		CaseID: "7d9f2c1e-4b3a-4f5e-9c8d-1a2b3c4d5e6f",
	})
	require.NoError(t, err)
	assert.Equal(t, model.SourceTypeNewsAPI, req.SourceType)
	assert.JSONEq(t, `{"query":"Acme Ltd"}`, string(req.Parameters))
	require.NotNil(t, req.CaseID)

	req, err = buildCreateRequest(submitOptions{Source: "opencorporates"})
	require.NoError(t, err)
	assert.JSONEq(t, `{}`, string(req.Parameters))
	assert.Nil(t, req.CaseID)

	_, err = buildCreateRequest(submitOptions{Source: "ftp"})
	require.Error(t, err)

	_, err = buildCreateRequest(submitOptions{Source: "news_api", Params: `["a"]`})
	require.Error(t, err)
}

func TestListJobsOptions(t *testing.T) {
	opts, err := listJobsOptions{Status: "failed", Source: "osint_search", Limit: 10, Offset: 5}.toListOptions()
	require.NoError(t, err)
	assert.Equal(t, model.JobStatusFailed, *opts.Status)
	assert.Equal(t, model.SourceTypeOSINTSearch, *opts.SourceType)
	assert.Equal(t, 10, opts.Limit)
	assert.Equal(t, 5, opts.Offset)

	_, err = listJobsOptions{Status: "done", Limit: 10}.toListOptions()
	require.Error(t, err)
	_, err = listJobsOptions{Limit: 0}.toListOptions()
	require.Error(t, err)
}

func TestPrintJobsTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printJobsTable(&buf, []*model.Job{{
		ID:              "job-1",
		SourceType:      model.SourceTypeNewsAPI,
		Status:          model.JobStatusPartial,
		TotalItems:      3,
		SuccessfulItems: 2,
		FailedItems:     1,
		CreatedAt:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}}))
	out := buf.String()
	assert.Contains(t, out, "STATUS")
	assert.Contains(t, out, "job-1")
	assert.Contains(t, out, "partial")
	assert.Contains(t, out, "2024-03-01T12:00:00Z")
}

func TestPrintSourcesTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printSourcesTable(&buf, []service.SourceInfo{
		{SourceType: model.SourceTypeNewsAPI, Descriptor: connector.Descriptor{Name: "News"}},
		{
			SourceType: model.SourceTypeOpenCorporates,
			Descriptor: connector.Descriptor{Name: "OpenCorporates"},
			Health:     &service.SourceHealth{Healthy: false, Reason: "401"},
		},
	}))
	assert.Contains(t, buf.String(), "unhealthy: 401")
}

func TestPrintOutcome(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, printOutcome(&buf, service.Outcome{JobID: "j", Skipped: true}))
	assert.Contains(t, buf.String(), "skipped")

	buf.Reset()
	require.NoError(t, printOutcome(&buf, service.Outcome{
		JobID:  "j",
		Status: model.JobStatusFailed,
		Counts: model.JobCounts{Total: 1, Failed: 1},
		Err:    errors.New("upstream 500"),
	}))
	assert.Contains(t, buf.String(), "job j failed: 1 items, 0 stored, 1 failed")
	assert.Contains(t, buf.String(), "upstream 500")
}

func TestHasRedisConfig(t *testing.T) {
	assert.False(t, hasRedisConfig(nil))
	assert.True(t, hasRedisConfig(&config.RedisConfig{URI: "localhost:6379"}))
	assert.False(t, hasRedisConfig(&config.RedisConfig{}))
	assert.True(t, hasRedisConfig(&config.RedisConfig{UseCluster: true, ClusterNodes: []string{"a:1"}}))
	assert.False(t, hasRedisConfig(&config.RedisConfig{UseSentinel: true}))
}

func TestCommandTree(t *testing.T) {
	for _, path := range [][]string{
		{"migrate", "status"},
		{"submit"},
		{"execute"},
		{"jobs", "list"},
		{"jobs", "stats"},
		{"evidence", "verify"},
		{"evidence", "dedupe"},
		{"connectors", "import"},
		{"sources"},
	} {
		cmd, _, err := rootCmd.Find(path)
		require.NoError(t, err, path)
		assert.Equal(t, path[len(path)-1], cmd.Name())
	}
}
