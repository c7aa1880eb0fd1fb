package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSourceType_UnmarshalText(t *testing.T) {
	var st SourceType
	require.NoError(t, st.UnmarshalText([]byte(" NEWS_API ")))
	assert.Equal(t, SourceTypeNewsAPI, st)

	err := st.UnmarshalText([]byte("gopher"))
	require.Error(t, err)
	assert.Equal(t, SourceTypeNewsAPI, st, "value must be untouched on error")
}

func TestJobStatus_Terminal(t *testing.T) {
	tests := []struct {
		status   JobStatus
		terminal bool
	}{
		{JobStatusPending, false},
		{JobStatusRunning, false},
		{JobStatusSuccess, true},
		{JobStatusFailed, true},
		{JobStatusPartial, true},
		{JobStatusCancelled, true},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.True(t, tt.status.Valid())
			assert.Equal(t, tt.terminal, tt.status.Terminal())
		})
	}
	assert.False(t, JobStatus("completed").Valid())
}

func TestCreateJobRequest_Validate(t *testing.T) {
	caseID := "550e8400-e29b-41d4-a716-446655440000"
	badCase := "not-a-uuid"

	tests := []struct {
		name    string
		req     CreateJobRequest
		wantErr string
	}{
		{
			name: "valid",
			req: CreateJobRequest{
				SourceType: SourceTypeNewsAPI,
				Parameters: json.RawMessage(`{"query":"acme"}`),
				CaseID:     &caseID,
			},
		},
		{
			name:    "unknown source",
			req:     CreateJobRequest{SourceType: "gopher", Parameters: json.RawMessage(`{}`)},
			wantErr: "invalid source type",
		},
		{
			name:    "missing parameters",
			req:     CreateJobRequest{SourceType: SourceTypeOpenCorporates},
			wantErr: "parameters are required",
		},
		{
			name:    "array parameters",
			req:     CreateJobRequest{SourceType: SourceTypeOpenCorporates, Parameters: json.RawMessage(`[1]`)},
			wantErr: "parameters must be a JSON object",
		},
		{
			name: "bad metadata",
			req: CreateJobRequest{
				SourceType: SourceTypeOpenCorporates,
				Parameters: json.RawMessage(`{}`),
				Metadata:   json.RawMessage(`"x"`),
			},
			wantErr: "metadata must be a JSON object",
		},
		{
			name: "bad case id",
			req: CreateJobRequest{
				SourceType: SourceTypeOpenCorporates,
				Parameters: json.RawMessage(`{}`),
				CaseID:     &badCase,
			},
			wantErr: "case id must be a valid UUID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestJob_ParameterMap(t *testing.T) {
	job := &Job{Parameters: json.RawMessage(`{"query":"acme","max_articles":5}`)}
	params, err := job.ParameterMap()
	require.NoError(t, err)
	assert.Equal(t, "acme", params["query"])
	assert.InDelta(t, 5, params["max_articles"], 0)

	empty, err := (&Job{}).ParameterMap()
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDuration(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(90 * time.Second)

	d := Duration(&start, &end)
	require.NotNil(t, d)
	assert.InDelta(t, 90.0, *d, 0.0001)

	assert.Nil(t, Duration(&start, nil))
	assert.Nil(t, Duration(nil, &end))
}

func TestJobCounts_Balanced(t *testing.T) {
	assert.True(t, JobCounts{Total: 3, Successful: 2, Failed: 1}.Balanced())
	assert.False(t, JobCounts{Total: 3, Successful: 2}.Balanced())
}

func TestValidateJobID(t *testing.T) {
	assert.NoError(t, ValidateJobID("550e8400-e29b-41d4-a716-446655440000"))
	assert.ErrorIs(t, ValidateJobID("42"), ErrInvalidJobID)
}
