package data

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/swift-ingestion/internal/domain/model"
)

var connectorConfigRowColumns = []string{
	"id", "name", "source_type", "enabled", "rate_limit_per_minute", "timeout_seconds", "retry_attempts",
	"config", "created_at", "updated_at",
}

func TestConnectorConfigRepo_GetBySourceType(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConnectorConfigRepo(db, RepoConfig{})

	mock.ExpectQuery(regexp.QuoteMeta("FROM connector_configs WHERE source_type = $1")).
		WithArgs("news_api").
		WillReturnRows(sqlmock.NewRows(connectorConfigRowColumns).AddRow(
			"cfg-1", "news", "news_api", true, int64(6), 45, 3, []byte(`{"base_url":"http://proxy"}`), fixedNow, fixedNow,
		))

	cc, err := repo.GetBySourceType(context.Background(), model.SourceTypeNewsAPI)
	require.NoError(t, err)
	require.NotNil(t, cc.RateLimitPerMinute)
	assert.Equal(t, 6, *cc.RateLimitPerMinute)
	assert.Equal(t, 45, cc.TimeoutSeconds)
	assert.JSONEq(t, `{"base_url":"http://proxy"}`, string(cc.Settings))

	mock.ExpectQuery("FROM connector_configs").WillReturnError(sql.ErrNoRows)
	_, err = repo.GetBySourceType(context.Background(), model.SourceTypeOSINTSearch)
	assert.ErrorIs(t, err, ErrConnectorConfigNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectorConfigRepo_Upsert(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConnectorConfigRepo(db, RepoConfig{TimeProvider: NewFixedTimeProvider(fixedNow)})
	disabled := false

	mock.ExpectQuery(regexp.QuoteMeta("ON CONFLICT (source_type) DO UPDATE")).
		WithArgs(sqlmock.AnyArg(), "osint_search", "osint_search", false, nil, 60, 2, `{"actor_id":"abc"}`, fixedNow).
		WillReturnRows(sqlmock.NewRows(connectorConfigRowColumns).AddRow(
			"cfg-2", "osint_search", "osint_search", false, nil, 60, 2, []byte(`{"actor_id":"abc"}`), fixedNow, fixedNow,
		))

	cc, err := repo.Upsert(context.Background(), &model.UpsertConnectorConfigRequest{
		SourceType:     model.SourceTypeOSINTSearch,
		Enabled:        &disabled,
		TimeoutSeconds: 60,
		RetryAttempts:  2,
		Settings:       map[string]any{"actor_id": "abc"},
	})
	require.NoError(t, err)
	assert.False(t, cc.Enabled)
	assert.Nil(t, cc.RateLimitPerMinute)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectorConfigRepo_Upsert_Validates(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConnectorConfigRepo(db, RepoConfig{})
	zero := 0
	_, err := repo.Upsert(context.Background(), &model.UpsertConnectorConfigRequest{
		SourceType:         model.SourceTypeNewsAPI,
		RateLimitPerMinute: &zero,
	})
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConnectorConfigRepo_List(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewConnectorConfigRepo(db, RepoConfig{})

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY source_type")).
		WillReturnRows(sqlmock.NewRows(connectorConfigRowColumns).
			AddRow("a", "news_api", "news_api", true, nil, 30, 3, nil, fixedNow, fixedNow).
			AddRow("b", "opencorporates", "opencorporates", true, int64(30), 30, 3, []byte(`{}`), fixedNow, fixedNow))

	out, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.JSONEq(t, `{}`, string(out[0].Settings))
	require.NoError(t, mock.ExpectationsWereMet())
}
