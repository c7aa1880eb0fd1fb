package builtin

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/target/swift-ingestion/internal/connector"
	"github.com/target/swift-ingestion/internal/domain/model"
)

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, []model.SourceType{
		model.SourceTypeNewsAPI,
		model.SourceTypeOpenCorporates,
		model.SourceTypeOSINTSearch,
	}, r.Available())

	for _, st := range []model.SourceType{model.SourceTypeRSSFeed, model.SourceTypeWebScraper, model.SourceTypeManualUpload} {
		_, err := r.New(st, connector.Config{})
		assert.True(t, connector.IsUnknownSource(err), st)
	}

	_, err := r.New(model.SourceTypeNewsAPI, connector.Config{})
	assert.True(t, connector.IsConfigurationError(err))

	conn, err := r.New(model.SourceTypeOpenCorporates, connector.Config{APIKey: "k"})
	require.NoError(t, err)
	assert.NoError(t, conn.Close())

	d, ok := r.Describe(model.SourceTypeNewsAPI)
	require.True(t, ok)
	assert.Equal(t, 6, d.DefaultRateLimit)
}
