// Package builtin wires the bundled source connectors into a registry.
package builtin

import (
	"github.com/target/swift-ingestion/internal/connector"
	"github.com/target/swift-ingestion/internal/connector/newsapi"
	"github.com/target/swift-ingestion/internal/connector/opencorporates"
	"github.com/target/swift-ingestion/internal/connector/osint"
	"github.com/target/swift-ingestion/internal/domain/model"
)

// Register adds every bundled connector to r.
func Register(r *connector.Registry) {
	r.Register(model.SourceTypeOpenCorporates, opencorporates.Descriptor, opencorporates.New)
	r.Register(model.SourceTypeNewsAPI, newsapi.Descriptor, newsapi.New)
	r.Register(model.SourceTypeOSINTSearch, osint.Descriptor, osint.New)
}

// NewRegistry returns a registry holding the bundled connectors.
func NewRegistry() *connector.Registry {
	r := connector.NewRegistry()
	Register(r)
	return r
}
