// Package httpcsv reads activity records from a CSV export served over HTTP.
package httpcsv

import (
	"bytes"
	"context"
	"fmt"

	"github.com/crimson-sun/worktally/internal/connector"
	"github.com/crimson-sun/worktally/internal/connector/csvfile"
	"github.com/crimson-sun/worktally/internal/connector/httpclient"
	"github.com/crimson-sun/worktally/internal/model"
)

func init() {
	connector.Register("http", func() connector.Connector { return &Connector{} })
}

// Connector fetches cfg.Path as a URL. cfg.Extra["token"], when set, is sent
// as a Bearer token.
type Connector struct{}

// Query downloads the export and parses it like a local CSV file.
func (c *Connector) Query(ctx context.Context, cfg connector.ConnectorConfig, params connector.QueryParams) ([]model.RawRecord, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("httpcsv: no URL configured")
	}
	body, err := httpclient.New(cfg.Extra["token"]).Get(ctx, cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("httpcsv: %w", err)
	}
	return csvfile.Read(ctx, bytes.NewReader(body), csvfile.Options{
		Encoding: cfg.Encoding,
		Columns:  cfg.Columns,
		Limit:    params.Limit,
	})
}
