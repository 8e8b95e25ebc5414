// Package marketdata downloads historical bars from a market data provider
// into a parquet or csv file that the DuckDB feed can replay.
package marketdata

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-router/pkg/errors"
)

// ProviderType names a market data source.
type ProviderType string

const (
	ProviderBinance ProviderType = "binance"
	ProviderPolygon ProviderType = "polygon"
)

// OnProgress is called after each batch of bars is written with the running total.
type OnProgress func(written int)

// Request selects the bars to download.
type Request struct {
	Symbol   string    `validate:"required"`
	Start    time.Time `validate:"required"`
	End      time.Time `validate:"required,gtfield=Start"`
	Interval Interval  `validate:"required"`
}

// Validate checks the request fields and the interval.
func (r Request) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidArgument, "invalid download request", err)
	}

	if _, err := ParseInterval(string(r.Interval)); err != nil {
		return err
	}

	return nil
}

// Provider streams bars for a request into a Writer.
type Provider interface {
	// Download writes every bar of req to w in time order and returns the count.
	Download(ctx context.Context, req Request, w Writer, onProgress OnProgress) (int, error)
}

// NewProvider creates the provider for providerType. Polygon requires apiKey.
func NewProvider(providerType ProviderType, apiKey string) (Provider, error) {
	switch providerType {
	case ProviderBinance:
		return NewBinanceProvider(), nil
	case ProviderPolygon:
		return NewPolygonProvider(apiKey)
	default:
		return nil, errors.Newf(errors.ErrCodeUnsupportedSource, "unsupported market data provider: %s", providerType)
	}
}

func reportProgress(onProgress OnProgress, written int) {
	if onProgress != nil {
		onProgress(written)
	}
}
