package marketdata

import (
	"context"
	"time"

	polygon "github.com/polygon-io/client-go/rest"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-router/internal/types"
	"github.com/rxtech-lab/argo-router/pkg/errors"
)

// polygonPageLimit is the maximum aggregates per page.
const polygonPageLimit = 50000

// polygonProgressEvery controls how often progress is reported while iterating.
const polygonProgressEvery = 1000

// PolygonAggsIterator walks the pages of an aggregates query.
type PolygonAggsIterator interface {
	Next() bool
	Item() models.Agg
	Err() error
}

// PolygonAPIClient lists aggregates.
type PolygonAPIClient interface {
	ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator
}

type polygonAPIAdapter struct {
	client *polygon.Client
}

func (a polygonAPIAdapter) ListAggs(ctx context.Context, params *models.ListAggsParams, options ...models.RequestOption) PolygonAggsIterator {
	return a.client.ListAggs(ctx, params, options...)
}

// PolygonProvider downloads aggregates from Polygon.io.
type PolygonProvider struct {
	api PolygonAPIClient
}

func NewPolygonProvider(apiKey string) (*PolygonProvider, error) {
	if apiKey == "" {
		return nil, errors.New(errors.ErrCodeMissingCredentials, "polygon api key is required")
	}

	return NewPolygonProviderWithAPI(polygonAPIAdapter{client: polygon.New(apiKey)}), nil
}

func NewPolygonProviderWithAPI(api PolygonAPIClient) *PolygonProvider {
	return &PolygonProvider{api: api}
}

func (p *PolygonProvider) Download(ctx context.Context, req Request, w Writer, onProgress OnProgress) (int, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	multiplier, timespan := req.Interval.Polygon()

	//nolint:exhaustruct // third-party struct with many optional fields
	params := models.ListAggsParams{
		Ticker:     req.Symbol,
		Multiplier: multiplier,
		Timespan:   timespan,
		From:       models.Millis(req.Start),
		To:         models.Millis(req.End),
	}.WithLimit(polygonPageLimit)

	it := p.api.ListAggs(ctx, params)
	written := 0

	for it.Next() {
		agg := it.Item()

		bar := types.Bar{
			Time:   time.Time(agg.Timestamp).UTC(),
			Symbol: req.Symbol,
			Open:   agg.Open,
			High:   agg.High,
			Low:    agg.Low,
			Close:  agg.Close,
			Volume: agg.Volume,
		}

		if err := w.Write(bar); err != nil {
			return written, err
		}

		written++
		if written%polygonProgressEvery == 0 {
			reportProgress(onProgress, written)
		}
	}

	if err := it.Err(); err != nil {
		return written, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to list %s aggregates", req.Symbol)
	}

	reportProgress(onProgress, written)

	return written, nil
}

var _ Provider = (*PolygonProvider)(nil)
