package marketdata

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/rxtech-lab/argo-router/internal/types"
	"github.com/rxtech-lab/argo-router/pkg/errors"
)

// binanceKlinesPageSize is the largest page the klines endpoint returns.
const binanceKlinesPageSize = 1000

// BinanceKlinesService is the part of the go-binance klines builder the
// provider uses.
type BinanceKlinesService interface {
	Symbol(symbol string) BinanceKlinesService
	Interval(interval string) BinanceKlinesService
	StartTime(startTime int64) BinanceKlinesService
	EndTime(endTime int64) BinanceKlinesService
	Limit(limit int) BinanceKlinesService
	Do(ctx context.Context) ([]*binance.Kline, error)
}

// BinanceAPIClient creates klines requests.
type BinanceAPIClient interface {
	NewKlinesService() BinanceKlinesService
}

type binanceAPIAdapter struct {
	client *binance.Client
}

func (a binanceAPIAdapter) NewKlinesService() BinanceKlinesService {
	return &binanceKlinesAdapter{service: a.client.NewKlinesService()}
}

type binanceKlinesAdapter struct {
	service *binance.KlinesService
}

func (s *binanceKlinesAdapter) Symbol(symbol string) BinanceKlinesService {
	s.service = s.service.Symbol(symbol)

	return s
}

func (s *binanceKlinesAdapter) Interval(interval string) BinanceKlinesService {
	s.service = s.service.Interval(interval)

	return s
}

func (s *binanceKlinesAdapter) StartTime(startTime int64) BinanceKlinesService {
	s.service = s.service.StartTime(startTime)

	return s
}

func (s *binanceKlinesAdapter) EndTime(endTime int64) BinanceKlinesService {
	s.service = s.service.EndTime(endTime)

	return s
}

func (s *binanceKlinesAdapter) Limit(limit int) BinanceKlinesService {
	s.service = s.service.Limit(limit)

	return s
}

func (s *binanceKlinesAdapter) Do(ctx context.Context) ([]*binance.Kline, error) {
	return s.service.Do(ctx)
}

// BinanceProvider downloads spot klines. The public endpoint needs no keys.
type BinanceProvider struct {
	api BinanceAPIClient
}

func NewBinanceProvider() *BinanceProvider {
	return NewBinanceProviderWithAPI(binanceAPIAdapter{client: binance.NewClient("", "")})
}

func NewBinanceProviderWithAPI(api BinanceAPIClient) *BinanceProvider {
	return &BinanceProvider{api: api}
}

// Download pages through the klines endpoint from req.Start, continuing after
// the close time of the last kline until a short page or req.End is reached.
func (p *BinanceProvider) Download(ctx context.Context, req Request, w Writer, onProgress OnProgress) (int, error) {
	if err := req.Validate(); err != nil {
		return 0, err
	}

	written := 0
	start := req.Start.UnixMilli()
	end := req.End.UnixMilli()

	for start <= end {
		klines, err := p.api.NewKlinesService().
			Symbol(req.Symbol).
			Interval(string(req.Interval)).
			StartTime(start).
			EndTime(end).
			Limit(binanceKlinesPageSize).
			Do(ctx)
		if err != nil {
			return written, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "failed to fetch %s klines", req.Symbol)
		}

		for _, k := range klines {
			bar, err := klineToBar(req.Symbol, k)
			if err != nil {
				return written, err
			}

			if err := w.Write(bar); err != nil {
				return written, err
			}

			written++
		}

		reportProgress(onProgress, written)

		if len(klines) < binanceKlinesPageSize {
			break
		}

		start = klines[len(klines)-1].CloseTime + 1
	}

	return written, nil
}

func klineToBar(symbol string, k *binance.Kline) (types.Bar, error) {
	values := make([]float64, 0, 5)

	for _, raw := range []string{k.Open, k.High, k.Low, k.Close, k.Volume} {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return types.Bar{}, errors.Wrapf(errors.ErrCodeDataSourceUnavailable, err, "malformed kline value %q for %s", raw, symbol)
		}

		values = append(values, v)
	}

	return types.Bar{
		Time:   time.UnixMilli(k.OpenTime).UTC(),
		Symbol: symbol,
		Open:   values[0],
		High:   values[1],
		Low:    values[2],
		Close:  values[3],
		Volume: values[4],
	}, nil
}

var _ Provider = (*BinanceProvider)(nil)
