package marketdata

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"
	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-router/internal/types"
)

type recordingWriter struct {
	bars     []types.Bar
	writeErr error
}

func (w *recordingWriter) Write(bar types.Bar) error {
	if w.writeErr != nil {
		return w.writeErr
	}

	w.bars = append(w.bars, bar)

	return nil
}

func (w *recordingWriter) Finalize() (string, error) { return "", nil }
func (w *recordingWriter) Close() error              { return nil }

type klinesCall struct {
	symbol   string
	interval string
	start    int64
	end      int64
	limit    int
}

// fakeBinanceAPI returns one page per call and records each request.
type fakeBinanceAPI struct {
	pages [][]*binance.Kline
	errs  []error
	calls []klinesCall
}

func (f *fakeBinanceAPI) NewKlinesService() BinanceKlinesService {
	return &fakeKlinesService{api: f}
}

type fakeKlinesService struct {
	api  *fakeBinanceAPI
	call klinesCall
}

func (s *fakeKlinesService) Symbol(symbol string) BinanceKlinesService {
	s.call.symbol = symbol

	return s
}

func (s *fakeKlinesService) Interval(interval string) BinanceKlinesService {
	s.call.interval = interval

	return s
}

func (s *fakeKlinesService) StartTime(startTime int64) BinanceKlinesService {
	s.call.start = startTime

	return s
}

func (s *fakeKlinesService) EndTime(endTime int64) BinanceKlinesService {
	s.call.end = endTime

	return s
}

func (s *fakeKlinesService) Limit(limit int) BinanceKlinesService {
	s.call.limit = limit

	return s
}

func (s *fakeKlinesService) Do(_ context.Context) ([]*binance.Kline, error) {
	idx := len(s.api.calls)
	s.api.calls = append(s.api.calls, s.call)

	var err error
	if idx < len(s.api.errs) {
		err = s.api.errs[idx]
	}

	if idx < len(s.api.pages) {
		return s.api.pages[idx], err
	}

	return nil, err
}

// klinePage builds count consecutive klines of width interval starting at start.
func klinePage(start time.Time, interval time.Duration, count int, firstClose float64) []*binance.Kline {
	page := make([]*binance.Kline, 0, count)

	for i := range count {
		open := start.Add(time.Duration(i) * interval)
		price := firstClose + float64(i)
		page = append(page, &binance.Kline{
			OpenTime:  open.UnixMilli(),
			Open:      formatFloat(price - 0.5),
			High:      formatFloat(price + 1),
			Low:       formatFloat(price - 1),
			Close:     formatFloat(price),
			Volume:    "10",
			CloseTime: open.Add(interval).UnixMilli() - 1,
		})
	}

	return page
}

type fakePolygonAPI struct {
	aggs   []models.Agg
	err    error
	params *models.ListAggsParams
}

func (f *fakePolygonAPI) ListAggs(_ context.Context, params *models.ListAggsParams, _ ...models.RequestOption) PolygonAggsIterator {
	f.params = params

	return &fakeAggsIterator{aggs: f.aggs, err: f.err}
}

type fakeAggsIterator struct {
	aggs  []models.Agg
	index int
	err   error
}

func (it *fakeAggsIterator) Next() bool {
	if it.index < len(it.aggs) {
		it.index++

		return true
	}

	return false
}

func (it *fakeAggsIterator) Item() models.Agg {
	return it.aggs[it.index-1]
}

func (it *fakeAggsIterator) Err() error {
	return it.err
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
