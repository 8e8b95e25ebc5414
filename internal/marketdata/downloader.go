package marketdata

import (
	"context"

	"github.com/rxtech-lab/argo-router/internal/logger"
	"github.com/rxtech-lab/argo-router/pkg/errors"
	"go.uber.org/zap"
)

// Result describes a finished download.
type Result struct {
	Path string
	Bars int
}

// Downloader writes the bars a Provider returns into a parquet or csv file.
type Downloader struct {
	provider Provider
	log      *logger.Logger
}

func NewDownloader(provider Provider, log *logger.Logger) *Downloader {
	return &Downloader{
		provider: provider,
		log:      log.Named("marketdata"),
	}
}

// Download fetches req into outputPath. Nothing is written when the provider
// returns no bars.
func (d *Downloader) Download(ctx context.Context, req Request, outputPath string, onProgress OnProgress) (Result, error) {
	if err := req.Validate(); err != nil {
		return Result{}, err
	}

	w, err := NewDuckDBWriter(outputPath)
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if cerr := w.Close(); cerr != nil {
			d.log.Warn("failed to close writer", zap.Error(cerr))
		}
	}()

	d.log.Info("downloading bars",
		zap.String("symbol", req.Symbol),
		zap.String("interval", string(req.Interval)),
		zap.Time("start", req.Start),
		zap.Time("end", req.End),
	)

	count, err := d.provider.Download(ctx, req, w, onProgress)
	if err != nil {
		return Result{Bars: count}, err
	}

	if count == 0 {
		return Result{}, errors.Newf(errors.ErrCodeDataNotFound, "no bars returned for %s between %s and %s", req.Symbol, req.Start, req.End)
	}

	path, err := w.Finalize()
	if err != nil {
		return Result{Bars: count}, err
	}

	d.log.Info("download finished", zap.String("path", path), zap.Int("bars", count))

	return Result{Path: path, Bars: count}, nil
}
