package batch

import (
	"context"
	"fmt"
	"os"
	"sync"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/urbanstay/minbak-cli/internal/engine"
	"github.com/urbanstay/minbak-cli/internal/model"
	"github.com/urbanstay/minbak-cli/pkg/bldrgst"
)

// Stats counts batch input and outcome dispositions.
type Stats struct {
	Skipped    int
	Duplicates int
	ByCode     [5]int
	Errors     int
}

// ResultRow is one line of a partitioned output file.
type ResultRow struct {
	District     string `csv:"시군구코드"`
	Neighborhood string `csv:"법정동코드"`
	LotMain      string `csv:"번"`
	LotSub       string `csv:"지"`
	Code         int    `csv:"판정코드"`
	Description  string `csv:"판정의미"`
	HouseType    string `csv:"주택종류,omitempty"`
	Error        string `csv:"오류,omitempty"`
}

// bucketSuffixes names the five output partitions by outcome code.
var bucketSuffixes = [5]string{
	"0_unsuitable",
	"1_low_chance",
	"2_possible",
	"3_high_chance",
	"4_pending",
}

// Processor drives the engine over a deduplicated key list.
type Processor struct {
	Engine      *engine.Engine
	Saver       VerdictSaver // optional audit store
	Concurrency int
}

// VerdictSaver persists evaluations; nil disables persistence.
type VerdictSaver interface {
	SaveVerdict(ctx context.Context, key bldrgst.LotKey, v *model.Verdict) error
}

// Run evaluates every key and returns the result rows in input order.
// Evaluation errors do not abort the batch: the failing key lands in the
// code-4 bucket with the error text recorded. Each key is independent, so
// keys run concurrently up to the configured limit while the engine itself
// stays synchronous per key.
func (p *Processor) Run(ctx context.Context, keys []bldrgst.LotKey) ([]ResultRow, Stats, error) {
	rows := make([]ResultRow, len(keys))
	var stats Stats
	var mu sync.Mutex

	concurrency := p.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	for i, key := range keys {
		i, key := i, key // per-iteration copies for Go <1.22 loop semantics
		g.Go(func() error {
			row := ResultRow{
				District:     key.District,
				Neighborhood: key.Neighborhood,
				LotMain:      key.LotMain,
				LotSub:       key.LotSub,
			}

			v, err := p.Engine.Evaluate(gCtx, key, engine.Options{
				RequireRC:            false,
				IncludeUnitsPerFloor: true,
			})
			if err != nil {
				// Gateway failure for one key: record and move on.
				row.Code = int(model.CodePending)
				row.Description = model.CodePending.Description()
				row.Error = err.Error()
				zap.L().Error("batch: evaluation failed",
					zap.String("district", key.District),
					zap.String("neighborhood", key.Neighborhood),
					zap.String("lot", key.LotMain+"-"+key.LotSub),
					zap.Error(err),
				)
				mu.Lock()
				rows[i] = row
				stats.ByCode[model.CodePending]++
				stats.Errors++
				mu.Unlock()
				return nil
			}

			row.Code = int(v.Code)
			row.Description = v.Code.Description()
			row.HouseType = v.HouseType

			if p.Saver != nil {
				if saveErr := p.Saver.SaveVerdict(gCtx, key, v); saveErr != nil {
					zap.L().Warn("batch: save verdict", zap.Error(saveErr))
				}
			}

			mu.Lock()
			rows[i] = row
			stats.ByCode[v.Code]++
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, stats, err
	}

	return rows, stats, nil
}

// WriteBuckets partitions rows by outcome code and writes one CSV per
// non-empty bucket, named <prefix>_<code>_<slug>.csv. It returns the paths
// written.
func WriteBuckets(rows []ResultRow, prefix string) ([]string, error) {
	buckets := make([][]ResultRow, 5)
	for _, row := range rows {
		code := row.Code
		if code < 0 || code > 4 {
			code = int(model.CodePending)
		}
		buckets[code] = append(buckets[code], row)
	}

	var written []string
	for code, bucket := range buckets {
		if len(bucket) == 0 {
			continue
		}
		path := fmt.Sprintf("%s_%s.csv", prefix, bucketSuffixes[code])

		data, err := csvutil.Marshal(bucket)
		if err != nil {
			return written, eris.Wrapf(err, "batch: marshal bucket %d", code)
		}
		// BOM so spreadsheet tools pick up the Korean headers as UTF-8.
		out := append([]byte{0xEF, 0xBB, 0xBF}, data...)
		if err := os.WriteFile(path, out, 0o644); err != nil {
			return written, eris.Wrapf(err, "batch: write %s", path)
		}
		written = append(written, path)

		zap.L().Info("batch: bucket written",
			zap.String("path", path),
			zap.Int("rows", len(bucket)),
		)
	}
	return written, nil
}
