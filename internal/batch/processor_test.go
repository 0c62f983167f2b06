package batch

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanstay/minbak-cli/internal/engine"
	"github.com/urbanstay/minbak-cli/internal/model"
	"github.com/urbanstay/minbak-cli/pkg/bldrgst"
)

// lotClient serves per-lot canned title records, keyed by the normalized
// main lot number.
type lotClient struct {
	titles map[string][]bldrgst.Record
	errs   map[string]error
}

func (c *lotClient) FetchTitle(_ context.Context, key bldrgst.LotKey) ([]bldrgst.Record, error) {
	if err := c.errs[key.LotMain]; err != nil {
		return nil, err
	}
	return c.titles[key.LotMain], nil
}

func (c *lotClient) FetchUnits(context.Context, bldrgst.LotKey) ([]bldrgst.Record, error) {
	return nil, nil
}

type captureSaver struct {
	mu   sync.Mutex
	keys []bldrgst.LotKey
	err  error
}

func (s *captureSaver) SaveVerdict(_ context.Context, key bldrgst.LotKey, _ *model.Verdict) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.keys = append(s.keys, key)
	return s.err
}

func eligibleTitle() bldrgst.Record {
	return bldrgst.Record{
		"platPlc":       "서울특별시 동작구 상도동 49-4",
		"mainPurpsCdNm": "단독주택",
		"violBldYn":     "0",
		"strctCdNm":     "철근콘크리트구조",
		"grndFlrCnt":    "2",
		"ugrndFlrCnt":   "0",
		"totArea":       "180.5",
		"hhldCnt":       "1",
	}
}

func illegalTitle() bldrgst.Record {
	rec := eligibleTitle()
	rec["violBldYn"] = "1"
	return rec
}

func batchKeys(mains ...string) []bldrgst.LotKey {
	keys := make([]bldrgst.LotKey, len(mains))
	for i, m := range mains {
		keys[i] = bldrgst.LotKey{District: "11590", Neighborhood: "10400", LotMain: m, LotSub: "0000"}
	}
	return keys
}

func TestProcessorRun(t *testing.T) {
	client := &lotClient{
		titles: map[string][]bldrgst.Record{
			"0001": {eligibleTitle()},
			"0002": {illegalTitle()},
		},
		errs: map[string]error{
			"0003": eris.New("registry unavailable"),
		},
	}
	p := &Processor{
		Engine:      engine.New(client, engine.DefaultThresholds()),
		Concurrency: 2,
	}

	rows, stats, err := p.Run(context.Background(), batchKeys("0001", "0002", "0003"))
	require.NoError(t, err)
	require.Len(t, rows, 3)

	// Rows come back in input order regardless of completion order.
	assert.Equal(t, "0001", rows[0].LotMain)
	assert.Equal(t, int(model.CodeLowChance), rows[0].Code)
	assert.Equal(t, "단독주택", rows[0].HouseType)
	assert.Empty(t, rows[0].Error)

	assert.Equal(t, int(model.CodeUnsuitable), rows[1].Code)
	assert.Equal(t, "unsuitable", rows[1].Description)

	// A gateway failure lands the key in the pending bucket with the error
	// recorded instead of aborting the batch.
	assert.Equal(t, int(model.CodePending), rows[2].Code)
	assert.Contains(t, rows[2].Error, "registry unavailable")

	assert.Equal(t, 1, stats.ByCode[model.CodeLowChance])
	assert.Equal(t, 1, stats.ByCode[model.CodeUnsuitable])
	assert.Equal(t, 1, stats.ByCode[model.CodePending])
	assert.Equal(t, 1, stats.Errors)
}

func TestProcessorRun_Saver(t *testing.T) {
	client := &lotClient{titles: map[string][]bldrgst.Record{
		"0001": {eligibleTitle()},
		"0002": {eligibleTitle()},
	}}
	saver := &captureSaver{err: eris.New("disk full")}
	p := &Processor{
		Engine:      engine.New(client, engine.DefaultThresholds()),
		Saver:       saver,
		Concurrency: 1,
	}

	// A failing saver is logged, not fatal.
	rows, _, err := p.Run(context.Background(), batchKeys("0001", "0002"))
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.Len(t, saver.keys, 2)
}

func TestWriteBuckets(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "result")
	rows := []ResultRow{
		{District: "11590", Neighborhood: "10400", LotMain: "0001", LotSub: "0000", Code: 1, Description: "suitable: low chance", HouseType: "단독주택"},
		{District: "11590", Neighborhood: "10400", LotMain: "0002", LotSub: "0000", Code: 0, Description: "unsuitable"},
		{District: "11590", Neighborhood: "10400", LotMain: "0003", LotSub: "0000", Code: 1, Description: "suitable: low chance", HouseType: "단독주택"},
		{District: "11590", Neighborhood: "10400", LotMain: "0004", LotSub: "0000", Code: 4, Description: "pending review", Error: "registry unavailable"},
	}

	written, err := WriteBuckets(rows, prefix)
	require.NoError(t, err)
	assert.Equal(t, []string{
		prefix + "_0_unsuitable.csv",
		prefix + "_1_low_chance.csv",
		prefix + "_4_pending.csv",
	}, written)

	// Empty buckets produce no file.
	assert.NoFileExists(t, prefix+"_2_possible.csv")
	assert.NoFileExists(t, prefix+"_3_high_chance.csv")

	data, err := os.ReadFile(prefix + "_1_low_chance.csv")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "\xEF\xBB\xBF"), "spreadsheet BOM")
	assert.Contains(t, string(data), "판정코드")
	assert.Contains(t, string(data), "0003")
	assert.NotContains(t, string(data), "0002", "code-0 rows stay out of the code-1 bucket")
}

func TestWriteBuckets_Empty(t *testing.T) {
	written, err := WriteBuckets(nil, filepath.Join(t.TempDir(), "result"))
	require.NoError(t, err)
	assert.Empty(t, written)
}
