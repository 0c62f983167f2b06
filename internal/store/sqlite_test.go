package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanstay/minbak-cli/internal/model"
	"github.com/urbanstay/minbak-cli/pkg/bldrgst"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func sampleVerdict(code model.OutcomeCode) *model.Verdict {
	age := 26.3
	units := 1
	return &model.Verdict{
		Disqualified: code == model.CodeUnsuitable,
		Code:         code,
		HouseType:    "단독주택",
		Structure:    "철근콘크리트(RC)",
		AgeYears:     &age,
		TotalUnits:   &units,
		Checks: []model.RuleOutcome{
			{Passed: true, Label: "not flagged as illegal construction", Detail: "violBldYn!=1", Severity: model.SeverityInfo},
		},
	}
}

func TestSaveAndListByCode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := bldrgst.LotKey{District: "11590", Neighborhood: "10400", LotMain: "0049", LotSub: "0004"}

	require.NoError(t, s.SaveVerdict(ctx, key, sampleVerdict(model.CodeLowChance)))
	require.NoError(t, s.SaveVerdict(ctx, key, sampleVerdict(model.CodeUnsuitable)))

	got, err := s.ListByCode(ctx, model.CodeLowChance, 10)
	require.NoError(t, err)
	require.Len(t, got, 1)

	e := got[0]
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, key, e.Key)
	assert.Equal(t, model.CodeLowChance, e.Code)
	assert.False(t, e.Disqualified)
	assert.Equal(t, "단독주택", e.HouseType)
	require.NotNil(t, e.AgeYears)
	assert.InDelta(t, 26.3, *e.AgeYears, 0.001)
	require.NotNil(t, e.TotalUnits)
	assert.Equal(t, 1, *e.TotalUnits)
	require.Len(t, e.Checks, 1)
	assert.Equal(t, model.SeverityInfo, e.Checks[0].Severity)
	assert.False(t, e.CreatedAt.IsZero())
}

func TestSaveVerdict_NullOptionals(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := bldrgst.LotKey{District: "11590", Neighborhood: "10400", LotMain: "0001", LotSub: "0000"}

	v := sampleVerdict(model.CodePending)
	v.AgeYears = nil
	v.TotalUnits = nil
	require.NoError(t, s.SaveVerdict(ctx, key, v))

	got, err := s.ListByCode(ctx, model.CodePending, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].AgeYears)
	assert.Nil(t, got[0].TotalUnits)
}

func TestListByCode_Empty(t *testing.T) {
	s := newTestStore(t)

	got, err := s.ListByCode(context.Background(), model.CodeHighChance, 10)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestCountByCode(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	key := bldrgst.LotKey{District: "11590", Neighborhood: "10400", LotMain: "0001", LotSub: "0000"}

	for _, code := range []model.OutcomeCode{
		model.CodeLowChance, model.CodeLowChance, model.CodeUnsuitable,
	} {
		require.NoError(t, s.SaveVerdict(ctx, key, sampleVerdict(code)))
	}

	counts, err := s.CountByCode(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[model.OutcomeCode]int{
		model.CodeLowChance:  2,
		model.CodeUnsuitable: 1,
	}, counts)
}

func TestMigrate_Idempotent(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.Migrate(context.Background()))
}
