package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanstay/minbak-cli/internal/engine"
	"github.com/urbanstay/minbak-cli/internal/model"
	"github.com/urbanstay/minbak-cli/pkg/bldrgst"
)

// stubClient serves one canned title response and tracks unit fetches.
type stubClient struct {
	titles    []bldrgst.Record
	titleErr  error
	unitCalls int
}

func (s *stubClient) FetchTitle(context.Context, bldrgst.LotKey) ([]bldrgst.Record, error) {
	return s.titles, s.titleErr
}

func (s *stubClient) FetchUnits(context.Context, bldrgst.LotKey) ([]bldrgst.Record, error) {
	s.unitCalls++
	return nil, nil
}

type recordingSaver struct {
	keys []bldrgst.LotKey
	err  error
}

func (s *recordingSaver) SaveVerdict(_ context.Context, key bldrgst.LotKey, _ *model.Verdict) error {
	s.keys = append(s.keys, key)
	return s.err
}

func registrableTitle() bldrgst.Record {
	return bldrgst.Record{
		"platPlc":       "서울특별시 동작구 상도동 49-4",
		"mainPurpsCdNm": "단독주택",
		"violBldYn":     "0",
		"strctCdNm":     "벽돌구조",
		"grndFlrCnt":    "2",
		"ugrndFlrCnt":   "0",
		"totArea":       "180.5",
		"hhldCnt":       "1",
	}
}

func stubRouter(client bldrgst.Client, saver *recordingSaver) http.Handler {
	eng := engine.New(client, engine.DefaultThresholds())
	if saver == nil {
		return newRouter(eng, nil)
	}
	return newRouter(eng, saver)
}

func TestRouter_Health(t *testing.T) {
	r := stubRouter(&stubClient{}, nil)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Type"), "application/json")

	var body map[string]string
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
}

func TestRouter_Check_MissingParams(t *testing.T) {
	client := &stubClient{titles: []bldrgst.Record{registrableTitle()}}
	r := stubRouter(client, nil)

	for _, target := range []string{
		"/v1/check",
		"/v1/check?district=11590",
		"/v1/check?district=11590&neighborhood=10400",
		"/v1/check?neighborhood=10400&lot=49",
	} {
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, target, nil))

		assert.Equal(t, http.StatusBadRequest, rr.Code, target)
		assert.Contains(t, rr.Body.String(), "required", target)
	}
	assert.Equal(t, 0, client.unitCalls, "rejected requests never reach the gateway")
}

func TestRouter_Check_GatewayFailure(t *testing.T) {
	r := stubRouter(&stubClient{titleErr: eris.New("quota exceeded")}, nil)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/check?district=11590&neighborhood=10400&lot=49", nil))

	assert.Equal(t, http.StatusBadGateway, rr.Code)
	assert.Contains(t, rr.Body.String(), "registry gateway failure")
	// The upstream error text stays out of the response body.
	assert.NotContains(t, rr.Body.String(), "quota")
}

func TestRouter_Check_OK(t *testing.T) {
	r := stubRouter(&stubClient{titles: []bldrgst.Record{registrableTitle()}}, nil)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/check?district=11590&neighborhood=10400&lot=49&sub=4", nil))

	assert.Equal(t, http.StatusOK, rr.Code)

	var v model.Verdict
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	assert.False(t, v.Disqualified)
	assert.Equal(t, model.CodeLowChance, v.Code)
	assert.Equal(t, "단독주택", v.HouseType)
	assert.NotEmpty(t, v.Checks)
}

func TestRouter_Check_SkipUnits(t *testing.T) {
	client := &stubClient{titles: []bldrgst.Record{registrableTitle()}}
	r := stubRouter(client, nil)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/check?district=11590&neighborhood=10400&lot=49&skip_units=true", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 0, client.unitCalls)

	rr = httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/check?district=11590&neighborhood=10400&lot=49", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 1, client.unitCalls, "units are fetched unless skipped")
}

func TestRouter_Check_RequireRC(t *testing.T) {
	// The stub building is brick, so strict mode disqualifies it.
	r := stubRouter(&stubClient{titles: []bldrgst.Record{registrableTitle()}}, nil)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/check?district=11590&neighborhood=10400&lot=49&require_rc=true", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	var v model.Verdict
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v))
	assert.True(t, v.Disqualified)
	assert.Equal(t, model.CodeUnsuitable, v.Code)
}

func TestRouter_Check_SavesNormalizedKey(t *testing.T) {
	saver := &recordingSaver{}
	r := stubRouter(&stubClient{titles: []bldrgst.Record{registrableTitle()}}, saver)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/check?district=11590&neighborhood=10400&lot=49", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, saver.keys, 1)
	assert.Equal(t, bldrgst.LotKey{
		District: "11590", Neighborhood: "10400", LotMain: "0049", LotSub: "0000",
	}, saver.keys[0])
}

func TestRouter_Check_SaverFailureNonFatal(t *testing.T) {
	saver := &recordingSaver{err: eris.New("disk full")}
	r := stubRouter(&stubClient{titles: []bldrgst.Record{registrableTitle()}}, saver)

	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/v1/check?district=11590&neighborhood=10400&lot=49", nil))

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, saver.keys, 1)
}
