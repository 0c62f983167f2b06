package bldrgst

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
)

// envelope is the common data.go.kr response wrapper.
type envelope struct {
	Response struct {
		Header struct {
			ResultCode string `json:"resultCode"`
			ResultMsg  string `json:"resultMsg"`
		} `json:"header"`
		Body struct {
			Items      json.RawMessage `json:"items"`
			TotalCount json.RawMessage `json:"totalCount"`
		} `json:"body"`
	} `json:"response"`
}

// requestItems pages through one operation until the reported total is
// reached. Any HTTP failure, non-JSON payload, error envelope, or blown page
// cap is surfaced as an error; the caller treats these as gateway failures.
func (c *client) requestItems(ctx context.Context, operation string, key LotKey) ([]Record, error) {
	var all []Record

	for pageNo := 1; ; pageNo++ {
		if pageNo > c.maxPages {
			return nil, eris.Errorf("bldrgst: %s exceeded %d pages, check query params", operation, c.maxPages)
		}

		page, total, err := c.fetchPage(ctx, operation, key, pageNo)
		if err != nil {
			return nil, err
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)

		if total <= 0 {
			total = len(all)
		}
		if len(all) >= total {
			break
		}
	}

	return all, nil
}

func (c *client) fetchPage(ctx context.Context, operation string, key LotKey, pageNo int) ([]Record, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, eris.Wrap(err, "bldrgst: rate limit")
	}

	params := url.Values{
		"serviceKey": {c.serviceKey},
		"_type":      {"json"},
		"numOfRows":  {strconv.Itoa(c.pageSize)},
		"pageNo":     {strconv.Itoa(pageNo)},
		"sigunguCd":  {key.District},
		"bjdongCd":   {key.Neighborhood},
		"bun":        {key.LotMain},
		"ji":         {key.LotSub},
	}

	reqURL := c.baseURL + "/" + operation + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "bldrgst: %s build request", operation)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "bldrgst: %s request", operation)
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return nil, 0, eris.Errorf("bldrgst: %s returned status %d", operation, resp.StatusCode)
	}

	ctype := strings.ToLower(resp.Header.Get("Content-Type"))
	if !strings.Contains(ctype, "json") {
		// The hub answers auth and quota failures with an XML error page.
		head, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return nil, 0, eris.Errorf("bldrgst: %s unexpected content type %q: %s", operation, ctype, string(head))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "bldrgst: %s read body", operation)
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, 0, eris.Wrapf(err, "bldrgst: %s parse response", operation)
	}

	if code := env.Response.Header.ResultCode; code != "00" {
		return nil, 0, eris.Errorf("bldrgst: %s API error %s: %s", operation, code, env.Response.Header.ResultMsg)
	}

	items, err := decodeItems(env.Response.Body.Items)
	if err != nil {
		return nil, 0, eris.Wrapf(err, "bldrgst: %s decode items", operation)
	}

	return items, decodeTotal(env.Response.Body.TotalCount), nil
}

// decodeItems unwraps body.items. The hub is inconsistent here: items is an
// object holding "item" (array or single object) when rows exist, and an
// empty string when none do.
func decodeItems(raw json.RawMessage) ([]Record, error) {
	if len(raw) == 0 || string(raw) == `""` || string(raw) == "null" {
		return nil, nil
	}

	var wrapper struct {
		Item json.RawMessage `json:"item"`
	}
	if err := json.Unmarshal(raw, &wrapper); err != nil {
		return nil, err
	}
	if len(wrapper.Item) == 0 || string(wrapper.Item) == "null" {
		return nil, nil
	}

	var list []Record
	if err := json.Unmarshal(wrapper.Item, &list); err == nil {
		return list, nil
	}

	var single Record
	if err := json.Unmarshal(wrapper.Item, &single); err != nil {
		return nil, err
	}
	return []Record{single}, nil
}

// decodeTotal parses body.totalCount, which arrives as either a number or a
// numeric string. Unparseable values count as unknown (0).
func decodeTotal(raw json.RawMessage) int {
	if len(raw) == 0 {
		return 0
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, convErr := strconv.Atoi(strings.TrimSpace(s)); convErr == nil {
			return v
		}
	}
	return 0
}
