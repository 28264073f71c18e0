package bea

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/beevik/etree"

	"livingcost/internal/prices"
)

const (
	DefaultAPIURL = "https://apps.bea.gov/api/data"

	APISourceName = "bea_api"
)

var ErrAPI = errors.New("bea api error")

// APISource reads the SARPP table (all-items RPP by state) from the BEA
// data API in XML form.
type APISource struct {
	baseURL string
	key     string
	client  *http.Client
	logger  *slog.Logger
}

var _ prices.TableReader = (*APISource)(nil)

func NewAPISource(baseURL, key string, logger *slog.Logger) *APISource {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &APISource{
		baseURL: baseURL,
		key:     key,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  logger,
	}
}

func (s *APISource) requestURL() string {
	q := url.Values{}
	q.Set("UserID", s.key)
	q.Set("method", "GetData")
	q.Set("datasetname", "Regional")
	q.Set("TableName", "SARPP")
	q.Set("LineCode", "1")
	q.Set("GeoFips", "STATE")
	q.Set("Year", "LAST")
	q.Set("ResultFormat", "XML")
	return s.baseURL + "?" + q.Encode()
}

func (s *APISource) ReadTable(ctx context.Context) (prices.Table, error) {
	if s.key == "" {
		return prices.Table{}, fmt.Errorf("%w: missing API key", ErrAPI)
	}
	body, err := fetch(ctx, s.client, s.requestURL())
	if err != nil {
		return prices.Table{}, err
	}
	entries, err := ParseAPIResponse(body)
	if err != nil {
		return prices.Table{}, err
	}
	s.logger.DebugContext(ctx, "Fetched BEA price parities", "entries", len(entries))
	return prices.Table{Source: APISourceName, FetchedAt: time.Now().UTC(), Entries: entries}, nil
}

// ParseAPIResponse extracts GeoName/DataValue pairs from a GetData XML
// response. When several periods are present the latest one wins.
func ParseAPIResponse(raw []byte) ([]prices.Entry, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(raw); err != nil {
		return nil, fmt.Errorf("parse xml: %w", err)
	}

	if e := doc.FindElement("//Error"); e != nil {
		return nil, fmt.Errorf("%w: %s", ErrAPI, apiErrorText(e))
	}

	data := doc.FindElements("//Results/Data")
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: no data rows", ErrAPI)
	}

	type row struct {
		entry  prices.Entry
		period string
	}
	var order []string
	latest := map[string]row{}
	for _, d := range data {
		name := prices.NormalizeLocation(d.SelectAttrValue("GeoName", ""))
		if name == "" {
			continue
		}
		v, _ := prices.ParseValue(d.SelectAttrValue("DataValue", ""))
		period := d.SelectAttrValue("TimePeriod", "")
		prev, seen := latest[name]
		if !seen {
			order = append(order, name)
		}
		if !seen || period > prev.period {
			latest[name] = row{entry: prices.Entry{Location: name, Value: v}, period: period}
		}
	}

	entries := make([]prices.Entry, 0, len(order))
	for _, name := range order {
		entries = append(entries, latest[name].entry)
	}
	return entries, nil
}

func apiErrorText(e *etree.Element) string {
	parts := []string{
		e.SelectAttrValue("APIErrorCode", ""),
		e.SelectAttrValue("APIErrorDescription", ""),
	}
	for _, child := range e.ChildElements() {
		parts = append(parts, strings.TrimSpace(child.Text()))
	}
	if t := strings.TrimSpace(e.Text()); t != "" {
		parts = append(parts, t)
	}
	var out []string
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return "unknown error"
	}
	return strings.Join(out, ": ")
}
