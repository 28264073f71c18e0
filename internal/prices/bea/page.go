// Package bea reads state regional price parities published by the Bureau
// of Economic Analysis, either by scraping the public RPP page or through
// the BEA data API.
package bea

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"livingcost/internal/prices"
)

const (
	DefaultPageURL = "https://www.bea.gov/data/prices-inflation/regional-price-parities-state-and-metro-area"

	PageSourceName = "bea_page"

	// MinTableRows separates the state table from the smaller metro and
	// summary tables on the same page.
	MinTableRows = 40

	numericShare = 0.6
	maxPageBytes = 8 << 20
)

var ErrNoTable = errors.New("no state price parity table found")

// PageSource scrapes the BEA RPP page.
type PageSource struct {
	url    string
	client *http.Client
	logger *slog.Logger
}

var _ prices.TableReader = (*PageSource)(nil)

// NewPageSource returns a scraper for url, or DefaultPageURL when empty.
func NewPageSource(url string, logger *slog.Logger) *PageSource {
	if url == "" {
		url = DefaultPageURL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &PageSource{
		url:    url,
		client: &http.Client{Timeout: 20 * time.Second},
		logger: logger,
	}
}

func (s *PageSource) ReadTable(ctx context.Context) (prices.Table, error) {
	body, err := fetch(ctx, s.client, s.url)
	if err != nil {
		return prices.Table{}, err
	}
	entries, err := ParsePage(bytes.NewReader(body))
	if err != nil {
		return prices.Table{}, err
	}
	s.logger.DebugContext(ctx, "Scraped BEA price parity page", "url", s.url, "entries", len(entries))
	return prices.Table{Source: PageSourceName, FetchedAt: time.Now().UTC(), Entries: entries}, nil
}

func fetch(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "livingcost/1.0")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: unexpected status %d", url, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", url, err)
	}
	return body, nil
}

type htmlTable struct {
	header []string
	rows   [][]string
}

// ParsePage extracts state price parities from an HTML document. It uses
// the first table that has a header mentioning "state" and at least
// MinTableRows data rows, and reads the first column other than the state
// column whose cells are mostly numeric.
func ParsePage(r io.Reader) ([]prices.Entry, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	for _, t := range collectTables(doc) {
		stateCol := -1
		for i, h := range t.header {
			if strings.Contains(strings.ToLower(h), "state") {
				stateCol = i
				break
			}
		}
		if stateCol == -1 || len(t.rows) < MinTableRows {
			continue
		}
		valueCol := numericColumn(t, stateCol)
		if valueCol == -1 {
			return nil, fmt.Errorf("%w: no numeric column", ErrNoTable)
		}
		entries := make([]prices.Entry, 0, len(t.rows))
		for _, row := range t.rows {
			name := prices.NormalizeLocation(cell(row, stateCol))
			if name == "" {
				continue
			}
			v, _ := prices.ParseValue(cell(row, valueCol))
			entries = append(entries, prices.Entry{Location: name, Value: v})
		}
		return entries, nil
	}
	return nil, ErrNoTable
}

func numericColumn(t htmlTable, skip int) int {
	for col := range t.header {
		if col == skip {
			continue
		}
		numeric := 0
		for _, row := range t.rows {
			if _, ok := prices.ParseValue(cell(row, col)); ok {
				numeric++
			}
		}
		if float64(numeric)/float64(len(t.rows)) > numericShare {
			return col
		}
	}
	return -1
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func collectTables(n *html.Node) []htmlTable {
	var out []htmlTable
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.DataAtom == atom.Table {
			out = append(out, readTable(n))
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return out
}

// readTable treats the first row as the header when it has th cells or
// lives in thead; every other row with cells is data.
func readTable(table *html.Node) htmlTable {
	var t htmlTable
	var walk func(*html.Node, bool)
	walk = func(n *html.Node, inHead bool) {
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if c.Type != html.ElementNode {
				continue
			}
			switch c.DataAtom {
			case atom.Table:
				// nested tables are read on their own
			case atom.Thead:
				walk(c, true)
			case atom.Tr:
				cells, hasTH := rowCells(c)
				if len(cells) == 0 {
					continue
				}
				if t.header == nil && (inHead || hasTH) {
					t.header = cells
				} else if !inHead {
					t.rows = append(t.rows, cells)
				}
			default:
				walk(c, inHead)
			}
		}
	}
	walk(table, false)
	return t
}

func rowCells(tr *html.Node) ([]string, bool) {
	var cells []string
	hasTH := false
	for c := tr.FirstChild; c != nil; c = c.NextSibling {
		if c.Type != html.ElementNode || (c.DataAtom != atom.Td && c.DataAtom != atom.Th) {
			continue
		}
		if c.DataAtom == atom.Th {
			hasTH = true
		}
		cells = append(cells, textContent(c))
	}
	return cells, hasTH
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteByte(' ')
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return strings.Join(strings.Fields(b.String()), " ")
}
