package catalog

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"coach-planner/internal/nutrition"

	"github.com/PuerkitoBio/goquery"
)

// Importer pulls ingredient tables from nutrition reference pages.
type Importer struct {
	client *http.Client
}

// NewImporter creates an importer with a bounded HTTP timeout.
func NewImporter() *Importer {
	return &Importer{client: &http.Client{Timeout: 15 * time.Second}}
}

// FetchHTML downloads url and parses its first ingredient table.
func (im *Importer) FetchHTML(ctx context.Context, url string) ([]nutrition.IngredientData, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := im.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch URL: status %d", resp.StatusCode)
	}
	return ParseHTMLTable(resp.Body)
}

// ParseHTMLTable reads the first <table> whose header row names at least id,
// name, category and calories. Recognised headers (any case): id, name,
// category, calories, protein, carbs, fat, fiber, serving, tags. Tags are
// comma separated.
func ParseHTMLTable(r io.Reader) ([]nutrition.IngredientData, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	var (
		out      []nutrition.IngredientData
		parseErr error
		found    bool
	)
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		cols := headerColumns(table)
		for _, required := range []string{"id", "name", "category", "calories"} {
			if _, ok := cols[required]; !ok {
				return true
			}
		}
		found = true
		table.Find("tr").Each(func(i int, row *goquery.Selection) {
			if parseErr != nil || row.Find("th").Length() > 0 {
				return
			}
			cells := row.Find("td").Map(func(_ int, s *goquery.Selection) string {
				return strings.TrimSpace(s.Text())
			})
			if len(cells) == 0 {
				return
			}
			ing, err := rowToIngredient(cols, cells)
			if err != nil {
				parseErr = fmt.Errorf("row %d: %w", i, err)
				return
			}
			out = append(out, ing)
		})
		return false
	})

	if parseErr != nil {
		return nil, parseErr
	}
	if !found {
		return nil, fmt.Errorf("no ingredient table found")
	}
	return out, nil
}

func headerColumns(table *goquery.Selection) map[string]int {
	cols := map[string]int{}
	table.Find("tr").First().Find("th").Each(func(i int, th *goquery.Selection) {
		// "Protein (g)" and "protein:" both map to "protein".
		words := strings.Fields(strings.ToLower(th.Text()))
		if len(words) == 0 {
			return
		}
		cols[strings.TrimSuffix(words[0], ":")] = i
	})
	return cols
}

func rowToIngredient(cols map[string]int, cells []string) (nutrition.IngredientData, error) {
	cell := func(name string) string {
		i, ok := cols[name]
		if !ok || i >= len(cells) {
			return ""
		}
		return cells[i]
	}
	number := func(name string) (float64, error) {
		raw := strings.TrimSpace(strings.TrimSuffix(cell(name), "g"))
		if raw == "" {
			return 0, nil
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("invalid %s value %q", name, cell(name))
		}
		return v, nil
	}

	ing := nutrition.IngredientData{ID: cell("id"), Name: cell("name")}
	cat, err := nutrition.ParseCategory(cell("category"))
	if err != nil {
		return ing, err
	}
	ing.Category = cat

	fields := []struct {
		name string
		dst  *float64
	}{
		{"calories", &ing.Per100g.Calories},
		{"protein", &ing.Per100g.Protein},
		{"carbs", &ing.Per100g.Carbs},
		{"fat", &ing.Per100g.Fat},
		{"fiber", &ing.Per100g.Fiber},
		{"serving", &ing.ServingSize},
	}
	for _, f := range fields {
		v, err := number(f.name)
		if err != nil {
			return ing, err
		}
		*f.dst = v
	}

	for _, tag := range strings.Split(cell("tags"), ",") {
		if tag = strings.ToLower(strings.TrimSpace(tag)); tag != "" {
			ing.Tags = append(ing.Tags, tag)
		}
	}
	return ing, ing.Validate()
}
