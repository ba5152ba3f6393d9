package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ParseTableHandler turns an HTML table fragment held in a result field into
// a list of row records. With a header row, each record is keyed by column
// name; without one, columns are keyed "col_0", "col_1", and so on. Like the
// other transforms it fails softly and never touches the session.
type ParseTableHandler struct{}

func (h *ParseTableHandler) Execute(ctx context.Context, ec *ExecContext, params Params) error {
	field, err := params.String("field")
	if err != nil {
		return err
	}
	target, err := params.String("target")
	if err != nil {
		return err
	}

	value, terr := h.parse(ec, field)
	writeSoft(ec, target, value, terr)
	return nil
}

func (h *ParseTableHandler) parse(ec *ExecContext, field string) (any, error) {
	html := ec.Results.GetString(field)
	if html == "" {
		return nil, fmt.Errorf("field %q has no string value", field)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("parsing HTML from field %q: %w", field, err)
	}

	table := doc.Find("table").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("field %q contains no table", field)
	}

	var headers []string
	table.Find("tr").First().Find("th").Each(func(_ int, th *goquery.Selection) {
		headers = append(headers, strings.TrimSpace(th.Text()))
	})

	var rows []map[string]string
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		cells := tr.Find("td")
		if cells.Length() == 0 {
			return
		}
		row := make(map[string]string, cells.Length())
		cells.Each(func(i int, td *goquery.Selection) {
			key := fmt.Sprintf("col_%d", i)
			if i < len(headers) && headers[i] != "" {
				key = headers[i]
			}
			row[key] = strings.TrimSpace(td.Text())
		})
		rows = append(rows, row)
	})

	return rows, nil
}
