package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"go.uber.org/zap"

	"github.com/goliatone/go-herdform/pkg/datefmt"
	"github.com/goliatone/go-herdform/pkg/table"
)

// UnknownBornDate is shown when a cow has no recorded birth date.
const UnknownBornDate = "Unknown"

// HerdColumns are the headers of the herd table.
var HerdColumns = []string{"Vache", "Naissance"}

// Cow is one herd list entry.
type Cow struct {
	ID       string  `json:"cow_id"`
	BornDate *string `json:"born_date"`
}

// UnmarshalJSON accepts numeric or string identifiers.
func (c *Cow) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID       json.RawMessage `json:"cow_id"`
		BornDate *string         `json:"born_date"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	c.ID = scalarText(raw.ID)
	c.BornDate = raw.BornDate
	return nil
}

// BornText renders the birth date, or UnknownBornDate when absent.
func (c Cow) BornText(f datefmt.Formatter) string {
	if c.BornDate == nil {
		return UnknownBornDate
	}
	return f.FormatString(*c.BornDate)
}

// HerdRows maps cows to table rows in server order.
func HerdRows(cows []Cow, f datefmt.Formatter) []table.Row {
	rows := make([]table.Row, 0, len(cows))
	for _, cow := range cows {
		rows = append(rows, table.Row{ID: cow.ID, Cells: []string{cow.ID, cow.BornText(f)}})
	}
	return rows
}

// Herd lists every cow.
func (f *Fetcher) Herd(ctx context.Context) ([]Cow, error) {
	req, err := f.request(ctx, http.MethodGet, f.herdList, nil, "")
	if err != nil {
		return nil, fmt.Errorf("listing: herd: %w", err)
	}
	return f.cows(req, "herd")
}

// FilterHerd lists cows whose identifier contains id.
func (f *Fetcher) FilterHerd(ctx context.Context, id int) ([]Cow, error) {
	body := formBody(url.Values{FilterField: {strconv.Itoa(id)}})
	req, err := f.request(ctx, http.MethodPost, f.herdFilter, body, "application/x-www-form-urlencoded")
	if err != nil {
		return nil, fmt.Errorf("listing: herd filter: %w", err)
	}
	return f.cows(req, "herd filter")
}

func (f *Fetcher) cows(req *http.Request, op string) ([]Cow, error) {
	resp, err := f.do(req)
	if err != nil {
		if req.Context().Err() == nil {
			f.log.Warn("herd request failed", zap.String("op", op), zap.Error(err))
		}
		return nil, fmt.Errorf("listing: %s: %w", op, err)
	}
	defer resp.Body.Close()

	var cows []Cow
	if err := json.NewDecoder(resp.Body).Decode(&cows); err != nil {
		return nil, fmt.Errorf("listing: %s: decode: %w", op, err)
	}
	return cows, nil
}
