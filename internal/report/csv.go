package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/dukerupert/ekklesia/internal/model"
)

var csvHeader = []string{"date", "kind", "category", "description", "amount", "member_id"}

// LedgerCSV writes entries as CSV in the order given.
func LedgerCSV(w io.Writer, entries []model.LedgerEntry) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}

	for _, e := range entries {
		memberID := ""
		if e.MemberID != nil {
			memberID = strconv.FormatInt(*e.MemberID, 10)
		}
		record := []string{e.Date, string(e.Kind), e.Category, e.Description, e.Amount.StringFixed(2), memberID}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}
