// Package report renders ledger and member exports.
package report

import (
	"fmt"
	"io"
	"time"

	"github.com/dukerupert/ekklesia/internal/ledger"
	"github.com/dukerupert/ekklesia/internal/model"
	"github.com/go-pdf/fpdf"
	"github.com/shopspring/decimal"
)

const notProvided = "Not provided"

// Now is overridden in tests.
var Now = time.Now

type document struct {
	pdf *fpdf.Fpdf
	tr  func(string) string
}

func newDocument(title string) *document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(title, true)
	pdf.SetCreator("ekklesia", true)
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("")

	// Core fonts are cp1252; the translator keeps Portuguese accents intact.
	d := &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		footer := fmt.Sprintf("Generated %s - page %d/{nb}", Now().Format("2006-01-02 15:04"), pdf.PageNo())
		pdf.CellFormat(0, 6, footer, "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	return d
}

func (d *document) heading(church, title string) {
	d.pdf.SetFont("Helvetica", "B", 16)
	d.pdf.SetTextColor(0, 0, 0)
	d.pdf.CellFormat(0, 8, d.tr(church), "", 1, "C", false, 0, "")
	d.pdf.SetFont("Helvetica", "", 12)
	d.pdf.CellFormat(0, 7, d.tr(title), "", 1, "C", false, 0, "")
	d.pdf.Ln(4)
}

func (d *document) section(title string) {
	d.pdf.Ln(2)
	d.pdf.SetFont("Helvetica", "B", 11)
	d.pdf.SetFillColor(230, 230, 230)
	d.pdf.CellFormat(0, 7, d.tr(title), "", 1, "L", true, 0, "")
	d.pdf.Ln(1)
}

func (d *document) row(widths []float64, cells []string, aligns string, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	d.pdf.SetFont("Helvetica", style, 9)
	for i, c := range cells {
		align := "L"
		if i < len(aligns) {
			align = string(aligns[i])
		}
		d.pdf.CellFormat(widths[i], 6, d.tr(c), "B", 0, align, false, 0, "")
	}
	d.pdf.Ln(-1)
}

func (d *document) output(w io.Writer) error {
	if err := d.pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}

func money(v decimal.Decimal) string {
	return "R$ " + v.StringFixed(2)
}

// period describes the filter's date range for the report subtitle.
func period(f model.LedgerFilter) string {
	switch {
	case f.From != "" && f.To != "":
		return fmt.Sprintf("%s to %s", f.From, f.To)
	case f.From != "":
		return "From " + f.From
	case f.To != "":
		return "Until " + f.To
	default:
		return "All entries"
	}
}

// LedgerPDF writes the financial report: totals, a per-category table and
// every entry.
func LedgerPDF(w io.Writer, church string, filter model.LedgerFilter, entries []model.LedgerEntry, sum ledger.Summary) error {
	d := newDocument("Financial report")
	d.heading(church, "Financial report")

	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.CellFormat(0, 6, d.tr("Period: "+period(filter)), "", 1, "L", false, 0, "")
	if filter.Kind != "" {
		d.pdf.CellFormat(0, 6, "Kind: "+string(filter.Kind), "", 1, "L", false, 0, "")
	}
	if filter.Category != "" {
		d.pdf.CellFormat(0, 6, d.tr("Category: "+filter.Category), "", 1, "L", false, 0, "")
	}

	d.section("Totals")
	totals := []float64{60, 60, 60}
	d.row(totals, []string{"Income", "Expense", "Balance"}, "CCC", true)
	d.row(totals, []string{money(sum.TotalIncome), money(sum.TotalExpense), money(sum.Balance)}, "CCC", false)

	d.section("By category")
	catWidths := []float64{30, 90, 25, 35}
	d.row(catWidths, []string{"Kind", "Category", "Entries", "Total"}, "LLRR", true)
	for _, ct := range sum.ByCategory {
		d.row(catWidths, []string{string(ct.Kind), ct.Category, fmt.Sprint(ct.Count), money(ct.Total)}, "LLRR", false)
	}

	d.section("Entries")
	entryWidths := []float64{24, 20, 40, 66, 30}
	d.row(entryWidths, []string{"Date", "Kind", "Category", "Description", "Amount"}, "LLLLR", true)
	for _, e := range entries {
		d.row(entryWidths, []string{e.Date, string(e.Kind), e.Category, truncate(e.Description, 45), money(e.Amount)}, "LLLLR", false)
	}
	if len(entries) == 0 {
		d.pdf.SetFont("Helvetica", "I", 9)
		d.pdf.CellFormat(0, 6, "No entries in this period.", "", 1, "L", false, 0, "")
	}

	return d.output(w)
}

type field struct {
	Label string
	Value string
}

func orNotProvided(s string) string {
	if s == "" {
		return notProvided
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

type sheetSection struct {
	Title  string
	Fields []field
}

// memberSections groups a member's fields the way the record sheet prints them.
func memberSections(m *model.Member) []sheetSection {
	address := m.Street
	if m.Number != "" {
		address += ", " + m.Number
	}
	if m.Complement != "" {
		address += " - " + m.Complement
	}

	return []sheetSection{
		{"Personal data", []field{
			{"Name", m.Name},
			{"Birth date", m.BirthDate},
			{"Marital status", m.MaritalStatus},
			{"RG", m.RG},
			{"CPF", m.CPF},
			{"Mother", m.MotherName},
			{"Father", m.FatherName},
		}},
		{"Address and contact", []field{
			{"Address", address},
			{"Neighborhood", m.Neighborhood},
			{"City", m.City},
			{"State", m.State},
			{"Postal code", m.PostalCode},
			{"Phone", m.Phone},
			{"Mobile", m.Mobile},
		}},
		{"Church", []field{
			{"Congregation", m.Congregation},
			{"Status", string(m.Status)},
			{"Role", m.ChurchRole},
			{"Ministry since", m.MinistryDate},
			{"Water baptism", m.WaterBaptismDate},
			{"Baptized in the Spirit", yesNo(m.SpiritBaptized)},
		}},
		{"Notes", []field{
			{"Notes", m.Notes},
		}},
	}
}

// MemberPDF writes a member's record sheet. Empty fields print as
// "Not provided".
func MemberPDF(w io.Writer, church string, m *model.Member) error {
	d := newDocument("Member record")
	d.heading(church, "Member record")

	for _, sec := range memberSections(m) {
		d.section(sec.Title)
		for _, f := range sec.Fields {
			d.pdf.SetFont("Helvetica", "B", 10)
			d.pdf.CellFormat(50, 6, d.tr(f.Label+":"), "", 0, "L", false, 0, "")
			d.pdf.SetFont("Helvetica", "", 10)
			d.pdf.MultiCell(0, 6, d.tr(orNotProvided(f.Value)), "", "L", false)
		}
	}

	d.pdf.Ln(16)
	d.pdf.SetFont("Helvetica", "", 10)
	d.pdf.CellFormat(80, 6, "", "T", 0, "C", false, 0, "")
	d.pdf.CellFormat(20, 6, "", "", 0, "C", false, 0, "")
	d.pdf.CellFormat(80, 6, "", "T", 1, "C", false, 0, "")
	d.pdf.CellFormat(80, 6, "Member signature", "", 0, "C", false, 0, "")
	d.pdf.CellFormat(20, 6, "", "", 0, "C", false, 0, "")
	d.pdf.CellFormat(80, 6, "Pastor signature", "", 1, "C", false, 0, "")

	return d.output(w)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
