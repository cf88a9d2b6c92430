package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/dukerupert/ekklesia/internal/ledger"
	"github.com/dukerupert/ekklesia/internal/model"
	"github.com/shopspring/decimal"
)

func int64Ptr(v int64) *int64 { return &v }

func sampleEntries() []model.LedgerEntry {
	return []model.LedgerEntry{
		{Kind: model.KindIncome, Category: "Tithe", Description: "Dízimo, março", Amount: decimal.RequireFromString("150.5"), Date: "2026-03-01", MemberID: int64Ptr(7)},
		{Kind: model.KindExpense, Category: "Utilities", Description: "Energia \"elétrica\"", Amount: decimal.RequireFromString("80"), Date: "2026-03-05"},
	}
}

func TestLedgerCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := LedgerCSV(&buf, sampleEntries()); err != nil {
		t.Fatalf("LedgerCSV: %v", err)
	}

	want := "date,kind,category,description,amount,member_id\n" +
		"2026-03-01,income,Tithe,\"Dízimo, março\",150.50,7\n" +
		"2026-03-05,expense,Utilities,\"Energia \"\"elétrica\"\"\",80.00,\n"
	if buf.String() != want {
		t.Errorf("csv =\n%s\nwant\n%s", buf.String(), want)
	}
}

func TestLedgerCSVEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := LedgerCSV(&buf, nil); err != nil {
		t.Fatalf("LedgerCSV: %v", err)
	}
	if buf.String() != "date,kind,category,description,amount,member_id\n" {
		t.Errorf("csv = %q, want header only", buf.String())
	}
}

func TestLedgerPDF(t *testing.T) {
	Now = func() time.Time { return time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC) }
	defer func() { Now = time.Now }()

	entries := sampleEntries()
	var buf bytes.Buffer
	filter := model.LedgerFilter{From: "2026-03-01", To: "2026-03-31"}
	if err := LedgerPDF(&buf, "Assembleia de Deus", filter, entries, ledger.Summarize(entries)); err != nil {
		t.Fatalf("LedgerPDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Error("output should be a PDF document")
	}
}

func TestLedgerPDFNoEntries(t *testing.T) {
	var buf bytes.Buffer
	if err := LedgerPDF(&buf, "Igreja", model.LedgerFilter{}, nil, ledger.Summarize(nil)); err != nil {
		t.Fatalf("LedgerPDF: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("expected output")
	}
}

func TestMemberPDF(t *testing.T) {
	m := &model.Member{Name: "João da Silva", City: "Recife", Status: model.MemberActive, SpiritBaptized: true}

	var buf bytes.Buffer
	if err := MemberPDF(&buf, "Assembleia de Deus", m); err != nil {
		t.Fatalf("MemberPDF: %v", err)
	}
	if !bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")) {
		t.Error("output should be a PDF document")
	}
}

func TestMemberSectionsNotProvided(t *testing.T) {
	m := &model.Member{Name: "Maria", Street: "Rua A", Number: "10"}

	values := map[string]string{}
	for _, sec := range memberSections(m) {
		for _, f := range sec.Fields {
			values[f.Label] = orNotProvided(f.Value)
		}
	}

	if values["Name"] != "Maria" {
		t.Errorf("Name = %q", values["Name"])
	}
	if values["Address"] != "Rua A, 10" {
		t.Errorf("Address = %q, want %q", values["Address"], "Rua A, 10")
	}
	for _, label := range []string{"CPF", "Mobile", "Congregation", "Notes"} {
		if values[label] != notProvided {
			t.Errorf("%s = %q, want %q", label, values[label], notProvided)
		}
	}
	if values["Baptized in the Spirit"] != "No" {
		t.Errorf("spirit baptized = %q, want No", values["Baptized in the Spirit"])
	}
}

func TestPeriod(t *testing.T) {
	tests := []struct {
		f    model.LedgerFilter
		want string
	}{
		{model.LedgerFilter{}, "All entries"},
		{model.LedgerFilter{From: "2026-01-01"}, "From 2026-01-01"},
		{model.LedgerFilter{To: "2026-01-31"}, "Until 2026-01-31"},
		{model.LedgerFilter{From: "2026-01-01", To: "2026-01-31"}, "2026-01-01 to 2026-01-31"},
	}
	for _, tt := range tests {
		if got := period(tt.f); got != tt.want {
			t.Errorf("period(%+v) = %q, want %q", tt.f, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("ççççççççç", 5); !strings.HasSuffix(got, "…") || len([]rune(got)) != 5 {
		t.Errorf("truncate = %q", got)
	}
}
