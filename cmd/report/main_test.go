package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus/hooks/test"

	"github.com/Hadesalive/Remvin-Ent-sub000/internal/config"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/domain"
	"github.com/Hadesalive/Remvin-Ent-sub000/internal/store/memory"
)

func TestParseFlagsDefaults(t *testing.T) {
	opts, err := parseFlags(nil, io.Discard)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if opts.rangeKind != "month" || opts.format != "json" || opts.limit != 0 {
		t.Fatalf("unexpected defaults: %+v", opts)
	}
}

func TestParseFlagsRejectsUnknownFormat(t *testing.T) {
	_, err := parseFlags([]string{"-format", "pdf"}, io.Discard)
	if !errors.Is(err, errUnknownFormat) {
		t.Fatalf("expected unknown format error, got %v", err)
	}
}

func TestParseFlagsXLSXNeedsOutputFile(t *testing.T) {
	if _, err := parseFlags([]string{"-format", "xlsx"}, io.Discard); err == nil {
		t.Fatalf("expected xlsx without -out to fail")
	}
	if _, err := parseFlags([]string{"-format", "XLSX", "-out", "r.xlsx"}, io.Discard); err != nil {
		t.Fatalf("expected xlsx with -out to pass, got %v", err)
	}
}

func testConfig() config.Config {
	return config.Config{StoreID: "main-store", ReportTimezone: "UTC", TopN: 10, LowStockThreshold: 10}
}

func testRepo() *memory.Store {
	now := time.Now().UTC()
	return memory.New(memory.Seed{
		Products: []domain.Product{
			{ID: "p1", Name: "Charger", Price: 100, Cost: amountPtr(60), Stock: 4},
		},
		Customers: []domain.Customer{{ID: "c1", Name: "Aminata"}},
		Sales: []domain.Sale{{
			ID:         "s1",
			CreatedAt:  now.Format(time.RFC3339),
			Total:      200,
			CustomerID: "c1",
			Items:      `[{"productId":"p1","quantity":2,"price":100}]`,
		}},
	})
}

func amountPtr(v domain.Amount) *domain.Amount {
	return &v
}

func TestRunWritesJSONReport(t *testing.T) {
	log, _ := test.NewNullLogger()
	var out bytes.Buffer
	err := run(context.Background(), testConfig(), testRepo(), options{rangeKind: "today", format: "json"}, &out, log)
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	var rep struct {
		Range        domain.DateRange `json:"range"`
		TotalRevenue json.Number      `json:"total_revenue"`
	}
	if err := json.Unmarshal(out.Bytes(), &rep); err != nil {
		t.Fatalf("decode output: %v", err)
	}
	if rep.Range.Kind != domain.RangeToday {
		t.Fatalf("expected today range, got %q", rep.Range.Kind)
	}
	if rep.TotalRevenue.String() != "200" {
		t.Fatalf("expected revenue 200, got %q", rep.TotalRevenue)
	}
}

func TestRunWritesCSVReport(t *testing.T) {
	log, _ := test.NewNullLogger()
	var out bytes.Buffer
	err := run(context.Background(), testConfig(), testRepo(), options{rangeKind: "week", format: "csv"}, &out, log)
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.HasPrefix(out.String(), "section,key,value") {
		t.Fatalf("expected csv header, got %q", out.String())
	}
}

func TestWriteOutputRemovesFileOnFailure(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")

	err := writeOutput(path, io.Discard, func(out io.Writer) error {
		_, _ = out.Write([]byte("section,key,value\n"))
		return errors.New("fetch sales: connection refused")
	})
	if err == nil {
		t.Fatalf("expected failure to propagate")
	}
	if _, statErr := os.Stat(path); !os.IsNotExist(statErr) {
		t.Fatalf("expected partial output to be removed, stat err = %v", statErr)
	}
}

func TestWriteOutputKeepsFileOnSuccess(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.csv")

	err := writeOutput(path, io.Discard, func(out io.Writer) error {
		_, err := out.Write([]byte("section,key,value\n"))
		return err
	})
	if err != nil {
		t.Fatalf("write output: %v", err)
	}
	payload, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read output: %v", err)
	}
	if string(payload) != "section,key,value\n" {
		t.Fatalf("unexpected output %q", payload)
	}
}

func TestWriteOutputDefaultsToStdout(t *testing.T) {
	var stdout bytes.Buffer
	if err := writeOutput("", &stdout, func(out io.Writer) error {
		_, err := out.Write([]byte("ok"))
		return err
	}); err != nil {
		t.Fatalf("write output: %v", err)
	}
	if stdout.String() != "ok" {
		t.Fatalf("expected stdout output, got %q", stdout.String())
	}
}
