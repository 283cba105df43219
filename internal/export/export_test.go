package export_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/paylens/paylens/internal/export"
	"github.com/paylens/paylens/internal/model"
)

func TestWriteRankingXLSX(t *testing.T) {
	t.Parallel()

	scans := []model.MerchantScan{
		{
			Domain:        "best.example.com",
			Status:        model.ScanCompleted,
			BusinessModel: model.ModelRetail,
			Scores:        model.ScoreBreakdown{Readiness: 91, Protocol: 100, Data: 80, Accessibility: 90, Checkout: 85},
			LastScannedAt: time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC),
		},
		{
			Domain:        "next.example.com",
			Status:        model.ScanCompleted,
			BusinessModel: model.ModelSaaSAPI,
			Scores:        model.ScoreBreakdown{Readiness: 64},
		},
	}

	var buf bytes.Buffer
	if err := export.WriteRankingXLSX(&buf, scans); err != nil {
		t.Fatalf("WriteRankingXLSX: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("reading workbook back: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows("Readiness Ranking")
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if rows[0][0] != "Rank" || rows[0][1] != "Domain" {
		t.Errorf("unexpected header: %v", rows[0])
	}
	if rows[1][1] != "best.example.com" || rows[1][2] != "91" {
		t.Errorf("unexpected first data row: %v", rows[1])
	}
	if rows[2][0] != "2" {
		t.Errorf("rank column should follow input order, got %v", rows[2])
	}
}

func TestWriteRankingXLSX_Empty(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := export.WriteRankingXLSX(&buf, nil); err != nil {
		t.Fatalf("WriteRankingXLSX: %v", err)
	}
	if buf.Len() == 0 {
		t.Error("empty ranking should still be a valid workbook")
	}
}
