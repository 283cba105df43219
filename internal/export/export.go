// Package export renders scan results into downloadable report files.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/paylens/paylens/internal/model"
)

const rankingSheet = "Readiness Ranking"

var rankingHeader = []any{
	"Rank", "Domain", "Readiness", "Protocol", "Data", "Accessibility",
	"Checkout", "Business Model", "Status", "Last Scanned",
}

// WriteRankingXLSX writes tenant scans as an xlsx workbook, one row per
// merchant, in the order given. Callers pass scans already ranked by
// readiness score.
func WriteRankingXLSX(w io.Writer, scans []model.MerchantScan) error {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", rankingSheet)

	if err := f.SetSheetRow(rankingSheet, "A1", &rankingHeader); err != nil {
		return fmt.Errorf("writing header row: %w", err)
	}

	for i, scan := range scans {
		lastScanned := ""
		if !scan.LastScannedAt.IsZero() {
			lastScanned = scan.LastScannedAt.Format("2006-01-02 15:04:05")
		}
		row := []any{
			i + 1,
			scan.Domain,
			scan.Scores.Readiness,
			scan.Scores.Protocol,
			scan.Scores.Data,
			scan.Scores.Accessibility,
			scan.Scores.Checkout,
			string(scan.BusinessModel),
			string(scan.Status),
			lastScanned,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("computing cell name: %w", err)
		}
		if err := f.SetSheetRow(rankingSheet, cell, &row); err != nil {
			return fmt.Errorf("writing row %d: %w", i+1, err)
		}
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}
