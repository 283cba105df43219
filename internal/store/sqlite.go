package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/paylens/paylens/internal/logging"
	"github.com/paylens/paylens/internal/model"
)

const migrationSQL = `
CREATE TABLE IF NOT EXISTS merchant_scans (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  domain TEXT NOT NULL,
  url TEXT NOT NULL,
  scan_status TEXT NOT NULL,
  readiness_score INTEGER NOT NULL DEFAULT 0,
  protocol_score INTEGER NOT NULL DEFAULT 0,
  data_score INTEGER NOT NULL DEFAULT 0,
  accessibility_score INTEGER NOT NULL DEFAULT 0,
  checkout_score INTEGER NOT NULL DEFAULT 0,
  business_model TEXT,
  last_scanned_at INTEGER,
  scan_duration_ms INTEGER,
  error_message TEXT,
  UNIQUE(tenant_id, domain)
);

CREATE TABLE IF NOT EXISTS scan_protocol_results (
  id TEXT PRIMARY KEY,
  scan_id TEXT NOT NULL,
  protocol TEXT NOT NULL,
  status TEXT NOT NULL,
  confidence TEXT NOT NULL,
  detection_method TEXT,
  endpoint_url TEXT,
  capabilities TEXT,
  response_time_ms INTEGER,
  is_functional INTEGER NOT NULL DEFAULT 0,
  eligibility_signals TEXT,
  UNIQUE(scan_id, protocol)
);

CREATE TABLE IF NOT EXISTS scan_structured_data (
  scan_id TEXT PRIMARY KEY,
  data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS scan_accessibility (
  scan_id TEXT PRIMARY KEY,
  data TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS capability_snapshots (
  id TEXT PRIMARY KEY,
  tenant_id TEXT NOT NULL,
  domain TEXT NOT NULL,
  protocol TEXT NOT NULL,
  capabilities TEXT NOT NULL,
  fetched_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_scans_tenant ON merchant_scans(tenant_id);
CREATE INDEX IF NOT EXISTS idx_results_scan ON scan_protocol_results(scan_id);
CREATE INDEX IF NOT EXISTS idx_snapshots_key ON capability_snapshots(tenant_id, domain, protocol, fetched_at);
`

// SQLiteStore implements ScanStore on a modernc sqlite database.
type SQLiteStore struct {
	db     *sql.DB
	logger logging.Logger
}

// NewSQLiteStore opens (or creates) the database at path and runs the
// migration. Use ":memory:" for tests.
func NewSQLiteStore(path string, logger logging.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// Serialize writers; modernc sqlite deadlocks under concurrent writes
	// otherwise.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA foreign_keys = ON; PRAGMA journal_mode = WAL; PRAGMA busy_timeout = 5000;`); err != nil {
		logger.Warn("sqlite pragmas", logging.Field{Key: "error", Value: err.Error()})
	}
	if _, err := db.Exec(migrationSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migration: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		logger: logger.With(logging.Field{Key: "component", Value: "store"}),
	}, nil
}

// DB exposes the underlying handle for tests.
func (s *SQLiteStore) DB() *sql.DB { return s.db }

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) UpsertScanning(ctx context.Context, tenantID, domain, url string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx,
		`SELECT id FROM merchant_scans WHERE tenant_id = ? AND domain = ?`,
		tenantID, domain).Scan(&id)
	switch {
	case err == sql.ErrNoRows:
		id = uuid.New().String()
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO merchant_scans (id, tenant_id, domain, url, scan_status)
			VALUES (?, ?, ?, ?, ?)
		`, id, tenantID, domain, url, string(model.ScanScanning)); err != nil {
			return "", fmt.Errorf("insert scan: %w", err)
		}
	case err != nil:
		return "", fmt.Errorf("lookup scan: %w", err)
	default:
		if _, err := s.db.ExecContext(ctx, `
			UPDATE merchant_scans SET url = ?, scan_status = ?, error_message = NULL
			WHERE id = ?
		`, url, string(model.ScanScanning), id); err != nil {
			return "", fmt.Errorf("update scan: %w", err)
		}
	}
	return id, nil
}

func (s *SQLiteStore) CompleteScan(ctx context.Context, scanID string, scores model.ScoreBreakdown, businessModel model.BusinessModel, scannedAt time.Time, durationMs int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE merchant_scans SET
		  scan_status = ?, readiness_score = ?, protocol_score = ?,
		  data_score = ?, accessibility_score = ?, checkout_score = ?,
		  business_model = ?, last_scanned_at = ?, scan_duration_ms = ?,
		  error_message = NULL
		WHERE id = ?
	`, string(model.ScanCompleted), scores.Readiness, scores.Protocol,
		scores.Data, scores.Accessibility, scores.Checkout,
		string(businessModel), scannedAt.Unix(), durationMs, scanID)
	if err != nil {
		return fmt.Errorf("complete scan: %w", err)
	}
	return nil
}

func (s *SQLiteStore) FailScan(ctx context.Context, scanID, errorMessage string, durationMs int64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE merchant_scans SET scan_status = ?, error_message = ?, scan_duration_ms = ?
		WHERE id = ?
	`, string(model.ScanFailed), errorMessage, durationMs, scanID)
	if err != nil {
		return fmt.Errorf("fail scan: %w", err)
	}
	return nil
}

func (s *SQLiteStore) GetScanByDomain(ctx context.Context, tenantID, domain string) (*model.MerchantScan, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, tenant_id, domain, url, scan_status, readiness_score,
		       protocol_score, data_score, accessibility_score, checkout_score,
		       business_model, last_scanned_at, scan_duration_ms, error_message
		FROM merchant_scans WHERE tenant_id = ? AND domain = ?
	`, tenantID, domain)

	scan, err := scanFromRow(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get scan: %w", err)
	}

	if err := s.loadChildren(ctx, scan); err != nil {
		return nil, err
	}
	return scan, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFromRow(row rowScanner) (*model.MerchantScan, error) {
	var (
		scan          model.MerchantScan
		businessModel sql.NullString
		lastScannedAt sql.NullInt64
		durationMs    sql.NullInt64
		errorMessage  sql.NullString
	)
	if err := row.Scan(
		&scan.ID, &scan.TenantID, &scan.Domain, &scan.URL, &scan.Status,
		&scan.Scores.Readiness, &scan.Scores.Protocol, &scan.Scores.Data,
		&scan.Scores.Accessibility, &scan.Scores.Checkout,
		&businessModel, &lastScannedAt, &durationMs, &errorMessage,
	); err != nil {
		return nil, err
	}
	scan.BusinessModel = model.BusinessModel(businessModel.String)
	if lastScannedAt.Valid {
		scan.LastScannedAt = time.Unix(lastScannedAt.Int64, 0).UTC()
	}
	scan.ScanDurationMs = durationMs.Int64
	scan.ErrorMessage = errorMessage.String
	return &scan, nil
}

func (s *SQLiteStore) loadChildren(ctx context.Context, scan *model.MerchantScan) error {
	rows, err := s.db.QueryContext(ctx, `
		SELECT protocol, status, confidence, detection_method, endpoint_url,
		       capabilities, response_time_ms, is_functional, eligibility_signals
		FROM scan_protocol_results WHERE scan_id = ? ORDER BY protocol
	`, scan.ID)
	if err != nil {
		return fmt.Errorf("load protocol results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			r            model.ProbeResult
			method       sql.NullString
			endpoint     sql.NullString
			capabilities sql.NullString
			responseMs   sql.NullInt64
			functional   int
			signals      sql.NullString
		)
		if err := rows.Scan(&r.Protocol, &r.Status, &r.Confidence, &method,
			&endpoint, &capabilities, &responseMs, &functional, &signals); err != nil {
			return fmt.Errorf("scan protocol result: %w", err)
		}
		r.DetectionMethod = method.String
		r.EndpointURL = endpoint.String
		r.ResponseTimeMs = responseMs.Int64
		r.IsFunctional = functional != 0
		if signals.Valid && signals.String != "" {
			_ = json.Unmarshal([]byte(signals.String), &r.EligibilitySignals)
		}
		scan.ProtocolResults = append(scan.ProtocolResults, r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate protocol results: %w", err)
	}

	var structuredJSON string
	err = s.db.QueryRowContext(ctx,
		`SELECT data FROM scan_structured_data WHERE scan_id = ?`, scan.ID).Scan(&structuredJSON)
	if err == nil {
		var structured model.StructuredDataResult
		if json.Unmarshal([]byte(structuredJSON), &structured) == nil {
			scan.StructuredData = &structured
		}
	} else if err != sql.ErrNoRows {
		return fmt.Errorf("load structured data: %w", err)
	}

	var accessJSON string
	err = s.db.QueryRowContext(ctx,
		`SELECT data FROM scan_accessibility WHERE scan_id = ?`, scan.ID).Scan(&accessJSON)
	if err == nil {
		var access model.AccessibilityResult
		if json.Unmarshal([]byte(accessJSON), &access) == nil {
			scan.Accessibility = &access
		}
	} else if err != sql.ErrNoRows {
		return fmt.Errorf("load accessibility: %w", err)
	}

	return nil
}

func (s *SQLiteStore) ReplaceProtocolResults(ctx context.Context, scanID string, results []model.ProbeResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rb := tx.Rollback(); rb != nil && rb != sql.ErrTxDone {
			s.logger.Warn("rollback failed", logging.Field{Key: "error", Value: rb.Error()})
		}
	}()

	if _, err := tx.ExecContext(ctx, `DELETE FROM scan_protocol_results WHERE scan_id = ?`, scanID); err != nil {
		return fmt.Errorf("delete protocol results: %w", err)
	}

	for _, r := range results {
		capsJSON, err := json.Marshal(r.Capabilities())
		if err != nil {
			capsJSON = []byte("{}")
		}
		signalsJSON, err := json.Marshal(r.EligibilitySignals)
		if err != nil {
			signalsJSON = []byte("[]")
		}
		functional := 0
		if r.IsFunctional {
			functional = 1
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO scan_protocol_results
			  (id, scan_id, protocol, status, confidence, detection_method,
			   endpoint_url, capabilities, response_time_ms, is_functional, eligibility_signals)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, uuid.New().String(), scanID, string(r.Protocol), string(r.Status),
			string(r.Confidence), r.DetectionMethod, r.EndpointURL,
			string(capsJSON), r.ResponseTimeMs, functional, string(signalsJSON)); err != nil {
			return fmt.Errorf("insert protocol result: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ReplaceStructuredData(ctx context.Context, scanID string, data model.StructuredDataResult) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal structured data: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO scan_structured_data (scan_id, data) VALUES (?, ?)
	`, scanID, string(payload)); err != nil {
		return fmt.Errorf("replace structured data: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ReplaceAccessibility(ctx context.Context, scanID string, data model.AccessibilityResult) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal accessibility: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO scan_accessibility (scan_id, data) VALUES (?, ?)
	`, scanID, string(payload)); err != nil {
		return fmt.Errorf("replace accessibility: %w", err)
	}
	return nil
}

func (s *SQLiteStore) ListScans(ctx context.Context, tenantID string) ([]model.MerchantScan, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, tenant_id, domain, url, scan_status, readiness_score,
		       protocol_score, data_score, accessibility_score, checkout_score,
		       business_model, last_scanned_at, scan_duration_ms, error_message
		FROM merchant_scans WHERE tenant_id = ?
		ORDER BY readiness_score DESC, domain ASC
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list scans: %w", err)
	}
	defer rows.Close()

	var scans []model.MerchantScan
	for rows.Next() {
		scan, err := scanFromRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		scans = append(scans, *scan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scans: %w", err)
	}
	return scans, nil
}
