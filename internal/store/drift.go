package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sergi/go-diff/diffmatchpatch"

	"github.com/paylens/paylens/internal/model"
)

// AppendCapabilitySnapshots records one capability snapshot per protocol
// for a completed scan. Unlike protocol result rows these are append-only
// history, which is what makes cross-scan drift reporting possible.
func (s *SQLiteStore) AppendCapabilitySnapshots(ctx context.Context, tenantID, domain string, results []model.ProbeResult, at time.Time) error {
	for _, r := range results {
		capsJSON, err := json.Marshal(r.Capabilities())
		if err != nil {
			capsJSON = []byte("{}")
		}
		if _, err := s.db.ExecContext(ctx, `
			INSERT INTO capability_snapshots (id, tenant_id, domain, protocol, capabilities, fetched_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, uuid.New().String(), tenantID, domain, string(r.Protocol), string(capsJSON), at.UnixNano()); err != nil {
			return fmt.Errorf("insert capability snapshot: %w", err)
		}
	}
	return nil
}

// ManifestDrift compares the two most recent capability snapshots for one
// protocol. With only one snapshot on record the report is returned with
// Changed=false and both timestamps equal; with none, ErrNotFound.
func (s *SQLiteStore) ManifestDrift(ctx context.Context, tenantID, domain string, protocol model.Protocol) (*DriftReport, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT capabilities, fetched_at FROM capability_snapshots
		WHERE tenant_id = ? AND domain = ? AND protocol = ?
		ORDER BY fetched_at DESC LIMIT 2
	`, tenantID, domain, string(protocol))
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	type snapshot struct {
		caps string
		at   int64
	}
	var snapshots []snapshot
	for rows.Next() {
		var snap snapshot
		if err := rows.Scan(&snap.caps, &snap.at); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snapshots = append(snapshots, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	if len(snapshots) == 0 {
		return nil, ErrNotFound
	}

	current := snapshots[0]
	previous := current
	if len(snapshots) == 2 {
		previous = snapshots[1]
	}

	report := &DriftReport{
		Protocol:   protocol,
		PreviousAt: time.Unix(0, previous.at).UTC(),
		CurrentAt:  time.Unix(0, current.at).UTC(),
	}
	if previous.caps == current.caps {
		return report, nil
	}

	dmp := diffmatchpatch.New()
	diffs := dmp.DiffMain(previous.caps, current.caps, false)
	for _, d := range diffs {
		switch d.Type {
		case diffmatchpatch.DiffInsert:
			report.Inserted += len(d.Text)
		case diffmatchpatch.DiffDelete:
			report.Deleted += len(d.Text)
		}
	}
	report.Changed = report.Inserted > 0 || report.Deleted > 0
	report.Patch = dmp.PatchToText(dmp.PatchMake(previous.caps, diffs))

	return report, nil
}
