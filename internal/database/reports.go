package database

import (
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/0x3st/ainic/internal/model"
	"github.com/0x3st/ainic/internal/platform"
)

func (db *DB) CreateReport(targetFQDN, reason, reporterIP string) (*model.AbuseReport, error) {
	r := &model.AbuseReport{
		ID:         uuid.NewString(),
		TargetFQDN: targetFQDN,
		Reason:     reason,
		ReporterIP: reporterIP,
		Status:     model.ReportOpen,
	}
	err := db.conn.QueryRow(
		`INSERT INTO abuse_reports (id, target_fqdn, reason, reporter_ip, status)
		 VALUES ($1, $2, $3, $4, $5) RETURNING created_at`,
		r.ID, r.TargetFQDN, r.Reason, r.ReporterIP, r.Status,
	).Scan(&r.CreatedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}

func (db *DB) GetReport(id string) (*model.AbuseReport, error) {
	r := &model.AbuseReport{}
	var resolution, resolvedBy, reporterIP sql.NullString
	var resolvedAt sql.NullTime
	err := db.conn.QueryRow(
		`SELECT id, target_fqdn, reason, reporter_ip, status, resolution, resolved_by, created_at, resolved_at
		 FROM abuse_reports WHERE id = $1`, id,
	).Scan(&r.ID, &r.TargetFQDN, &r.Reason, &reporterIP, &r.Status, &resolution, &resolvedBy, &r.CreatedAt, &resolvedAt)
	if err == sql.ErrNoRows {
		return nil, platform.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.ReporterIP = reporterIP.String
	r.Resolution = resolution.String
	r.ResolvedBy = resolvedBy.String
	if resolvedAt.Valid {
		t := resolvedAt.Time
		r.ResolvedAt = &t
	}
	return r, nil
}

func (db *DB) ListReports(status string, limit, offset int) ([]model.AbuseReport, int, error) {
	var total int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM abuse_reports WHERE status = $1", status).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := db.conn.Query(
		`SELECT id, target_fqdn, reason, reporter_ip, status, resolution, resolved_by, created_at, resolved_at
		 FROM abuse_reports WHERE status = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		status, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var reports []model.AbuseReport
	for rows.Next() {
		var r model.AbuseReport
		var resolution, resolvedBy, reporterIP sql.NullString
		var resolvedAt sql.NullTime
		if err := rows.Scan(&r.ID, &r.TargetFQDN, &r.Reason, &reporterIP, &r.Status,
			&resolution, &resolvedBy, &r.CreatedAt, &resolvedAt); err != nil {
			return nil, 0, err
		}
		r.ReporterIP = reporterIP.String
		r.Resolution = resolution.String
		r.ResolvedBy = resolvedBy.String
		if resolvedAt.Valid {
			t := resolvedAt.Time
			r.ResolvedAt = &t
		}
		reports = append(reports, r)
	}
	return reports, total, rows.Err()
}

func (db *DB) ResolveReport(id, resolution, resolvedBy string) error {
	res, err := db.conn.Exec(
		`UPDATE abuse_reports SET status = $1, resolution = $2, resolved_by = $3, resolved_at = $4
		 WHERE id = $5 AND status = $6`,
		model.ReportResolved, resolution, resolvedBy, time.Now(), id, model.ReportOpen,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return platform.ErrNotFound
	}
	return nil
}
