package database

import (
	"database/sql"

	"github.com/0x3st/ainic/internal/model"
)

func (db *DB) LogAudit(entry model.AuditEntry) error {
	_, err := db.conn.Exec(
		`INSERT INTO audit_log (username, action, target, detail, ip_address)
		 VALUES ($1, $2, $3, $4, $5)`,
		entry.Username, entry.Action, entry.Target, entry.Detail, entry.IPAddress,
	)
	return err
}

func (db *DB) ListAuditLog(limit, offset int) ([]model.AuditEntry, int, error) {
	var total int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM audit_log").Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := db.conn.Query(
		`SELECT id, username, action, target, detail, ip_address, created_at
		 FROM audit_log ORDER BY created_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var entries []model.AuditEntry
	for rows.Next() {
		var e model.AuditEntry
		var target, detail, ip sql.NullString
		if err := rows.Scan(&e.ID, &e.Username, &e.Action, &target, &detail, &ip, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		e.Target = target.String
		e.Detail = detail.String
		e.IPAddress = ip.String
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}
