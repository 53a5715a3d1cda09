package database

import (
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/0x3st/ainic/internal/model"
	"github.com/0x3st/ainic/internal/platform"
)

const domainColumns = "id, label, fqdn, owner, status, reason, name_servers, created_at"

// CreateDomain inserts a pending row. The unique constraints on label, fqdn
// and active-domains-per-owner are the only guard against two registrations
// racing for the same name; violations surface as platform.ErrConflict.
func (db *DB) CreateDomain(label, fqdn, owner string) (*model.Domain, error) {
	d := &model.Domain{Label: label, FQDN: fqdn, Owner: owner, Status: model.StatusPending}
	err := db.conn.QueryRow(
		`INSERT INTO domains (label, fqdn, owner, status) VALUES ($1, $2, $3, $4)
		 RETURNING id, created_at`,
		label, fqdn, owner, model.StatusPending,
	).Scan(&d.ID, &d.CreatedAt)
	if isUniqueViolation(err) {
		return nil, platform.ErrConflict
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (db *DB) GetDomainByLabel(label string) (*model.Domain, error) {
	row := db.conn.QueryRow("SELECT "+domainColumns+" FROM domains WHERE label = $1", label)
	return scanDomain(row)
}

func (db *DB) ListDomainsByOwner(owner string) ([]model.Domain, error) {
	rows, err := db.conn.Query("SELECT "+domainColumns+" FROM domains WHERE owner = $1 ORDER BY created_at", owner)
	if err != nil {
		return nil, err
	}
	return collectDomains(rows)
}

func (db *DB) ListDomains(limit, offset int) ([]model.Domain, int, error) {
	var total int
	if err := db.conn.QueryRow("SELECT COUNT(*) FROM domains").Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := db.conn.Query(
		"SELECT "+domainColumns+" FROM domains ORDER BY created_at DESC LIMIT $1 OFFSET $2",
		limit, offset)
	if err != nil {
		return nil, 0, err
	}
	domains, err := collectDomains(rows)
	return domains, total, err
}

// ActivateDomain moves a pending row to active and records the delegated
// name servers.
func (db *DB) ActivateDomain(id int64, nameServers []string) error {
	ns, _ := json.Marshal(nameServers)
	_, err := db.conn.Exec(
		"UPDATE domains SET status = $1, name_servers = $2 WHERE id = $3",
		model.StatusActive, string(ns), id,
	)
	return err
}

func (db *DB) SetDomainStatus(label, status, reason string) error {
	res, err := db.conn.Exec(
		"UPDATE domains SET status = $1, reason = $2 WHERE label = $3",
		status, reason, label,
	)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return platform.ErrNotFound
	}
	return nil
}

func (db *DB) DeleteDomain(id int64) error {
	_, err := db.conn.Exec("DELETE FROM domains WHERE id = $1", id)
	return err
}

func scanDomain(row *sql.Row) (*model.Domain, error) {
	d := &model.Domain{}
	var reason, ns sql.NullString
	err := row.Scan(&d.ID, &d.Label, &d.FQDN, &d.Owner, &d.Status, &reason, &ns, &d.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, platform.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	d.Reason = reason.String
	if ns.Valid && ns.String != "" {
		_ = json.Unmarshal([]byte(ns.String), &d.NameServers)
	}
	return d, nil
}

func collectDomains(rows *sql.Rows) ([]model.Domain, error) {
	defer rows.Close()
	var domains []model.Domain
	for rows.Next() {
		var d model.Domain
		var reason, ns sql.NullString
		if err := rows.Scan(&d.ID, &d.Label, &d.FQDN, &d.Owner, &d.Status, &reason, &ns, &d.CreatedAt); err != nil {
			return nil, err
		}
		d.Reason = reason.String
		if ns.Valid && ns.String != "" {
			_ = json.Unmarshal([]byte(ns.String), &d.NameServers)
		}
		domains = append(domains, d)
	}
	return domains, rows.Err()
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
