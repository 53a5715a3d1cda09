package database

import (
	"encoding/json"

	"github.com/0x3st/ainic/internal/model"
)

// Shadow copies of RRSets, kept only for providers whose batch updates are
// not atomic. The provider stays the source of truth for published state;
// these rows back audit and suspend/restore.

func (db *DB) ReplaceDomainRecords(domainID int64, records []model.DNSRecord, synced bool) error {
	tx, err := db.conn.Begin()
	if err != nil {
		return err
	}
	if _, err := tx.Exec("DELETE FROM dns_records WHERE domain_id = $1", domainID); err != nil {
		_ = tx.Rollback()
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO dns_records
		(domain_id, subname, type, ttl, values_json, proxied, synced)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, r := range records {
		values, _ := json.Marshal(r.Values)
		if _, err := stmt.Exec(domainID, r.Subname, r.Type, r.TTL, string(values), r.Proxied, synced); err != nil {
			_ = tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (db *DB) UpsertDomainRecord(r model.DNSRecord) error {
	values, _ := json.Marshal(r.Values)
	_, err := db.conn.Exec(`INSERT INTO dns_records
		(domain_id, subname, type, ttl, values_json, proxied, synced)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (domain_id, subname, type) DO UPDATE SET
		  ttl = $4, values_json = $5, proxied = $6, synced = $7, updated_at = NOW()`,
		r.DomainID, r.Subname, r.Type, r.TTL, string(values), r.Proxied, r.Synced)
	return err
}

func (db *DB) DeleteDomainRecord(domainID int64, subname, rtype string) error {
	_, err := db.conn.Exec(
		"DELETE FROM dns_records WHERE domain_id = $1 AND subname = $2 AND type = $3",
		domainID, subname, rtype)
	return err
}

func (db *DB) ListDomainRecords(domainID int64) ([]model.DNSRecord, error) {
	rows, err := db.conn.Query(
		`SELECT domain_id, subname, type, ttl, values_json, proxied, synced, updated_at
		 FROM dns_records WHERE domain_id = $1 ORDER BY subname, type`, domainID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []model.DNSRecord
	for rows.Next() {
		var r model.DNSRecord
		var values string
		if err := rows.Scan(&r.DomainID, &r.Subname, &r.Type, &r.TTL, &values, &r.Proxied, &r.Synced, &r.UpdatedAt); err != nil {
			return nil, err
		}
		_ = json.Unmarshal([]byte(values), &r.Values)
		records = append(records, r)
	}
	return records, rows.Err()
}

// MarkDomainRecordsSynced flips the provider-sync flag for every row of a
// domain, used around suspend (false) and restore (true).
func (db *DB) MarkDomainRecordsSynced(domainID int64, synced bool) error {
	_, err := db.conn.Exec(
		"UPDATE dns_records SET synced = $1, updated_at = NOW() WHERE domain_id = $2",
		synced, domainID)
	return err
}
