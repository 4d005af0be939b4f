package cache

import (
	"fmt"
	"net/http"
	"time"
)

// LoadCookies returns the unexpired cookies saved for host.
func (d *DB) LoadCookies(host string) ([]*http.Cookie, error) {
	rows, err := d.db.Query(`SELECT name, value, path, expires, secure, http_only
		FROM cookies WHERE host = ? ORDER BY name`, host)
	if err != nil {
		return nil, fmt.Errorf("loading cookies for %s: %w", host, err)
	}
	defer rows.Close()

	now := time.Now()
	var cookies []*http.Cookie
	for rows.Next() {
		var c http.Cookie
		var expires int64
		var secure, httpOnly int
		if err := rows.Scan(&c.Name, &c.Value, &c.Path, &expires, &secure, &httpOnly); err != nil {
			return nil, err
		}
		if expires > 0 {
			c.Expires = time.Unix(expires, 0)
			if !c.Expires.After(now) {
				continue
			}
		}
		c.Secure = secure != 0
		c.HttpOnly = httpOnly != 0
		cookies = append(cookies, &c)
	}
	return cookies, rows.Err()
}

// SaveCookies replaces every cookie stored for host.
func (d *DB) SaveCookies(host string, cookies []*http.Cookie) error {
	tx, err := d.db.Begin()
	if err != nil {
		return fmt.Errorf("saving cookies for %s: %w", host, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM cookies WHERE host = ?`, host); err != nil {
		return err
	}

	now := time.Now().Unix()
	for _, c := range cookies {
		path := c.Path
		if path == "" {
			path = "/"
		}
		var expires int64
		if !c.Expires.IsZero() {
			expires = c.Expires.Unix()
		}
		_, err := tx.Exec(`INSERT OR REPLACE INTO cookies
			(host, name, value, path, expires, secure, http_only, saved_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			host, c.Name, c.Value, path, expires, boolInt(c.Secure), boolInt(c.HttpOnly), now)
		if err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ClearCookies forgets every cookie stored for host.
func (d *DB) ClearCookies(host string) error {
	_, err := d.db.Exec(`DELETE FROM cookies WHERE host = ?`, host)
	return err
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
