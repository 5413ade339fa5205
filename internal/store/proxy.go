package store

import (
	"errors"
	"fmt"
	"net"
	"strconv"
)

// maxProxyLeases is how many concurrent runs may share one proxy before it
// stops being handed out.
const maxProxyLeases = 4

// ErrNoProxy means every proxy in the pool is at its lease limit.
var ErrNoProxy = errors.New("no proxy available")

// Proxy is one entry of the shared proxy pool.
type Proxy struct {
	IP       string
	Port     int
	User     string
	Password string
}

// Addr returns the host:port of the proxy.
func (p Proxy) Addr() string {
	return net.JoinHostPort(p.IP, strconv.Itoa(p.Port))
}

// AcquireProxy leases the least loaded proxy and bumps its usage counter.
// The caller must release it on shutdown, crash included, or the slot
// stays burned until someone resets the pool.
func (s *Store) AcquireProxy() (*Proxy, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("acquire proxy: %w", err)
	}
	defer tx.Rollback()

	var p Proxy
	err = tx.QueryRow(
		`SELECT ip, port, user, password FROM proxies
		 WHERE used < ? ORDER BY used, ip LIMIT 1`, maxProxyLeases,
	).Scan(&p.IP, &p.Port, &p.User, &p.Password)
	if err != nil {
		return nil, ErrNoProxy
	}
	if _, err := tx.Exec(
		`UPDATE proxies SET used = used + 1 WHERE ip = ? AND port = ?`,
		p.IP, p.Port); err != nil {
		return nil, fmt.Errorf("lease proxy: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("acquire proxy: %w", err)
	}
	return &p, nil
}

// ReleaseProxy returns a lease to the pool.
func (s *Store) ReleaseProxy(p *Proxy) error {
	_, err := s.db.Exec(
		`UPDATE proxies SET used = MAX(used - 1, 0) WHERE ip = ? AND port = ?`,
		p.IP, p.Port)
	if err != nil {
		return fmt.Errorf("release proxy: %w", err)
	}
	return nil
}

// AddProxy registers a proxy in the pool. Existing entries keep their
// usage counter.
func (s *Store) AddProxy(p Proxy) error {
	_, err := s.db.Exec(
		`INSERT INTO proxies (ip, port, user, password) VALUES (?, ?, ?, ?)
		 ON CONFLICT (ip, port) DO UPDATE SET user = excluded.user, password = excluded.password`,
		p.IP, p.Port, p.User, p.Password)
	if err != nil {
		return fmt.Errorf("add proxy: %w", err)
	}
	return nil
}
