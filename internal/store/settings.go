package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
)

// Settings keys. The counter and prefix drive identifier generation; the
// start point anchors route calculations.
const (
	KeyIDCounter  = "idCounter"
	KeyIDPrefix   = "idPrefix"
	KeyStartPoint = "startPoint"
)

// DefaultIDPrefix is used until an installation configures its own.
const DefaultIDPrefix = "FICHE"

// Setting reads one settings slot. A missing key returns "" without error.
func (s *Store) Setting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRow(ctx, `SELECT value FROM settings WHERE key = $1`, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting writes one settings slot.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO settings (key, value) VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("write setting %s: %w", key, err)
	}
	return nil
}

// IDCounter returns the next free identifier counter value. Starts at 1 on
// a fresh installation.
func (s *Store) IDCounter(ctx context.Context) (int, error) {
	raw, err := s.Setting(ctx, KeyIDCounter)
	if err != nil {
		return 0, err
	}
	if raw == "" {
		return 1, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("corrupt id counter value %q", raw)
	}
	return n, nil
}

// SetIDCounter persists the next free counter value. The counter never
// decreases; callers only advance it after a batch fully composed its ids.
func (s *Store) SetIDCounter(ctx context.Context, n int) error {
	return s.SetSetting(ctx, KeyIDCounter, strconv.Itoa(n))
}

// IDPrefix returns the configured identifier prefix, falling back to the
// default.
func (s *Store) IDPrefix(ctx context.Context) (string, error) {
	prefix, err := s.Setting(ctx, KeyIDPrefix)
	if err != nil {
		return "", err
	}
	if prefix == "" {
		return DefaultIDPrefix, nil
	}
	return prefix, nil
}
