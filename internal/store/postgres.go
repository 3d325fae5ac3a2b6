package store

import (
	"context"
	_ "embed"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serroba/link-tracker/internal/tracking"
)

//go:embed schema.sql
var schema string

// PostgresStore is a PostgreSQL implementation of tracking.Repository.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgreSQL-backed link store.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Migrate creates the tables if they do not exist yet.
func (p *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := p.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}

	return nil
}

func (p *PostgresStore) CreateLink(ctx context.Context, link *tracking.Link) error {
	query := `
		INSERT INTO tracking_links (id, name, destination_url, hit_count, created_at)
		VALUES ($1, $2, $3, 0, COALESCE($4, now()))
		RETURNING created_at
	`

	return p.pool.QueryRow(ctx, query,
		string(link.ID),
		link.Name,
		nullableString(link.DestinationURL),
		nullableTime(link),
	).Scan(&link.CreatedAt)
}

func (p *PostgresStore) GetLink(ctx context.Context, id tracking.LinkID) (*tracking.Link, error) {
	query := `
		SELECT id, name, destination_url, hit_count, created_at
		FROM tracking_links
		WHERE id = $1
	`

	link, err := scanLink(p.pool.QueryRow(ctx, query, string(id)))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, tracking.ErrNotFound
		}

		return nil, err
	}

	return link, nil
}

func (p *PostgresStore) IncrementHits(ctx context.Context, id tracking.LinkID) error {
	tag, err := p.pool.Exec(ctx, `UPDATE tracking_links SET hit_count = hit_count + 1 WHERE id = $1`, string(id))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return tracking.ErrNotFound
	}

	return nil
}

// SaveLocation inserts the record of a visit. An existing record of the same
// visit is only replaced by a gps record superseding an ip one.
func (p *PostgresStore) SaveLocation(ctx context.Context, id tracking.LinkID, r *tracking.LocationRecord) error {
	query := `
		INSERT INTO link_locations (
			link_id, visit_id, source, lat, lng, accuracy, altitude,
			ip, city, region, country, org, timezone, ip_lat, ip_lng,
			user_agent, language, platform
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
		ON CONFLICT (link_id, visit_id) DO UPDATE SET
			recorded_at = now(),
			source = EXCLUDED.source,
			lat = EXCLUDED.lat,
			lng = EXCLUDED.lng,
			accuracy = EXCLUDED.accuracy,
			altitude = EXCLUDED.altitude
		WHERE link_locations.source = 'ip' AND EXCLUDED.source = 'gps'
	`

	_, err := p.pool.Exec(ctx, query,
		string(id), r.VisitID, string(r.Source), r.Lat, r.Lng, r.Accuracy, r.Altitude,
		nullableString(r.IP), nullableString(r.City), nullableString(r.Region),
		nullableString(r.Country), nullableString(r.Org), nullableString(r.Timezone),
		r.IPLat, r.IPLng,
		nullableString(r.Client.UserAgent), nullableString(r.Client.Language), nullableString(r.Client.Platform),
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			return tracking.ErrNotFound
		}

		return err
	}

	return nil
}

func (p *PostgresStore) ListLinks(ctx context.Context) ([]*tracking.Link, error) {
	query := `
		SELECT id, name, destination_url, hit_count, created_at
		FROM tracking_links
		ORDER BY created_at DESC, id
	`

	rows, err := p.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	links := []*tracking.Link{}

	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, err
		}

		links = append(links, link)
	}

	return links, rows.Err()
}

func (p *PostgresStore) DeleteLink(ctx context.Context, id tracking.LinkID) error {
	tag, err := p.pool.Exec(ctx, `DELETE FROM tracking_links WHERE id = $1`, string(id))
	if err != nil {
		return err
	}

	if tag.RowsAffected() == 0 {
		return tracking.ErrNotFound
	}

	return nil
}

func (p *PostgresStore) ListLocations(ctx context.Context, id tracking.LinkID) ([]*tracking.LocationRecord, error) {
	if _, err := p.GetLink(ctx, id); err != nil {
		return nil, err
	}

	query := `
		SELECT visit_id, recorded_at, source, lat, lng, accuracy, altitude,
			ip, city, region, country, org, timezone, ip_lat, ip_lng,
			user_agent, language, platform
		FROM link_locations
		WHERE link_id = $1
		ORDER BY recorded_at DESC, visit_id
	`

	rows, err := p.pool.Query(ctx, query, string(id))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []*tracking.LocationRecord{}

	for rows.Next() {
		var (
			r                                        tracking.LocationRecord
			source                                   string
			ip, city, region, country, org, timezone *string
			userAgent, language, platform            *string
		)

		err := rows.Scan(
			&r.VisitID, &r.Timestamp, &source, &r.Lat, &r.Lng, &r.Accuracy, &r.Altitude,
			&ip, &city, &region, &country, &org, &timezone, &r.IPLat, &r.IPLng,
			&userAgent, &language, &platform,
		)
		if err != nil {
			return nil, err
		}

		r.Source = tracking.Source(source)
		r.IP = deref(ip)
		r.City = deref(city)
		r.Region = deref(region)
		r.Country = deref(country)
		r.Org = deref(org)
		r.Timezone = deref(timezone)
		r.Client = tracking.ClientMeta{
			UserAgent: deref(userAgent),
			Language:  deref(language),
			Platform:  deref(platform),
		}

		records = append(records, &r)
	}

	return records, rows.Err()
}

func scanLink(row pgx.Row) (*tracking.Link, error) {
	var (
		link tracking.Link
		id   string
		dest *string
	)

	if err := row.Scan(&id, &link.Name, &dest, &link.HitCount, &link.CreatedAt); err != nil {
		return nil, err
	}

	link.ID = tracking.LinkID(id)
	link.DestinationURL = deref(dest)

	return &link, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}

	return &s
}

func nullableTime(link *tracking.Link) any {
	if link.CreatedAt.IsZero() {
		return nil
	}

	return link.CreatedAt
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError

	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}

func deref(s *string) string {
	if s == nil {
		return ""
	}

	return *s
}

// Compile-time check.
var _ tracking.Repository = (*PostgresStore)(nil)
