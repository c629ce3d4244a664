package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"facade/internal/domain"
)

// Postgres persists building identities in PostgreSQL. The address payload
// is stored as JSONB; the compound key and building ID get their own
// columns for lookups.
//
// Schema:
//
//	CREATE TABLE building_identities (
//	    address_key   TEXT PRIMARY KEY,
//	    building_id   TEXT NOT NULL UNIQUE,
//	    property_key  TEXT NOT NULL,
//	    structure_key TEXT NOT NULL DEFAULT '',
//	    address       JSONB NOT NULL,
//	    resolved_at   TIMESTAMPTZ NOT NULL
//	);
type Postgres struct {
	db *sql.DB
}

// NewPostgres constructs a PostgreSQL-backed identity store.
func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (p *Postgres) Get(ctx context.Context, addressKey string) (domain.BuildingIdentity, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT building_id, property_key, structure_key, address, resolved_at
		FROM building_identities WHERE address_key = $1
	`, addressKey)
	return scanIdentity(row)
}

func (p *Postgres) ByID(ctx context.Context, id domain.BuildingID) (domain.BuildingIdentity, error) {
	row := p.db.QueryRowContext(ctx, `
		SELECT building_id, property_key, structure_key, address, resolved_at
		FROM building_identities WHERE building_id = $1
	`, string(id))
	return scanIdentity(row)
}

func (p *Postgres) Put(ctx context.Context, identity domain.BuildingIdentity) error {
	addr, err := json.Marshal(identity.Address)
	if err != nil {
		return fmt.Errorf("encode address: %w", err)
	}
	_, err = p.db.ExecContext(ctx, `
		INSERT INTO building_identities (address_key, building_id, property_key, structure_key, address, resolved_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (address_key) DO UPDATE SET
			building_id = EXCLUDED.building_id,
			property_key = EXCLUDED.property_key,
			structure_key = EXCLUDED.structure_key,
			address = EXCLUDED.address,
			resolved_at = EXCLUDED.resolved_at
	`, identity.Address.Key(), string(identity.BuildingID), identity.PropertyKey,
		identity.StructureKey, addr, identity.ResolvedAt)
	if err != nil {
		return fmt.Errorf("store identity: %w", err)
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, addressKey string) error {
	if _, err := p.db.ExecContext(ctx, `DELETE FROM building_identities WHERE address_key = $1`, addressKey); err != nil {
		return fmt.Errorf("delete identity: %w", err)
	}
	return nil
}

func (p *Postgres) List(ctx context.Context, limit int) ([]domain.BuildingIdentity, error) {
	rows, err := p.db.QueryContext(ctx, `
		SELECT building_id, property_key, structure_key, address, resolved_at
		FROM building_identities ORDER BY resolved_at ASC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	var out []domain.BuildingIdentity
	for rows.Next() {
		identity, err := scanIdentity(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, identity)
	}
	return out, rows.Err()
}

type scannable interface {
	Scan(dest ...any) error
}

func scanIdentity(row scannable) (domain.BuildingIdentity, error) {
	var (
		identity domain.BuildingIdentity
		id       string
		addr     []byte
	)
	err := row.Scan(&id, &identity.PropertyKey, &identity.StructureKey, &addr, &identity.ResolvedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.BuildingIdentity{}, domain.ErrIdentityNotFound
		}
		return domain.BuildingIdentity{}, fmt.Errorf("scan identity: %w", err)
	}
	identity.BuildingID = domain.BuildingID(id)
	if err := json.Unmarshal(addr, &identity.Address); err != nil {
		return domain.BuildingIdentity{}, fmt.Errorf("decode address: %w", err)
	}
	return identity, nil
}
