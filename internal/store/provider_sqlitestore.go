package store

import (
	"context"
	"database/sql"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/oxhollow/ferrite/internal/depend"
)

// ProviderSQLiteStore keeps the registered toolchain providers and their
// dependents. Provider keys are matched case-insensitively.
type ProviderSQLiteStore struct {
	rdb, rwdb *sql.DB
}

func NewProviderSQLiteStore(rdb, rwdb *sql.DB) *ProviderSQLiteStore {
	return &ProviderSQLiteStore{rdb, rwdb}
}

type providerRow struct {
	ProviderID    int64
	ProviderKey   string
	DisplayName   string
	Version       string
	PackedVersion int64
}

func (store *ProviderSQLiteStore) GetProvider(
	ctx context.Context,
	providerKey string,
) (*depend.Provider, error) {
	row := new(providerRow)
	query := `select * from providers where provider_key = $1`
	if err := sqlscan.Get(ctx, store.rdb, row, query, providerKey); err != nil {
		return nil, err
	}
	return &depend.Provider{
		Key:         row.ProviderKey,
		DisplayName: row.DisplayName,
		Version:     depend.VersionFromPacked(uint64(row.PackedVersion)),
	}, nil
}

func (store *ProviderSQLiteStore) GetDependents(
	ctx context.Context,
	providerKey string,
) ([]depend.Dependency, error) {
	type dependentRow struct {
		DependentKey  string
		DependentName string
	}
	query := `select
		d.dependent_key,
		d.dependent_name
	from provider_dependents d
	join providers p
	on d.dependent_provider_id = p.provider_id
	where p.provider_key = $1
	order by d.dependent_key`
	rows := make([]dependentRow, 0)
	if err := sqlscan.Select(ctx, store.rdb, &rows, query, providerKey); err != nil {
		return nil, err
	}
	dependents := make([]depend.Dependency, 0, len(rows))
	for _, r := range rows {
		dependents = append(dependents, depend.Dependency{
			Key:  r.DependentKey,
			Name: r.DependentName,
		})
	}
	return dependents, nil
}

// RegisterProvider inserts the provider, or overwrites the registration
// when the key already exists.
func (store *ProviderSQLiteStore) RegisterProvider(
	ctx context.Context,
	provider depend.Provider,
) error {
	query := `insert into providers (
		provider_key,
		display_name,
		version,
		packed_version
	)
	values ($1, $2, $3, $4)
	on conflict (provider_key) do update
	set display_name = excluded.display_name,
		version = excluded.version,
		packed_version = excluded.packed_version`
	_, err := store.rwdb.ExecContext(
		ctx, query,
		provider.Key,
		provider.DisplayName,
		provider.Version.String(),
		int64(provider.Version.Pack()),
	)
	return err
}

func (store *ProviderSQLiteStore) UnregisterProvider(
	ctx context.Context,
	providerKey string,
) error {
	query := `delete from providers where provider_key = $1`
	res, err := store.rwdb.ExecContext(ctx, query, providerKey)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (store *ProviderSQLiteStore) RegisterDependent(
	ctx context.Context,
	providerKey, dependentKey, name string,
) error {
	query := `insert into provider_dependents (
		dependent_provider_id,
		dependent_key,
		dependent_name
	)
	select provider_id, $2, $3
	from providers
	where provider_key = $1
	on conflict (dependent_provider_id, dependent_key) do update
	set dependent_name = excluded.dependent_name`
	res, err := store.rwdb.ExecContext(ctx, query, providerKey, dependentKey, name)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (store *ProviderSQLiteStore) UnregisterDependent(
	ctx context.Context,
	providerKey, dependentKey string,
) error {
	query := `delete from provider_dependents
	where dependent_key = $2
	and dependent_provider_id in (
		select provider_id from providers where provider_key = $1
	)`
	res, err := store.rwdb.ExecContext(ctx, query, providerKey, dependentKey)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
