package depend

import (
	"context"
	"database/sql"
	"errors"
)

// Attributes control how version range boundaries are compared.
type Attributes uint32

const (
	MinVersionInclusive Attributes = 0x100
	MaxVersionInclusive Attributes = 0x200
)

// Provider is a registered toolchain or package that other packages may
// depend on, identified by a case-insensitive key.
type Provider struct {
	Key         string
	DisplayName string
	Version     Version
}

// Dependency identifies a provider referenced during a dependency check.
type Dependency struct {
	Key  string
	Name string
}

type ProviderReader interface {
	GetProvider(ctx context.Context, providerKey string) (*Provider, error)
	GetDependents(ctx context.Context, providerKey string) ([]Dependency, error)
}

type ProviderWriter interface {
	RegisterProvider(ctx context.Context, provider Provider) error
	UnregisterProvider(ctx context.Context, providerKey string) error
	RegisterDependent(ctx context.Context, providerKey, dependentKey, name string) error
	UnregisterDependent(ctx context.Context, providerKey, dependentKey string) error
}

type ProviderStore interface {
	ProviderReader
	ProviderWriter
}

// Registry answers dependency questions over a provider store.
type Registry struct {
	store ProviderStore
}

func NewRegistry(store ProviderStore) *Registry {
	return &Registry{store: store}
}

func (r *Registry) GetProvider(ctx context.Context, providerKey string) (*Provider, error) {
	provider, err := r.store.GetProvider(ctx, providerKey)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	return provider, err
}

// CheckDependency verifies that the provider is registered and within the
// requested version range. A failing provider is appended to missing and
// ErrNotFound is returned.
func (r *Registry) CheckDependency(
	ctx context.Context,
	providerKey string,
	minVersion, maxVersion *Version,
	attributes Attributes,
	missing *[]Dependency,
) error {
	provider, err := r.store.GetProvider(ctx, providerKey)
	if errors.Is(err, sql.ErrNoRows) {
		*missing = append(*missing, Dependency{Key: providerKey})
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	dependency := Dependency{Key: providerKey, Name: provider.DisplayName}
	if minVersion != nil {
		allowEqual := attributes&MinVersionInclusive == MinVersionInclusive
		if !(allowEqual && minVersion.Compare(provider.Version) <= 0 ||
			minVersion.Compare(provider.Version) < 0) {
			*missing = append(*missing, dependency)
			return ErrNotFound
		}
	}
	if maxVersion != nil {
		allowEqual := attributes&MaxVersionInclusive == MaxVersionInclusive
		if !(allowEqual && provider.Version.Compare(*maxVersion) <= 0 ||
			provider.Version.Compare(*maxVersion) < 0) {
			*missing = append(*missing, dependency)
			return ErrNotFound
		}
	}

	return nil
}

// CheckDependents returns the dependents registered against a provider,
// excluding keys in ignore. A missing provider has no dependents and
// returns nil.
func (r *Registry) CheckDependents(
	ctx context.Context, providerKey string, ignore map[string]struct{},
) ([]Dependency, error) {
	if _, err := r.store.GetProvider(ctx, providerKey); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	dependents, err := r.store.GetDependents(ctx, providerKey)
	if err != nil {
		return nil, err
	}

	filtered := make([]Dependency, 0, len(dependents))
	for _, d := range dependents {
		if _, ok := ignore[d.Key]; ok {
			continue
		}
		filtered = append(filtered, d)
	}
	return filtered, nil
}

func (r *Registry) Register(ctx context.Context, provider Provider) error {
	return r.store.RegisterProvider(ctx, provider)
}

func (r *Registry) Unregister(ctx context.Context, providerKey string) error {
	err := r.store.UnregisterProvider(ctx, providerKey)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *Registry) RegisterDependent(ctx context.Context, providerKey, dependentKey, name string) error {
	err := r.store.RegisterDependent(ctx, providerKey, dependentKey, name)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

func (r *Registry) UnregisterDependent(ctx context.Context, providerKey, dependentKey string) error {
	err := r.store.UnregisterDependent(ctx, providerKey, dependentKey)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
