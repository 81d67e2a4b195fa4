package collector

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/dvloznov/finance-dashboard/internal/config"
	"github.com/dvloznov/finance-dashboard/internal/snapshot"
)

// Adapter is the source-side contract: one instance per configured account
// per run, owning its own vendor session. Fetch returns the raw snapshot
// records for the account; records must carry at least name, the table's
// numeric fields and currency.
type Adapter interface {
	Fetch(ctx context.Context) ([]snapshot.Record, error)
}

// ErrDisabled is returned by a Builder when required credentials are not
// configured. The account is then skipped as intentionally disabled rather
// than treated as failing.
var ErrDisabled = errors.New("collector: account disabled, credentials not configured")

// Deps is what adapter builders get to work with.
type Deps struct {
	HTTP *http.Client
	Log  zerolog.Logger
}

// Builder constructs the Adapter for one account entry.
type Builder func(account config.Account, deps Deps) (Adapter, error)

// Registry maps an account type to its adapter builder. The set of types is
// closed at startup; resolving an unregistered type is a per-account skip,
// never a run failure.
type Registry map[string]Builder

// Register adds a builder under the given account type.
func (r Registry) Register(accountType string, b Builder) {
	r[strings.ToLower(accountType)] = b
}

// Resolve looks up the builder for an account type.
func (r Registry) Resolve(accountType string) (Builder, bool) {
	b, ok := r[strings.ToLower(accountType)]
	return b, ok
}

// DefaultRegistry returns a registry with the built-in adapters. Vendor
// adapters living outside this module register themselves on top.
func DefaultRegistry() Registry {
	r := make(Registry)
	r.Register("cosmos", newCosmosAdapter)
	return r
}
