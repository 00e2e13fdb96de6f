// Package repo persists identity and ledger state in the local kv store
package repo

import (
	"hush/internal/platform/kv"
	"hush/internal/services/localstate/domain"
)

const (
	identityKey  = "identity"
	ledgerPrefix = "ledger/"
)

// KV is the durable localstate repository
type KV struct {
	store kv.Store
}

// New wraps a kv store
func New(store kv.Store) *KV { return &KV{store: store} }

// LoadIdentity returns the persisted token if present
func (r *KV) LoadIdentity() (string, bool, error) {
	raw, ok, err := r.store.Get(identityKey)
	if err != nil || !ok {
		return "", ok, err
	}
	return string(raw), true, nil
}

// SaveIdentity persists the token
func (r *KV) SaveIdentity(token string) error {
	return r.store.Set(identityKey, []byte(token))
}

// LoadLedger returns the ledger for identity, empty when absent
func (r *KV) LoadLedger(identity string) (domain.Ledger, error) {
	l := domain.NewLedger()
	_, err := kv.GetJSON(r.store, ledgerPrefix+identity, &l)
	l.Normalize()
	return l, err
}

// SaveLedger persists the whole ledger for identity (write-through)
func (r *KV) SaveLedger(identity string, l domain.Ledger) error {
	return kv.SetJSON(r.store, ledgerPrefix+identity, l)
}
