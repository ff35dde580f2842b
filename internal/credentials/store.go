// Package credentials provides the secure store for small secrets: the parent
// PIN hash and the speech provider API key. Values are addressed by a
// service+account pair, mirroring a platform keychain.
package credentials

import "errors"

// ErrNotFound is returned when no value exists for a service+account pair.
var ErrNotFound = errors.New("credential not found")

// Store is the secure credential store contract. Set replaces any prior
// value for the same pair; Delete of an absent pair is a no-op.
type Store interface {
	Get(service, account string) (string, error)
	Set(service, account, value string) error
	Delete(service, account string) error
}
