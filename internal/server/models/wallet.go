package models

import "time"

// Network tags the chain namespace a wallet address belongs to. A single
// variant exists today; the tag is stored so adding chains later does not
// require a schema change.
type Network string

const NetworkSupra Network = "supra"

// Wallet is a stored wallet credential. SealedMnemonic and SealedPrivateKey
// hold cryptox envelopes, never cleartext; SealedMnemonic is empty for
// wallets imported from a raw private key. (Address, Network) identifies at
// most one row system-wide, and a soft-deleted wallet keeps its address
// binding: the address is never released for reuse under a new owner.
type Wallet struct {
	ID               string
	OwnerID          string
	Address          string
	Network          Network
	Name             string
	SealedMnemonic   string
	SealedPrivateKey string
	Deleted          bool
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
