// Package hdwallet generates and recovers wallet accounts. A fresh account
// is backed by a 12-word BIP-39 mnemonic from 128 bits of entropy; the
// address and private key are derived at the standard BIP-44 path, so
// re-importing the same secret material always converges to the same
// account.
package hdwallet

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/hdkeychain"
	"github.com/btcsuite/btcd/chaincfg"
	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	bip39 "github.com/tyler-smith/go-bip39"

	"github.com/dmitrijs2005/walletd/internal/common"
)

// entropyBits yields a 12-word mnemonic under the standard english wordlist.
const entropyBits = 128

// derivationPath is the default account path m/44'/60'/0'/0/0.
var derivationPath = []uint32{
	hdkeychain.HardenedKeyStart + 44,
	hdkeychain.HardenedKeyStart + 60,
	hdkeychain.HardenedKeyStart + 0,
	0,
	0,
}

// Account bundles a derived address with the secret material it was derived
// from. Mnemonic is empty when the account was recovered from a raw private
// key, since a phrase cannot be reconstructed from the key.
type Account struct {
	Address    string
	Mnemonic   string
	PrivateKey string
}

// Generate produces a fresh mnemonic from cryptographically random entropy
// and derives its account. Entropy is never reused: every call draws new
// random bytes, and a failing entropy source is unrecoverable
// (common.ErrEntropyFailure, no retry).
func Generate() (*Account, error) {
	entropy, err := bip39.NewEntropy(entropyBits)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEntropyFailure, err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrEntropyFailure, err)
	}
	return FromMnemonic(mnemonic)
}

// FromMnemonic derives the account at m/44'/60'/0'/0/0. Derivation is a
// pure function of the phrase. Phrases that fail the wordlist or checksum
// validation yield common.ErrInvalidMnemonic.
func FromMnemonic(mnemonic string) (*Account, error) {
	mnemonic = strings.TrimSpace(mnemonic)
	if !bip39.IsMnemonicValid(mnemonic) {
		return nil, common.ErrInvalidMnemonic
	}

	seed := bip39.NewSeed(mnemonic, "")
	key, err := hdkeychain.NewMaster(seed, &chaincfg.MainNetParams)
	if err != nil {
		return nil, fmt.Errorf("master key derivation error: %w", err)
	}
	for _, index := range derivationPath {
		if key, err = key.Derive(index); err != nil {
			return nil, fmt.Errorf("child key derivation error: %w", err)
		}
	}
	ecKey, err := key.ECPrivKey()
	if err != nil {
		return nil, fmt.Errorf("private key extraction error: %w", err)
	}

	priv := ecKey.ToECDSA()
	return &Account{
		Address:    ethcrypto.PubkeyToAddress(priv.PublicKey).Hex(),
		Mnemonic:   mnemonic,
		PrivateKey: hex.EncodeToString(ethcrypto.FromECDSA(priv)),
	}, nil
}

// FromPrivateKey recovers the account address from a hex-encoded secp256k1
// private key, with or without a 0x prefix. Malformed key material yields
// common.ErrInvalidPrivateKey.
func FromPrivateKey(privateKey string) (*Account, error) {
	trimmed := strings.TrimPrefix(strings.TrimSpace(privateKey), "0x")
	priv, err := ethcrypto.HexToECDSA(trimmed)
	if err != nil {
		return nil, common.ErrInvalidPrivateKey
	}
	return &Account{
		Address:    ethcrypto.PubkeyToAddress(priv.PublicKey).Hex(),
		PrivateKey: hex.EncodeToString(ethcrypto.FromECDSA(priv)),
	}, nil
}
