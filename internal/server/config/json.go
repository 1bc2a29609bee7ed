package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/dmitrijs2005/walletd/internal/flagx"
	"github.com/dmitrijs2005/walletd/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON
// unmarshalling. It uses timex.Duration for interval fields, which allows
// parsing both string values such as "8760h" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON
// configuration files; after unmarshalling, its fields are copied into the
// runtime Config struct.
type JsonConfig struct {
	EndpointAddr          string         `json:"endpoint_addr"`
	DatabaseDSN           string         `json:"database_dsn"`
	JWTSecretKey          string         `json:"jwt_secret_key"`
	TokenValidityDuration timex.Duration `json:"token_validity_duration"`
	CredentialKeyHex      string         `json:"credential_key_hex"`
	CredentialPassphrase  string         `json:"credential_passphrase"`
	CredentialKeySalt     string         `json:"credential_key_salt"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path is taken from the -c or -config
// command-line flags; if neither is set, no JSON file is loaded. If the
// file cannot be read or contains invalid JSON, the function panics.
func parseJson(config *Config) {

	// try flags
	jsonConfigFile := flagx.JsonConfigFlags()

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	config.EndpointAddr = c.EndpointAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.JWTSecretKey = c.JWTSecretKey
	config.TokenValidityDuration = time.Duration(c.TokenValidityDuration.Duration)
	config.CredentialKeyHex = c.CredentialKeyHex
	config.CredentialPassphrase = c.CredentialPassphrase
	config.CredentialKeySalt = c.CredentialKeySalt
}
