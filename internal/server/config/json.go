package config

import (
	"encoding/json"
	"os"
	"time"

	"github.com/veronewra/openverse/internal/flagx"
	"github.com/veronewra/openverse/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "12h" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. After unmarshalling, its fields are copied into the runtime Config
// struct which uses time.Duration.
type JsonConfig struct {
	EndpointAddrHTTP string `json:"endpoint_addr_http"`
	DatabaseDSN      string `json:"database_dsn"`
	RedisAddr        string `json:"redis_addr"`
	SecretKey        string `json:"secret_key"`
	PublicBaseURL    string `json:"public_base_url"`

	AccessTokenValidityDuration      timex.Duration `json:"access_token_validity_duration"`
	VerificationCodeValidityDuration timex.Duration `json:"verification_code_validity_duration"`

	AnonBurstLimit      int            `json:"anon_burst_limit"`
	AnonBurstWindow     timex.Duration `json:"anon_burst_window"`
	AnonSustainedLimit  int            `json:"anon_sustained_limit"`
	AnonSustainedWindow timex.Duration `json:"anon_sustained_window"`
	ThrottleFailOpen    bool           `json:"throttle_fail_open"`

	SMTPAddr    string `json:"smtp_addr"`
	EmailSender string `json:"email_sender"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path is taken from the -c or -config command-line flags. If
// neither is set, no JSON file is loaded. If the file cannot be read or
// contains invalid JSON, the function panics.
//
// The caller is expected to merge these values with defaults and
// command-line flags as part of the full configuration process.
func parseJson(config *Config) {

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

	config.EndpointAddrHTTP = c.EndpointAddrHTTP
	config.DatabaseDSN = c.DatabaseDSN
	config.RedisAddr = c.RedisAddr
	config.SecretKey = c.SecretKey
	config.PublicBaseURL = c.PublicBaseURL
	config.AccessTokenValidityDuration = time.Duration(c.AccessTokenValidityDuration.Duration)
	config.VerificationCodeValidityDuration = time.Duration(c.VerificationCodeValidityDuration.Duration)
	config.AnonBurstLimit = c.AnonBurstLimit
	config.AnonBurstWindow = time.Duration(c.AnonBurstWindow.Duration)
	config.AnonSustainedLimit = c.AnonSustainedLimit
	config.AnonSustainedWindow = time.Duration(c.AnonSustainedWindow.Duration)
	config.ThrottleFailOpen = c.ThrottleFailOpen
	config.SMTPAddr = c.SMTPAddr
	config.EmailSender = c.EmailSender
}
