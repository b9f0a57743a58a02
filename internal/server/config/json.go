package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/accounts/internal/flagx"
	"github.com/dmitrijs2005/accounts/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Pointer fields
// distinguish "absent" from a zero value, so a partial file only overrides
// the keys it names.
type JsonConfig struct {
	EndpointAddrGRPC  *string         `json:"endpoint_addr_grpc"`
	DatabaseDSN       *string         `json:"database_dsn"`
	LogLevel          *string         `json:"log_level"`
	LogFormat         *string         `json:"log_format"`
	ActivityS3Enabled *bool           `json:"activity_s3_enabled"`
	S3RootUser        *string         `json:"s3_root_user"`
	S3RootPassword    *string         `json:"s3_root_password"`
	S3Bucket          *string         `json:"s3_bucket"`
	S3Region          *string         `json:"s3_region"`
	S3BaseEndpoint    *string         `json:"s3_base_endpoint"`
	ShutdownTimeout   *timex.Duration `json:"shutdown_timeout"`
}

// parseJson overlays values from the JSON file named by -c/-config (or the
// ACCOUNTS_CONFIG environment variable) onto config. A missing path means
// nothing is loaded; an unreadable or malformed file panics.
func parseJson(config *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}

	file, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	if c.ActivityS3Enabled != nil {
		config.ActivityS3Enabled = *c.ActivityS3Enabled
	}
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	if c.ShutdownTimeout != nil {
		config.ShutdownTimeout = c.ShutdownTimeout.Duration
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
