package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/lango/internal/flagx"
	"github.com/dmitrijs2005/lango/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration, so both "1h" and integer nanoseconds are accepted. Absent
// keys leave the corresponding Config fields unchanged.
type JsonConfig struct {
	EndpointAddr          *string         `json:"endpoint_addr"`
	StoreBackend          *string         `json:"store_backend"`
	TableName             *string         `json:"table_name"`
	UsernameIndexName     *string         `json:"username_index_name"`
	AWSRegion             *string         `json:"aws_region"`
	DynamoDBEndpoint      *string         `json:"dynamodb_endpoint"`
	DatabaseDSN           *string         `json:"database_dsn"`
	SecretKey             *string         `json:"secret_key"`
	TokenValidityDuration *timex.Duration `json:"token_validity_duration"`
	RequestTimeout        *timex.Duration `json:"request_timeout"`
	AutoMigrate           *bool           `json:"auto_migrate"`
	LogLevel              *string         `json:"log_level"`
}

// parseJson loads configuration values from the JSON file named by the -c or
// -config flag. Without the flag nothing is loaded.
func parseJson(config *Config) error {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return nil
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return err
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	c.apply(config)
	return nil
}

func (c *JsonConfig) apply(config *Config) {
	setString(&config.EndpointAddr, c.EndpointAddr)
	setString(&config.StoreBackend, c.StoreBackend)
	setString(&config.TableName, c.TableName)
	setString(&config.UsernameIndexName, c.UsernameIndexName)
	setString(&config.AWSRegion, c.AWSRegion)
	setString(&config.DynamoDBEndpoint, c.DynamoDBEndpoint)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.LogLevel, c.LogLevel)
	if c.TokenValidityDuration != nil {
		config.TokenValidityDuration = c.TokenValidityDuration.Duration
	}
	if c.RequestTimeout != nil {
		config.RequestTimeout = c.RequestTimeout.Duration
	}
	if c.AutoMigrate != nil {
		config.AutoMigrate = *c.AutoMigrate
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
