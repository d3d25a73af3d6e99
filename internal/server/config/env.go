package config

import (
	"fmt"

	"github.com/dmitrijs2005/lango/internal/flagx"
)

// parseEnv overlays deployment settings from the environment. Only
// non-empty variables override the current values.
func parseEnv(c *Config) error {
	flagx.EnvString(&c.EndpointAddr, "ADDRESS")
	flagx.EnvString(&c.StoreBackend, "STORE_BACKEND")
	flagx.EnvString(&c.TableName, "DYNAMODB_TABLE_NAME")
	flagx.EnvString(&c.UsernameIndexName, "DYNAMODB_USERNAME_INDEX")
	flagx.EnvString(&c.AWSRegion, "AWS_REGION")
	flagx.EnvString(&c.DynamoDBEndpoint, "DYNAMODB_ENDPOINT")
	flagx.EnvString(&c.AWSAccessKeyID, "AWS_ACCESS_KEY_ID")
	flagx.EnvString(&c.AWSSecretAccessKey, "AWS_SECRET_ACCESS_KEY")
	flagx.EnvString(&c.DatabaseDSN, "DATABASE_DSN")
	flagx.EnvString(&c.SecretKey, "JWT_SECRET")
	flagx.EnvString(&c.LogLevel, "LOG_LEVEL")

	if err := flagx.EnvDuration(&c.TokenValidityDuration, "TOKEN_VALIDITY"); err != nil {
		return fmt.Errorf("TOKEN_VALIDITY: %w", err)
	}
	if err := flagx.EnvDuration(&c.RequestTimeout, "REQUEST_TIMEOUT"); err != nil {
		return fmt.Errorf("REQUEST_TIMEOUT: %w", err)
	}
	if err := flagx.EnvBool(&c.AutoMigrate, "AUTO_MIGRATE"); err != nil {
		return fmt.Errorf("AUTO_MIGRATE: %w", err)
	}
	return nil
}
