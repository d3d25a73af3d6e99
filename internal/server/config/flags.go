package config

import (
	"flag"

	"github.com/dmitrijs2005/lango/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     HTTP bind address (e.g., ":8080")
//	-b string     store backend: dynamodb, postgres or memory
//	-t string     DynamoDB table name
//	-g string     AWS region
//	-e string     DynamoDB endpoint override (e.g., "http://127.0.0.1:8000")
//	-d string     PostgreSQL DSN
//	-s string     session token HMAC secret
//	-v duration   session token validity (e.g., "1h")
//	-m            create table / run migrations on start
//
// Arguments are filtered with flagx.FilterArgs first so that -c/-config and
// flags owned by other components do not break parsing.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-b", "-t", "-g", "-e", "-d", "-s", "-v", "-m"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.StoreBackend, "b", config.StoreBackend, "store backend")
	fs.StringVar(&config.TableName, "t", config.TableName, "DynamoDB table name")
	fs.StringVar(&config.AWSRegion, "g", config.AWSRegion, "AWS region")
	fs.StringVar(&config.DynamoDBEndpoint, "e", config.DynamoDBEndpoint, "DynamoDB endpoint override")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.DurationVar(&config.TokenValidityDuration, "v", config.TokenValidityDuration, "session token validity")
	fs.BoolVar(&config.AutoMigrate, "m", config.AutoMigrate, "create table / run migrations on start")

	return fs.Parse(args)
}
