// Package config handles loading of application settings and of the
// mapping files that declare record shapes.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Target names accepted by ConnString.
const (
	TargetMSSQL    = "mssql"
	TargetPostgres = "postgres"
	TargetMySQL    = "mysql"
	TargetMongo    = "mongo"
)

// Config holds all configuration for the application, read from the
// environment (populated from .env in main) and an optional config file.
type Config struct {
	SQLConnString      string
	PostgresConnString string
	MySQLConnString    string
	MongoConnString    string
	MongoDatabase      string
	LogLevel           string
	LogFile            string
}

var envKeys = map[string]string{
	"sql_connection_string":      "SQL_CONNECTION_STRING",
	"postgres_connection_string": "POSTGRES_CONNECTION_STRING",
	"mysql_connection_string":    "MYSQL_CONNECTION_STRING",
	"mongo_connection_string":    "MONGO_CONNECTION_STRING",
	"mongo_database":             "MONGO_DATABASE",
	"log_level":                  "LOG_LEVEL",
	"log_file":                   "LOG_FILE",
}

// LoadConfig loads settings. configFile may be empty; environment variables
// take precedence over the file.
func LoadConfig(configFile string) (*Config, error) {
	v := viper.New()
	v.SetDefault("mongo_database", "fastinsert")
	v.SetDefault("log_level", "info")

	for key, env := range envKeys {
		if err := v.BindEnv(key, env); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", env, err)
		}
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file '%s': %w", configFile, err)
		}
	}

	return &Config{
		SQLConnString:      v.GetString("sql_connection_string"),
		PostgresConnString: v.GetString("postgres_connection_string"),
		MySQLConnString:    v.GetString("mysql_connection_string"),
		MongoConnString:    v.GetString("mongo_connection_string"),
		MongoDatabase:      v.GetString("mongo_database"),
		LogLevel:           v.GetString("log_level"),
		LogFile:            v.GetString("log_file"),
	}, nil
}

// ConnString returns the connection string of target, or an error naming
// the variable to set.
func (c *Config) ConnString(target string) (string, error) {
	var value, env string
	switch strings.ToLower(target) {
	case TargetMSSQL:
		value, env = c.SQLConnString, "SQL_CONNECTION_STRING"
	case TargetPostgres:
		value, env = c.PostgresConnString, "POSTGRES_CONNECTION_STRING"
	case TargetMySQL:
		value, env = c.MySQLConnString, "MYSQL_CONNECTION_STRING"
	case TargetMongo:
		value, env = c.MongoConnString, "MONGO_CONNECTION_STRING"
	default:
		return "", fmt.Errorf("unknown target %q", target)
	}
	if value == "" {
		return "", fmt.Errorf("%s environment variable not set", env)
	}
	return value, nil
}
