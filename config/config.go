/*
 * Copyright 2025 tomoncle.
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Package config loads the service configuration from an optional file and
// MEMBERSEARCH_ prefixed environment variables.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"github.com/tomoncle/membersearch/database"
)

// EnvPrefix prefixes every environment override, e.g.
// MEMBERSEARCH_DATABASE_CONNECTION_HOST for database.connection.host.
const EnvPrefix = "MEMBERSEARCH"

type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// Config is the full configuration of memberctl.
type Config struct {
	Database database.Config `mapstructure:"database"`
	Server   ServerConfig    `mapstructure:"server"`
	Log      LogConfig       `mapstructure:"log"`
}

// Load reads path when it is not empty, then applies environment overrides on
// top of the defaults. A missing file is an error; no file at all is not.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("config file not found: %w", err)
		}
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it during
// Unmarshal.
func setDefaults(v *viper.Viper) {
	conn := database.DefaultConnectionConfig()
	defaults := map[string]interface{}{
		"database.connection.type":                  conn.Type,
		"database.connection.driver":                "pq",
		"database.connection.host":                  "localhost",
		"database.connection.port":                  0,
		"database.connection.username":              "",
		"database.connection.password":              "",
		"database.connection.dbname":                conn.DBName,
		"database.connection.sslmode":               "disable",
		"database.connection.max_idle_conns":        conn.MaxIdleConns,
		"database.connection.max_open_conns":        conn.MaxOpenConns,
		"database.connection.conn_max_lifetime":     conn.ConnMaxLifetime,
		"database.connection.conn_max_idle_time":    conn.ConnMaxIdleTime,
		"database.connection.connect_timeout":       conn.ConnectTimeout,
		"database.connection.read_timeout":          conn.ReadTimeout,
		"database.connection.write_timeout":         conn.WriteTimeout,
		"database.connection.enable_reconnect":      conn.EnableReconnect,
		"database.connection.reconnect_interval":    conn.ReconnectInterval,
		"database.connection.max_reconnect_tries":   conn.MaxReconnectTries,
		"database.connection.health_check_interval": conn.HealthCheckInterval,
		"database.connection.enable_query_log":      conn.EnableQueryLog,
		"database.connection.slow_query_time":       conn.SlowQueryTime,
		"database.connection.enable_metrics":        false,

		"database.migrate.enable_migrate_on_startup": true,
		"database.migrate.enable_foreign_key":        false,
		"database.migrate.foreign_key_file":          "",
		"database.migrate.team_on_delete":            "",

		"database.init.auto_init_on_startup":   false,
		"database.init.auto_init_on_migration": false,
		"database.init.filepath":               "configs/sql",
		"database.init.environment":            "development",

		"server.addr": ":8080",
		"log.level":   "info",
		"log.format":  "console",
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}
}
