/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	stderrors "errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/suparena/cloudstore/errors"
)

// Configuration keys read by the stores.
const (
	KeyConnectionString = "SystemStorageConnectionString"
	KeyLogLevel         = "LogLevel"
	KeyStorageBackend   = "StorageBackend"
	KeyQueueBackend     = "QueueBackend"
	KeyRedisAddress     = "RedisAddress"
	KeyMetricsNamespace = "MetricsNamespace"
)

// Backend names accepted by StorageBackend and QueueBackend.
const (
	BackendDynamoDB = "dynamodb"
	BackendRedis    = "redis"
	BackendMemory   = "memory"
)

// DefaultEnvPrefix prefixes environment variables: CLOUDSTORE_LOGLEVEL, ...
const DefaultEnvPrefix = "CLOUDSTORE"

// Source is the key/value lookup the stores are configured from. *viper.Viper
// satisfies it.
type Source interface {
	GetString(key string) string
	IsSet(key string) bool
}

// Static is a map-backed Source, mostly for tests.
type Static map[string]string

func (s Static) GetString(key string) string {
	if v, ok := s[key]; ok {
		return v
	}
	// viper keys are case-insensitive; keep the same contract
	for k, v := range s {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func (s Static) IsSet(key string) bool {
	return s.GetString(key) != ""
}

// Options controls Load.
type Options struct {
	// File is an optional YAML or JSON configuration file.
	File string
	// EnvFile is an optional dotenv file loaded into the process environment first.
	EnvFile string
	// EnvPrefix for environment variables (default: CLOUDSTORE).
	EnvPrefix string
}

// Load layers defaults < File < environment and returns the resulting viper instance.
// Missing optional files are ignored; unreadable ones are NotConfigured errors.
func Load(opts Options) (*viper.Viper, error) {
	if opts.EnvFile != "" {
		if err := godotenv.Load(opts.EnvFile); err != nil && !stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewNotConfiguredError(opts.EnvFile, err)
		}
	}

	v := viper.New()
	setDefaults(v)

	prefix := opts.EnvPrefix
	if prefix == "" {
		prefix = DefaultEnvPrefix
	}
	v.SetEnvPrefix(prefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for _, key := range []string{KeyConnectionString, KeyLogLevel, KeyStorageBackend, KeyQueueBackend, KeyRedisAddress, KeyMetricsNamespace} {
		// AutomaticEnv only covers keys viper already knows about through Get
		if err := v.BindEnv(key); err != nil {
			return nil, errors.NewNotConfiguredError(key, err)
		}
	}

	if opts.File != "" {
		if _, err := os.Stat(opts.File); err == nil {
			v.SetConfigFile(opts.File)
			if err := v.ReadInConfig(); err != nil {
				return nil, errors.NewNotConfiguredError(opts.File, err)
			}
		} else if !stderrors.Is(err, fs.ErrNotExist) {
			return nil, errors.NewNotConfiguredError(opts.File, err)
		}
	}

	return v, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault(KeyLogLevel, "Information")
	v.SetDefault(KeyStorageBackend, BackendDynamoDB)
	v.SetDefault(KeyQueueBackend, BackendDynamoDB)
	v.SetDefault(KeyRedisAddress, "localhost:6379")
	v.SetDefault(KeyMetricsNamespace, "cloudstore")
}

// Settings is the typed view of a Source.
type Settings struct {
	Connection       ConnectionSettings
	LogLevel         string
	StorageBackend   string
	QueueBackend     string
	RedisAddress     string
	MetricsNamespace string
}

// Resolve reads and checks all settings from src. A missing connection string
// falls back to local development storage.
func Resolve(src Source) (Settings, error) {
	s := Settings{
		LogLevel:         valueOr(src, KeyLogLevel, "Information"),
		StorageBackend:   strings.ToLower(valueOr(src, KeyStorageBackend, BackendDynamoDB)),
		QueueBackend:     strings.ToLower(valueOr(src, KeyQueueBackend, BackendDynamoDB)),
		RedisAddress:     valueOr(src, KeyRedisAddress, "localhost:6379"),
		MetricsNamespace: valueOr(src, KeyMetricsNamespace, "cloudstore"),
	}

	switch s.StorageBackend {
	case BackendDynamoDB, BackendMemory:
	default:
		return s, errors.NewNotConfiguredError(KeyStorageBackend,
			fmt.Errorf("unknown backend %q", s.StorageBackend))
	}
	switch s.QueueBackend {
	case BackendDynamoDB, BackendRedis, BackendMemory:
	default:
		return s, errors.NewNotConfiguredError(KeyQueueBackend,
			fmt.Errorf("unknown backend %q", s.QueueBackend))
	}

	conn, err := ParseConnectionString(src.GetString(KeyConnectionString))
	if err != nil {
		return s, err
	}
	s.Connection = conn
	return s, nil
}

func valueOr(src Source, key, fallback string) string {
	if v := strings.TrimSpace(src.GetString(key)); v != "" {
		return v
	}
	return fallback
}
