/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package config

import (
	"fmt"
	"strings"

	"github.com/suparena/cloudstore/errors"
)

// DevelopmentStorage is the connection string used when none is configured.
const DevelopmentStorage = "UseDevelopmentStorage=true"

// DevelopmentEndpoint is where DynamoDB Local listens by default.
const DevelopmentEndpoint = "http://localhost:8000"

// ConnectionSettings is a parsed storage connection string.
type ConnectionSettings struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	Profile         string
	Development     bool
}

// HasStaticCredentials reports whether both key parts are present.
func (c ConnectionSettings) HasStaticCredentials() bool {
	return c.AccessKeyID != "" && c.SecretAccessKey != ""
}

// ParseConnectionString parses "Key=Value;Key=Value". Keys are case-insensitive:
// Region, Endpoint, AccessKeyId, SecretAccessKey, Profile and UseDevelopmentStorage.
// An empty string means development storage.
func ParseConnectionString(s string) (ConnectionSettings, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		s = DevelopmentStorage
	}

	var c ConnectionSettings
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			return ConnectionSettings{}, malformed(fmt.Errorf("segment %q is not Key=Value", part))
		}
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)

		switch strings.ToLower(key) {
		case "region":
			c.Region = value
		case "endpoint":
			c.Endpoint = value
		case "accesskeyid":
			c.AccessKeyID = value
		case "secretaccesskey":
			c.SecretAccessKey = value
		case "profile":
			c.Profile = value
		case "usedevelopmentstorage":
			c.Development = strings.EqualFold(value, "true")
		default:
			return ConnectionSettings{}, malformed(fmt.Errorf("unknown key %q", key))
		}
	}

	if c.Development {
		if c.Endpoint == "" {
			c.Endpoint = DevelopmentEndpoint
		}
		if c.Region == "" {
			c.Region = "us-east-1"
		}
		if !c.HasStaticCredentials() {
			// DynamoDB Local accepts any credentials but requires some
			c.AccessKeyID, c.SecretAccessKey = "local", "local"
		}
	}

	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return ConnectionSettings{}, malformed(fmt.Errorf("AccessKeyId and SecretAccessKey must be given together"))
	}
	return c, nil
}

// String renders the settings with the secret masked.
func (c ConnectionSettings) String() string {
	var parts []string
	add := func(k, v string) {
		if v != "" {
			parts = append(parts, k+"="+v)
		}
	}
	if c.Development {
		add("UseDevelopmentStorage", "true")
	}
	add("Region", c.Region)
	add("Endpoint", c.Endpoint)
	add("AccessKeyId", c.AccessKeyID)
	if c.SecretAccessKey != "" {
		add("SecretAccessKey", "***")
	}
	add("Profile", c.Profile)
	return strings.Join(parts, ";")
}

func malformed(cause error) error {
	return errors.NewNotConfiguredError(KeyConnectionString, cause)
}
