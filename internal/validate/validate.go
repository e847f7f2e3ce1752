/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

// Package validate holds the argument checks run before any remote call.
package validate

import (
	stderrors "errors"
	"fmt"
	"regexp"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/suparena/cloudstore/errors"
	"github.com/suparena/cloudstore/storagemodels"
)

const (
	// MaxKeyLength bounds partition and row keys.
	MaxKeyLength = 1024
	// MinQueueNameLength and MaxQueueNameLength are exclusive bounds.
	MinQueueNameLength = 3
	MaxQueueNameLength = 63

	keyTag = "required,max=1024,excludesall=/\\#?"
)

var (
	tableNamePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9]{2,62}$`)

	once     sync.Once
	instance *validator.Validate
)

func get() *validator.Validate {
	once.Do(func() {
		instance = validator.New(validator.WithRequiredStructEnabled())
	})
	return instance
}

// Record checks the partition and row key of r.
func Record(source string, r *storagemodels.Record) error {
	if r == nil {
		return errors.NewSourcedValidationError(source, "entity", "must not be nil")
	}
	if err := get().Struct(r); err != nil {
		return translate(source, "", err)
	}
	return nil
}

// Key checks a single partition or row key value.
func Key(source, field, value string) error {
	if err := get().Var(value, keyTag); err != nil {
		return translate(source, field, err)
	}
	return nil
}

// TableName checks name against the table naming rule and returns its canonical
// lower-case form.
func TableName(source, name string) (string, error) {
	if err := NonEmpty(source, "tableName", name); err != nil {
		return "", err
	}
	if !tableNamePattern.MatchString(name) {
		return "", errors.NewSourcedValidationError(source, "tableName",
			fmt.Sprintf("%q must start with a letter and contain 3 to 63 letters or digits", name))
	}
	return strings.ToLower(name), nil
}

// QueueName checks that name is strictly longer than 3 and shorter than 63 characters.
func QueueName(source, name string) error {
	if err := NonEmpty(source, "queueName", name); err != nil {
		return err
	}
	if len(name) <= MinQueueNameLength {
		return errors.NewSourcedValidationError(source, "queueName",
			fmt.Sprintf("%q is too short (length %d, must exceed %d)", name, len(name), MinQueueNameLength))
	}
	if len(name) >= MaxQueueNameLength {
		return errors.NewSourcedValidationError(source, "queueName",
			fmt.Sprintf("%q is too long (length %d, must be below %d)", name, len(name), MaxQueueNameLength))
	}
	return nil
}

// NonEmpty rejects empty strings.
func NonEmpty(source, field, value string) error {
	if value == "" {
		return errors.NewSourcedValidationError(source, field, "must not be empty")
	}
	return nil
}

// MinInt rejects values below minimum.
func MinInt(source, field string, value, minimum int) error {
	if value < minimum {
		return errors.NewSourcedValidationError(source, field,
			fmt.Sprintf("must be at least %d, got %d", minimum, value))
	}
	return nil
}

func translate(source, field string, err error) error {
	var verrs validator.ValidationErrors
	if !stderrors.As(err, &verrs) || len(verrs) == 0 {
		return errors.NewSourcedValidationError(source, field, err.Error())
	}
	fe := verrs[0]
	if field == "" {
		field = fe.Field()
	}
	return errors.NewSourcedValidationError(source, field, describe(fe))
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "must not be empty"
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "excludesall":
		return `must not contain any of / \ # ?`
	}
	return fmt.Sprintf("failed the %q check", fe.Tag())
}
