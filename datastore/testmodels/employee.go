package testmodels

import (
	"github.com/go-openapi/strfmt"

	"github.com/suparena/cloudstore/storagemodels"
)

// Address is nested in Employee to exercise dotted sort paths.
type Address struct {

	// city
	City string `json:"City" dynamodbav:"City"`

	// postal code
	PostalCode string `json:"PostalCode,omitempty" dynamodbav:"PostalCode,omitempty"`
}

// Employee is stored partitioned by department and keyed by employee id.
type Employee struct {
	storagemodels.Record

	// First name of the employee.
	// Required: true
	FirstName string `json:"FirstName" dynamodbav:"FirstName"`

	// Last name of the employee.
	// Required: true
	LastName string `json:"LastName" dynamodbav:"LastName"`

	// Home address.
	Address *Address `json:"Address,omitempty" dynamodbav:"Address,omitempty"`

	// Timestamp when the employee was hired.
	// Format: date-time
	HiredAt *strfmt.DateTime `json:"HiredAt,omitempty" dynamodbav:"HiredAt,omitempty"`

	// grade
	Grade int `json:"Grade" dynamodbav:"Grade"`

	// active
	Active bool `json:"Active" dynamodbav:"Active"`
}

// NewEmployee creates an employee in department with a generated id.
func NewEmployee(department, first, last string) *Employee {
	return &Employee{
		Record:    storagemodels.NewRecord(department),
		FirstName: first,
		LastName:  last,
	}
}

// Department is the partition key.
func (e *Employee) Department() string {
	return e.PartitionKey
}
