/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package storagemodels

import "time"

// Message is a queue message. ID is assigned on enqueue; Receipt is the opaque lease
// token issued by the queue when the message is delivered and replaced on every lease
// extension. A Message with an empty Receipt cannot be extended or deleted.
type Message struct {
	ID            string    `json:"id" yaml:"id"`
	Payload       string    `json:"payload" yaml:"payload"`
	DequeueCount  int       `json:"dequeueCount" yaml:"dequeueCount"`
	InsertedAt    time.Time `json:"insertedAt" yaml:"insertedAt"`
	ExpiresAt     time.Time `json:"expiresAt" yaml:"expiresAt"`
	NextVisibleAt time.Time `json:"nextVisibleAt" yaml:"nextVisibleAt"`
	Receipt       string    `json:"receipt,omitempty" yaml:"receipt,omitempty"`
}

// Leased reports whether the message carries a delivery receipt.
func (m *Message) Leased() bool {
	return m != nil && m.Receipt != ""
}

// SendRequest is what the queue engine hands to a backend on enqueue.
type SendRequest struct {
	Payload string
	// Now is the enqueue time; Delay and TTL count from it.
	Now time.Time
	// Delay keeps the message invisible after insertion. Never negative.
	Delay time.Duration
	// TTL is the hard lifetime after which the backend discards the message.
	TTL time.Duration
}
