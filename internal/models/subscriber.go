// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"time"
)

// SubscriberStatus is the lifecycle state of a newsletter subscriber.
type SubscriberStatus string

const (
	StatusPending      SubscriberStatus = "pending"
	StatusConfirmed    SubscriberStatus = "confirmed"
	StatusUnsubscribed SubscriberStatus = "unsubscribed"
)

// Valid reports whether s is one of the known statuses.
func (s SubscriberStatus) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusUnsubscribed:
		return true
	}
	return false
}

// Subscriber is the persisted newsletter relationship of one email address.
type Subscriber struct { //nolint:govet // fieldalignment not critical for models
	Email        string           `json:"email"`
	SubscribedAt time.Time        `json:"subscribedAt"`
	Status       SubscriberStatus `json:"status"`
	ConfirmToken string           `json:"confirmToken,omitempty"`
	ConfirmedAt  *time.Time       `json:"confirmedAt,omitempty"`
}

// Registry is the whole subscriber document, in insertion order.
type Registry struct {
	Subscribers []Subscriber `json:"subscribers"`
}

// IndexOf returns the position of the subscriber with the given email, or -1.
func (r *Registry) IndexOf(email string) int {
	for i := range r.Subscribers {
		if r.Subscribers[i].Email == email {
			return i
		}
	}
	return -1
}

// IndexOfToken returns the position of the subscriber holding token, or -1.
func (r *Registry) IndexOfToken(token string) int {
	if token == "" {
		return -1
	}
	for i := range r.Subscribers {
		if r.Subscribers[i].ConfirmToken == token {
			return i
		}
	}
	return -1
}

// Clone returns a deep copy that shares no memory with r.
func (r *Registry) Clone() *Registry {
	out := &Registry{Subscribers: make([]Subscriber, len(r.Subscribers))}
	for i, s := range r.Subscribers {
		if s.ConfirmedAt != nil {
			at := *s.ConfirmedAt
			s.ConfirmedAt = &at
		}
		out.Subscribers[i] = s
	}
	return out
}
