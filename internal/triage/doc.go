// Package triage is the business boundary for heat-illness triage. It defines
// the Engine (features, classification, label decoding, advice), the Service
// (ids, persistence, notification), the Store interface and domain models.
package triage
