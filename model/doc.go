// Package model defines the approval domain entities: requests, recipients,
// audit log entries and the read-only document/user directory views. Stores
// hand out snapshots, so every entity provides a deep Clone.
package model
