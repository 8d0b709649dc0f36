// Package approval is an embeddable approval workflow engine. A request for
// sign-off on a document goes out to up to twenty recipients, each holding a
// single-use decision token; an ALL or ANY policy aggregates their decisions
// into the request outcome, every transition lands in an audit trail, and a
// background scheduler handles reminders, expiry and retention.
//
// The root Service wires stores, engine, notifications and scheduler from a
// single Config; the packages underneath are usable on their own.
package approval
