// Package service contains the Nextudy use cases. Services coordinate the
// domain types, the store interfaces and the external providers (language
// model, object storage, Stripe, mail) behind small interfaces declared
// next to the code that consumes them.
//
// Services enforce ownership: a row that belongs to another user is
// reported with the same not-found error as a missing row. Transactions
// span a request only when several stores are written together.
//
// Errors are the sentinels from errors.go, domain and store, wrapped with
// the failing operation. The API layer maps them to status codes.
package service
