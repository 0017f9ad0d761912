// Package events carries account lifecycle notifications from the services
// to whoever reacts to them, mostly the mail notifier.
//
// Emitters dispatch synchronously to every registered handler. A handler
// error never stops the remaining handlers.
package events
