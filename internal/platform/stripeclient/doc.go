// Package stripeclient wraps stripe-go for subscription billing: Checkout
// sessions, the customer billing portal and signed webhook parsing.
package stripeclient
