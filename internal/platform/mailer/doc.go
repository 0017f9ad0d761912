// Package mailer sends transactional e-mail. SMTPMailer delivers through an
// SMTP relay with go-mail; LogMailer only logs, for development setups with
// no relay configured. Message bodies come from the embedded French
// templates.
package mailer
