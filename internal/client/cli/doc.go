// Package cli implements the interactive admin console: a small REPL for
// listing, creating, editing, soft-deleting, restoring and purging accounts
// and for checking credentials. It talks to the database through the same
// services as the HTTP API.
package cli
