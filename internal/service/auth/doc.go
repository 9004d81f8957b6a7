// Package auth holds the OAuth credential of the dispatch service.
//
// The Manager exchanges authorization codes and refresh tokens at the
// dispatch identity endpoint and exposes the current bearer credential.
// There is one Manager per process: the bot acts on the dispatch service
// with a single account.
package auth
