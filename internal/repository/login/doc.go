// Package login remembers which conversation started an OAuth login.
//
// Each login prompt carries a random state value; the OAuth callback hands it
// back, and Resolve maps it to the correlation key so the bot can tell that
// sender the login went through. Entries live in a bounded LRU cache, so
// abandoned logins are forgotten instead of piling up.
package login
