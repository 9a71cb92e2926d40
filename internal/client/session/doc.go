// Package session owns the authenticated session of the client: the held
// credential, the claims decoded from it and the user profile.
//
// A Session is created with New, restored from its credential store with
// Init and released with Close. Login, Logout, Refresh and ChangePassword
// mutate it; every other method is a read-only query that never fails and
// returns zero values when no session is held.
//
// Concurrent Refresh calls share one network exchange. Each exchange is
// tagged with the session generation it started under; a result arriving
// after a logout or a new login is discarded.
package session
