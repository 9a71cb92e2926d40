// Package client is the network boundary of the session manager.
//
// # Overview
//
// The package provides:
//  1. The Gateway contract the session depends on: Login, Refresh, Logout,
//     Profile, ChangePassword and Ping.
//  2. HTTPClient, a JSON-over-HTTP implementation of Gateway. Authenticated
//     calls read their bearer token from the context (see WithAccessToken).
//  3. AuthTransport, an http.RoundTripper for business API calls that asks a
//     TokenRefresher for a fresh token and retries once after a 401.
//
// # Error Handling
//
// Failed responses are returned as *HTTPError (status code and the server's
// "detail" message). Common conditions are additionally matchable with
// errors.Is: ErrInvalidCredentials, ErrUnauthorized, ErrUnavailable.
//
// # Retries
//
// Only the idempotent profile GET is retried, with exponential backoff, on
// transport failures and 5xx responses. POST requests are never retried.
package client
