// Package identity holds the gateway's view of a staff member: the user
// returned by the backend, the signed session built from it and the
// per-request Identity that the proxy forwards.
package identity
