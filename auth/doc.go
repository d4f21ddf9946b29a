// Package auth issues and validates dashboard session tokens and hashes
// admin passwords.
//
// A session token is an HS256-signed JWT carrying the admin's ID. It only
// identifies the caller: role, position and active flag are reloaded from
// the store on every request, so deactivation and grant changes take effect
// without waiting for the token to expire.
package auth
