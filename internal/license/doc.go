// Package license implements the deployed-instance side of the license
// subsystem: contacting the authority for a signed grant, verifying grant
// signatures against the embedded public key, and the durable grant cache
// that allows bounded offline operation.
//
// # Validation Flow
//
// EnsureValid drives a single state machine per call:
//
//	1. Live path: request a grant from the authority, verify its signature
//	   and expiration, persist it to the cache, return it.
//	2. Fallback path (authority unreachable or the key was rejected): load
//	   the cached grant, re-verify its stored signature against its stored
//	   canonical fields, check expiration, and check the grace window
//	   (now <= nextVerificationDate).
//	3. Neither path succeeding is fatal for process startup.
//
// Every cryptographic or parse failure fails closed: a grant or cache file
// that cannot be verified byte-for-byte is treated as tampered, never as
// valid. The cache stores the exact canonical field strings that were signed,
// so re-verification after reload compares the same bytes the authority
// signed rather than re-serialized values.
package license
