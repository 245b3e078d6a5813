// Package authority implements the license-issuing side of the system: the
// license record store and the signer that turns a validation request into a
// signed, time-bounded grant.
//
// The store is the source of truth for license records and is maintained
// out-of-band by the operator; validation never writes to it. In particular,
// validating an unbound license from a new machine does not record a binding:
// binding a license to a machine is an administrative edit of the store file.
//
// The signer produces grants whose signature covers a canonical string (see
// the domain package). Repeated validations of the same license yield grants
// that differ only in nextVerificationDate and signature.
package authority
