// Package governance defines the closed vocabulary shared by every part of the
// Sovereign data governance engine: classification levels, data categories,
// storage and processing modes, retention policies, geo restriction levels,
// sector modes and compliance results.
//
// # Closed Enumerations
//
// Every enumeration is a string type with a fixed set of constants. Values
// coming from configuration files, rule files or callers are converted with
// the matching Parse function, which rejects anything outside the set:
//
//	level, err := governance.ParseClassification("highly-sensitive")
//	if err != nil {
//	    return err // wraps governance.ErrInvalidValue
//	}
//
// # Errors
//
// The package also owns the error taxonomy of the engine. Callers should
// match errors with errors.Is against the sentinel values:
//
//	switch {
//	case errors.Is(err, governance.ErrAccessDenied):
//	    // tenant isolation or role mismatch, reason in *AccessDeniedError
//	case errors.Is(err, governance.ErrNotFound):
//	    // record, policy, tenant or rule absent
//	}
//
// StatusCode maps an engine error to the HTTP status a transport layer
// would typically return.
package governance
