// Package repository contains data access logic separated from HTTP
// handlers.  Sentinel errors let handlers map storage failures to HTTP
// status codes without inspecting driver-specific details.
package repository

import "strings"

// isDuplicate reports whether err is a MySQL duplicate-entry violation
// (error 1062).  The driver does not expose a typed error for this, so the
// code is matched in the message, as ugly as that is.
func isDuplicate(err error) bool {
	return err != nil && strings.Contains(err.Error(), "1062")
}
