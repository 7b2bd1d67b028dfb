//go:build cgo

package oracle

// The C library backend is preferred when it can be linked.
var preferredDrivers = []string{"godror", "goora"}
