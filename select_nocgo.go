//go:build !cgo

package oracle

var preferredDrivers = []string{"goora"}
