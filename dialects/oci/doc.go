// Package oci is the backend built on the Oracle client libraries, through
// godror and ODPI-C. It registers itself only when cgo is available; a
// build without cgo leaves the pure Go backend in dialects/thin as the only
// choice.
//
// LOB columns are fetched as *godror.Lob. With FetchLOBEagerly false the
// value holds the live locator; DirectLOB turns it into a godror.DirectLob.
//
//	import _ "gorm.io/driver/oracle/dialects/oci"
package oci
