/*
Package oracle connects to Oracle through one of two native backends behind
a single Connection contract.

# Understanding the backends

Two backends exist and register themselves when imported:

	import _ "gorm.io/driver/oracle/dialects/oci"  // godror, needs cgo and the client libraries
	import _ "gorm.io/driver/oracle/dialects/thin" // go-ora, pure Go

With cgo the C library backend is preferred, without it only the pure Go one
is built. The "driver" configuration key picks one explicitly. Shared code
never asks which backend it talks to; the differences live in a Dialect.

A few things work differently than with other databases:

Bind variables are :1, :2 or :name, never "?". A statement binds either by
position or by name.

A generated key is returned through an out bind. Statements that need it
end in RETURNING id INTO :returning_id; Result.ReturningID holds the value.
Backends without native RETURNING INTO support run the statement inside an
anonymous PL/SQL block instead.

The pure Go backend cannot bind LOB payloads in the statement that
stores the row. LOBCoordinator writes such columns in a second step and
fails with ErrLOBStaging rather than leave an empty LOB behind.

There is no boolean column type; see package quoting.

# Lost connections

Open returns a RecoveringConnection. A call that fails because the
connection was lost is retried once on a new session, but only when
autocommit was on before the call. Inside a transaction the error is
returned and the caller decides.
*/
package oracle
