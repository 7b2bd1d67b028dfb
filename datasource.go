package oracle

import (
	"database/sql"
	"sync"
)

var dataSources sync.Map

// RegisterDataSource publishes a pool under name. Sessions configured with
// a datasource (or jndi) name borrow their connection from it and never
// close the pool.
func RegisterDataSource(name string, db *sql.DB) {
	dataSources.Store(name, db)
}

func UnregisterDataSource(name string) {
	dataSources.Delete(name)
}

func lookupDataSource(name string) (*sql.DB, bool) {
	v, ok := dataSources.Load(name)
	if !ok {
		return nil, false
	}
	return v.(*sql.DB), true
}
