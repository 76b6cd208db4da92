package csql

import (
	"fmt"
	"sort"

	"github.com/relabs-tech/sqlbase/core/query"
)

// Engines is the set of databases of a process, keyed by backend identifier. It is
// built once at start-up and read-only afterwards, so it is safe for concurrent use.
type Engines struct {
	dbs map[string]*DB
}

// NewEngines returns the engine set for dbs. The map is copied.
func NewEngines(dbs map[string]*DB) *Engines {
	e := &Engines{dbs: make(map[string]*DB, len(dbs))}
	for name, db := range dbs {
		e.dbs[name] = db
	}
	return e
}

// Engine returns the database registered under name
func (e *Engines) Engine(name string) (*DB, error) {
	db, ok := e.dbs[name]
	if !ok {
		return nil, fmt.Errorf("%w: no database engine %q", query.ErrInvalidInput, name)
	}
	return db, nil
}

// Names returns the sorted names of all engines
func (e *Engines) Names() []string {
	names := make([]string, 0, len(e.dbs))
	for name := range e.dbs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Close closes all databases
func (e *Engines) Close() error {
	var first error
	for _, db := range e.dbs {
		if err := db.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
