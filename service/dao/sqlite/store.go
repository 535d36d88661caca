package sqlite

import "database/sql"

// Stores groups every SQLite backed store sharing one connection pool.
type Stores struct {
	DB        *sql.DB
	Processes *ProcessStore
	Rules     *RuleStore
	Services  *ServiceStore
	Resources *ResourceStore
	Snapshots *SnapshotStore
}

// Close closes the underlying database.
func (s *Stores) Close() error {
	return s.DB.Close()
}

// New opens the database at path and returns its stores.
func New(path string) (*Stores, error) {
	db, err := Open(path)
	if err != nil {
		return nil, err
	}
	return &Stores{
		DB:        db,
		Processes: &ProcessStore{DB: db},
		Rules:     &RuleStore{DB: db},
		Services:  &ServiceStore{DB: db},
		Resources: &ResourceStore{DB: db},
		Snapshots: &SnapshotStore{DB: db},
	}, nil
}
