package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/service/dao"
)

// ResourceStore persists ledger rows.
type ResourceStore struct {
	DB *sql.DB
}

var _ dao.ResourceStore = (*ResourceStore)(nil)

const resourceColumns = `id, name, capacity, current_usage, busy_until, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanResource(row rowScanner) (*model.Resource, error) {
	ret := &model.Resource{}
	var busyUntil sql.NullString
	var updatedAt string
	if err := row.Scan(&ret.ID, &ret.Name, &ret.Capacity, &ret.CurrentUsage, &busyUntil, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if ret.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	if busyUntil.Valid {
		busy, err := parseTime(busyUntil.String)
		if err != nil {
			return nil, err
		}
		ret.BusyUntil = &busy
	}
	return ret, nil
}

func saveResource(ctx context.Context, db execer, r *model.Resource) error {
	var busyUntil any
	if r.BusyUntil != nil {
		busyUntil = formatTime(*r.BusyUntil)
	}
	_, err := db.ExecContext(ctx, `INSERT INTO resources(`+resourceColumns+`) VALUES(?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET name=excluded.name, capacity=excluded.capacity, current_usage=excluded.current_usage,
busy_until=excluded.busy_until, updated_at=excluded.updated_at`,
		r.ID, r.Name, r.Capacity, r.CurrentUsage, busyUntil, formatTime(r.UpdatedAt))
	return err
}

func loadResource(ctx context.Context, db queryer, id string) (*model.Resource, error) {
	ret, err := scanResource(db.QueryRowContext(ctx, `SELECT `+resourceColumns+` FROM resources WHERE id=?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dao.ErrNotFound
	}
	return ret, err
}

func (s *ResourceStore) Save(ctx context.Context, r *model.Resource) error {
	if r == nil {
		return dao.ErrNilEntity
	}
	if r.ID == "" {
		return dao.ErrInvalidID
	}
	return saveResource(ctx, s.DB, r)
}

func (s *ResourceStore) Load(ctx context.Context, id string) (*model.Resource, error) {
	return loadResource(ctx, s.DB, id)
}

// Update runs fn inside an immediate transaction holding the write lock.
func (s *ResourceStore) Update(ctx context.Context, id string, fn func(r *model.Resource) error) (*model.Resource, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	r, err := loadResource(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err = fn(r); err != nil {
		return nil, err
	}
	if err = saveResource(ctx, tx, r); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return r, nil
}

func (s *ResourceStore) Delete(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM resources WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dao.ErrNotFound
	}
	return nil
}

func (s *ResourceStore) List(ctx context.Context, _ ...*dao.Parameter) ([]*model.Resource, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT `+resourceColumns+` FROM resources ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ret []*model.Resource
	for rows.Next() {
		r, err := scanResource(rows)
		if err != nil {
			return nil, err
		}
		ret = append(ret, r)
	}
	return ret, rows.Err()
}
