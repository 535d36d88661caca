package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"

	"github.com/viant/ruleflow/runtime/execution"
	"github.com/viant/ruleflow/service/dao"
	"github.com/viant/ruleflow/service/dao/criteria"
)

// ProcessStore persists processes.
type ProcessStore struct {
	DB *sql.DB
}

var _ dao.ProcessStore = (*ProcessStore)(nil)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *ProcessStore) Save(ctx context.Context, p *execution.Process) error {
	if p == nil {
		return dao.ErrNilEntity
	}
	if p.ID == "" {
		return dao.ErrInvalidID
	}
	return saveProcess(ctx, s.DB, p)
}

func saveProcess(ctx context.Context, db execer, p *execution.Process) error {
	data, err := json.Marshal(p)
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, `INSERT INTO processes(id, seq, parent_id, service_id, state, blocked_on, priority, updated_at, data)
VALUES(?,?,?,?,?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET seq=excluded.seq, parent_id=excluded.parent_id, service_id=excluded.service_id,
state=excluded.state, blocked_on=excluded.blocked_on, priority=excluded.priority, updated_at=excluded.updated_at, data=excluded.data`,
		p.ID, p.Seq, p.ParentID, p.ServiceID, string(p.State), p.BlockedOn, int(p.Priority), formatTime(p.UpdatedAt), string(data))
	return err
}

func loadProcess(ctx context.Context, db queryer, id string) (*execution.Process, error) {
	var data string
	err := db.QueryRowContext(ctx, `SELECT data FROM processes WHERE id=?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dao.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ret := &execution.Process{}
	if err = json.Unmarshal([]byte(data), ret); err != nil {
		return nil, err
	}
	return ret, nil
}

func (s *ProcessStore) Load(ctx context.Context, id string) (*execution.Process, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	return loadProcess(ctx, s.DB, id)
}

// Update runs fn inside an immediate transaction holding the write lock.
func (s *ProcessStore) Update(ctx context.Context, id string, fn func(p *execution.Process) error) (*execution.Process, error) {
	if id == "" {
		return nil, dao.ErrInvalidID
	}
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()
	p, err := loadProcess(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err = fn(p); err != nil {
		return nil, err
	}
	if err = saveProcess(ctx, tx, p); err != nil {
		return nil, err
	}
	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *ProcessStore) Delete(ctx context.Context, id string) error {
	if id == "" {
		return dao.ErrInvalidID
	}
	res, err := s.DB.ExecContext(ctx, `DELETE FROM processes WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dao.ErrNotFound
	}
	return nil
}

// List returns matching processes ordered by sequence number.
func (s *ProcessStore) List(ctx context.Context, parameters ...*dao.Parameter) ([]*execution.Process, error) {
	query := `SELECT data FROM processes`
	var where []string
	var args []any
	for _, parameter := range parameters {
		if parameter == nil {
			continue
		}
		var column string
		switch parameter.Name {
		case dao.ParamState:
			column = "state"
		case dao.ParamParentID:
			column = "parent_id"
		case dao.ParamBlockedOn:
			column = "blocked_on"
		case dao.ParamServiceID:
			column = "service_id"
		default:
			continue
		}
		values := criteria.StateValues(parameter)
		if len(values) == 0 {
			continue
		}
		where = append(where, column+" IN ("+strings.TrimSuffix(strings.Repeat("?,", len(values)), ",")+")")
		for _, v := range values {
			args = append(args, v)
		}
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq"
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ret []*execution.Process
	for rows.Next() {
		var data string
		if err = rows.Scan(&data); err != nil {
			return nil, err
		}
		p := &execution.Process{}
		if err = json.Unmarshal([]byte(data), p); err != nil {
			return nil, err
		}
		ret = append(ret, p)
	}
	return ret, rows.Err()
}
