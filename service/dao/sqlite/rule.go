package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/service/dao"
)

// RuleStore persists service rules.
type RuleStore struct {
	DB *sql.DB
}

var _ dao.RuleStore = (*RuleStore)(nil)

func (s *RuleStore) Save(ctx context.Context, r *model.Rule) error {
	if r == nil {
		return dao.ErrNilEntity
	}
	if r.ID == 0 {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `INSERT INTO rules(id, service_id, rule_order, is_timer, data) VALUES(?,?,?,?,?)
ON CONFLICT(id) DO UPDATE SET service_id=excluded.service_id, rule_order=excluded.rule_order, is_timer=excluded.is_timer, data=excluded.data`,
		r.ID, r.ServiceID, r.Order, r.IsTimer(), string(data))
	return err
}

func (s *RuleStore) Load(ctx context.Context, id int64) (*model.Rule, error) {
	var data string
	err := s.DB.QueryRowContext(ctx, `SELECT data FROM rules WHERE id=?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dao.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ret := &model.Rule{}
	return ret, json.Unmarshal([]byte(data), ret)
}

func (s *RuleStore) Delete(ctx context.Context, id int64) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM rules WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dao.ErrNotFound
	}
	return nil
}

func (s *RuleStore) List(ctx context.Context, _ ...*dao.Parameter) ([]*model.Rule, error) {
	return s.query(ctx, `SELECT data FROM rules ORDER BY rule_order, id`)
}

// ByService returns rules of a service ordered by (order, id).
func (s *RuleStore) ByService(ctx context.Context, serviceID string) ([]*model.Rule, error) {
	return s.query(ctx, `SELECT data FROM rules WHERE service_id=? ORDER BY rule_order, id`, serviceID)
}

// Timers returns all timer rules ordered by (order, id).
func (s *RuleStore) Timers(ctx context.Context) ([]*model.Rule, error) {
	return s.query(ctx, `SELECT data FROM rules WHERE is_timer=1 ORDER BY rule_order, id`)
}

func (s *RuleStore) query(ctx context.Context, query string, args ...any) ([]*model.Rule, error) {
	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ret []*model.Rule
	for rows.Next() {
		var data string
		if err = rows.Scan(&data); err != nil {
			return nil, err
		}
		r := &model.Rule{}
		if err = json.Unmarshal([]byte(data), r); err != nil {
			return nil, err
		}
		ret = append(ret, r)
	}
	return ret, rows.Err()
}
