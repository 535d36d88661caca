package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/service/dao"
)

// ServiceStore persists service definitions.
type ServiceStore struct {
	DB *sql.DB
}

var _ dao.ServiceStore = (*ServiceStore)(nil)

func (s *ServiceStore) Save(ctx context.Context, svc *model.Service) error {
	if svc == nil {
		return dao.ErrNilEntity
	}
	if svc.ID == "" {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(svc)
	if err != nil {
		return err
	}
	_, err = s.DB.ExecContext(ctx, `INSERT INTO services(id, name, data) VALUES(?,?,?)
ON CONFLICT(id) DO UPDATE SET name=excluded.name, data=excluded.data`, svc.ID, svc.Name, string(data))
	return err
}

func (s *ServiceStore) Load(ctx context.Context, id string) (*model.Service, error) {
	var data string
	err := s.DB.QueryRowContext(ctx, `SELECT data FROM services WHERE id=?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, dao.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ret := &model.Service{}
	return ret, json.Unmarshal([]byte(data), ret)
}

func (s *ServiceStore) Delete(ctx context.Context, id string) error {
	res, err := s.DB.ExecContext(ctx, `DELETE FROM services WHERE id=?`, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dao.ErrNotFound
	}
	return nil
}

func (s *ServiceStore) List(ctx context.Context, _ ...*dao.Parameter) ([]*model.Service, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT data FROM services ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ret []*model.Service
	for rows.Next() {
		var data string
		if err = rows.Scan(&data); err != nil {
			return nil, err
		}
		svc := &model.Service{}
		if err = json.Unmarshal([]byte(data), svc); err != nil {
			return nil, err
		}
		ret = append(ret, svc)
	}
	return ret, rows.Err()
}
