package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/viant/ruleflow/model"
	"github.com/viant/ruleflow/service/dao"
)

// SnapshotStore appends context snapshots.
type SnapshotStore struct {
	DB *sql.DB
}

var _ dao.SnapshotStore = (*SnapshotStore)(nil)

// Append inserts a snapshot; an existing (process, version) yields dao.ErrDuplicate.
func (s *SnapshotStore) Append(ctx context.Context, snapshot *model.Snapshot) error {
	if snapshot == nil {
		return dao.ErrNilEntity
	}
	if snapshot.ProcessID == "" {
		return dao.ErrInvalidID
	}
	data, err := json.Marshal(snapshot.Context)
	if err != nil {
		return err
	}
	res, err := s.DB.ExecContext(ctx, `INSERT INTO snapshots(process_id, version, trigger_name, context, created_at) VALUES(?,?,?,?,?)
ON CONFLICT(process_id, version) DO NOTHING`,
		snapshot.ProcessID, snapshot.Version, snapshot.Trigger, string(data), formatTime(snapshot.CreatedAt))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return dao.ErrDuplicate
	}
	return nil
}

// List returns process snapshots ordered by version.
func (s *SnapshotStore) List(ctx context.Context, processID string) ([]*model.Snapshot, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT process_id, version, trigger_name, context, created_at FROM snapshots WHERE process_id=? ORDER BY version`, processID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ret []*model.Snapshot
	for rows.Next() {
		snapshot := &model.Snapshot{}
		var data, createdAt string
		if err = rows.Scan(&snapshot.ProcessID, &snapshot.Version, &snapshot.Trigger, &data, &createdAt); err != nil {
			return nil, err
		}
		if err = json.Unmarshal([]byte(data), &snapshot.Context); err != nil {
			return nil, err
		}
		if snapshot.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		ret = append(ret, snapshot)
	}
	return ret, rows.Err()
}
