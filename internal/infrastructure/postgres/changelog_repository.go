package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/device"
)

// ChangeLogRepository implements device.ChangeLog on postgres.
type ChangeLogRepository struct {
	pool *pgxpool.Pool
}

func NewChangeLogRepository(pool *pgxpool.Pool) *ChangeLogRepository {
	return &ChangeLogRepository{pool: pool}
}

func (r *ChangeLogRepository) Append(ctx context.Context, e device.ChangeEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO device_change_log
		(id, device_ref, actor_ref, path, old_value, new_value, channel, at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, e.ID, e.DeviceRef, e.ActorRef, e.Path, e.OldValue, e.NewValue, e.Channel, e.At)
	return err
}

func (r *ChangeLogRepository) List(ctx context.Context, deviceRef string, limit int) ([]device.ChangeEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id, device_ref, actor_ref, path, old_value, new_value, channel, at
		FROM device_change_log
		WHERE device_ref=$1
		ORDER BY at DESC
		LIMIT $2
	`, deviceRef, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]device.ChangeEntry, 0)
	for rows.Next() {
		var e device.ChangeEntry
		if err := rows.Scan(&e.ID, &e.DeviceRef, &e.ActorRef, &e.Path, &e.OldValue, &e.NewValue, &e.Channel, &e.At); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *ChangeLogRepository) Prune(ctx context.Context, keep int) (int, error) {
	res, err := r.pool.Exec(ctx, `
		DELETE FROM device_change_log
		WHERE id NOT IN (SELECT id FROM device_change_log ORDER BY at DESC LIMIT $1)
	`, keep)
	if err != nil {
		return 0, err
	}
	return int(res.RowsAffected()), nil
}
