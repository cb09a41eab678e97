package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vperreard/mathildanesth/pkg/model"
)

// AttributionRepository 排班分配仓储
type AttributionRepository struct {
	db DB
}

// NewAttributionRepository 创建排班分配仓储
func NewAttributionRepository(db DB) *AttributionRepository {
	return &AttributionRepository{db: db}
}

// Create 写入单条排班分配
func (r *AttributionRepository) Create(ctx context.Context, a *model.Attribution) error {
	query := `
		INSERT INTO attributions (
			id, person_id, kind, start_date, end_date, status, notes, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.ExecContext(ctx, query,
		a.ID, a.PersonID, a.Kind, a.StartDate, a.EndDate, a.Status, a.Notes, a.CreatedAt, a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("创建排班分配失败: %w", err)
	}
	return nil
}

// CreateBatch 批量写入生成结果
func (r *AttributionRepository) CreateBatch(ctx context.Context, attributions []*model.Attribution) error {
	for _, a := range attributions {
		if err := r.Create(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// GetByID 根据ID获取排班分配
func (r *AttributionRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Attribution, error) {
	query := `
		SELECT id, person_id, kind, start_date, end_date, status, notes, created_at, updated_at
		FROM attributions
		WHERE id = $1
	`

	a := &model.Attribution{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.PersonID, &a.Kind, &a.StartDate, &a.EndDate, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("排班分配不存在")
	}
	if err != nil {
		return nil, fmt.Errorf("读取排班分配失败: %w", err)
	}
	return a, nil
}

// ListInRange 获取日期区间内的有效排班分配
func (r *AttributionRepository) ListInRange(ctx context.Context, start, end time.Time) ([]*model.Attribution, error) {
	query := `
		SELECT id, person_id, kind, start_date, end_date, status, notes, created_at, updated_at
		FROM attributions
		WHERE start_date >= $1 AND start_date < $2
		  AND status IN ('pending', 'approved')
		ORDER BY start_date, kind
	`

	rows, err := r.db.QueryContext(ctx, query, start, end.AddDate(0, 0, 1))
	if err != nil {
		return nil, fmt.Errorf("查询排班分配失败: %w", err)
	}
	defer rows.Close()

	var attributions []*model.Attribution
	for rows.Next() {
		a := &model.Attribution{}
		if err := rows.Scan(
			&a.ID, &a.PersonID, &a.Kind, &a.StartDate, &a.EndDate, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("读取排班分配失败: %w", err)
		}
		attributions = append(attributions, a)
	}
	return attributions, rows.Err()
}

// ListForPerson 获取某人的全部有效排班分配
func (r *AttributionRepository) ListForPerson(ctx context.Context, personID uuid.UUID) ([]*model.Attribution, error) {
	query := `
		SELECT id, person_id, kind, start_date, end_date, status, notes, created_at, updated_at
		FROM attributions
		WHERE person_id = $1
		  AND status IN ('pending', 'approved')
		ORDER BY start_date
	`

	rows, err := r.db.QueryContext(ctx, query, personID)
	if err != nil {
		return nil, fmt.Errorf("查询排班分配失败: %w", err)
	}
	defer rows.Close()

	var attributions []*model.Attribution
	for rows.Next() {
		a := &model.Attribution{}
		if err := rows.Scan(
			&a.ID, &a.PersonID, &a.Kind, &a.StartDate, &a.EndDate, &a.Status, &a.Notes, &a.CreatedAt, &a.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("读取排班分配失败: %w", err)
		}
		attributions = append(attributions, a)
	}
	return attributions, rows.Err()
}

// UpdateStatus 更新排班分配状态
func (r *AttributionRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status model.AttributionStatus) error {
	query := `UPDATE attributions SET status = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	if err != nil {
		return fmt.Errorf("更新排班状态失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("排班分配不存在")
	}
	return nil
}

// DeleteInRange 删除日期区间内的待确认分配（重新生成前清理）
func (r *AttributionRepository) DeleteInRange(ctx context.Context, start, end time.Time) (int64, error) {
	query := `
		DELETE FROM attributions
		WHERE start_date >= $1 AND start_date < $2 AND status = 'pending'
	`

	result, err := r.db.ExecContext(ctx, query, start, end.AddDate(0, 0, 1))
	if err != nil {
		return 0, fmt.Errorf("删除排班分配失败: %w", err)
	}
	return result.RowsAffected()
}
