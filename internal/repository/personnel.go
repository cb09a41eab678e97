package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/vperreard/mathildanesth/pkg/model"
)

// PersonnelRepository 人员仓储
type PersonnelRepository struct {
	db DB
}

// NewPersonnelRepository 创建人员仓储
func NewPersonnelRepository(db DB) *PersonnelRepository {
	return &PersonnelRepository{db: db}
}

// Create 创建人员
func (r *PersonnelRepository) Create(ctx context.Context, p *model.Person) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}

	query := `
		INSERT INTO personnel (
			id, name, work_ratio, specialty, experience_years, active, joined_at, left_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.WorkRatio, p.Specialty, p.ExperienceYears, p.Active, p.JoinedAt, p.LeftAt,
	)
	if err != nil {
		return fmt.Errorf("创建人员失败: %w", err)
	}
	return nil
}

// GetByID 根据ID获取人员
func (r *PersonnelRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Person, error) {
	query := `
		SELECT id, name, work_ratio, specialty, experience_years, active, joined_at, left_at
		FROM personnel
		WHERE id = $1
	`
	return r.scanPerson(r.db.QueryRowContext(ctx, query, id))
}

// ListActive 获取指定日期可参与排班的人员
func (r *PersonnelRepository) ListActive(ctx context.Context, date time.Time) ([]*model.Person, error) {
	query := `
		SELECT id, name, work_ratio, specialty, experience_years, active, joined_at, left_at
		FROM personnel
		WHERE active = true
		  AND (joined_at IS NULL OR joined_at <= $1)
		  AND (left_at IS NULL OR left_at >= $1)
		ORDER BY name
	`

	rows, err := r.db.QueryContext(ctx, query, date)
	if err != nil {
		return nil, fmt.Errorf("查询人员失败: %w", err)
	}
	defer rows.Close()

	var personnel []*model.Person
	for rows.Next() {
		p, err := scanPersonRow(rows)
		if err != nil {
			return nil, err
		}
		personnel = append(personnel, p)
	}
	return personnel, rows.Err()
}

// Update 更新人员
func (r *PersonnelRepository) Update(ctx context.Context, p *model.Person) error {
	query := `
		UPDATE personnel SET
			name = $2, work_ratio = $3, specialty = $4, experience_years = $5,
			active = $6, joined_at = $7, left_at = $8
		WHERE id = $1
	`

	result, err := r.db.ExecContext(ctx, query,
		p.ID, p.Name, p.WorkRatio, p.Specialty, p.ExperienceYears, p.Active, p.JoinedAt, p.LeftAt,
	)
	if err != nil {
		return fmt.Errorf("更新人员失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("人员不存在")
	}
	return nil
}

// Deactivate 停用人员
func (r *PersonnelRepository) Deactivate(ctx context.Context, id uuid.UUID, leftAt time.Time) error {
	query := `UPDATE personnel SET active = false, left_at = $2 WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id, leftAt)
	if err != nil {
		return fmt.Errorf("停用人员失败: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("人员不存在")
	}
	return nil
}

func (r *PersonnelRepository) scanPerson(row *sql.Row) (*model.Person, error) {
	p := &model.Person{}
	err := row.Scan(&p.ID, &p.Name, &p.WorkRatio, &p.Specialty, &p.ExperienceYears, &p.Active, &p.JoinedAt, &p.LeftAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("人员不存在")
	}
	if err != nil {
		return nil, fmt.Errorf("读取人员失败: %w", err)
	}
	return p, nil
}

func scanPersonRow(rows *sql.Rows) (*model.Person, error) {
	p := &model.Person{}
	err := rows.Scan(&p.ID, &p.Name, &p.WorkRatio, &p.Specialty, &p.ExperienceYears, &p.Active, &p.JoinedAt, &p.LeftAt)
	if err != nil {
		return nil, fmt.Errorf("读取人员失败: %w", err)
	}
	return p, nil
}
