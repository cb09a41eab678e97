package model

import (
	"time"

	"github.com/google/uuid"
)

// Person 排班人员（麻醉医师）
// 输入数据，排班过程中不可变
type Person struct {
	ID              uuid.UUID  `json:"id" db:"id"`
	Name            string     `json:"name" db:"name"`
	WorkRatio       float64    `json:"work_ratio" db:"work_ratio"` // 1.0 = 全职，0.5 = 半职
	Specialty       string     `json:"specialty" db:"specialty"`
	ExperienceYears int        `json:"experience_years" db:"experience_years"`
	Active          bool       `json:"active" db:"active"`
	JoinedAt        *time.Time `json:"joined_at,omitempty" db:"joined_at"`
	LeftAt          *time.Time `json:"left_at,omitempty" db:"left_at"`
}

// IsPartTime 判断是否为非全职人员
func (p *Person) IsPartTime() bool {
	return p.WorkRatio > 0 && p.WorkRatio < 1.0
}

// AvailableOn 判断人员在指定日期是否在职
func (p *Person) AvailableOn(date time.Time) bool {
	if !p.Active {
		return false
	}
	if p.JoinedAt != nil && date.Before(*p.JoinedAt) && !SameDay(date, *p.JoinedAt) {
		return false
	}
	if p.LeftAt != nil && date.After(*p.LeftAt) && !SameDay(date, *p.LeftAt) {
		return false
	}
	return true
}
