package model

import (
	"time"

	"github.com/google/uuid"
)

// ActivityKind 活动类型
type ActivityKind string

const (
	KindDuty                  ActivityKind = "duty"                   // 24小时值班
	KindReserve               ActivityKind = "reserve"                // 备班（on-call）
	KindMorningConsultation   ActivityKind = "morning_consultation"   // 上午门诊
	KindAfternoonConsultation ActivityKind = "afternoon_consultation" // 下午门诊
	KindSupervision           ActivityKind = "supervision"            // 手术室监督
)

// AllActivityKinds 全部活动类型（生成顺序）
var AllActivityKinds = []ActivityKind{
	KindDuty,
	KindReserve,
	KindMorningConsultation,
	KindAfternoonConsultation,
	KindSupervision,
}

// IsValid 判断活动类型是否有效
func (k ActivityKind) IsValid() bool {
	switch k {
	case KindDuty, KindReserve, KindMorningConsultation, KindAfternoonConsultation, KindSupervision:
		return true
	}
	return false
}

// IsDayExclusive 判断该活动类型是否整日排他
// 值班和备班同一天不能与其他整日排他活动并存
func (k ActivityKind) IsDayExclusive() bool {
	return k == KindDuty || k == KindReserve
}

// IsConsultation 判断是否为门诊类活动
func (k ActivityKind) IsConsultation() bool {
	return k == KindMorningConsultation || k == KindAfternoonConsultation
}

// AttributionStatus 排班状态
type AttributionStatus string

const (
	StatusPending   AttributionStatus = "pending"   // 待确认
	StatusApproved  AttributionStatus = "approved"  // 已确认
	StatusRejected  AttributionStatus = "rejected"  // 已拒绝
	StatusCancelled AttributionStatus = "cancelled" // 已取消
)

// Attribution 排班分配
// 引擎以 pending 状态创建，后续状态流转由外部工作流负责
type Attribution struct {
	ID        uuid.UUID         `json:"id" db:"id"`
	PersonID  uuid.UUID         `json:"person_id" db:"person_id"`
	Kind      ActivityKind      `json:"kind" db:"kind"`
	StartDate time.Time         `json:"start_date" db:"start_date"`
	EndDate   time.Time         `json:"end_date" db:"end_date"`
	Status    AttributionStatus `json:"status" db:"status"`
	Notes     string            `json:"notes,omitempty" db:"notes"`
	CreatedAt time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt time.Time         `json:"updated_at" db:"updated_at"`
}

// NewAttribution 创建新的排班分配（pending 状态）
func NewAttribution(personID uuid.UUID, kind ActivityKind, start, end time.Time) *Attribution {
	now := time.Now()
	return &Attribution{
		ID:        uuid.New(),
		PersonID:  personID,
		Kind:      kind,
		StartDate: start,
		EndDate:   end,
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Date 返回排班归属的自然日（以开始日期为准）
func (a *Attribution) Date() time.Time {
	return time.Date(a.StartDate.Year(), a.StartDate.Month(), a.StartDate.Day(), 0, 0, 0, 0, a.StartDate.Location())
}

// DayKey 返回排班的按天索引键
func (a *Attribution) DayKey() string {
	return DayKey(a.StartDate)
}

// IsActive 判断排班是否有效（未被拒绝或取消）
func (a *Attribution) IsActive() bool {
	return a.Status == StatusPending || a.Status == StatusApproved
}
