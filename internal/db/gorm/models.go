package gorm

import (
	"database/sql"

	"github.com/thebtf/gatebook/pkg/models"
)

// SessionRow is the persisted form of a Session aggregate. It is coordination
// metadata only: the ordered request-id list is a back-reference column, and
// no prompt or chunk payload is ever stored here.
type SessionRow struct {
	SessionID          string `gorm:"primaryKey"`
	State              string `gorm:"type:text;check:state IN ('active', 'closed');not null;index"`
	EstablishedAt      string `gorm:"not null"` // RFC3339Nano
	EstablishedAtEpoch int64  `gorm:"index:idx_sessions_established,sort:desc;not null"`
	ClosedAt           sql.NullString
	ClosedAtEpoch      sql.NullInt64
	CloseReason        sql.NullString
	RequestIDs         models.JSONStringArray `gorm:"type:text;not null"`
}

func (SessionRow) TableName() string { return "sessions" }

// RequestRow is the persisted form of a Request aggregate, including the
// client message fields and the ordered chunk list.
type RequestRow struct {
	RequestID        string `gorm:"primaryKey"`
	SessionID        string `gorm:"index;not null"`
	Prompt           string `gorm:"type:text;not null"`
	ProviderHint     sql.NullString
	MaxTokens        sql.NullInt64
	State            string `gorm:"type:text;check:state IN ('pending', 'streaming', 'completed', 'failed');not null;index"`
	Chunks           models.JSONChunkList `gorm:"type:text;not null"`
	ReceivedAt       string               `gorm:"not null"` // RFC3339Nano
	ReceivedAtEpoch  int64                `gorm:"index:idx_requests_received,sort:desc;not null"`
	CompletedAt      sql.NullString
	CompletedAtEpoch sql.NullInt64
	FailureReason    sql.NullString
	TotalTokens      sql.NullInt64
	StopReason       sql.NullString
}

func (RequestRow) TableName() string { return "requests" }
