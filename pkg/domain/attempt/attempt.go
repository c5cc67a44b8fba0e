package attempt

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Kind classifies what family of injection a rule detects.
type Kind string

const (
	KindSQLInjection     Kind = "sql_injection"
	KindCommandInjection Kind = "command_injection"
	KindUnionSelect      Kind = "union_select"
	KindOther            Kind = "other"
)

// Severity is the ordinal risk classification driving escalation.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Rank orders severities so the highest one in a request can be selected.
func (s Severity) Rank() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	default:
		return 0
	}
}

func (s Severity) Valid() bool {
	return s.Rank() > 0
}

// InjectionAttempt is the persisted, append-only record of a blocked request.
// Rows are only ever deleted by the retention job.
type InjectionAttempt struct {
	ID              uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	Type            Kind      `json:"type" gorm:"index"`
	Severity        Severity  `json:"severity" gorm:"index"`
	Pattern         string    `json:"pattern"`
	Field           string    `json:"field"`
	MatchedValue    string    `json:"matched_value"`
	Endpoint        string    `json:"endpoint"`
	Method          string    `json:"method"`
	IPAddress       string    `json:"ip_address" gorm:"index"`
	UserAgent       string    `json:"user_agent"`
	UserAgentDevice string    `json:"user_agent_device"`
	UserID          *string   `json:"user_id,omitempty"`
	CreatedAt       time.Time `json:"created_at" gorm:"index"`
}

func (a *InjectionAttempt) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	return a.Validate()
}

func (a *InjectionAttempt) Validate() error {
	if a.Type == "" {
		return fmt.Errorf("type is required")
	}
	if !a.Severity.Valid() {
		return fmt.Errorf("invalid severity: %s", a.Severity)
	}
	if a.IPAddress == "" {
		return fmt.Errorf("ip_address is required")
	}
	return nil
}

func (a *InjectionAttempt) TableName() string {
	return "public.injection_attempts"
}
