package auditlog

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Categories partition audit entries for retention purposes: alert-dispatch
// records age out on a shorter window than admin action records.
const (
	CategoryAdminAction   = "admin_action"
	CategorySecurityAlert = "security_alert"
)

// Known actions. Free-form actions are allowed; these are the ones the
// engine itself writes.
const (
	ActionAlertSent    = "security_alert_sent"
	ActionExport       = "export"
	ActionRetentionRun = "retention_run"
)

// AuditLog is an append-only trail of admin actions and alert dispatches.
type AuditLog struct {
	ID         uuid.UUID `json:"id" gorm:"type:uuid;primaryKey"`
	AdminID    string    `json:"admin_id"`
	AdminEmail string    `json:"admin_email"`
	Action     string    `json:"action" gorm:"index"`
	Category   string    `json:"category" gorm:"index"`
	Resource   string    `json:"resource"`
	ResourceID *string   `json:"resource_id,omitempty"`
	Details    string    `json:"details"`
	IPAddress  string    `json:"ip_address"`
	UserAgent  string    `json:"user_agent"`
	CreatedAt  time.Time `json:"timestamp" gorm:"index"`
}

func (l *AuditLog) BeforeCreate(tx *gorm.DB) error {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if l.CreatedAt.IsZero() {
		l.CreatedAt = time.Now()
	}
	if l.Category == "" {
		l.Category = CategoryAdminAction
	}
	return l.Validate()
}

func (l *AuditLog) Validate() error {
	if l.Action == "" {
		return fmt.Errorf("action is required")
	}
	return nil
}

func (l *AuditLog) TableName() string {
	return "public.audit_logs"
}
