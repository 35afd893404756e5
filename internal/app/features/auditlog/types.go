// internal/app/features/auditlog/types.go
package auditlog

import (
	"time"

	"github.com/dalemusser/orghub/internal/app/store/audit"
)

// listItem is one audit event with ids resolved to names.
type listItem struct {
	ID             string            `json:"id"`
	Timestamp      time.Time         `json:"timestamp"`
	Category       string            `json:"category"`
	EventType      string            `json:"event_type"`
	ActorID        string            `json:"actor_id,omitempty"`
	ActorName      string            `json:"actor_name,omitempty"`
	UserID         string            `json:"user_id,omitempty"`
	UserName       string            `json:"user_name,omitempty"`
	OrganizationID string            `json:"organization_id,omitempty"`
	OrgName        string            `json:"org_name,omitempty"`
	IP             string            `json:"ip,omitempty"`
	Success        bool              `json:"success"`
	FailureReason  string            `json:"failure_reason,omitempty"`
	Details        map[string]string `json:"details,omitempty"`
}

type listResponse struct {
	Items      []listItem `json:"items"`
	Page       int        `json:"page"`
	TotalPages int        `json:"total_pages"`
	Total      int64      `json:"total"`
}

var categories = map[string]bool{
	"":                     true,
	audit.CategoryAuth:     true,
	audit.CategoryOrg:      true,
	audit.CategorySecurity: true,
}
