// internal/app/features/members/types.go
package members

// memberVM is one row of the member list.
type memberVM struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Source string `json:"source"`
	Owner  bool   `json:"owner"`
}

type listResponse struct {
	OrganizationID string     `json:"organization_id"`
	Members        []memberVM `json:"members"`
}

type roleRequest struct {
	Role string `json:"role" validate:"required,role"`
}
