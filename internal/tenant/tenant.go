package tenant

import (
	"fmt"
	"time"

	"github.com/huddle-app/huddle/internal/auth"
)

// Shared with auth so handlers on either side can branch with errors.Is.
var (
	ErrTenantNotFound = auth.ErrTenantNotFound
	ErrUserNotFound   = auth.ErrUserNotFound
	ErrEmailTaken     = auth.ErrEmailTaken
)

// Tenant represents a tenant in the system.
type Tenant struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
}

// Summary is the public listing shape of a tenant.
type Summary struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ImplicitName is the tenant name used when a registrant names none.
func ImplicitName(userName string) string {
	return fmt.Sprintf("Tenant for %s", userName)
}
