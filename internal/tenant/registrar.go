package tenant

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/huddle-app/huddle/internal/audit"
	"github.com/huddle-app/huddle/internal/auth"
	"github.com/huddle-app/huddle/internal/platform/database"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Registrar creates users together with the tenant they join.
type Registrar struct {
	pool     *pgxpool.Pool
	tenants  *Store
	users    *UserStore
	auditLog audit.Logger
}

func NewRegistrar(pool *pgxpool.Pool, tenants *Store, users *UserStore, auditLog audit.Logger) *Registrar {
	if auditLog == nil {
		auditLog = audit.NopLogger{}
	}
	return &Registrar{pool: pool, tenants: tenants, users: users, auditLog: auditLog}
}

var _ auth.Registrar = (*Registrar)(nil)

// Register picks the tenant (explicit id, then find-or-create by name, then a
// fresh implicit tenant) and creates the user in the same transaction, so a
// duplicate email never leaves a new tenant behind.
func (r *Registrar) Register(ctx context.Context, params auth.RegisterParams) (*auth.Identity, error) {
	var (
		user          *User
		tenant        *Tenant
		tenantCreated bool
	)

	err := database.WithTx(ctx, r.pool, func(ctx context.Context, tx pgx.Tx) error {
		var err error
		tenant, tenantCreated, err = r.resolveTenant(ctx, tx, params)
		if err != nil {
			return err
		}
		user, err = r.users.Create(ctx, tx, tenant.ID, params.Email, params.Name)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("registering %s: %w", params.Email, err)
	}

	if tenantCreated {
		r.record(ctx, tenant.ID, user.ID, audit.ActionTenantCreated, audit.ResourceTenant, tenant.ID)
		slog.Info("tenant created", "tenant_id", tenant.ID, "name", tenant.Name)
	}
	r.record(ctx, tenant.ID, user.ID, audit.ActionUserRegistered, audit.ResourceUser, user.ID)

	return &auth.Identity{
		UserID:   user.ID,
		TenantID: user.TenantID,
		Email:    user.Email,
		Name:     user.Name,
	}, nil
}

func (r *Registrar) resolveTenant(ctx context.Context, q database.Querier, params auth.RegisterParams) (*Tenant, bool, error) {
	switch {
	case params.TenantID != "":
		t, err := r.tenants.GetByID(ctx, q, params.TenantID)
		return t, false, err
	case params.TenantName != "":
		return r.tenants.FindOrCreateByName(ctx, q, params.TenantName)
	default:
		t, err := r.tenants.Create(ctx, q, ImplicitName(params.Name))
		return t, err == nil, err
	}
}

func (r *Registrar) record(ctx context.Context, tenantID, userID, action, resourceType, resourceID string) {
	e, ok := audit.NewEvent(ctx, tenantID, action, resourceType, resourceID)
	if !ok {
		return
	}
	e.UserID = audit.ParseID(userID)
	r.auditLog.Log(ctx, e)
}
