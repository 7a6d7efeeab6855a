package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/platinummonkey/tenancy/pkg/models"
	"github.com/platinummonkey/tenancy/pkg/storage"
)

const (
	organizationColumns = "id, name, created_at, updated_at"
	branchColumns       = "id, name, branch_location, for_call, organization_id, created_at, updated_at"
)

// OrganizationRepository implements storage.OrganizationRepository
type OrganizationRepository struct {
	db *sql.DB
}

func NewOrganizationRepository(db *sql.DB) *OrganizationRepository {
	return &OrganizationRepository{db: db}
}

func scanOrganization(row rowScanner) (*models.Organization, error) {
	var o models.Organization
	if err := row.Scan(&o.ID, &o.Name, &o.CreatedAt, &o.UpdatedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

func (r *OrganizationRepository) Create(ctx context.Context, org *models.Organization) error {
	if org.ID == "" {
		org.ID = uuid.NewString()
	}
	if org.CreatedAt.IsZero() {
		org.CreatedAt = utcNow()
	}

	_, err := conn(ctx, r.db).ExecContext(ctx,
		"INSERT INTO organizations (id, name, created_at) VALUES ($1, $2, $3)",
		org.ID, org.Name, org.CreatedAt,
	)
	if err != nil {
		return createError("organization", err)
	}
	return nil
}

func (r *OrganizationRepository) Get(ctx context.Context, id string) (*models.Organization, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, "SELECT "+organizationColumns+" FROM organizations WHERE id = $1", id)
	o, err := scanOrganization(row)
	if err != nil {
		return nil, getError("Organization", err)
	}
	return o, nil
}

func (r *OrganizationRepository) List(ctx context.Context, query storage.OrganizationQuery) (*storage.Page[models.Organization], error) {
	q := conn(ctx, r.db)
	w := &where{}
	w.filter(query.Filter)

	total, err := count(ctx, q, "organizations", w)
	if err != nil {
		return nil, serverError("failed to list organizations", err)
	}

	stmt, args := w.page("SELECT "+organizationColumns+" FROM organizations", query.PageParams)
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, serverError("failed to list organizations", err)
	}
	defer rows.Close()

	var orgs []models.Organization
	for rows.Next() {
		o, err := scanOrganization(rows)
		if err != nil {
			return nil, serverError("failed to scan organization", err)
		}
		orgs = append(orgs, *o)
	}
	if err := rows.Err(); err != nil {
		return nil, serverError("failed to iterate organizations", err)
	}

	return storage.NewPage(orgs, total, query.PageParams), nil
}

func (r *OrganizationRepository) Patch(ctx context.Context, id string, patch models.OrganizationPatch) (*models.Organization, error) {
	s := &setter{}
	if patch.Name != nil {
		s.set("name", *patch.Name)
	}
	if s.empty() {
		return r.Get(ctx, id)
	}
	s.set("updated_at", utcNow())

	if err := s.update(ctx, conn(ctx, r.db), "organizations", id, "Organization"); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *OrganizationRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, conn(ctx, r.db), "organizations", id, "Organization")
}

// BranchRepository implements storage.BranchRepository
type BranchRepository struct {
	db *sql.DB
}

func NewBranchRepository(db *sql.DB) *BranchRepository {
	return &BranchRepository{db: db}
}

func scanBranch(row rowScanner) (*models.Branch, error) {
	var b models.Branch
	if err := row.Scan(&b.ID, &b.Name, &b.BranchLocation, &b.ForCall, &b.OrganizationID, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BranchRepository) Create(ctx context.Context, branch *models.Branch) error {
	if branch.ID == "" {
		branch.ID = uuid.NewString()
	}
	if branch.CreatedAt.IsZero() {
		branch.CreatedAt = utcNow()
	}

	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO branches (id, name, branch_location, for_call, organization_id, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		branch.ID, branch.Name, branch.BranchLocation, branch.ForCall, branch.OrganizationID, branch.CreatedAt,
	)
	if err != nil {
		return createError("branch", err)
	}
	return nil
}

func (r *BranchRepository) Get(ctx context.Context, id string) (*models.Branch, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, "SELECT "+branchColumns+" FROM branches WHERE id = $1", id)
	b, err := scanBranch(row)
	if err != nil {
		return nil, getError("Branch", err)
	}
	return b, nil
}

func (r *BranchRepository) List(ctx context.Context, query storage.BranchQuery) (*storage.Page[models.Branch], error) {
	q := conn(ctx, r.db)
	w := &where{}
	w.eq("organization_id", query.OrganizationID)
	w.filter(query.Filter)

	total, err := count(ctx, q, "branches", w)
	if err != nil {
		return nil, serverError("failed to list branches", err)
	}

	stmt, args := w.page("SELECT "+branchColumns+" FROM branches", query.PageParams)
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, serverError("failed to list branches", err)
	}
	defer rows.Close()

	var branches []models.Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, serverError("failed to scan branch", err)
		}
		branches = append(branches, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, serverError("failed to iterate branches", err)
	}

	return storage.NewPage(branches, total, query.PageParams), nil
}

// Patch never touches organization_id: a branch stays in its organization
func (r *BranchRepository) Patch(ctx context.Context, id string, patch models.BranchPatch) (*models.Branch, error) {
	s := &setter{}
	if patch.Name != nil {
		s.set("name", *patch.Name)
	}
	if patch.BranchLocation != nil {
		s.set("branch_location", *patch.BranchLocation)
	}
	if patch.ForCall != nil {
		s.set("for_call", *patch.ForCall)
	}
	if s.empty() {
		return r.Get(ctx, id)
	}
	s.set("updated_at", utcNow())

	if err := s.update(ctx, conn(ctx, r.db), "branches", id, "Branch"); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *BranchRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, conn(ctx, r.db), "branches", id, "Branch")
}

func (r *BranchRepository) DeleteByScope(ctx context.Context, field storage.ScopeField, id string) (int64, error) {
	return deleteByScope(ctx, conn(ctx, r.db), "branches", []storage.ScopeField{storage.ScopeOrganization}, field, id)
}
