package postgres

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/platinummonkey/tenancy/pkg/models"
	"github.com/platinummonkey/tenancy/pkg/storage"
)

const relationColumns = "id, organization_id, branch_id, user_id, role, relation_type, created_at, updated_at"

var relationScopes = []storage.ScopeField{storage.ScopeOrganization, storage.ScopeBranch, storage.ScopeUser}

// RelationRepository implements storage.RelationRepository
type RelationRepository struct {
	db *sql.DB
}

func NewRelationRepository(db *sql.DB) *RelationRepository {
	return &RelationRepository{db: db}
}

func scanRelation(row rowScanner) (*models.Relation, error) {
	var rel models.Relation
	err := row.Scan(&rel.ID, &rel.OrganizationID, &rel.BranchID, &rel.UserID,
		&rel.Role, &rel.RelationType, &rel.CreatedAt, &rel.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

func scanRelations(rows *sql.Rows) ([]models.Relation, error) {
	defer rows.Close()
	relations := []models.Relation{}
	for rows.Next() {
		rel, err := scanRelation(rows)
		if err != nil {
			return nil, serverError("failed to scan relation", err)
		}
		relations = append(relations, *rel)
	}
	if err := rows.Err(); err != nil {
		return nil, serverError("failed to iterate relations", err)
	}
	return relations, nil
}

func (r *RelationRepository) Create(ctx context.Context, rel *models.Relation) error {
	if rel.ID == "" {
		rel.ID = uuid.NewString()
	}
	if rel.CreatedAt.IsZero() {
		rel.CreatedAt = utcNow()
	}

	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO relations (id, organization_id, branch_id, user_id, role, relation_type, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rel.ID, rel.OrganizationID, rel.BranchID, rel.UserID, rel.Role, rel.RelationType, rel.CreatedAt,
	)
	if err != nil {
		return createError("relation", err)
	}
	return nil
}

func (r *RelationRepository) ListByUser(ctx context.Context, userID string) ([]models.Relation, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx,
		"SELECT "+relationColumns+" FROM relations WHERE user_id = $1 ORDER BY created_at", userID)
	if err != nil {
		return nil, serverError("failed to list relations by user", err)
	}
	return scanRelations(rows)
}

func (r *RelationRepository) Get(ctx context.Context, id string) (*models.Relation, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, "SELECT "+relationColumns+" FROM relations WHERE id = $1", id)
	rel, err := scanRelation(row)
	if err != nil {
		return nil, getError("Relation", err)
	}
	return rel, nil
}

func (r *RelationRepository) List(ctx context.Context, query storage.RelationQuery) (*storage.Page[models.Relation], error) {
	q := conn(ctx, r.db)
	w := &where{}
	w.eq("organization_id", query.OrganizationID)
	w.eq("branch_id", query.BranchID)
	w.eq("user_id", query.UserID)
	if query.Role != nil {
		w.eq("role", string(*query.Role))
	}
	if query.RelationType != nil {
		w.eq("relation_type", string(*query.RelationType))
	}
	w.filter(query.Filter)

	total, err := count(ctx, q, "relations", w)
	if err != nil {
		return nil, serverError("failed to list relations", err)
	}

	stmt, args := w.page("SELECT "+relationColumns+" FROM relations", query.PageParams)
	rows, err := q.QueryContext(ctx, stmt, args...)
	if err != nil {
		return nil, serverError("failed to list relations", err)
	}
	relations, err := scanRelations(rows)
	if err != nil {
		return nil, err
	}

	return storage.NewPage(relations, total, query.PageParams), nil
}

func (r *RelationRepository) Patch(ctx context.Context, id string, patch models.RelationPatch) (*models.Relation, error) {
	s := &setter{}
	if patch.UserID != nil {
		s.set("user_id", *patch.UserID)
	}
	if patch.Role != nil {
		s.set("role", *patch.Role)
	}
	if patch.RelationType != nil {
		s.set("relation_type", *patch.RelationType)
	}
	if s.empty() {
		return r.Get(ctx, id)
	}
	s.set("updated_at", utcNow())

	if err := s.update(ctx, conn(ctx, r.db), "relations", id, "Relation"); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

func (r *RelationRepository) Delete(ctx context.Context, id string) error {
	return deleteByID(ctx, conn(ctx, r.db), "relations", id, "Relation")
}

func (r *RelationRepository) DeleteByScope(ctx context.Context, field storage.ScopeField, id string) (int64, error) {
	return deleteByScope(ctx, conn(ctx, r.db), "relations", relationScopes, field, id)
}

func (r *RelationRepository) DeletePendingBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx,
		"DELETE FROM relations WHERE relation_type IN ($1, $2) AND created_at < $3",
		models.RelationTypeRequestToJoin, models.RelationTypeInvitationToUser, cutoff.UTC(),
	)
	if err != nil {
		return 0, serverError("failed to delete pending relations", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, serverError("failed to get rows affected", err)
	}
	return n, nil
}
