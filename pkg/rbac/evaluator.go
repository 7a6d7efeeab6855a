package rbac

import "github.com/platinummonkey/tenancy/pkg/models"

// DecisionRecorder receives every allow/deny outcome
type DecisionRecorder interface {
	RecordDecision(check string, allowed bool)
}

// Evaluator wraps the pure predicates so services can record decisions
// without the predicates themselves having side effects.
type Evaluator struct {
	recorder DecisionRecorder
}

// NewEvaluator creates an evaluator. A nil recorder discards decisions.
func NewEvaluator(recorder DecisionRecorder) *Evaluator {
	return &Evaluator{recorder: recorder}
}

func (e *Evaluator) record(check string, err error) error {
	if e != nil && e.recorder != nil {
		e.recorder.RecordDecision(check, err == nil)
	}
	return err
}

func (e *Evaluator) Permission(relations []models.Relation, organizationID, branchID string) error {
	return e.record(CheckPermission, Permission(relations, organizationID, branchID))
}

func (e *Evaluator) PermissionNoBranch(relations []models.Relation, organizationID string) error {
	return e.record(CheckPermissionNoBranch, PermissionNoBranch(relations, organizationID))
}

func (e *Evaluator) RelationIDPermission(relations []models.Relation, organizationID, branchID, targetRelationID string) error {
	return e.record(CheckRelationID, RelationIDPermission(relations, organizationID, branchID, targetRelationID))
}

func (e *Evaluator) OrgDeletePatchPermission(relations []models.Relation, organizationID string) error {
	return e.record(CheckOrgDeletePatch, OrgDeletePatchPermission(relations, organizationID))
}

func (e *Evaluator) BranchCreatePermission(relations []models.Relation, organizationID string) error {
	return e.record(CheckBranchCreate, BranchCreatePermission(relations, organizationID))
}

func (e *Evaluator) BranchDeletePermission(relations []models.Relation, organizationID, branchID string) error {
	return e.record(CheckBranchDelete, BranchDeletePermission(relations, organizationID, branchID))
}

func (e *Evaluator) BranchPatchPermission(relations []models.Relation, organizationID, branchID string) error {
	return e.record(CheckBranchPatch, BranchPatchPermission(relations, organizationID, branchID))
}

func (e *Evaluator) AdminListCreatePermission(admin models.Admin) error {
	return e.record(CheckAdminListCreate, AdminListCreatePermission(admin))
}

func (e *Evaluator) AdminMutatePermission(targetID string, admin models.Admin) error {
	return e.record(CheckAdminMutate, AdminMutatePermission(targetID, admin))
}

func (e *Evaluator) AdminSelfViewPermission(admin models.Admin) error {
	return e.record(CheckAdminSelfView, AdminSelfViewPermission(admin))
}
