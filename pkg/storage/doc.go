// Package storage defines the persistence ports of the tenancy service.
//
// # Overview
//
// Each entity has its own repository interface (UserRepository,
// RelationRepository, BranchRepository, ...). Lifecycle services depend only
// on these interfaces; pkg/storage/postgres implements them over database/sql
// and runs unchanged on lib/pq and go-sqlite3.
//
// # Transactions
//
// TxManager.RunInTx opens a transaction and stores it in the context. Every
// repository call made with that context joins it:
//
//	err := repos.Tx.RunInTx(ctx, func(ctx context.Context) error {
//		if err := repos.Organizations.Create(ctx, org); err != nil {
//			return err
//		}
//		return repos.Branches.Create(ctx, branch)
//	})
//
// # Cascades
//
// Dependent rows are removed through ScopedDeleter, keyed by the
// organization_id, branch_id or user_id column. No foreign key cascades are
// assumed.
//
// # Paging
//
// Lists take PageParams (limit 25, page 1, start 0 by default) and return a
// Page with total, limit, count, page, page_count and items.
package storage
