// Package orgs runs the organization and branch lifecycles.
//
// Creating an organization writes three rows in one transaction: the
// organization, its "{name}_main" branch and an OrganizationOwner relation
// for the creator. Creating a branch writes the branch and the creator's
// owner relation the same way.
//
// Deletes go through Cascade: the primary row is removed first and its
// error is returned as is. Dependent rows are then removed step by step;
// a failing step is logged, counted and joined into CascadeResult.Err while
// the remaining steps still run.
package orgs
