// Package workflow implements the editorial lifecycle: manuscript status
// transitions with role-based guards, reviewer matching and workload
// tracking, decision aggregation, review assignment handling, and deadline
// monitoring.
//
// The transition table and its role permissions are package-level immutable
// maps initialized once at process start. All writes that change manuscript
// or review state go through a Store transaction so the state change, its
// history records, and its outbox event commit or roll back together.
// Notifications and audit records are best-effort after commit.
package workflow
