package shared

import "fmt"

// LedgerReconcileLockKey guards the nightly ledger reconciliation.
func LedgerReconcileLockKey() string {
	return "pharmacy:ledger:reconcile:lock"
}

// JobLockKey builds redis keys for singleton background jobs.
func JobLockKey(task string) string {
	return fmt.Sprintf("pharmacy:job:%s:lock", task)
}
