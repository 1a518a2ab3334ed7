package rbac

// Roles known to the pharmacy. The auth service puts one of these in the token's role claim.
const (
	RoleAdmin            = "admin"
	RolePharmacist       = "pharmacist"
	RoleCashier          = "cashier"
	RoleInventoryManager = "inventory_manager"
	RoleAssistant        = "assistant"
)

// Permissions checked by route groups.
const (
	PermBillingView     = "billing.view"
	PermBillingCreate   = "billing.create"
	PermBillingCancel   = "billing.cancel"
	PermBillingRefund   = "billing.refund"
	PermInventoryView   = "inventory.view"
	PermInventoryEdit   = "inventory.edit"
	PermInventoryAdjust = "inventory.adjust"
	PermCustomersView   = "customers.view"
	PermCustomersEdit   = "customers.edit"
	PermLedgerView      = "ledger.view"
	PermDashboardView   = "dashboard.view"
)

// AllPermissions lists every permission in a stable order.
func AllPermissions() []string {
	return []string{
		PermBillingView, PermBillingCreate, PermBillingCancel, PermBillingRefund,
		PermInventoryView, PermInventoryEdit, PermInventoryAdjust,
		PermCustomersView, PermCustomersEdit,
		PermLedgerView, PermDashboardView,
	}
}

// DefaultPolicy maps each role to its granted permissions.
func DefaultPolicy() map[string][]string {
	return map[string][]string{
		RoleAdmin: AllPermissions(),
		RolePharmacist: {
			PermBillingView, PermBillingCreate, PermBillingCancel, PermBillingRefund,
			PermInventoryView, PermInventoryEdit, PermInventoryAdjust,
			PermCustomersView, PermCustomersEdit,
			PermLedgerView, PermDashboardView,
		},
		RoleCashier: {
			PermBillingView, PermBillingCreate,
			PermInventoryView,
			PermCustomersView, PermCustomersEdit,
			PermDashboardView,
		},
		RoleInventoryManager: {
			PermInventoryView, PermInventoryEdit, PermInventoryAdjust,
			PermLedgerView, PermDashboardView,
		},
		RoleAssistant: {
			PermBillingView, PermInventoryView, PermCustomersView,
		},
	}
}
