package auth

type Permission string

const (
	PermViewOwnOrders   Permission = "orders:own"
	PermViewAllOrders   Permission = "orders:all"
	PermUpdateOrder     Permission = "orders:update"
	PermAssignOrder     Permission = "orders:assign"
	PermManageHoldFees  Permission = "hold_fees:manage"
	PermManageProofs    Permission = "proofs:manage"
	PermViewReports     Permission = "reports:view"
	PermManageFees      Permission = "courier_fees:manage"
	PermViewCourierList Permission = "couriers:list"
)

var rolePermissions = map[UserRole][]Permission{
	RoleAdmin: {
		PermViewOwnOrders, PermViewAllOrders, PermUpdateOrder, PermAssignOrder,
		PermManageHoldFees, PermManageProofs, PermViewReports, PermManageFees, PermViewCourierList,
	},
	RoleCourier: {
		PermViewOwnOrders, PermUpdateOrder, PermManageProofs, PermViewReports,
	},
}

func HasPermission(role UserRole, perm Permission) bool {
	for _, p := range rolePermissions[role] {
		if p == perm {
			return true
		}
	}
	return false
}
