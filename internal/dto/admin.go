package dto

// AdminUpdateUserRequest 管理员修改用户
type AdminUpdateUserRequest struct {
	FirstName *string `json:"first_name" binding:"omitempty,max=100"`
	LastName  *string `json:"last_name"  binding:"omitempty,max=100"`
	Phone     *string `json:"phone"      binding:"omitempty,max=30"`
	Email     *string `json:"email"      binding:"omitempty,email"`
	Role      *string `json:"role"       binding:"omitempty,oneof=student teacher admin parent"`
	Points    *int    `json:"points"     binding:"omitempty,min=0"`
	IsActive  *bool   `json:"is_active"`
}

// StudentListRequest 学员列表过滤
type StudentListRequest struct {
	PaginationRequest
	Search string `form:"search"`
}

// SchemaStepResponse 表结构校正记录
type SchemaStepResponse struct {
	Step      string `json:"step"`
	Status    string `json:"status"`
	Detail    string `json:"detail,omitempty"`
	AppliedAt string `json:"applied_at,omitempty"`
	CheckedAt string `json:"checked_at"`
}

// ReconcileResponse 手动触发校正的结果
type ReconcileResponse struct {
	Applied  int                  `json:"applied"`
	Noop     int                  `json:"noop"`
	Failed   int                  `json:"failed"`
	Failures []SchemaStepResponse `json:"failures"`
}
