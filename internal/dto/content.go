package dto

// ContentRequest 创建 / 更新教学内容
// date 对应讲座 scheduled_at、作业 due_date、考试 exam_date，测验忽略
type ContentRequest struct {
	Subject     string `json:"subject"     binding:"required,max=100"`
	Title       string `json:"title"       binding:"required,max=200"`
	Description string `json:"description"`
	Date        string `json:"date"` // RFC3339，可选
}

// ContentListRequest 列表过滤
type ContentListRequest struct {
	Subject string `form:"subject"`
}
