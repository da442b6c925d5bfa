package service

import (
	"context"

	"go.uber.org/zap"

	"edu-platform/internal/dto"
	"edu-platform/internal/schema"
)

// Reconciler 表结构校正器，由 *schema.Reconciler 实现
type Reconciler interface {
	Run(ctx context.Context) *schema.Report
	History(ctx context.Context) ([]schema.VersionRecord, error)
}

// SchemaService 表结构校正状态接口
type SchemaService interface {
	Status(ctx context.Context) ([]dto.SchemaStepResponse, error)
	Reconcile(ctx context.Context) *dto.ReconcileResponse
}

type schemaService struct {
	reconciler Reconciler
	logger     *zap.Logger
}

// NewSchemaService 创建 SchemaService 实例
func NewSchemaService(reconciler Reconciler, logger *zap.Logger) SchemaService {
	return &schemaService{reconciler: reconciler, logger: logger}
}

func (s *schemaService) Status(ctx context.Context) ([]dto.SchemaStepResponse, error) {
	records, err := s.reconciler.History(ctx)
	if err != nil {
		s.logger.Error("查询校正记录失败", zap.Error(err))
		return nil, err
	}
	result := make([]dto.SchemaStepResponse, 0, len(records))
	for i := range records {
		r := &records[i]
		result = append(result, dto.SchemaStepResponse{
			Step:      r.Step,
			Status:    r.Status,
			Detail:    r.Detail,
			AppliedAt: formatTime(r.AppliedAt),
			CheckedAt: formatTime(&r.CheckedAt),
		})
	}
	return result, nil
}

// Reconcile 重新执行一轮校正；失败步骤只记录，不中断
func (s *schemaService) Reconcile(ctx context.Context) *dto.ReconcileResponse {
	report := s.reconciler.Run(ctx)
	resp := &dto.ReconcileResponse{
		Applied:  report.Count(schema.StepApplied),
		Noop:     report.Count(schema.StepNoop),
		Failed:   report.Count(schema.StepFailed),
		Failures: []dto.SchemaStepResponse{},
	}
	for _, f := range report.Failures() {
		resp.Failures = append(resp.Failures, dto.SchemaStepResponse{
			Step:   f.Step,
			Status: string(f.Status),
			Detail: f.Detail,
		})
	}
	s.logger.Info("手动校正完成",
		zap.Int("applied", resp.Applied),
		zap.Int("noop", resp.Noop),
		zap.Int("failed", resp.Failed),
	)
	return resp
}
