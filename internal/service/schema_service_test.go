package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"edu-platform/internal/schema"
)

type fakeReconciler struct {
	report  *schema.Report
	history []schema.VersionRecord
	err     error
	runs    int
}

func (f *fakeReconciler) Run(_ context.Context) *schema.Report {
	f.runs++
	return f.report
}

func (f *fakeReconciler) History(_ context.Context) ([]schema.VersionRecord, error) {
	return f.history, f.err
}

func TestSchemaService_Reconcile(t *testing.T) {
	rec := &fakeReconciler{report: &schema.Report{Results: []schema.StepResult{
		{Step: "users.add_is_active", Status: schema.StepApplied},
		{Step: "enrollments.add_status", Status: schema.StepNoop},
		{Step: "orders.add_approved_at", Status: schema.StepFailed, Detail: "permission denied"},
	}}}
	svc := NewSchemaService(rec, zap.NewNop())

	resp := svc.Reconcile(context.Background())
	if rec.runs != 1 {
		t.Errorf("应执行一轮校正，实际=%d", rec.runs)
	}
	if resp.Applied != 1 || resp.Noop != 1 || resp.Failed != 1 {
		t.Errorf("计数不符: %+v", resp)
	}
	if len(resp.Failures) != 1 || resp.Failures[0].Detail != "permission denied" {
		t.Errorf("失败明细不符: %+v", resp.Failures)
	}
}

func TestSchemaService_Status(t *testing.T) {
	applied := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	rec := &fakeReconciler{history: []schema.VersionRecord{
		{Step: "users.add_is_active", Status: "applied", AppliedAt: &applied, CheckedAt: applied},
		{Step: "enrollments.add_status", Status: "noop", CheckedAt: applied},
	}}
	svc := NewSchemaService(rec, zap.NewNop())

	list, err := svc.Status(context.Background())
	if err != nil {
		t.Fatalf("Status 应成功: %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("期望 2 条记录，实际=%d", len(list))
	}
	if list[0].AppliedAt != "2026-01-02T03:04:05Z" {
		t.Errorf("applied_at 格式不符: %s", list[0].AppliedAt)
	}
	if list[1].AppliedAt != "" {
		t.Errorf("未应用的步骤不应有 applied_at: %s", list[1].AppliedAt)
	}
}

func TestSchemaService_Status_Error(t *testing.T) {
	svc := NewSchemaService(&fakeReconciler{err: errors.New("no such table")}, zap.NewNop())

	if _, err := svc.Status(context.Background()); err == nil {
		t.Error("查询失败时应返回错误")
	}
}
