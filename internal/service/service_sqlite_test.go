package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"edu-platform/internal/dto"
	"edu-platform/internal/model"
	"edu-platform/internal/repository"
	"edu-platform/internal/schema"
	"edu-platform/pkg/jwt"
)

// newSQLiteRepository 临时 SQLite 文件上校正出全部规范表
func newSQLiteRepository(t *testing.T) (*repository.Repository, *gorm.DB) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "service.db")
	db, err := gorm.Open(sqlite.Open(path+"?_busy_timeout=5000&_journal_mode=WAL&_foreign_keys=on"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	report := schema.NewReconciler(db, zap.NewNop()).Run(context.Background())
	require.Empty(t, report.Failures())
	return repository.NewRepository(db, 0), db
}

func newSQLiteAuthService(t *testing.T, repo *repository.Repository) (AuthService, *fakeMailer) {
	t.Helper()
	cfg := testConfig()
	mailer := &fakeMailer{}
	svc := NewAuthService(cfg, repo, jwt.NewManager(&cfg.Auth), nil, mailer, zap.NewNop())
	svc.(*authService).verifier.cost = bcrypt.MinCost
	return svc, mailer
}

func seedOrder(t *testing.T, repo *repository.Repository, userID int64, titles ...string) *dto.OrderResponse {
	t.Helper()
	ctx := context.Background()
	ids := make([]int64, 0, len(titles))
	for _, title := range titles {
		c := &model.Course{Title: title, Price: 10, IsActive: true}
		require.NoError(t, repo.Course.Create(ctx, c))
		ids = append(ids, c.ID)
	}
	order, err := NewOrderService(repo, zap.NewNop()).Create(ctx, userID, &dto.CreateOrderRequest{CourseIDs: ids})
	require.NoError(t, err)
	return order
}

func TestSQLite_ApproveOrderCreatesEnrollmentPerCourse(t *testing.T) {
	repo, _ := newSQLiteRepository(t)
	ctx := context.Background()
	order := seedOrder(t, repo, 42, "Algebra", "Geometry")

	resp, err := NewOrderService(repo, zap.NewNop()).Approve(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, 2, resp.EnrollmentsCreated)
	require.Len(t, resp.CourseIDs, 2)

	got, err := repo.Order.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, model.OrderApproved, got.Status)

	enrollments, err := repo.Enrollment.List(ctx, 42, 0)
	require.NoError(t, err)
	require.Len(t, enrollments, 2)
	for _, e := range enrollments {
		require.True(t, e.Active(time.Now()))
	}

	// 再次审批被拒绝，且不会重复开通
	_, err = NewOrderService(repo, zap.NewNop()).Approve(ctx, order.ID)
	require.ErrorIs(t, err, ErrOrderNotPending)
	enrollments, err = repo.Enrollment.List(ctx, 42, 0)
	require.NoError(t, err)
	require.Len(t, enrollments, 2)
}

func TestSQLite_ApproveOrderRollsBackOnEnrollmentFailure(t *testing.T) {
	repo, db := newSQLiteRepository(t)
	ctx := context.Background()
	order := seedOrder(t, repo, 42, "Algebra", "Geometry")

	require.NoError(t, db.Exec(`CREATE TRIGGER enrollment_quota BEFORE INSERT ON enrollments
		WHEN (SELECT COUNT(*) FROM enrollments) >= 1
		BEGIN SELECT RAISE(ABORT, 'enrollment quota exceeded'); END`).Error)

	_, err := NewOrderService(repo, zap.NewNop()).Approve(ctx, order.ID)
	require.Error(t, err)
	require.ErrorContains(t, err, "enrollment quota exceeded")

	got, err := repo.Order.GetByID(ctx, order.ID)
	require.NoError(t, err)
	require.Equal(t, model.OrderPending, got.Status, "order status must not change when a grant fails")

	enrollments, err := repo.Enrollment.List(ctx, 0, 0)
	require.NoError(t, err)
	require.Empty(t, enrollments, "the first grant must be rolled back with the rest")
}

func TestSQLite_RegisterThenLogin(t *testing.T) {
	repo, _ := newSQLiteRepository(t)
	svc, _ := newSQLiteAuthService(t, repo)
	ctx := context.Background()

	reg, err := svc.Register(ctx, &dto.RegisterRequest{
		Email: "Reg@Example.com", Password: "password123", FirstName: "Reg", Username: "reg",
	})
	require.NoError(t, err)
	require.NotZero(t, reg.User.ID)

	for _, req := range []*dto.LoginRequest{
		{Email: "reg@example.com", Password: "password123"},
		{Email: "REG@example.com", Password: "password123", UserType: "student"},
		{Username: "reg", Password: "password123", UserType: "student"},
	} {
		login, err := svc.Login(ctx, req)
		require.NoError(t, err, "%+v", req)
		require.Equal(t, reg.User.ID, login.User.ID)
		require.Equal(t, model.TableUsers, login.User.Source)
	}

	_, err = svc.Login(ctx, &dto.LoginRequest{Email: "reg@example.com", Password: "password123", UserType: "teacher"})
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSQLite_LegacyMixedCaseEmail(t *testing.T) {
	repo, db := newSQLiteRepository(t)
	svc, mailer := newSQLiteAuthService(t, repo)
	ctx := context.Background()

	require.NoError(t, db.Exec(`INSERT INTO students (email, password, first_name) VALUES ('Bob@X.com', 'plain-secret', 'Bob')`).Error)

	login, err := svc.Login(ctx, &dto.LoginRequest{Email: "bob@x.com", Password: "plain-secret", UserType: "student"})
	require.NoError(t, err)
	require.Equal(t, model.TableStudents, login.User.Source)

	rec, err := repo.Credential.FindByID(ctx, model.TableStudents, login.User.ID)
	require.NoError(t, err)
	require.True(t, IsHashed(rec.Password), "plaintext password must be upgraded after login")

	require.NoError(t, svc.ForgotPassword(ctx, &dto.ForgotPasswordRequest{Email: "BOB@x.com"}))
	sent := mailer.last()
	require.Equal(t, "bob@x.com", sent.to)

	require.NoError(t, svc.ResetPassword(ctx, &dto.ResetPasswordRequest{
		Email: "bob@x.com", Code: sent.code, NewPassword: "brand-new-pw",
	}))
	login, err = svc.Login(ctx, &dto.LoginRequest{Email: "Bob@X.com", Password: "brand-new-pw"})
	require.NoError(t, err)
	require.Equal(t, model.TableStudents, login.User.Source)
}
