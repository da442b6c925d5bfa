package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"edu-platform/internal/api/middleware"
	"edu-platform/internal/dto"
	"edu-platform/internal/model"
	"edu-platform/internal/service"
	pkgerrors "edu-platform/pkg/errors"
	"edu-platform/pkg/jwt"
	"edu-platform/pkg/response"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ═══════════════════════════════════════════════════════════
// Mock Services
// ═══════════════════════════════════════════════════════════

// ── Mock AuthService ──

type mockAuthService struct {
	loginResult *dto.AuthResponse
	loginErr    error
	registerErr error
	forgotErr   error
	logoutCalls int
}

func (m *mockAuthService) Login(_ context.Context, _ *dto.LoginRequest) (*dto.AuthResponse, error) {
	return m.loginResult, m.loginErr
}
func (m *mockAuthService) Register(_ context.Context, _ *dto.RegisterRequest) (*dto.AuthResponse, error) {
	return m.loginResult, m.registerErr
}
func (m *mockAuthService) Logout(_ context.Context, _ *jwt.Claims) error {
	m.logoutCalls++
	return nil
}
func (m *mockAuthService) Me(_ context.Context, claims *jwt.Claims) (*dto.UserResponse, error) {
	return &dto.UserResponse{ID: claims.UserID, Email: claims.Email, Role: claims.Role}, nil
}
func (m *mockAuthService) UpdateProfile(_ context.Context, claims *jwt.Claims, _ *dto.UpdateProfileRequest) (*dto.UserResponse, error) {
	return &dto.UserResponse{ID: claims.UserID}, nil
}
func (m *mockAuthService) ForgotPassword(_ context.Context, _ *dto.ForgotPasswordRequest) error {
	return m.forgotErr
}
func (m *mockAuthService) VerifyResetCode(_ context.Context, _ *dto.VerifyResetCodeRequest) error {
	return nil
}
func (m *mockAuthService) ResetPassword(_ context.Context, _ *dto.ResetPasswordRequest) error {
	return nil
}

// ── Mock OrderService ──

type mockOrderService struct {
	approveResult *dto.ApproveOrderResponse
	approveErr    error
	lastApproved  int64
}

func (m *mockOrderService) Create(_ context.Context, userID int64, _ *dto.CreateOrderRequest) (*dto.OrderResponse, error) {
	return &dto.OrderResponse{ID: 1, UserID: userID, Status: model.OrderPending}, nil
}
func (m *mockOrderService) ListMine(_ context.Context, _ int64) ([]dto.OrderResponse, error) {
	return []dto.OrderResponse{}, nil
}
func (m *mockOrderService) List(_ context.Context, _ *dto.OrderListRequest) ([]dto.OrderResponse, int64, error) {
	return []dto.OrderResponse{{ID: 1}, {ID: 2}}, 2, nil
}
func (m *mockOrderService) Approve(_ context.Context, orderID int64) (*dto.ApproveOrderResponse, error) {
	m.lastApproved = orderID
	return m.approveResult, m.approveErr
}
func (m *mockOrderService) Reject(_ context.Context, _ int64, _ string) error {
	return nil
}

// ── Mock EnrollmentService ──

type mockEnrollmentService struct {
	grantResult *dto.GrantAccessResponse
	grantErr    error
}

func (m *mockEnrollmentService) Grant(_ context.Context, _ *dto.GrantAccessRequest) (*dto.GrantAccessResponse, error) {
	return m.grantResult, m.grantErr
}
func (m *mockEnrollmentService) Revoke(_ context.Context, _ *dto.RevokeAccessRequest) error {
	return nil
}
func (m *mockEnrollmentService) List(_ context.Context, _ *dto.EnrollmentListRequest) ([]dto.EnrollmentResponse, error) {
	return []dto.EnrollmentResponse{}, nil
}
func (m *mockEnrollmentService) MyCourses(_ context.Context, _ int64) ([]dto.MyCourseResponse, error) {
	return []dto.MyCourseResponse{}, nil
}

// ── Mock ContentService ──

type mockContentService struct {
	err        error
	imported   []service.ImportedEvent
	lastCaller service.Caller
	lastKind   model.ContentKind
}

func (m *mockContentService) List(_ context.Context, kind model.ContentKind, _ string) ([]model.ContentItem, error) {
	m.lastKind = kind
	return []model.ContentItem{}, m.err
}
func (m *mockContentService) Get(_ context.Context, kind model.ContentKind, id int64) (*model.ContentItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &model.ContentItem{ID: id, Kind: kind}, nil
}
func (m *mockContentService) Create(_ context.Context, kind model.ContentKind, caller service.Caller, req *dto.ContentRequest) (*model.ContentItem, error) {
	m.lastCaller = caller
	m.lastKind = kind
	return &model.ContentItem{ID: 1, Kind: kind, TeacherID: caller.UserID, Title: req.Title}, m.err
}
func (m *mockContentService) Update(_ context.Context, kind model.ContentKind, id int64, _ service.Caller, _ *dto.ContentRequest) (*model.ContentItem, error) {
	if m.err != nil {
		return nil, m.err
	}
	return &model.ContentItem{ID: id, Kind: kind}, nil
}
func (m *mockContentService) Delete(_ context.Context, _ model.ContentKind, _ int64, _ service.Caller) error {
	return m.err
}
func (m *mockContentService) Import(_ context.Context, caller service.Caller, _ string, events []service.ImportedEvent) (int, error) {
	m.lastCaller = caller
	m.imported = events
	return len(events), m.err
}

// ── Mock ExportService ──

type mockExportService struct {
	buf          *bytes.Buffer
	filename     string
	err          error
	lastCourseID int64
}

func (m *mockExportService) ExportEnrollments(_ context.Context, courseID int64) (*bytes.Buffer, string, error) {
	m.lastCourseID = courseID
	return m.buf, m.filename, m.err
}

// ── Mock CalendarService ──

type mockCalendarService struct{}

func (mockCalendarService) Export(_ context.Context) (string, error) {
	return "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n", nil
}

// ═══════════════════════════════════════════════════════════
// 测试辅助
// ═══════════════════════════════════════════════════════════

func setAuth(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims := &jwt.Claims{UserID: 7, Email: "u@test.com", Role: role, Table: "users"}
		c.Set(middleware.ContextClaims, claims)
		c.Set(middleware.ContextUserID, claims.UserID)
		c.Set(middleware.ContextRole, role)
		c.Next()
	}
}

func jsonBody(v interface{}) io.Reader {
	b, _ := json.Marshal(v)
	return bytes.NewReader(b)
}

func parseResponse(w *httptest.ResponseRecorder) response.Response {
	var resp response.Response
	_ = json.Unmarshal(w.Body.Bytes(), &resp)
	return resp
}

func parseBody(w *httptest.ResponseRecorder) map[string]interface{} {
	body := map[string]interface{}{}
	_ = json.Unmarshal(w.Body.Bytes(), &body)
	return body
}

func doJSON(r *gin.Engine, method, path string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)
	return w
}

// ═══════════════════════════════════════════════════════════
// AuthHandler Tests
// ═══════════════════════════════════════════════════════════

func TestAuthHandler_Login_Success(t *testing.T) {
	mock := &mockAuthService{loginResult: &dto.AuthResponse{
		Token: "test-token",
		User:  dto.UserResponse{ID: 1, Email: "a@test.com", Role: model.RoleStudent},
	}}
	r := gin.New()
	r.POST("/api/login", NewAuthHandler(mock).Login)

	w := doJSON(r, "POST", "/api/login", jsonBody(dto.LoginRequest{Email: "a@test.com", Password: "secret1"}))

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际: %d", w.Code)
	}
	body := parseBody(w)
	if body["success"] != true || body["token"] != "test-token" {
		t.Errorf("响应字段不符: %v", body)
	}
	user, ok := body["user"].(map[string]interface{})
	if !ok || user["email"] != "a@test.com" {
		t.Errorf("期望顶层 user 字段，实际: %v", body["user"])
	}
}

func TestAuthHandler_Login_BadJSON(t *testing.T) {
	r := gin.New()
	r.POST("/api/login", NewAuthHandler(&mockAuthService{}).Login)

	w := doJSON(r, "POST", "/api/login", strings.NewReader("invalid json"))

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际: %d", w.Code)
	}
}

func TestAuthHandler_Login_ErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"缺少凭证", service.ErrMissingCredentials, http.StatusBadRequest, service.ErrMissingCredentials.Error()},
		{"凭证错误", service.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
		{"账号停用", service.ErrAccountDisabled, http.StatusForbidden, service.ErrAccountDisabled.Error()},
		{"存储错误", pkgerrors.Storage("users.lookup", io.ErrUnexpectedEOF), http.StatusInternalServerError, "Database error"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/api/login", NewAuthHandler(&mockAuthService{loginErr: tc.err}).Login)

			w := doJSON(r, "POST", "/api/login", jsonBody(dto.LoginRequest{Email: "a@test.com", Password: "x"}))

			if w.Code != tc.status {
				t.Errorf("期望 %d，实际: %d", tc.status, w.Code)
			}
			resp := parseResponse(w)
			if resp.Success || resp.Message != tc.msg {
				t.Errorf("期望消息 %q，实际: %+v", tc.msg, resp)
			}
		})
	}
}

func TestAuthHandler_Register_EmailExists(t *testing.T) {
	mock := &mockAuthService{registerErr: service.ErrEmailExists}
	r := gin.New()
	r.POST("/api/register", NewAuthHandler(mock).Register)

	w := doJSON(r, "POST", "/api/register", jsonBody(dto.RegisterRequest{Email: "a@test.com", Password: "secret1"}))

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际: %d", w.Code)
	}
	if resp := parseResponse(w); resp.Code != response.CodeConflict {
		t.Errorf("期望错误码 %d，实际: %d", response.CodeConflict, resp.Code)
	}
}

func TestAuthHandler_ForgotPassword_NotRegistered(t *testing.T) {
	mock := &mockAuthService{forgotErr: service.ErrEmailNotRegistered}
	r := gin.New()
	r.POST("/api/forgot-password", NewAuthHandler(mock).ForgotPassword)

	w := doJSON(r, "POST", "/api/forgot-password", jsonBody(dto.ForgotPasswordRequest{Email: "nobody@test.com"}))

	if w.Code != http.StatusNotFound {
		t.Errorf("期望 404，实际: %d", w.Code)
	}
	body := parseBody(w)
	if body["redirectToRegister"] != true || body["success"] != false {
		t.Errorf("期望 redirectToRegister=true，实际: %v", body)
	}
}

func TestAuthHandler_Logout_RequiresClaims(t *testing.T) {
	mock := &mockAuthService{}
	h := NewAuthHandler(mock)
	r := gin.New()
	r.POST("/api/logout", h.Logout)
	r.POST("/api/logout-auth", setAuth(model.RoleStudent), h.Logout)

	if w := doJSON(r, "POST", "/api/logout", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("缺少 claims 期望 401，实际: %d", w.Code)
	}
	if w := doJSON(r, "POST", "/api/logout-auth", nil); w.Code != http.StatusOK {
		t.Errorf("期望 200，实际: %d", w.Code)
	}
	if mock.logoutCalls != 1 {
		t.Errorf("期望调用 1 次 Logout，实际: %d", mock.logoutCalls)
	}
}

// ═══════════════════════════════════════════════════════════
// Order / Enrollment Tests
// ═══════════════════════════════════════════════════════════

func TestOrderHandler_Approve(t *testing.T) {
	mock := &mockOrderService{approveResult: &dto.ApproveOrderResponse{
		OrderID: 5, Status: model.OrderApproved, EnrollmentsCreated: 2, CourseIDs: []int64{1, 2},
	}}
	r := gin.New()
	r.POST("/api/admin/approve-order", NewOrderHandler(mock).Approve)

	w := doJSON(r, "POST", "/api/admin/approve-order", jsonBody(dto.OrderIDRequest{OrderID: 5}))

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际: %d", w.Code)
	}
	if mock.lastApproved != 5 {
		t.Errorf("期望审批订单 5，实际: %d", mock.lastApproved)
	}
}

func TestOrderHandler_Approve_Errors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{service.ErrOrderNotFound, http.StatusNotFound},
		{service.ErrOrderNotPending, http.StatusBadRequest},
		{service.ErrAmbiguousCourse, http.StatusBadRequest},
	}
	for _, tc := range cases {
		r := gin.New()
		r.POST("/approve", NewOrderHandler(&mockOrderService{approveErr: tc.err}).Approve)

		w := doJSON(r, "POST", "/approve", jsonBody(dto.OrderIDRequest{OrderID: 1}))
		if w.Code != tc.status {
			t.Errorf("%v: 期望 %d，实际: %d", tc.err, tc.status, w.Code)
		}
	}

	r := gin.New()
	r.POST("/approve", NewOrderHandler(&mockOrderService{}).Approve)
	if w := doJSON(r, "POST", "/approve", jsonBody(map[string]int{})); w.Code != http.StatusBadRequest {
		t.Errorf("缺少 order_id 期望 400，实际: %d", w.Code)
	}
}

func TestOrderHandler_List_Page(t *testing.T) {
	r := gin.New()
	r.GET("/api/admin/orders", NewOrderHandler(&mockOrderService{}).List)

	w := doJSON(r, "GET", "/api/admin/orders?page=1&page_size=10", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际: %d", w.Code)
	}
	data, _ := parseResponse(w).Data.(map[string]interface{})
	if data["total"] != float64(2) || data["page_size"] != float64(10) {
		t.Errorf("分页字段不符: %v", data)
	}

	if w := doJSON(r, "GET", "/api/admin/orders?status=paid", nil); w.Code != http.StatusBadRequest {
		t.Errorf("非法状态期望 400，实际: %d", w.Code)
	}
}

func TestEnrollmentHandler_Grant(t *testing.T) {
	cases := []struct {
		name   string
		result *dto.GrantAccessResponse
		err    error
		status int
	}{
		{"新开通", &dto.GrantAccessResponse{EnrollmentID: 3}, nil, http.StatusCreated},
		{"已开通", &dto.GrantAccessResponse{EnrollmentID: 3, AlreadyEnrolled: true}, nil, http.StatusOK},
		{"学员不存在", nil, service.ErrStudentNotFound, http.StatusNotFound},
		{"过期时间已过", nil, service.ErrExpiryInPast, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := gin.New()
			r.POST("/grant", NewEnrollmentHandler(&mockEnrollmentService{grantResult: tc.result, grantErr: tc.err}).Grant)

			w := doJSON(r, "POST", "/grant", jsonBody(dto.GrantAccessRequest{StudentID: 1, CourseID: 2}))
			if w.Code != tc.status {
				t.Errorf("期望 %d，实际: %d", tc.status, w.Code)
			}
		})
	}
}

// ═══════════════════════════════════════════════════════════
// ContentHandler Tests
// ═══════════════════════════════════════════════════════════

func TestContentHandler_CreateUsesCaller(t *testing.T) {
	mock := &mockContentService{}
	r := gin.New()
	r.POST("/api/exams", setAuth(model.RoleTeacher), NewContentHandler(mock).Create(model.KindExam))

	w := doJSON(r, "POST", "/api/exams", jsonBody(dto.ContentRequest{Subject: "数学", Title: "期中"}))

	if w.Code != http.StatusCreated {
		t.Fatalf("期望 201，实际: %d", w.Code)
	}
	if mock.lastKind != model.KindExam || mock.lastCaller.UserID != 7 || mock.lastCaller.Role != model.RoleTeacher {
		t.Errorf("kind / caller 传递不符: %v %+v", mock.lastKind, mock.lastCaller)
	}
}

func TestContentHandler_ErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{service.ErrContentNotFound, http.StatusNotFound},
		{service.ErrNoPermission, http.StatusForbidden},
		{service.ErrInvalidTime, http.StatusBadRequest},
	}
	for _, tc := range cases {
		r := gin.New()
		r.PUT("/api/lectures/:id", setAuth(model.RoleTeacher), NewContentHandler(&mockContentService{err: tc.err}).Update(model.KindLecture))

		w := doJSON(r, "PUT", "/api/lectures/3", jsonBody(dto.ContentRequest{Subject: "数学", Title: "x"}))
		if w.Code != tc.status {
			t.Errorf("%v: 期望 %d，实际: %d", tc.err, tc.status, w.Code)
		}
	}

	r := gin.New()
	r.GET("/api/lectures/:id", NewContentHandler(&mockContentService{}).Get(model.KindLecture))
	if w := doJSON(r, "GET", "/api/lectures/abc", nil); w.Code != http.StatusBadRequest {
		t.Errorf("非法 id 期望 400，实际: %d", w.Code)
	}
}

func TestContentHandler_ImportLectures(t *testing.T) {
	mock := &mockContentService{}
	r := gin.New()
	r.POST("/api/lectures/import", setAuth(model.RoleTeacher), NewContentHandler(mock).ImportLectures)

	ics := "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//test//EN\r\n" +
		"BEGIN:VEVENT\r\nUID:1@test\r\nSUMMARY:导数\r\nDTSTART:20260310T010000Z\r\nEND:VEVENT\r\n" +
		"END:VCALENDAR\r\n"

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("subject", "数学")
	fw, _ := mw.CreateFormFile("file", "lectures.ics")
	_, _ = fw.Write([]byte(ics))
	_ = mw.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/lectures/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("期望 201，实际: %d body=%s", w.Code, w.Body.String())
	}
	if len(mock.imported) != 1 || mock.imported[0].Summary != "导数" {
		t.Errorf("导入事件不符: %+v", mock.imported)
	}
}

func TestContentHandler_ImportLectures_MissingFile(t *testing.T) {
	r := gin.New()
	r.POST("/api/lectures/import", setAuth(model.RoleTeacher), NewContentHandler(&mockContentService{}).ImportLectures)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("subject", "数学")
	_ = mw.Close()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/lectures/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Errorf("期望 400，实际: %d", w.Code)
	}
}

// largeICSUpload 构造超过 minSize 字节的讲座导入表单，返回请求体、Content-Type 与事件数
func largeICSUpload(minSize int) (*bytes.Buffer, string, int) {
	var ics strings.Builder
	ics.WriteString("BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//test//test//EN\r\n")
	n := 0
	for ics.Len() < minSize {
		n++
		fmt.Fprintf(&ics, "BEGIN:VEVENT\r\nUID:%d@test\r\nSUMMARY:第 %d 讲\r\nDTSTART:20260310T010000Z\r\nEND:VEVENT\r\n", n, n)
	}
	ics.WriteString("END:VCALENDAR\r\n")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("subject", "数学")
	fw, _ := mw.CreateFormFile("file", "lectures.ics")
	_, _ = fw.Write([]byte(ics.String()))
	_ = mw.Close()
	return &buf, mw.FormDataContentType(), n
}

func TestContentHandler_ImportLectures_LargerThanDefaultBodyLimit(t *testing.T) {
	const defaultLimit = 1 << 20
	body, contentType, events := largeICSUpload(defaultLimit + 64*1024)

	mock := &mockContentService{}
	r := gin.New()
	r.Use(middleware.BodyLimit(defaultLimit,
		middleware.RouteLimit{Path: "/api/lectures/import", MaxBytes: ImportBodyLimit},
	))
	r.POST("/api/lectures/import", setAuth(model.RoleTeacher), NewContentHandler(mock).ImportLectures)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/lectures/import", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("期望 201，实际: %d body=%s", w.Code, w.Body.String())
	}
	if len(mock.imported) != events {
		t.Errorf("期望导入 %d 条，实际: %d", events, len(mock.imported))
	}
}

func TestContentHandler_ImportLectures_BodyTooLarge(t *testing.T) {
	const limit = 1 << 20
	body, contentType, _ := largeICSUpload(limit + 64*1024)

	r := gin.New()
	r.Use(middleware.BodyLimit(limit))
	r.POST("/api/lectures/import", setAuth(model.RoleTeacher), NewContentHandler(&mockContentService{}).ImportLectures)

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/lectures/import", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("期望 413，实际: %d body=%s", w.Code, w.Body.String())
	}
	if strings.Contains(w.Body.String(), "subject") {
		t.Errorf("超限不应报 subject 缺失: %s", w.Body.String())
	}
}

// ═══════════════════════════════════════════════════════════
// Export / Calendar Tests
// ═══════════════════════════════════════════════════════════

func TestExportHandler_Success(t *testing.T) {
	mock := &mockExportService{buf: bytes.NewBufferString("excel content"), filename: "选课记录_20260901.xlsx"}
	r := gin.New()
	r.GET("/export", NewExportHandler(mock).ExportEnrollments)

	w := doJSON(r, "GET", "/export?course_id=9", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际: %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("Content-Type 不符: %s", ct)
	}
	if cd := w.Header().Get("Content-Disposition"); !strings.HasPrefix(cd, "attachment; filename*=UTF-8''") {
		t.Errorf("Content-Disposition 不符: %s", cd)
	}
	if mock.lastCourseID != 9 {
		t.Errorf("期望 course_id=9，实际: %d", mock.lastCourseID)
	}
}

func TestExportHandler_Errors(t *testing.T) {
	r := gin.New()
	r.GET("/export", NewExportHandler(&mockExportService{err: service.ErrExportNoEnrollments}).ExportEnrollments)

	if w := doJSON(r, "GET", "/export", nil); w.Code != http.StatusNotFound {
		t.Errorf("无记录期望 404，实际: %d", w.Code)
	}
	if w := doJSON(r, "GET", "/export?course_id=x", nil); w.Code != http.StatusBadRequest {
		t.Errorf("非法 course_id 期望 400，实际: %d", w.Code)
	}
}

func TestCalendarHandler_Feed(t *testing.T) {
	r := gin.New()
	r.GET("/api/calendar.ics", NewCalendarHandler(mockCalendarService{}).Feed)

	w := doJSON(r, "GET", "/api/calendar.ics", nil)

	if w.Code != http.StatusOK {
		t.Fatalf("期望 200，实际: %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); ct != "text/calendar; charset=utf-8" {
		t.Errorf("Content-Type 不符: %s", ct)
	}
	if !strings.HasPrefix(w.Body.String(), "BEGIN:VCALENDAR") {
		t.Errorf("响应体不符: %s", w.Body.String())
	}
}
