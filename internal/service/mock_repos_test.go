package service

import (
	"context"
	"sort"
	"strings"
	"time"

	"gorm.io/gorm"

	"edu-platform/internal/model"
	"edu-platform/internal/repository"
	"edu-platform/internal/schema"
	pkgerrors "edu-platform/pkg/errors"
)

// ── Mock 聚合 ──

type mockRepos struct {
	user       *mockUserRepo
	cred       *mockCredentialRepo
	course     *mockCourseRepo
	order      *mockOrderRepo
	enrollment *mockEnrollmentRepo
	content    *mockContentRepo
	reset      *mockPasswordResetRepo
}

// newMockRepository 未绑定数据库的聚合，RunInTx 直接在 mock 上执行
func newMockRepository() (*repository.Repository, *mockRepos) {
	m := &mockRepos{
		user:       newMockUserRepo(),
		course:     newMockCourseRepo(),
		order:      newMockOrderRepo(),
		enrollment: newMockEnrollmentRepo(),
		content:    newMockContentRepo(),
		reset:      &mockPasswordResetRepo{},
	}
	m.cred = newMockCredentialRepo(m.user)
	return &repository.Repository{
		User:          m.user,
		Credential:    m.cred,
		Course:        m.course,
		Order:         m.order,
		Enrollment:    m.enrollment,
		Content:       m.content,
		PasswordReset: m.reset,
	}, m
}

// ── users ──

type mockUserRepo struct {
	users  map[int64]*model.User
	nextID int64
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[int64]*model.User), nextID: 1}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	email := strings.ToLower(user.Email)
	for _, u := range m.users {
		if u.Email == email {
			return &pkgerrors.ConstraintError{Field: "email"}
		}
	}
	user.ID = m.nextID
	m.nextID++
	user.Email = email
	user.IsActive = true
	user.CreatedAt = time.Now().UTC()
	cp := *user
	m.users[user.ID] = &cp
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if strings.EqualFold(u.Email, email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByIDs(_ context.Context, ids []int64) ([]model.User, error) {
	var result []model.User
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (m *mockUserRepo) Update(_ context.Context, id int64, fields map[string]any) error {
	u, ok := m.users[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if email, ok := fields["email"].(string); ok {
		for _, other := range m.users {
			if other.ID != id && other.Email == email {
				return &pkgerrors.ConstraintError{Field: "email"}
			}
		}
	}
	applyUserFields(u, fields)
	return nil
}

func applyUserFields(u *model.User, fields map[string]any) {
	for k, v := range fields {
		switch k {
		case "email":
			u.Email = v.(string)
		case "first_name":
			u.FirstName = v.(string)
		case "last_name":
			u.LastName = v.(string)
		case "phone":
			u.Phone = v.(string)
		case "username":
			u.Username = v.(string)
		case "role":
			u.Role = v.(string)
		case "points":
			u.Points = v.(int)
		case "is_active":
			u.IsActive = v.(bool)
		case "parent_id":
			id := v.(int64)
			u.ParentID = &id
		case "student_id":
			id := v.(int64)
			u.StudentID = &id
		case "password":
			u.Password = v.(string)
		}
	}
}

func (m *mockUserRepo) ListByRole(_ context.Context, role, search string, offset, limit int) ([]model.User, int64, error) {
	var all []model.User
	for _, u := range m.users {
		if u.Role != role {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(u.Email+" "+u.FirstName+" "+u.LastName), strings.ToLower(search)) {
			continue
		}
		all = append(all, *u)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID > all[j].ID })
	total := int64(len(all))
	if offset > len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

func (m *mockUserRepo) Delete(_ context.Context, id int64) error {
	if _, ok := m.users[id]; !ok {
		return gorm.ErrRecordNotFound
	}
	delete(m.users, id)
	return nil
}

// ── 跨表凭据 ──
// users 表委托给 mockUserRepo，其余表存放在 tables 中；不在 tables 中的表视为不存在

type mockCredentialRepo struct {
	users      *mockUserRepo
	tables     map[string][]*repository.CredentialRecord
	lookupErr  error
	updateErr  error
	updateCall int
}

func newMockCredentialRepo(users *mockUserRepo) *mockCredentialRepo {
	return &mockCredentialRepo{users: users, tables: make(map[string][]*repository.CredentialRecord)}
}

// addLegacy 向历史表写入一条账号
func (m *mockCredentialRepo) addLegacy(table string, id int64, email, password, column string) *repository.CredentialRecord {
	rec := &repository.CredentialRecord{
		Account: model.Account{
			ID:       id,
			Table:    table,
			Email:    email,
			Role:     defaultRoleFor(table),
			IsActive: true,
		},
		Password:       password,
		PasswordColumn: column,
	}
	m.tables[table] = append(m.tables[table], rec)
	return rec
}

func defaultRoleFor(table string) string {
	if table == model.TableTeachers {
		return model.RoleTeacher
	}
	return model.RoleStudent
}

func (m *mockCredentialRepo) userRecord(u *model.User) *repository.CredentialRecord {
	return &repository.CredentialRecord{Account: *accountFromUser(u), Password: u.Password, PasswordColumn: "password"}
}

func (m *mockCredentialRepo) FindByIdentifier(_ context.Context, table, identifier string) (*repository.CredentialRecord, error) {
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	if table == model.TableUsers {
		for _, u := range m.users.users {
			if strings.EqualFold(u.Email, identifier) || (u.Username != "" && u.Username == identifier) {
				return m.userRecord(u), nil
			}
		}
		return nil, gorm.ErrRecordNotFound
	}
	recs, ok := m.tables[table]
	if !ok {
		return nil, schema.ErrTableNotFound
	}
	for _, r := range recs {
		if strings.EqualFold(r.Account.Email, identifier) || (r.Account.Username != "" && r.Account.Username == identifier) {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCredentialRepo) FindByID(_ context.Context, table string, id int64) (*repository.CredentialRecord, error) {
	if table == model.TableUsers {
		if u, ok := m.users.users[id]; ok {
			return m.userRecord(u), nil
		}
		return nil, gorm.ErrRecordNotFound
	}
	recs, ok := m.tables[table]
	if !ok {
		return nil, schema.ErrTableNotFound
	}
	for _, r := range recs {
		if r.Account.ID == id {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCredentialRepo) UpdatePassword(_ context.Context, table, column string, id int64, hash string) error {
	m.updateCall++
	if m.updateErr != nil {
		return m.updateErr
	}
	if table == model.TableUsers {
		u, ok := m.users.users[id]
		if !ok {
			return gorm.ErrRecordNotFound
		}
		u.Password = hash
		return nil
	}
	for _, r := range m.tables[table] {
		if r.Account.ID == id {
			r.Password = hash
			r.PasswordColumn = column
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockCredentialRepo) UpdateFields(ctx context.Context, table string, id int64, fields map[string]any) error {
	if table == model.TableUsers {
		return m.users.Update(ctx, id, fields)
	}
	for _, r := range m.tables[table] {
		if r.Account.ID == id {
			if v, ok := fields["first_name"].(string); ok {
				r.Account.FirstName = v
			}
			if v, ok := fields["phone"].(string); ok {
				r.Account.Phone = v
			}
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

// ── courses ──

type mockCourseRepo struct {
	courses map[int64]*model.Course
	nextID  int64
}

func newMockCourseRepo() *mockCourseRepo {
	return &mockCourseRepo{courses: make(map[int64]*model.Course), nextID: 1}
}

func (m *mockCourseRepo) add(title string, price float64) *model.Course {
	c := &model.Course{Title: title, Price: price, IsActive: true}
	_ = m.Create(context.Background(), c)
	return c
}

func (m *mockCourseRepo) Create(_ context.Context, course *model.Course) error {
	course.ID = m.nextID
	m.nextID++
	cp := *course
	m.courses[course.ID] = &cp
	return nil
}

func (m *mockCourseRepo) GetByID(_ context.Context, id int64) (*model.Course, error) {
	if c, ok := m.courses[id]; ok {
		cp := *c
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseRepo) GetByIDs(_ context.Context, ids []int64) ([]model.Course, error) {
	var result []model.Course
	for _, id := range ids {
		if c, ok := m.courses[id]; ok {
			result = append(result, *c)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockCourseRepo) FindByTitle(_ context.Context, title string) ([]model.Course, error) {
	var result []model.Course
	for _, c := range m.courses {
		if strings.EqualFold(strings.TrimSpace(c.Title), strings.TrimSpace(title)) {
			result = append(result, *c)
		}
	}
	return result, nil
}

func (m *mockCourseRepo) List(_ context.Context, filter repository.CourseFilter) ([]model.Course, error) {
	var result []model.Course
	for _, c := range m.courses {
		if filter.ActiveOnly && !c.IsActive {
			continue
		}
		if filter.Level != "" && c.Level != filter.Level {
			continue
		}
		if filter.Search != "" && !strings.Contains(strings.ToLower(c.Title), strings.ToLower(filter.Search)) {
			continue
		}
		result = append(result, *c)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

func (m *mockCourseRepo) Update(_ context.Context, id int64, fields map[string]any) error {
	c, ok := m.courses[id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "title":
			c.Title = v.(string)
		case "price":
			c.Price = v.(float64)
		case "level":
			c.Level = v.(string)
		case "is_active":
			c.IsActive = v.(bool)
		}
	}
	return nil
}

// ── orders ──

type mockOrderRepo struct {
	orders map[int64]*model.Order
	nextID int64
}

func newMockOrderRepo() *mockOrderRepo {
	return &mockOrderRepo{orders: make(map[int64]*model.Order), nextID: 1}
}

func (m *mockOrderRepo) Create(_ context.Context, order *model.Order) error {
	order.ID = m.nextID
	m.nextID++
	if order.Status == "" {
		order.Status = model.OrderPending
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
	}
	cp := *order
	cp.Items = append([]model.OrderItem(nil), order.Items...)
	m.orders[order.ID] = &cp
	return nil
}

func (m *mockOrderRepo) GetByID(_ context.Context, id int64) (*model.Order, error) {
	if o, ok := m.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockOrderRepo) GetForUpdate(ctx context.Context, id int64) (*model.Order, error) {
	return m.GetByID(ctx, id)
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID int64) ([]model.Order, error) {
	var result []model.Order
	for _, o := range m.orders {
		if o.UserID == userID {
			result = append(result, *o)
		}
	}
	return result, nil
}

func (m *mockOrderRepo) List(_ context.Context, status string, offset, limit int) ([]model.Order, int64, error) {
	var result []model.Order
	for _, o := range m.orders {
		if status == "" || o.Status == status {
			result = append(result, *o)
		}
	}
	return result, int64(len(result)), nil
}

func (m *mockOrderRepo) TransitionStatus(_ context.Context, id int64, from, to string, at time.Time) (bool, error) {
	o, ok := m.orders[id]
	if !ok || o.Status != from {
		return false, nil
	}
	o.Status = to
	if to == model.OrderApproved {
		o.ApprovedAt = &at
	}
	return true, nil
}

// ── enrollments ──

type mockEnrollmentRepo struct {
	rows      []*model.Enrollment
	nextID    int64
	createErr error
	// racer 非 nil 时，Create 前先由它写入同一对（模拟并发开通）
	racer func(e *model.Enrollment)
}

func newMockEnrollmentRepo() *mockEnrollmentRepo {
	return &mockEnrollmentRepo{nextID: 1}
}

func (m *mockEnrollmentRepo) FindPair(_ context.Context, userID, courseID int64) (*model.Enrollment, error) {
	for _, e := range m.rows {
		if e.UserID == userID && e.CourseID == courseID {
			cp := *e
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEnrollmentRepo) Create(_ context.Context, e *model.Enrollment) error {
	if m.createErr != nil {
		return m.createErr
	}
	if m.racer != nil {
		m.racer(e)
		m.racer = nil
	}
	for _, row := range m.rows {
		if row.UserID == e.UserID && row.CourseID == e.CourseID {
			return &pkgerrors.ConstraintError{Field: "user_id"}
		}
	}
	e.ID = m.nextID
	m.nextID++
	if e.Status == "" {
		e.Status = model.EnrollmentActive
	}
	e.IsActive = true
	cp := *e
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *mockEnrollmentRepo) Reactivate(_ context.Context, id int64, expiresAt *time.Time) error {
	for _, e := range m.rows {
		if e.ID == id {
			e.Status = model.EnrollmentActive
			e.IsActive = true
			e.ExpiresAt = expiresAt
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockEnrollmentRepo) Revoke(_ context.Context, userID, courseID int64) (bool, error) {
	for _, e := range m.rows {
		if e.UserID == userID && e.CourseID == courseID {
			e.Status = model.EnrollmentRevoked
			e.IsActive = false
			return true, nil
		}
	}
	return false, nil
}

func (m *mockEnrollmentRepo) List(_ context.Context, userID, courseID int64) ([]model.Enrollment, error) {
	var result []model.Enrollment
	for _, e := range m.rows {
		if userID > 0 && e.UserID != userID {
			continue
		}
		if courseID > 0 && e.CourseID != courseID {
			continue
		}
		result = append(result, *e)
	}
	return result, nil
}

func (m *mockEnrollmentRepo) DeleteByUser(_ context.Context, userID int64) (int64, error) {
	var kept []*model.Enrollment
	var n int64
	for _, e := range m.rows {
		if e.UserID == userID {
			n++
			continue
		}
		kept = append(kept, e)
	}
	m.rows = kept
	return n, nil
}

// ── 教学内容 ──

type mockContentRepo struct {
	items  map[model.ContentKind]map[int64]*model.ContentItem
	nextID int64
}

func newMockContentRepo() *mockContentRepo {
	return &mockContentRepo{items: make(map[model.ContentKind]map[int64]*model.ContentItem), nextID: 1}
}

func (m *mockContentRepo) List(_ context.Context, kind model.ContentKind, subject string) ([]model.ContentItem, error) {
	var result []model.ContentItem
	for _, it := range m.items[kind] {
		if it.IsActive && (subject == "" || it.Subject == subject) {
			result = append(result, *it)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID > result[j].ID })
	return result, nil
}

func (m *mockContentRepo) ListDated(_ context.Context, kind model.ContentKind, from time.Time) ([]model.ContentItem, error) {
	var result []model.ContentItem
	for _, it := range m.items[kind] {
		if it.IsActive && it.Date != nil && !it.Date.Before(from) {
			result = append(result, *it)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(*result[j].Date) })
	return result, nil
}

func (m *mockContentRepo) GetByID(_ context.Context, kind model.ContentKind, id int64) (*model.ContentItem, error) {
	if it, ok := m.items[kind][id]; ok {
		cp := *it
		return &cp, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockContentRepo) Create(_ context.Context, item *model.ContentItem) error {
	if m.items[item.Kind] == nil {
		m.items[item.Kind] = make(map[int64]*model.ContentItem)
	}
	item.ID = m.nextID
	m.nextID++
	cp := *item
	m.items[item.Kind][item.ID] = &cp
	return nil
}

func (m *mockContentRepo) Update(_ context.Context, kind model.ContentKind, id int64, fields map[string]any) error {
	it, ok := m.items[kind][id]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	for k, v := range fields {
		switch k {
		case "title":
			it.Title = v.(string)
		case "subject":
			it.Subject = v.(string)
		case "description":
			it.Description = v.(string)
		case "date":
			if kind.DateColumn() != "" {
				d := v.(time.Time)
				it.Date = &d
			}
		}
	}
	return nil
}

func (m *mockContentRepo) SoftDelete(_ context.Context, kind model.ContentKind, id int64) error {
	it, ok := m.items[kind][id]
	if !ok || !it.IsActive {
		return gorm.ErrRecordNotFound
	}
	it.IsActive = false
	return nil
}

// ── 找回密码 ──

type mockPasswordResetRepo struct {
	rows   []*model.PasswordReset
	nextID int64
}

func (m *mockPasswordResetRepo) Create(_ context.Context, reset *model.PasswordReset) error {
	m.nextID++
	reset.ID = m.nextID
	reset.Email = strings.ToLower(reset.Email)
	cp := *reset
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *mockPasswordResetRepo) FindLatest(_ context.Context, email, code string) (*model.PasswordReset, error) {
	for i := len(m.rows) - 1; i >= 0; i-- {
		r := m.rows[i]
		if r.Email == strings.ToLower(email) && r.Code == code {
			cp := *r
			return &cp, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockPasswordResetRepo) MarkUsed(_ context.Context, id int64) error {
	for _, r := range m.rows {
		if r.ID == id && !r.Used {
			r.Used = true
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockPasswordResetRepo) InvalidateEmail(_ context.Context, email string) error {
	for _, r := range m.rows {
		if r.Email == strings.ToLower(email) {
			r.Used = true
		}
	}
	return nil
}
