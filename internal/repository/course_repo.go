package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"edu-platform/internal/model"
)

// CourseFilter 课程列表过滤条件
type CourseFilter struct {
	Level      string
	Search     string
	ActiveOnly bool
}

// CourseRepository 课程数据访问接口
type CourseRepository interface {
	Create(ctx context.Context, course *model.Course) error
	GetByID(ctx context.Context, id int64) (*model.Course, error)
	GetByIDs(ctx context.Context, ids []int64) ([]model.Course, error)
	FindByTitle(ctx context.Context, title string) ([]model.Course, error)
	List(ctx context.Context, filter CourseFilter) ([]model.Course, error)
	Update(ctx context.Context, id int64, fields map[string]any) error
}

type courseRepo struct {
	db *gorm.DB
}

// NewCourseRepo 创建 CourseRepository 实例
func NewCourseRepo(db *gorm.DB) CourseRepository {
	return &courseRepo{db: db}
}

func (r *courseRepo) Create(ctx context.Context, course *model.Course) error {
	return translate(r.db.WithContext(ctx).Create(course).Error)
}

func (r *courseRepo) GetByID(ctx context.Context, id int64) (*model.Course, error) {
	var course model.Course
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&course).Error; err != nil {
		return nil, err
	}
	return &course, nil
}

func (r *courseRepo) GetByIDs(ctx context.Context, ids []int64) ([]model.Course, error) {
	var courses []model.Course
	if len(ids) == 0 {
		return courses, nil
	}
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id").Find(&courses).Error
	return courses, err
}

// FindByTitle 标题不区分大小写的精确匹配
func (r *courseRepo) FindByTitle(ctx context.Context, title string) ([]model.Course, error) {
	var courses []model.Course
	err := r.db.WithContext(ctx).
		Where("LOWER(TRIM(title)) = ?", strings.ToLower(strings.TrimSpace(title))).
		Find(&courses).Error
	return courses, err
}

func (r *courseRepo) List(ctx context.Context, filter CourseFilter) ([]model.Course, error) {
	var courses []model.Course
	db := r.db.WithContext(ctx).Model(&model.Course{})
	if filter.ActiveOnly {
		db = db.Where("is_active = ?", true)
	}
	if filter.Level != "" {
		db = db.Where("level = ?", filter.Level)
	}
	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		db = db.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	err := db.Order("id").Find(&courses).Error
	return courses, err
}

func (r *courseRepo) Update(ctx context.Context, id int64, fields map[string]any) error {
	res := r.db.WithContext(ctx).Model(&model.Course{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
