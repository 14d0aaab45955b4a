package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/handout-api/internal/models"
)

// CourseRepository provides access to courses.
type CourseRepository interface {
	GetByName(ctx context.Context, name string) (models.Course, error)
	GetOrCreate(ctx context.Context, name string) (models.Course, error)
	List(ctx context.Context) ([]models.Course, error)
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository constructs a course repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) GetByName(ctx context.Context, name string) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&course).Error; err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (r *courseRepository) GetOrCreate(ctx context.Context, name string) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).Where(models.Course{Name: name}).FirstOrCreate(&course).Error; err != nil {
		return models.Course{}, err
	}

	return course, nil
}

func (r *courseRepository) List(ctx context.Context) ([]models.Course, error) {
	var courses []models.Course
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&courses).Error; err != nil {
		return nil, err
	}

	return courses, nil
}
