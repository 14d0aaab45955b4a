package repository

import (
	"context"
	"errors"
	"sort"

	"gorm.io/gorm"

	"github.com/noah-isme/handout-api/internal/models"
	"github.com/noah-isme/handout-api/internal/stats"
)

// ExerciseRepository provides access to exercises and their tag membership.
type ExerciseRepository interface {
	ListByCourse(ctx context.Context, courseID uint) ([]models.Exercise, error)
	ListByCourseWithTags(ctx context.Context, courseID uint) ([]models.Exercise, error)
	ListIDsAndTags(ctx context.Context, courseID uint) ([]stats.ExerciseTagPair, error)
	ListBySlugs(ctx context.Context, courseID uint, slugs []string) ([]models.Exercise, error)
	GetBySlug(ctx context.Context, courseID uint, slug string) (models.Exercise, error)
	GetOrCreate(ctx context.Context, courseID uint, slug string) (models.Exercise, bool, error)
	ReplaceTags(ctx context.Context, exercise *models.Exercise, slugs []string) error
	SetEnabled(ctx context.Context, courseID uint, slug string, enabled bool) error
}

type exerciseRepository struct {
	db *gorm.DB
}

// NewExerciseRepository constructs an exercise repository.
func NewExerciseRepository(db *gorm.DB) ExerciseRepository {
	return &exerciseRepository{db: db}
}

type exerciseTagRow struct {
	ExerciseID uint   `gorm:"column:exercise_id"`
	ID         uint   `gorm:"column:id"`
	CourseID   uint   `gorm:"column:course_id"`
	Slug       string `gorm:"column:slug"`
	Name       string `gorm:"column:name"`
}

func (r *exerciseRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.Exercise, error) {
	var exercises []models.Exercise
	if err := r.db.WithContext(ctx).Where("course_id = ?", courseID).Order("slug ASC").Find(&exercises).Error; err != nil {
		return nil, err
	}

	return exercises, nil
}

// ListByCourseWithTags loads the course's exercises with their tags attached using two
// queries, however many exercises the course has.
func (r *exerciseRepository) ListByCourseWithTags(ctx context.Context, courseID uint) ([]models.Exercise, error) {
	db := r.db.WithContext(ctx)

	var exercises []models.Exercise
	if err := db.Where("course_id = ?", courseID).Order("id ASC").Find(&exercises).Error; err != nil {
		return nil, err
	}

	var rows []exerciseTagRow
	if err := db.Table("exercise_tags").
		Select("exercise_tag_links.exercise_id AS exercise_id, exercise_tags.id AS id, exercise_tags.course_id AS course_id, exercise_tags.slug AS slug, exercise_tags.name AS name").
		Joins("JOIN exercise_tag_links ON exercise_tag_links.exercise_tag_id = exercise_tags.id").
		Joins("JOIN exercises ON exercises.id = exercise_tag_links.exercise_id").
		Where("exercises.course_id = ?", courseID).
		Order("exercise_tags.id ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	index := make(map[uint]int, len(exercises))
	for i := range exercises {
		exercises[i].Tags = []models.ExerciseTag{}
		index[exercises[i].ID] = i
	}
	for _, row := range rows {
		i, ok := index[row.ExerciseID]
		if !ok {
			continue
		}
		exercises[i].Tags = append(exercises[i].Tags, models.ExerciseTag{
			ID:       row.ID,
			CourseID: row.CourseID,
			Slug:     row.Slug,
			Name:     row.Name,
		})
	}

	return exercises, nil
}

// ListIDsAndTags returns every (exercise, tag) link of the course in one query.
func (r *exerciseRepository) ListIDsAndTags(ctx context.Context, courseID uint) ([]stats.ExerciseTagPair, error) {
	var pairs []stats.ExerciseTagPair
	if err := r.db.WithContext(ctx).Table("exercise_tag_links").
		Select("exercise_tag_links.exercise_id, exercise_tag_links.exercise_tag_id").
		Joins("JOIN exercises ON exercises.id = exercise_tag_links.exercise_id").
		Where("exercises.course_id = ?", courseID).
		Order("exercise_tag_links.exercise_id ASC, exercise_tag_links.exercise_tag_id ASC").
		Scan(&pairs).Error; err != nil {
		return nil, err
	}

	return pairs, nil
}

func (r *exerciseRepository) ListBySlugs(ctx context.Context, courseID uint, slugs []string) ([]models.Exercise, error) {
	if len(slugs) == 0 {
		return []models.Exercise{}, nil
	}

	var exercises []models.Exercise
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Where("slug IN ?", slugs).
		Order("id ASC").
		Find(&exercises).Error; err != nil {
		return nil, err
	}

	return exercises, nil
}

func (r *exerciseRepository) GetBySlug(ctx context.Context, courseID uint, slug string) (models.Exercise, error) {
	var exercise models.Exercise
	if err := r.db.WithContext(ctx).
		Preload("Tags").
		Where("course_id = ? AND slug = ?", courseID, slug).
		First(&exercise).Error; err != nil {
		return models.Exercise{}, err
	}

	return exercise, nil
}

// GetOrCreate returns the exercise identified by slug, creating it enabled when missing.
// created reports whether a new row was inserted.
func (r *exerciseRepository) GetOrCreate(ctx context.Context, courseID uint, slug string) (models.Exercise, bool, error) {
	db := r.db.WithContext(ctx)

	var exercise models.Exercise
	err := db.Where("course_id = ? AND slug = ?", courseID, slug).First(&exercise).Error
	if err == nil {
		return exercise, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Exercise{}, false, err
	}

	exercise = models.Exercise{CourseID: courseID, Slug: slug, Enabled: true}
	if err := db.Create(&exercise).Error; err != nil {
		return models.Exercise{}, false, err
	}

	return exercise, true, nil
}

// ReplaceTags makes the exercise's tag set equal to slugs, creating missing tags in the
// exercise's course.
func (r *exerciseRepository) ReplaceTags(ctx context.Context, exercise *models.Exercise, slugs []string) error {
	unique := make(map[string]struct{}, len(slugs))
	for _, slug := range slugs {
		if slug != "" {
			unique[slug] = struct{}{}
		}
	}
	ordered := make([]string, 0, len(unique))
	for slug := range unique {
		ordered = append(ordered, slug)
	}
	sort.Strings(ordered)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		tags := make([]models.ExerciseTag, 0, len(ordered))
		for _, slug := range ordered {
			var tag models.ExerciseTag
			if err := tx.Where(models.ExerciseTag{CourseID: exercise.CourseID, Slug: slug}).FirstOrCreate(&tag).Error; err != nil {
				return err
			}
			tags = append(tags, tag)
		}

		association := tx.Model(exercise).Association("Tags")
		if len(tags) == 0 {
			return association.Clear()
		}
		return association.Replace(tags)
	})
}

func (r *exerciseRepository) SetEnabled(ctx context.Context, courseID uint, slug string, enabled bool) error {
	result := r.db.WithContext(ctx).
		Model(&models.Exercise{}).
		Where("course_id = ? AND slug = ?", courseID, slug).
		Update("enabled", enabled)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
