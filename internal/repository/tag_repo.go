package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/handout-api/internal/models"
)

// TagRepository provides access to exercise tags.
type TagRepository interface {
	ListByCourseAndSlugs(ctx context.Context, courseID uint, slugs []string) ([]models.ExerciseTag, error)
	ListByCourse(ctx context.Context, courseID uint) ([]models.ExerciseTag, error)
	UpdateNames(ctx context.Context, courseID uint, names map[string]string) (int, error)
}

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository constructs a tag repository.
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

// ListByCourseAndSlugs loads the course's tags whose slug is in slugs with a single
// query. Unknown slugs are absent from the result and an empty slug list never reaches
// the database.
func (r *tagRepository) ListByCourseAndSlugs(ctx context.Context, courseID uint, slugs []string) ([]models.ExerciseTag, error) {
	if len(slugs) == 0 {
		return []models.ExerciseTag{}, nil
	}

	var tags []models.ExerciseTag
	if err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Where("slug IN ?", slugs).
		Order("id ASC").
		Find(&tags).Error; err != nil {
		return nil, err
	}

	return tags, nil
}

func (r *tagRepository) ListByCourse(ctx context.Context, courseID uint) ([]models.ExerciseTag, error) {
	var tags []models.ExerciseTag
	if err := r.db.WithContext(ctx).Where("course_id = ?", courseID).Order("slug ASC").Find(&tags).Error; err != nil {
		return nil, err
	}

	return tags, nil
}

// UpdateNames renames existing tags of the course. Slugs without a tag and empty names
// are skipped; the number of renamed tags is returned.
func (r *tagRepository) UpdateNames(ctx context.Context, courseID uint, names map[string]string) (int, error) {
	slugs := make([]string, 0, len(names))
	for slug, name := range names {
		if name != "" {
			slugs = append(slugs, slug)
		}
	}
	if len(slugs) == 0 {
		return 0, nil
	}

	updated := 0
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tags []models.ExerciseTag
		if err := tx.Where("course_id = ?", courseID).Where("slug IN ?", slugs).Find(&tags).Error; err != nil {
			return err
		}

		for _, tag := range tags {
			if err := tx.Model(&models.ExerciseTag{}).Where("id = ?", tag.ID).Update("name", names[tag.Slug]).Error; err != nil {
				return err
			}
			updated++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return updated, nil
}
