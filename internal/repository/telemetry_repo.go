package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/handout-api/internal/models"
	"github.com/noah-isme/handout-api/internal/stats"
)

// TelemetryFilter narrows the paginated course telemetry listing.
type TelemetryFilter struct {
	CourseID uint
	After    *time.Time
	Username string
	Page     int
	PageSize int
}

// AnswerFilter narrows answer lookups to a set of exercises.
type AnswerFilter struct {
	ExerciseIDs []uint
	AuthorID    *uint
	LastOnly    bool
	Before      *time.Time
}

// CourseSummary aggregates the telemetry of one course.
type CourseSummary struct {
	Name        string `gorm:"column:name"`
	Submissions int64  `gorm:"column:submissions"`
	Students    int64  `gorm:"column:students"`
}

// TelemetryRepository stores and queries exercise submissions.
type TelemetryRepository interface {
	Create(ctx context.Context, record *models.TelemetryData) error
	List(ctx context.Context, filter TelemetryFilter) ([]models.TelemetryData, int64, error)
	ListAnswers(ctx context.Context, filter AnswerFilter) ([]models.TelemetryData, error)
	LastPointsByExercise(ctx context.Context, authorID, courseID uint) (map[uint]float64, error)
	ExerciseDatesInRange(ctx context.Context, authorID, courseID uint, from, to time.Time) ([]stats.ExerciseSubmission, error)
	ListForAuthorInRange(ctx context.Context, authorID, courseID uint, from, to time.Time) ([]models.TelemetryData, error)
	MaxPointsByAuthorAndExercise(ctx context.Context, courseID uint) ([]stats.MaxPoints, error)
	CountDistinctExercisesByAuthor(ctx context.Context, courseID uint, from, to time.Time) (map[uint]int, error)
	CourseSummaries(ctx context.Context) ([]CourseSummary, error)
}

type telemetryRepository struct {
	db *gorm.DB
}

// NewTelemetryRepository instantiates the repository.
func NewTelemetryRepository(db *gorm.DB) TelemetryRepository {
	return &telemetryRepository{db: db}
}

func (r *telemetryRepository) courseExercises(db *gorm.DB, courseID uint) *gorm.DB {
	return db.Model(&models.Exercise{}).Select("id").Where("course_id = ?", courseID)
}

// createAttempts bounds retries when a concurrent submission claims the last flag first.
const createAttempts = 3

// Create stores a submission and keeps the last flag on the most recent submission of
// the (author, exercise) pair. The current last row is locked for the transaction; when
// there is none, the single-last index settles a race and the losing writer retries.
func (r *telemetryRepository) Create(ctx context.Context, record *models.TelemetryData) error {
	if record.SubmissionDate.IsZero() {
		record.SubmissionDate = time.Now()
	}
	record.SubmissionDate = record.SubmissionDate.UTC()

	var err error
	for attempt := 0; attempt < createAttempts; attempt++ {
		record.ID = 0
		err = r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			return r.create(tx, record)
		})
		if err == nil || !isDuplicateKey(err) {
			return err
		}
	}
	return err
}

func (r *telemetryRepository) create(tx *gorm.DB, record *models.TelemetryData) error {
	var current []uint
	if err := tx.Model(&models.TelemetryData{}).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("author_id = ? AND exercise_id = ? AND is_last = ?", record.AuthorID, record.ExerciseID, true).
		Pluck("id", &current).Error; err != nil {
		return err
	}

	var newer int64
	if err := tx.Model(&models.TelemetryData{}).
		Where("author_id = ? AND exercise_id = ?", record.AuthorID, record.ExerciseID).
		Where("submission_date > ?", record.SubmissionDate).
		Count(&newer).Error; err != nil {
		return err
	}

	record.Last = newer == 0
	if record.Last && len(current) > 0 {
		if err := tx.Model(&models.TelemetryData{}).
			Where("id IN ?", current).
			Update("is_last", false).Error; err != nil {
			return err
		}
	}

	return tx.Omit(clause.Associations).Create(record).Error
}

func isDuplicateKey(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint") || strings.Contains(message, "duplicate key")
}

func (r *telemetryRepository) List(ctx context.Context, filter TelemetryFilter) ([]models.TelemetryData, int64, error) {
	db := r.db.WithContext(ctx)
	query := db.Model(&models.TelemetryData{}).
		Where("telemetry_data.exercise_id IN (?)", r.courseExercises(db, filter.CourseID))

	if filter.After != nil {
		query = query.Where("telemetry_data.submission_date > ?", *filter.After)
	}
	if filter.Username != "" {
		query = query.Joins("JOIN users ON users.id = telemetry_data.author_id").
			Where("users.username = ?", filter.Username)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, pageSize := normalisePage(filter.Page, filter.PageSize)

	var records []models.TelemetryData
	if err := query.
		Preload("Exercise").
		Preload("Author").
		Order("telemetry_data.submission_date ASC, telemetry_data.id ASC").
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}

func (r *telemetryRepository) ListAnswers(ctx context.Context, filter AnswerFilter) ([]models.TelemetryData, error) {
	if len(filter.ExerciseIDs) == 0 {
		return []models.TelemetryData{}, nil
	}

	query := r.db.WithContext(ctx).
		Preload("Exercise").
		Preload("Author").
		Where("exercise_id IN ?", filter.ExerciseIDs)

	if filter.AuthorID != nil {
		query = query.Where("author_id = ?", *filter.AuthorID)
	}
	if filter.Before != nil {
		query = query.Where("submission_date < ?", *filter.Before)
	}
	if filter.LastOnly {
		query = query.Where("is_last = ?", true)
	}

	var records []models.TelemetryData
	if err := query.Order("submission_date ASC, id ASC").Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

// LastPointsByExercise returns the points of the author's latest submission to every
// exercise of the course in one query.
func (r *telemetryRepository) LastPointsByExercise(ctx context.Context, authorID, courseID uint) (map[uint]float64, error) {
	db := r.db.WithContext(ctx)

	var rows []struct {
		ExerciseID uint    `gorm:"column:exercise_id"`
		Points     float64 `gorm:"column:points"`
	}
	if err := db.Model(&models.TelemetryData{}).
		Select("exercise_id, points").
		Where("author_id = ? AND is_last = ?", authorID, true).
		Where("exercise_id IN (?)", r.courseExercises(db, courseID)).
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	points := make(map[uint]float64, len(rows))
	for _, row := range rows {
		points[row.ExerciseID] = row.Points
	}
	return points, nil
}

// ExerciseDatesInRange lists the author's submissions to the course within [from, to).
func (r *telemetryRepository) ExerciseDatesInRange(ctx context.Context, authorID, courseID uint, from, to time.Time) ([]stats.ExerciseSubmission, error) {
	db := r.db.WithContext(ctx)

	var rows []stats.ExerciseSubmission
	if err := db.Model(&models.TelemetryData{}).
		Select("exercise_id, submission_date").
		Where("author_id = ?", authorID).
		Where("submission_date >= ? AND submission_date < ?", from, to).
		Where("exercise_id IN (?)", r.courseExercises(db, courseID)).
		Order("submission_date ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}

func (r *telemetryRepository) ListForAuthorInRange(ctx context.Context, authorID, courseID uint, from, to time.Time) ([]models.TelemetryData, error) {
	db := r.db.WithContext(ctx)

	var records []models.TelemetryData
	if err := db.Preload("Exercise.Tags").
		Where("author_id = ?", authorID).
		Where("submission_date >= ? AND submission_date < ?", from, to).
		Where("exercise_id IN (?)", r.courseExercises(db, courseID)).
		Order("submission_date ASC, id ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	return records, nil
}

func (r *telemetryRepository) MaxPointsByAuthorAndExercise(ctx context.Context, courseID uint) ([]stats.MaxPoints, error) {
	var rows []stats.MaxPoints
	if err := r.db.WithContext(ctx).Table("telemetry_data").
		Select("users.username AS username, exercises.slug AS exercise_slug, MAX(telemetry_data.points) AS max_points").
		Joins("JOIN users ON users.id = telemetry_data.author_id").
		Joins("JOIN exercises ON exercises.id = telemetry_data.exercise_id").
		Where("exercises.course_id = ?", courseID).
		Group("users.username, exercises.slug").
		Order("users.username ASC, exercises.slug ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}

// CountDistinctExercisesByAuthor counts, per author, the distinct course exercises
// submitted within [from, to). Authors without submissions are absent.
func (r *telemetryRepository) CountDistinctExercisesByAuthor(ctx context.Context, courseID uint, from, to time.Time) (map[uint]int, error) {
	db := r.db.WithContext(ctx)

	var rows []struct {
		AuthorID uint `gorm:"column:author_id"`
		Count    int  `gorm:"column:exercise_count"`
	}
	if err := db.Model(&models.TelemetryData{}).
		Select("author_id, COUNT(DISTINCT exercise_id) AS exercise_count").
		Where("submission_date >= ? AND submission_date < ?", from, to).
		Where("exercise_id IN (?)", r.courseExercises(db, courseID)).
		Group("author_id").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	counts := make(map[uint]int, len(rows))
	for _, row := range rows {
		counts[row.AuthorID] = row.Count
	}
	return counts, nil
}

func (r *telemetryRepository) CourseSummaries(ctx context.Context) ([]CourseSummary, error) {
	var rows []CourseSummary
	if err := r.db.WithContext(ctx).Table("courses").
		Select("courses.name AS name, COUNT(telemetry_data.id) AS submissions, COUNT(DISTINCT telemetry_data.author_id) AS students").
		Joins("LEFT JOIN exercises ON exercises.course_id = courses.id").
		Joins("LEFT JOIN telemetry_data ON telemetry_data.exercise_id = exercises.id").
		Group("courses.id, courses.name").
		Order("courses.name ASC").
		Scan(&rows).Error; err != nil {
		return nil, err
	}

	return rows, nil
}

func normalisePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 50
	}
	if pageSize > 200 {
		pageSize = 200
	}
	return page, pageSize
}
