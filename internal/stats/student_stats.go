package stats

import (
	"time"

	"github.com/noah-isme/handout-api/internal/models"
	"github.com/noah-isme/handout-api/internal/tagtree"
)

// GroupStats is the coverage of one tag group for a student.
type GroupStats struct {
	Path           string
	Slug           string
	Name           string
	Depth          int
	TotalExercises int
	Points         float64
}

// StudentStats is the dashboard payload for one student in one course.
type StudentStats struct {
	Tags                          []models.ExerciseTag
	TagTree                       tagtree.Tree
	StatsByTagGroup               map[string]GroupStats
	TotalExercises                int
	ExerciseCountByTagSlugAndDate map[string]map[time.Time]int
}

// Inputs carries every record StudentStats is computed from.
type Inputs struct {
	Tree              tagtree.Tree
	Tags              []models.ExerciseTag
	Exercises         []models.Exercise
	Pairs             []ExerciseTagPair
	Points            map[uint]float64
	ExerciseIDsByDate map[time.Time]IDSet
}

// Compose derives the student's statistics from already loaded records.
func Compose(in Inputs) StudentStats {
	byTag := ExerciseIDsByTagSlug(in.Pairs, in.Tags)
	byGroup := ExerciseIDsByTagGroup(in.Tree, byTag)
	counts := CountTotalExercisesByTagGroup(byGroup)
	sums := SumPointsByTagGroup(in.Points, byGroup)

	groups := make(map[string]GroupStats, len(byGroup))
	in.Tree.Walk(func(path string, entry tagtree.Entry, depth int) {
		groups[path] = GroupStats{
			Path:           path,
			Slug:           entry.Slug,
			Name:           entry.Node.Name,
			Depth:          depth,
			TotalExercises: counts[path],
			Points:         sums[path],
		}
	})

	tags := in.Tags
	if tags == nil {
		tags = []models.ExerciseTag{}
	}

	return StudentStats{
		Tags:                          tags,
		TagTree:                       in.Tree,
		StatsByTagGroup:               groups,
		TotalExercises:                len(in.Exercises),
		ExerciseCountByTagSlugAndDate: ExerciseCountByTagAndDate(in.ExerciseIDsByDate, ExercisesByID(in.Exercises), TagSlug),
	}
}
