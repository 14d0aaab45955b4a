package stats

import (
	"sort"

	"github.com/noah-isme/handout-api/internal/models"
)

// ExerciseTagPair is one row of the exercise/tag membership join.
type ExerciseTagPair struct {
	ExerciseID uint `gorm:"column:exercise_id" json:"exercise_id"`
	TagID      uint `gorm:"column:exercise_tag_id" json:"tag_id"`
}

// TagKey selects the key a tag is reported under.
type TagKey func(models.ExerciseTag) string

// TagName keys tags by display name.
func TagName(tag models.ExerciseTag) string { return tag.Name }

// TagSlug keys tags by slug, which stays stable across renames.
func TagSlug(tag models.ExerciseTag) string { return tag.Slug }

// ExercisesByID indexes exercises by identifier.
func ExercisesByID(exercises []models.Exercise) map[uint]models.Exercise {
	index := make(map[uint]models.Exercise, len(exercises))
	for _, exercise := range exercises {
		index[exercise.ID] = exercise
	}
	return index
}

// ExerciseIDsByTagName groups exercise ids by tag name. Pairs referencing a tag that is
// not in tags are ignored; tags without pairs are absent from the result.
func ExerciseIDsByTagName(pairs []ExerciseTagPair, tags []models.ExerciseTag) map[string]IDSet {
	return ExerciseIDsByTag(pairs, tags, TagName)
}

// ExerciseIDsByTagSlug is ExerciseIDsByTagName keyed by slug.
func ExerciseIDsByTagSlug(pairs []ExerciseTagPair, tags []models.ExerciseTag) map[string]IDSet {
	return ExerciseIDsByTag(pairs, tags, TagSlug)
}

// ExerciseIDsByTag groups exercise ids under key(tag).
func ExerciseIDsByTag(pairs []ExerciseTagPair, tags []models.ExerciseTag, key TagKey) map[string]IDSet {
	keys := make(map[uint]string, len(tags))
	for _, tag := range tags {
		keys[tag.ID] = key(tag)
	}

	out := make(map[string]IDSet)
	for _, pair := range pairs {
		k, ok := keys[pair.TagID]
		if !ok {
			continue
		}
		set, ok := out[k]
		if !ok {
			set = IDSet{}
			out[k] = set
		}
		set.Add(pair.ExerciseID)
	}
	return out
}

// TagNamesBySlug maps each tag slug to its display name.
func TagNamesBySlug(tags []models.ExerciseTag) map[string]string {
	names := make(map[string]string, len(tags))
	for _, tag := range tags {
		names[tag.Slug] = tag.Name
	}
	return names
}

// ExerciseSlugsByTagName lists, per tag name, the slugs of the exercises carrying it.
func ExerciseSlugsByTagName(exercises []models.Exercise) map[string][]string {
	out := make(map[string][]string)
	for _, exercise := range exercises {
		for _, tag := range exercise.Tags {
			out[tag.Name] = append(out[tag.Name], exercise.Slug)
		}
	}
	for name := range out {
		sort.Strings(out[name])
	}
	return out
}
