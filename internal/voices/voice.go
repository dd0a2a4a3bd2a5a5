package voices

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Type describes the underlying representation of a voice.
type Type string

const (
	// TypeEmbeddings is a precomputed voice embedding.
	TypeEmbeddings Type = "embeddings"
	// TypeAudio is a reference audio clip.
	TypeAudio Type = "audio"
)

// Valid reports whether t is one of the known types.
func (t Type) Valid() bool {
	switch t {
	case TypeEmbeddings, TypeAudio:
		return true
	default:
		return false
	}
}

// Category is a classification tag used to group voices.
type Category string

const (
	CategoryCustom        Category = "custom"
	CategoryNaturalFemale Category = "natural-female"
	CategoryNaturalMale   Category = "natural-male"
	CategoryVarietyFemale Category = "variety-female"
	CategoryVarietyMale   Category = "variety-male"
	CategoryOther         Category = "other"
)

// Categories lists the known categories in display order.
var Categories = []Category{
	CategoryCustom,
	CategoryNaturalFemale,
	CategoryNaturalMale,
	CategoryVarietyFemale,
	CategoryVarietyMale,
	CategoryOther,
}

const unknownRank = 99

var titleCaser = cases.Title(language.English)

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c.Rank() != unknownRank
}

// Rank returns the display position of the category. Unknown categories
// sort after every known one.
func (c Category) Rank() int {
	for i, known := range Categories {
		if c == known {
			return i
		}
	}
	return unknownRank
}

// Label returns a human readable name, e.g. "Natural Female".
func (c Category) Label() string {
	if c == "" {
		return "Uncategorized"
	}
	return titleCaser.String(strings.ReplaceAll(string(c), "-", " "))
}

// Voice is a single entry of the voice listing. Values are passed through
// as received; Type and Category are not validated.
type Voice struct {
	Name     string   `json:"name"     yaml:"name"`
	Type     Type     `json:"type"     yaml:"type"`
	Category Category `json:"category" yaml:"category"`
	Path     string   `json:"path"     yaml:"path"`
}

// Group is a run of voices sharing a category.
type Group struct {
	Category Category
	Voices   []Voice
}

// GroupByCategory groups voices by category. Groups are ordered by category
// rank, unknown categories by first appearance; voices keep their input
// order within a group.
func GroupByCategory(vs []Voice) []Group {
	var groups []Group
	index := make(map[Category]int)
	for _, v := range vs {
		i, ok := index[v.Category]
		if !ok {
			i = len(groups)
			index[v.Category] = i
			groups = append(groups, Group{Category: v.Category})
		}
		groups[i].Voices = append(groups[i].Voices, v)
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Category.Rank() < groups[j].Category.Rank()
	})
	return groups
}
