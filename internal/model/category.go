package model

// Category is a classification label. The constants below are the known set;
// labels a trained model emits outside that set are carried through verbatim.
type Category string

const (
	Meeting     Category = "Meeting"
	Training    Category = "Training"
	Development Category = "Development"
	Vacation    Category = "Vacation"
	Other       Category = "Other"
	Unknown     Category = "Unknown"
)

// KnownCategories lists the closed category set.
func KnownCategories() []Category {
	return []Category{Meeting, Training, Development, Vacation, Other, Unknown}
}

// IsKnown reports whether c is one of the closed set.
func (c Category) IsKnown() bool {
	switch c {
	case Meeting, Training, Development, Vacation, Other, Unknown:
		return true
	}
	return false
}

// displayNames maps the Japanese labels older models were trained on to
// their English names.
var displayNames = map[Category]string{
	"会議":  "Meeting",
	"研修":  "Training",
	"開発":  "Development",
	"休暇":  "Vacation",
	"有休":  "Vacation",
	"その他": "Other",
}

// DisplayName returns the label used when rendering c for people.
// Unmapped labels are returned unchanged.
func (c Category) DisplayName() string {
	if name, ok := displayNames[c]; ok {
		return name
	}
	return string(c)
}

// Source records which stage of classification produced a Category.
type Source string

const (
	SourceModel Source = "model" // learned classifier answered
	SourceRule  Source = "rule"  // keyword fallback answered
	SourceNone  Source = "none"  // subject was empty; no classifier ran
)
