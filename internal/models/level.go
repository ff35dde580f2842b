package models

// Subject identifies a curriculum area.
type Subject string

const (
	SubjectLetters Subject = "letters"
	SubjectNumbers Subject = "numbers"
	SubjectShapes  Subject = "shapes"
	SubjectColors  Subject = "colors"
	SubjectAnimals Subject = "animals"
)

// Subjects lists all curriculum areas in display order.
var Subjects = []Subject{
	SubjectLetters,
	SubjectNumbers,
	SubjectShapes,
	SubjectColors,
	SubjectAnimals,
}

// Valid reports whether s is a known subject.
func (s Subject) Valid() bool {
	for _, known := range Subjects {
		if s == known {
			return true
		}
	}
	return false
}

const (
	// MaxStars is the highest score a single level attempt can earn.
	MaxStars = 3

	// LevelsPerSubject is the number of levels in each subject.
	LevelsPerSubject = 10
)

// LevelProgress records a profile's best result for one level of a subject.
// Stars is monotonically non-decreasing and Unlocked never flips back to false.
type LevelProgress struct {
	Subject  Subject `json:"subject"`
	Level    int     `json:"level"` // 1-based ordinal within the subject
	Stars    int     `json:"stars"` // best stars earned, 0..MaxStars
	Unlocked bool    `json:"unlocked"`
}

// NewLevelSet returns the default level list for a subject: all levels locked
// with zero stars except level 1, which starts unlocked.
func NewLevelSet(subject Subject) []LevelProgress {
	levels := make([]LevelProgress, LevelsPerSubject)
	for i := range levels {
		levels[i] = LevelProgress{
			Subject:  subject,
			Level:    i + 1,
			Unlocked: i == 0,
		}
	}
	return levels
}
