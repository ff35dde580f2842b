package models

// ScreenKind identifies a navigation target.
type ScreenKind string

const (
	ScreenHome              ScreenKind = "home"
	ScreenProgress          ScreenKind = "progress"
	ScreenSettings          ScreenKind = "settings"
	ScreenProfileSelection  ScreenKind = "profileSelection"
	ScreenProfileManagement ScreenKind = "profileManagement"
	ScreenSubjectSelection  ScreenKind = "subjectSelection"
	ScreenLesson            ScreenKind = "lesson"
	ScreenLessonComplete    ScreenKind = "lessonComplete"
	ScreenTimeForBreak      ScreenKind = "timeForBreak"
)

// Screen is the current navigation target plus its payload. Subject is set for
// subjectSelection, lesson and lessonComplete; Level for lesson; Stars for
// lessonComplete.
type Screen struct {
	Kind    ScreenKind `json:"kind"`
	Subject Subject    `json:"subject,omitempty"`
	Level   int        `json:"level,omitempty"`
	Stars   int        `json:"stars,omitempty"`
}

// Home returns the home screen target.
func Home() Screen {
	return Screen{Kind: ScreenHome}
}
