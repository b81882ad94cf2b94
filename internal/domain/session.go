package domain

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// Phase is the coarse client-facing view of how far a session has advanced.
// It is a projection recomputed from populated artifacts, never stored.
type Phase string

const (
	PhaseQuestions Phase = "questions"
	PhaseDraft     Phase = "draft"
	PhaseSummary   Phase = "summary"
	PhaseWriting   Phase = "writing"
)

// SubmissionForm holds the original user input that started a session.
type SubmissionForm struct {
	Title        string `json:"title"`
	Genre        string `json:"genre"`
	Premise      string `json:"premise"`
	Style        string `json:"style,omitempty"`
	TargetLength int    `json:"target_length,omitempty"`
	ModelID      string `json:"model_id,omitempty"`
	AuthorName   string `json:"author_name,omitempty"`
	ContactEmail string `json:"contact_email,omitempty"`
}

// Chapter is one completed unit of the writing job.
type Chapter struct {
	Index   int     `json:"index"`
	Title   string  `json:"title"`
	Content string  `json:"content"`
	Seconds float64 `json:"seconds,omitempty"`
}

// StringArray is a custom type for storing string slices as JSON columns.
type StringArray []string

// Value implements the driver.Valuer interface for database serialization.
func (a StringArray) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (a *StringArray) Scan(value interface{}) error {
	if value == nil {
		*a = StringArray{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan StringArray")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, a)
}

// ChapterList stores completed chapters as a JSON column.
type ChapterList []Chapter

// Value implements the driver.Valuer interface for database serialization.
func (l ChapterList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal(l)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (l *ChapterList) Scan(value interface{}) error {
	if value == nil {
		*l = ChapterList{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan ChapterList")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, l)
}

// FormColumn stores the submission form as a JSON column.
type FormColumn SubmissionForm

// Value implements the driver.Valuer interface for database serialization.
func (f FormColumn) Value() (driver.Value, error) {
	b, err := json.Marshal(f)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements the sql.Scanner interface for database deserialization.
func (f *FormColumn) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		str, ok := value.(string)
		if !ok {
			return errors.New("failed to scan FormColumn")
		}
		bytes = []byte(str)
	}
	return json.Unmarshal(bytes, f)
}

// BookSession is the aggregate persisted record for one book-generation run.
// It exclusively owns its ProgressState; the progress tracker never outlives
// the session it updates.
type BookSession struct {
	ID   string     `gorm:"type:text;primaryKey" json:"id"`
	Form FormColumn `gorm:"type:text" json:"form"`

	Questions StringArray `gorm:"type:text" json:"questions"`
	Answers   StringArray `gorm:"type:text" json:"answers"`
	Draft     string      `gorm:"type:text" json:"draft,omitempty"`
	Outline   string      `gorm:"type:text" json:"outline,omitempty"`

	Chapters ChapterList    `gorm:"type:text" json:"chapters"`
	Progress *ProgressState `gorm:"type:text" json:"progress,omitempty"`

	// Attached after completion; neither affects ProgressState invariants.
	Critique string `gorm:"type:text" json:"critique,omitempty"`
	CoverKey string `gorm:"type:text" json:"cover_key,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName returns the database table name for BookSession.
// Parameters: none.
// Returns:
//   - string: table name for GORM mapping.
func (BookSession) TableName() string {
	return "book_sessions"
}

// CurrentPhase projects the client-facing phase from which artifacts are
// populated: progress wins over outline, outline over draft or answered
// questions, and a fresh session starts at the questions phase.
func (s *BookSession) CurrentPhase() Phase {
	switch {
	case s.Progress != nil:
		return PhaseWriting
	case s.Outline != "":
		return PhaseSummary
	case s.Draft != "" || len(s.Answers) > 0:
		return PhaseDraft
	default:
		return PhaseQuestions
	}
}

// ContentRunes returns the total rune count across all completed chapters.
// Used to derive page totals once a job completes.
func (s *BookSession) ContentRunes() int {
	var total int
	for _, ch := range s.Chapters {
		total += len([]rune(ch.Content))
	}
	return total
}
