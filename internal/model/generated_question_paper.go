package model

import "gorm.io/datatypes"

// DifficultyDistribution holds the easy/medium/hard fractions of a paper, nominally summing to 1.
type DifficultyDistribution struct {
	Easy   float64 `json:"easy"`
	Medium float64 `json:"medium"`
	Hard   float64 `json:"hard"`
}

// GeneratedQuestionPaper records one assembly run. It is written once and never updated.
type GeneratedQuestionPaper struct {
	BaseModel
	Title                  string                                    `gorm:"size:255;not null" json:"title"`
	SubjectID              uint                                      `gorm:"index;not null" json:"subjectId"`
	UnitIDs                datatypes.JSONSlice[uint]                 `json:"unitIds"`
	TopicIDs               datatypes.JSONSlice[uint]                 `json:"topicIds"`
	TotalMarks             int                                       `gorm:"not null" json:"totalMarks"`
	SelectedMarks          int                                       `gorm:"default:0" json:"selectedMarks"`
	DurationMinutes        int                                       `gorm:"default:180" json:"durationMinutes"`
	DifficultyDistribution datatypes.JSONType[DifficultyDistribution] `json:"difficultyDistribution"`
	QuestionIDs            datatypes.JSONSlice[uint]                 `json:"questionIds"`
	PageCount              int                                       `gorm:"default:0" json:"pageCount"`
	Filename               string                                    `gorm:"size:255;not null" json:"filename"`
	FilePath               string                                    `gorm:"size:500;not null" json:"filePath"`
	FileURL                string                                    `gorm:"size:500" json:"fileUrl"`
}

func (GeneratedQuestionPaper) TableName() string {
	return "generated_question_papers"
}
