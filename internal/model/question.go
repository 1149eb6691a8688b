package model

import "gorm.io/datatypes"

const (
	DifficultyEasy   = "easy"
	DifficultyMedium = "medium"
	DifficultyHard   = "hard"
)

// Question is an extracted question. Only the categorization fields change after creation.
type Question struct {
	BaseModel
	DocumentID      uint   `gorm:"index;not null" json:"documentId"`
	QuestionNumber  string `gorm:"size:20" json:"questionNumber"`
	QuestionText    string `gorm:"type:text;not null" json:"questionText"`
	PageNumber      int    `gorm:"default:1" json:"pageNumber"`
	Section         string `gorm:"size:255" json:"section"`
	QuestionType    string `gorm:"size:50" json:"questionType"`
	DifficultyLevel string `gorm:"size:20;default:'medium';index" json:"difficultyLevel"`
	Marks           int    `gorm:"default:1" json:"marks"`
	HasFormula      bool   `gorm:"default:false" json:"hasFormula"`
	HasDiagram      bool   `gorm:"default:false" json:"hasDiagram"`
	HasImage        bool   `gorm:"default:false" json:"hasImage"`

	Metadata   datatypes.JSONMap           `json:"metadata,omitempty"`
	ImagePaths datatypes.JSONSlice[string] `json:"imagePaths"`

	UnitID          *uint   `gorm:"index" json:"unitId"`
	TopicID         *uint   `gorm:"index" json:"topicId"`
	UnitConfidence  float64 `gorm:"default:0" json:"unitConfidence"`
	TopicConfidence float64 `gorm:"default:0" json:"topicConfidence"`

	Document *QuestionDocument `gorm:"foreignKey:DocumentID" json:"-"`
}

func (Question) TableName() string {
	return "questions"
}

// Options returns the multiple-choice options captured during extraction.
func (q *Question) Options() map[string]string {
	out := map[string]string{}
	if q.Metadata == nil {
		return out
	}
	switch raw := q.Metadata["options"].(type) {
	case map[string]string:
		for k, v := range raw {
			out[k] = v
		}
	case map[string]interface{}:
		for k, v := range raw {
			if s, ok := v.(string); ok {
				out[k] = s
			}
		}
	}
	return out
}
