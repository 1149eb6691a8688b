package model

import "time"

// extraction lifecycle
const (
	ExtractionPending    = "pending"
	ExtractionProcessing = "processing"
	ExtractionExtracting = "extracting"
	ExtractionSaving     = "saving"
	ExtractionCompleted  = "completed"
	ExtractionFailed     = "failed"
)

// review status, independent of extraction
const (
	ReviewPending  = "pending"
	ReviewApproved = "approved"
	ReviewRejected = "rejected"
)

const (
	DocumentTypeQuestionBank  = "question_bank"
	DocumentTypePreviousPaper = "previous_paper"
	DocumentTypeSamplePaper   = "sample_paper"
	DocumentTypeAssignment    = "assignment"
)

// QuestionDocument owns one batch extraction job and the questions it produced.
type QuestionDocument struct {
	BaseModel
	Title            string `gorm:"size:255;not null" json:"title"`
	Filename         string `gorm:"size:255;not null" json:"filename"`
	OriginalFilename string `gorm:"size:255" json:"originalFilename"`
	FilePath         string `gorm:"size:500;not null" json:"filePath"`
	FileSize         int64  `gorm:"default:0" json:"fileSize"`
	SubjectID        uint   `gorm:"index;not null" json:"subjectId"`
	DocumentType     string `gorm:"size:50;default:'question_bank'" json:"documentType"`
	AcademicYear     string `gorm:"size:20" json:"academicYear"`
	Semester         string `gorm:"size:20" json:"semester"`

	Status             string     `gorm:"size:20;default:'pending';index" json:"status"`
	ExtractionStatus   string     `gorm:"size:20;default:'pending'" json:"extractionStatus"`
	ExtractionProgress int        `gorm:"default:0" json:"extractionProgress"`
	ExtractionMessage  string     `gorm:"size:255" json:"extractionMessage"`
	TotalQuestions     int        `gorm:"default:0" json:"totalQuestions"`
	TotalPages         int        `gorm:"default:0" json:"totalPages"`
	ProcessedPages     int        `gorm:"default:0" json:"processedPages"`
	StartedAt          *time.Time `json:"startedAt,omitempty"`
	ProcessedAt        *time.Time `json:"processedAt,omitempty"`
	ReviewedAt         *time.Time `json:"reviewedAt,omitempty"`

	Subject   *Subject   `gorm:"foreignKey:SubjectID" json:"subject,omitempty"`
	Questions []Question `gorm:"foreignKey:DocumentID" json:"-"`
}

func (QuestionDocument) TableName() string {
	return "question_documents"
}

// IsTerminal reports whether the extraction job has finished, successfully or not.
func (d *QuestionDocument) IsTerminal() bool {
	return d.ExtractionStatus == ExtractionCompleted || d.ExtractionStatus == ExtractionFailed
}
