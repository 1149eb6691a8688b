package repository

import (
	"time"

	"qbank_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionDocumentRepository struct {
	DB *gorm.DB
}

func NewQuestionDocumentRepository(db *gorm.DB) *QuestionDocumentRepository {
	return &QuestionDocumentRepository{DB: db}
}

func (r *QuestionDocumentRepository) Create(doc *model.QuestionDocument) error {
	return r.DB.Create(doc).Error
}

func (r *QuestionDocumentRepository) FindByID(id uint) (*model.QuestionDocument, error) {
	var doc model.QuestionDocument
	err := r.DB.Preload("Subject").First(&doc, id).Error
	return &doc, err
}

// DocumentFilter narrows List. Zero values are ignored.
type DocumentFilter struct {
	SubjectID        uint
	Status           string
	ExtractionStatus string
	Page             int
	PageSize         int
}

func (r *QuestionDocumentRepository) List(f DocumentFilter) ([]model.QuestionDocument, int64, error) {
	query := r.DB.Model(&model.QuestionDocument{})
	if f.SubjectID != 0 {
		query = query.Where("subject_id = ?", f.SubjectID)
	}
	if f.Status != "" {
		query = query.Where("status = ?", f.Status)
	}
	if f.ExtractionStatus != "" {
		query = query.Where("extraction_status = ?", f.ExtractionStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 || f.PageSize > 100 {
		f.PageSize = 20
	}

	var docs []model.QuestionDocument
	err := query.Order("id DESC").
		Offset((f.Page - 1) * f.PageSize).
		Limit(f.PageSize).
		Find(&docs).Error
	return docs, total, err
}

// ExtractionUpdate carries the status columns written while a job runs.
// Nil pointers leave the column untouched.
type ExtractionUpdate struct {
	Status         string
	Progress       int
	Message        string
	TotalQuestions *int
	TotalPages     *int
	ProcessedPages *int
	StartedAt      *time.Time
	ProcessedAt    *time.Time
}

func (r *QuestionDocumentRepository) UpdateExtraction(id uint, u ExtractionUpdate) error {
	updates := map[string]interface{}{
		"extraction_status":   u.Status,
		"extraction_progress": u.Progress,
		"extraction_message":  u.Message,
	}
	if u.TotalQuestions != nil {
		updates["total_questions"] = *u.TotalQuestions
	}
	if u.TotalPages != nil {
		updates["total_pages"] = *u.TotalPages
	}
	if u.ProcessedPages != nil {
		updates["processed_pages"] = *u.ProcessedPages
	}
	if u.StartedAt != nil {
		updates["started_at"] = *u.StartedAt
	}
	if u.ProcessedAt != nil {
		updates["processed_at"] = *u.ProcessedAt
	}
	return r.DB.Model(&model.QuestionDocument{}).Where("id = ?", id).Updates(updates).Error
}

func (r *QuestionDocumentRepository) UpdateReview(id uint, status string, reviewedAt time.Time) error {
	return r.DB.Model(&model.QuestionDocument{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"status":      status,
			"reviewed_at": reviewedAt,
		}).Error
}

// Delete removes the document together with its questions.
func (r *QuestionDocumentRepository) Delete(id uint) error {
	return r.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("document_id = ?", id).Delete(&model.Question{}).Error; err != nil {
			return err
		}
		return tx.Delete(&model.QuestionDocument{}, id).Error
	})
}
