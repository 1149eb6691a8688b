package repository

import (
	"qbank_backend/internal/model"

	"gorm.io/gorm"
)

type QuestionRepository struct {
	DB *gorm.DB
}

func NewQuestionRepository(db *gorm.DB) *QuestionRepository {
	return &QuestionRepository{DB: db}
}

func (r *QuestionRepository) Create(question *model.Question) error {
	return r.DB.Create(question).Error
}

func (r *QuestionRepository) FindByID(id uint) (*model.Question, error) {
	var q model.Question
	err := r.DB.First(&q, id).Error
	return &q, err
}

func (r *QuestionRepository) ListByDocument(documentID uint) ([]model.Question, error) {
	var questions []model.Question
	err := r.DB.Where("document_id = ?", documentID).
		Order("page_number ASC, id ASC").
		Find(&questions).Error
	return questions, err
}

func (r *QuestionRepository) CountByDocument(documentID uint) (int64, error) {
	var n int64
	err := r.DB.Model(&model.Question{}).Where("document_id = ?", documentID).Count(&n).Error
	return n, err
}

// UpdateCategorization writes only the unit/topic assignment columns.
func (r *QuestionRepository) UpdateCategorization(id uint, unitID, topicID *uint, unitConfidence, topicConfidence float64) error {
	return r.DB.Model(&model.Question{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"unit_id":          unitID,
			"topic_id":         topicID,
			"unit_confidence":  unitConfidence,
			"topic_confidence": topicConfidence,
		}).Error
}

func (r *QuestionRepository) DeleteByDocument(documentID uint) error {
	return r.DB.Where("document_id = ?", documentID).Delete(&model.Question{}).Error
}

// FindCandidates returns the questions a paper may draw from: approved documents
// of the subject, marks > 0, optionally limited to the given units and topics.
// Rows come back in id order so selection is reproducible.
func (r *QuestionRepository) FindCandidates(subjectID uint, unitIDs, topicIDs []uint) ([]model.Question, error) {
	query := r.DB.Model(&model.Question{}).
		Joins("JOIN question_documents ON question_documents.id = questions.document_id AND question_documents.deleted_at IS NULL").
		Where("question_documents.subject_id = ?", subjectID).
		Where("question_documents.status = ?", model.ReviewApproved).
		Where("questions.marks > 0")

	if len(unitIDs) > 0 {
		query = query.Where("questions.unit_id IN ?", unitIDs)
	}
	if len(topicIDs) > 0 {
		query = query.Where("questions.topic_id IN ?", topicIDs)
	}

	var questions []model.Question
	err := query.Order("questions.id ASC").Find(&questions).Error
	return questions, err
}
