package repository

import (
	"qbank_backend/internal/model"

	"gorm.io/gorm"
)

type GeneratedPaperRepository struct {
	DB *gorm.DB
}

func NewGeneratedPaperRepository(db *gorm.DB) *GeneratedPaperRepository {
	return &GeneratedPaperRepository{DB: db}
}

func (r *GeneratedPaperRepository) Create(paper *model.GeneratedQuestionPaper) error {
	return r.DB.Create(paper).Error
}

func (r *GeneratedPaperRepository) FindByID(id uint) (*model.GeneratedQuestionPaper, error) {
	var paper model.GeneratedQuestionPaper
	err := r.DB.First(&paper, id).Error
	return &paper, err
}

func (r *GeneratedPaperRepository) ListBySubject(subjectID uint, limit int) ([]model.GeneratedQuestionPaper, error) {
	var papers []model.GeneratedQuestionPaper
	err := r.DB.Where("subject_id = ?", subjectID).
		Order("created_at DESC").
		Limit(limit).
		Find(&papers).Error
	return papers, err
}
