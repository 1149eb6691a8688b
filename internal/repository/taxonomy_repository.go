package repository

import (
	"qbank_backend/internal/model"

	"gorm.io/gorm"
)

type TaxonomyRepository struct {
	DB *gorm.DB
}

func NewTaxonomyRepository(db *gorm.DB) *TaxonomyRepository {
	return &TaxonomyRepository{DB: db}
}

func (r *TaxonomyRepository) CreateSubject(s *model.Subject) error {
	return r.DB.Create(s).Error
}

func (r *TaxonomyRepository) CreateUnit(u *model.Unit) error {
	return r.DB.Create(u).Error
}

func (r *TaxonomyRepository) CreateTopic(t *model.Topic) error {
	return r.DB.Create(t).Error
}

func (r *TaxonomyRepository) FindSubject(id uint) (*model.Subject, error) {
	var s model.Subject
	err := r.DB.First(&s, id).Error
	return &s, err
}

func (r *TaxonomyRepository) FindUnit(id uint) (*model.Unit, error) {
	var u model.Unit
	err := r.DB.First(&u, id).Error
	return &u, err
}

func (r *TaxonomyRepository) ListSubjects() ([]model.Subject, error) {
	var subjects []model.Subject
	err := r.DB.Order("name ASC").Find(&subjects).Error
	return subjects, err
}

// ListUnitsWithTopics loads a subject's units in display order with their topics.
func (r *TaxonomyRepository) ListUnitsWithTopics(subjectID uint) ([]model.Unit, error) {
	var units []model.Unit
	err := r.DB.Where("subject_id = ?", subjectID).
		Preload("Topics", func(db *gorm.DB) *gorm.DB {
			return db.Order("id ASC")
		}).
		Order("sort_order ASC, id ASC").
		Find(&units).Error
	return units, err
}

func (r *TaxonomyRepository) FindUnits(ids []uint) ([]model.Unit, error) {
	var units []model.Unit
	if len(ids) == 0 {
		return units, nil
	}
	err := r.DB.Where("id IN ?", ids).Order("sort_order ASC, id ASC").Find(&units).Error
	return units, err
}

func (r *TaxonomyRepository) FindTopics(ids []uint) ([]model.Topic, error) {
	var topics []model.Topic
	if len(ids) == 0 {
		return topics, nil
	}
	err := r.DB.Where("id IN ?", ids).Order("id ASC").Find(&topics).Error
	return topics, err
}
