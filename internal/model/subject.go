package model

// Subject is the root of the categorization taxonomy.
type Subject struct {
	BaseModel
	Name        string `gorm:"size:255;not null;uniqueIndex" json:"name"`
	Code        string `gorm:"size:50" json:"code"`
	Description string `gorm:"type:text" json:"description"`
	Units       []Unit `gorm:"foreignKey:SubjectID" json:"units,omitempty"`
}

func (Subject) TableName() string {
	return "subjects"
}

// Unit name and description form the similarity corpus for unit assignment.
type Unit struct {
	BaseModel
	SubjectID   uint    `gorm:"index;not null" json:"subjectId"`
	Name        string  `gorm:"size:255;not null" json:"name"`
	Description string  `gorm:"type:text" json:"description"`
	Order       int     `gorm:"column:sort_order;default:0" json:"order"`
	Topics      []Topic `gorm:"foreignKey:UnitID" json:"topics,omitempty"`
}

func (Unit) TableName() string {
	return "units"
}

type Topic struct {
	BaseModel
	UnitID      uint   `gorm:"index;not null" json:"unitId"`
	Name        string `gorm:"size:255;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
}

func (Topic) TableName() string {
	return "topics"
}
