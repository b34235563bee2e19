package model

// Priority is a global reference row; lower level sorts first.
type Priority struct {
	ID    uint   `gorm:"primaryKey" json:"id"`
	Name  string `gorm:"size:50;not null;uniqueIndex" json:"name"`
	Level int    `gorm:"not null" json:"level"`
	Tasks []Task `gorm:"foreignKey:PriorityID;constraint:OnDelete:SET NULL" json:"-"`
}

// DefaultPriorities are seeded by migrations.
func DefaultPriorities() []Priority {
	return []Priority{
		{Name: "Low", Level: 1},
		{Name: "Medium", Level: 2},
		{Name: "High", Level: 3},
	}
}
