package model

// DefaultCategoryName is created for every user at registration.
const DefaultCategoryName = "Uncategorized"

// Category is a per-user label for tasks.
type Category struct {
	ID     uint   `gorm:"primaryKey" json:"id"`
	UserID uint   `gorm:"not null;uniqueIndex:idx_user_category_name" json:"user_id"`
	Name   string `gorm:"size:100;not null;uniqueIndex:idx_user_category_name" json:"name"`
	Tasks  []Task `gorm:"foreignKey:CategoryID;constraint:OnDelete:SET NULL" json:"-"`
}
