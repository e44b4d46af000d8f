package model

import "gorm.io/datatypes"

// Attribute is one named value of an attribute kind (effects, helps_with, negatives, flavors, terpenes).
type Attribute struct {
	Id           int64             `gorm:"primaryKey;autoIncrement"`
	Kind         string            `gorm:"type:varchar(32);not null;uniqueIndex:idx_attributes_kind_name"`
	Name         string            `gorm:"type:varchar(128);not null;uniqueIndex:idx_attributes_kind_name"`
	Translations datatypes.JSONMap `gorm:"type:jsonb"` // language code -> localized name
}

func (Attribute) TableName() string {
	return "attributes"
}
