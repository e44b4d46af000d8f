package model

import (
	"time"

	"gorm.io/datatypes"
)

type Strain struct {
	Id          int64             `gorm:"primaryKey;autoIncrement"`
	Name        string            `gorm:"type:varchar(255);not null;uniqueIndex"`
	Category    string            `gorm:"type:varchar(32);index"`
	ThcLevel    string            `gorm:"type:varchar(64)"` // raw catalog text, e.g. "17%", "15-20%", "N/A"
	CbdLevel    string            `gorm:"type:varchar(64)"`
	Description string            `gorm:"type:text"`
	Metadata    datatypes.JSONMap `gorm:"type:jsonb"`
	Attributes  []Attribute       `gorm:"many2many:strain_attributes;"`
	CreatedAt   time.Time         `gorm:"autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"autoUpdateTime"`
}

func (Strain) TableName() string {
	return "strains"
}
