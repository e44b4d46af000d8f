package model

import (
	"time"

	"github.com/pgvector/pgvector-go"
)

type StrainEmbedding struct {
	StrainId  int64           `gorm:"primaryKey"`
	Embedding pgvector.Vector `gorm:"type:vector(768)"` // Gemini text-embedding-004 uses 768 dimensions
	Document  string          `gorm:"type:text"`
	UpdatedAt time.Time       `gorm:"autoUpdateTime"`
}

func (StrainEmbedding) TableName() string {
	return "strain_embeddings"
}
