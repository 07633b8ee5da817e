package pgchunk

import (
	"time"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

// chunkModel is the therapy_chunks table row.
type chunkModel struct {
	ID        string            `gorm:"type:text;primaryKey"`
	Content   string            `gorm:"type:text;not null"`
	Metadata  datatypes.JSONMap `gorm:"type:jsonb"`
	Topic     string            `gorm:"type:text;index"`
	Embedding pgvector.Vector   `gorm:"type:vector"`
	CreatedAt time.Time         `gorm:"autoCreateTime"`
}

func (chunkModel) TableName() string {
	return tableName
}

// scoredRow is what both the inline query and the match function return.
type scoredRow struct {
	Content    string
	Metadata   datatypes.JSONMap
	Similarity *float64
}
