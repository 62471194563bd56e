package db

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// Topic is one row of the topics table. Questions is the raw JSONB document.
type Topic struct {
	ID        string             `json:"id"`
	Name      string             `json:"name"`
	Icon      string             `json:"icon"`
	YearLevel int32              `json:"year_level"`
	Category  pgtype.Text        `json:"category"`
	Mode      pgtype.Text        `json:"mode"`
	Questions []byte             `json:"questions"`
	Position  int64              `json:"position"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
	UpdatedAt pgtype.Timestamptz `json:"updated_at"`
}
