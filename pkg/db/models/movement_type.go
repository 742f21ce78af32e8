package models

import "github.com/angelmondragon/kardex-pos/pkg/enums"

// MovementType is the seeded kardex vocabulary. Rows are never edited at runtime.
type MovementType struct {
	ID   int64              `gorm:"column:id;primaryKey;autoIncrement"`
	Code enums.MovementCode `gorm:"column:code;not null;uniqueIndex:idx_movement_types_code"`
	Name string             `gorm:"column:name;not null"`
	Sign int                `gorm:"column:sign;not null"`
}
