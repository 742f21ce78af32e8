package kardex

import (
	"context"
	"fmt"
	"sort"

	"gorm.io/gorm"

	"github.com/angelmondragon/kardex-pos/pkg/db/models"
	"github.com/angelmondragon/kardex-pos/pkg/enums"
	pkgerrors "github.com/angelmondragon/kardex-pos/pkg/errors"
)

// Catalog is the immutable movement vocabulary loaded once at startup.
type Catalog struct {
	byCode map[enums.MovementCode]models.MovementType
}

// LoadCatalog reads movement_types and checks that every code the service
// emits is present with the expected sign.
func LoadCatalog(ctx context.Context, conn *gorm.DB) (*Catalog, error) {
	var rows []models.MovementType
	if err := conn.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("load movement types: %w", err)
	}
	return NewCatalog(rows)
}

// NewCatalog builds a catalog from already loaded rows.
func NewCatalog(rows []models.MovementType) (*Catalog, error) {
	byCode := make(map[enums.MovementCode]models.MovementType, len(rows))
	for _, row := range rows {
		if row.Sign != 1 && row.Sign != -1 {
			return nil, fmt.Errorf("movement type %s has invalid sign %d", row.Code, row.Sign)
		}
		byCode[row.Code] = row
	}
	for _, def := range enums.MovementDefinitions() {
		row, ok := byCode[def.Code]
		if !ok {
			return nil, fmt.Errorf("movement type %s is not seeded", def.Code)
		}
		if row.Sign != def.Sign {
			return nil, fmt.Errorf("movement type %s has sign %d, expected %d", def.Code, row.Sign, def.Sign)
		}
	}
	return &Catalog{byCode: byCode}, nil
}

// Lookup resolves a movement code. Unknown codes fail with UNKNOWN_MOVEMENT_TYPE.
func (c *Catalog) Lookup(code enums.MovementCode) (models.MovementType, error) {
	row, ok := c.byCode[code]
	if !ok {
		return models.MovementType{}, pkgerrors.New(pkgerrors.CodeUnknownMovementType, fmt.Sprintf("unknown movement type %q", code)).
			WithDetails(map[string]any{"code": string(code)})
	}
	return row, nil
}

// Types returns the vocabulary ordered by id.
func (c *Catalog) Types() []models.MovementType {
	out := make([]models.MovementType, 0, len(c.byCode))
	for _, row := range c.byCode {
		out = append(out, row)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
