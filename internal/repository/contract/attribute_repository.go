package contract

import (
	"context"

	"ai-budtender-be/internal/entity"
	"ai-budtender-be/internal/repository/specification"
)

type AttributeRepository interface {
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Attribute, error)
}
