package implementation

import (
	"context"

	"ai-budtender-be/internal/entity"
	"ai-budtender-be/internal/mapper"
	"ai-budtender-be/internal/model"
	"ai-budtender-be/internal/repository/contract"
	"ai-budtender-be/internal/repository/specification"

	"gorm.io/gorm"
)

type AttributeRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.AttributeMapper
}

func NewAttributeRepository(db *gorm.DB) contract.AttributeRepository {
	return &AttributeRepositoryImpl{
		db:     db,
		mapper: mapper.NewAttributeMapper(),
	}
}

func (r *AttributeRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.Attribute, error) {
	var models []*model.Attribute
	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}
	if err := query.Order("name ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	entities := make([]*entity.Attribute, len(models))
	for i, m := range models {
		entities[i] = r.mapper.ToEntity(m)
	}
	return entities, nil
}
