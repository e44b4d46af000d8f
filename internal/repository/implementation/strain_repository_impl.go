package implementation

import (
	"context"

	"ai-budtender-be/internal/entity"
	"ai-budtender-be/internal/mapper"
	"ai-budtender-be/internal/model"
	"ai-budtender-be/internal/repository/contract"
	"ai-budtender-be/internal/repository/specification"
	"ai-budtender-be/pkg/store"

	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type StrainRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.StrainMapper
}

func NewStrainRepository(db *gorm.DB) contract.StrainRepository {
	return &StrainRepositoryImpl{
		db:     db,
		mapper: mapper.NewStrainMapper(),
	}
}

func (r *StrainRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *StrainRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]store.Strain, error) {
	var models []*model.Strain
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Strain{}), specs...)
	if err := query.Preload("Attributes").Order("strains.id ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

// FindByIDs returns strains in id order; callers re-order as needed.
func (r *StrainRepositoryImpl) FindByIDs(ctx context.Context, ids []int64) ([]store.Strain, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return r.FindAll(ctx, specification.ByIDs{IDs: ids})
}

func (r *StrainRepositoryImpl) NearestByEmbedding(ctx context.Context, vector []float32, allow []int64, limit int) ([]entity.ScoredStrainID, error) {
	if limit <= 0 {
		limit = 10
	}
	type row struct {
		StrainId int64
		Distance float64
	}
	var rows []row

	query := r.db.WithContext(ctx).
		Table("strain_embeddings").
		Select("strain_id, embedding <=> ? AS distance", pgvector.NewVector(vector))
	if len(allow) > 0 {
		query = query.Where("strain_id IN ?", allow)
	}
	if err := query.Order("distance ASC").Limit(limit).Scan(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]entity.ScoredStrainID, len(rows))
	for i, rw := range rows {
		out[i] = entity.ScoredStrainID{StrainId: rw.StrainId, Distance: rw.Distance}
	}
	return out, nil
}

func (r *StrainRepositoryImpl) TopN(ctx context.Context, n int) ([]store.Strain, error) {
	return r.FindAll(ctx, specification.Limit{N: n})
}

func (r *StrainRepositoryImpl) Categories(ctx context.Context) ([]string, error) {
	var categories []string
	err := r.db.WithContext(ctx).
		Model(&model.Strain{}).
		Where("category <> ''").
		Distinct().
		Order("category").
		Pluck("category", &categories).Error
	return categories, err
}

// NumericRange returns the span of the cleaned values of column. Zero and unparseable values are ignored.
func (r *StrainRepositoryImpl) NumericRange(ctx context.Context, column string) (entity.NumericRange, error) {
	var res struct {
		Min *float64
		Max *float64
	}
	cleaned := specification.CleanNumericSQL(column)
	err := r.db.WithContext(ctx).
		Model(&model.Strain{}).
		Select("MIN(" + cleaned + ") AS min, MAX(" + cleaned + ") AS max").
		Where(cleaned + " > 0").
		Scan(&res).Error
	if err != nil || res.Min == nil || res.Max == nil {
		return entity.NumericRange{}, err
	}
	return entity.NumericRange{Min: *res.Min, Max: *res.Max, Valid: true}, nil
}

func (r *StrainRepositoryImpl) UpsertEmbedding(ctx context.Context, strainID int64, vector []float32, document string) error {
	m := &model.StrainEmbedding{
		StrainId:  strainID,
		Embedding: pgvector.NewVector(vector),
		Document:  document,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "strain_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"embedding", "document", "updated_at"}),
	}).Create(m).Error
}

func (r *StrainRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx).Model(&model.Strain{}), specs...)
	err := query.Count(&count).Error
	return count, err
}
