package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ai-budtender-be/internal/entity"
	"ai-budtender-be/internal/repository/specification"
	"ai-budtender-be/internal/repository/unitofwork"
	"ai-budtender-be/pkg/recommend/catalog"
	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/recommend/taxonomy"
	"ai-budtender-be/pkg/recommend/vocab"
	"ai-budtender-be/pkg/store"
)

// ICatalogService is the postgres-backed catalog used by the recommendation pipeline.
type ICatalogService interface {
	catalog.Store
	taxonomy.Loader
	Document(s store.Strain) string
}

var attributeFields = []criteria.Field{
	criteria.FieldEffects,
	criteria.FieldHelpsWith,
	criteria.FieldNegatives,
	criteria.FieldFlavors,
	criteria.FieldTerpenes,
}

type catalogService struct {
	uowFactory unitofwork.RepositoryFactory
}

func NewCatalogService(uowFactory unitofwork.RepositoryFactory) ICatalogService {
	return &catalogService{uowFactory: uowFactory}
}

func (s *catalogService) Search(ctx context.Context, q catalog.Query) ([]store.Strain, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.StrainRepository().FindAll(ctx, querySpecifications(q)...)
}

func querySpecifications(q catalog.Query) []specification.Specification {
	var specs []specification.Specification
	if q.Category != "" {
		specs = append(specs, specification.ByCategory{Category: q.Category})
	}
	if q.THC != nil {
		specs = append(specs, specification.NumericCondition{Column: "thc_level", Expr: q.THC})
	}
	if q.CBD != nil {
		specs = append(specs, specification.NumericCondition{Column: "cbd_level", Expr: q.CBD})
	}
	desired := map[criteria.Field][]string{
		criteria.FieldEffects:   q.Effects,
		criteria.FieldHelpsWith: q.MedicalUses,
		criteria.FieldFlavors:   q.Flavors,
		criteria.FieldTerpenes:  q.Terpenes,
	}
	for _, field := range attributeFields {
		if names := desired[field]; len(names) > 0 {
			specs = append(specs, specification.HasAnyAttribute{Kind: string(field), Names: names})
		}
	}
	if len(q.ExcludeEffects) > 0 {
		specs = append(specs, specification.ExcludeAttributes{Kind: string(criteria.FieldEffects), Names: q.ExcludeEffects})
	}
	if len(q.ExcludeNegatives) > 0 {
		specs = append(specs, specification.ExcludeAttributes{Kind: string(criteria.FieldNegatives), Names: q.ExcludeNegatives})
	}
	return append(specs, specification.Limit{N: q.Limit})
}

func (s *catalogService) FindByIDs(ctx context.Context, ids []int64) ([]store.Strain, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.StrainRepository().FindByIDs(ctx, ids)
}

func (s *catalogService) NearestIDs(ctx context.Context, vector []float32, allow []int64, limit int) ([]catalog.ScoredID, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	rows, err := uow.StrainRepository().NearestByEmbedding(ctx, vector, allow, limit)
	if err != nil {
		return nil, err
	}
	out := make([]catalog.ScoredID, len(rows))
	for i, r := range rows {
		out[i] = catalog.ScoredID{ID: r.StrainId, Distance: r.Distance}
	}
	return out, nil
}

func (s *catalogService) TopN(ctx context.Context, n int) ([]store.Strain, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	return uow.StrainRepository().TopN(ctx, n)
}

// LoadTaxonomy reads canonical attribute names, their translations into language, categories and potency
// bounds.
func (s *catalogService) LoadTaxonomy(ctx context.Context, language string) (*taxonomy.Taxonomy, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)

	kinds := make([]string, len(attributeFields))
	for i, f := range attributeFields {
		kinds[i] = string(f)
	}
	attributes, err := uow.AttributeRepository().FindAll(ctx, specification.AttributeKinds{Kinds: kinds})
	if err != nil {
		return nil, fmt.Errorf("load attributes: %w", err)
	}

	t := taxonomy.Empty(language)
	addAttributes(t, attributes, language)

	categories, err := uow.StrainRepository().Categories(ctx)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	if len(categories) > 0 {
		t.Categories = vocab.Dedupe(categories)
	}

	for field, column := range map[criteria.Field]string{criteria.FieldTHC: "thc_level", criteria.FieldCBD: "cbd_level"} {
		r, err := uow.StrainRepository().NumericRange(ctx, column)
		if err != nil {
			return nil, fmt.Errorf("load %s range: %w", field, err)
		}
		if r.Valid {
			t.Bounds[field] = criteria.Bounds{Min: r.Min, Max: r.Max}
		}
	}

	if t.Strains, err = uow.StrainRepository().Count(ctx); err != nil {
		return nil, fmt.Errorf("count strains: %w", err)
	}

	t.LoadedAt = time.Now()
	return t, nil
}

func addAttributes(t *taxonomy.Taxonomy, attributes []*entity.Attribute, language string) {
	for _, a := range attributes {
		field, ok := criteria.ParseField(a.Kind)
		if !ok || !field.IsSet() {
			continue
		}
		t.Terms[field] = append(t.Terms[field], a.Name)
		if localized := a.Localized(language); !strings.EqualFold(localized, a.Name) {
			t.Aliases[vocab.Fold(localized)] = a.Name
		}
	}
	for field, terms := range t.Terms {
		t.Terms[field] = vocab.Dedupe(terms)
	}
}

// Document is the text embedded for a strain.
func (s *catalogService) Document(st store.Strain) string {
	parts := []string{st.Name}
	if st.Category != "" {
		parts = append(parts, st.Category)
	}
	for _, group := range []struct {
		label  string
		values []string
	}{
		{"Effects", st.Effects},
		{"Helps with", st.MedicalUses},
		{"Flavors", st.Flavors},
		{"Terpenes", st.Terpenes},
	} {
		if len(group.values) > 0 {
			parts = append(parts, group.label+": "+strings.Join(group.values, ", "))
		}
	}
	if st.Description != "" {
		parts = append(parts, st.Description)
	}
	return strings.Join(parts, ". ")
}
