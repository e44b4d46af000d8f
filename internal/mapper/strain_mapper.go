package mapper

import (
	"fmt"

	"ai-budtender-be/internal/entity"
	"ai-budtender-be/internal/model"
	"ai-budtender-be/pkg/recommend/criteria"
	"ai-budtender-be/pkg/store"

	"gorm.io/datatypes"
)

type StrainMapper struct{}

func NewStrainMapper() *StrainMapper {
	return &StrainMapper{}
}

// ToEntity projects a catalog row and its preloaded attributes into the pipeline's read model.
func (m *StrainMapper) ToEntity(s *model.Strain) store.Strain {
	out := store.Strain{
		ID:          s.Id,
		Name:        s.Name,
		Category:    s.Category,
		THC:         s.ThcLevel,
		CBD:         s.CbdLevel,
		Description: s.Description,
	}
	if len(s.Metadata) > 0 {
		out.Extra = make(map[string]interface{}, len(s.Metadata))
		for k, v := range s.Metadata {
			out.Extra[k] = v
		}
	}
	for _, a := range s.Attributes {
		switch criteria.Field(a.Kind) {
		case criteria.FieldEffects:
			out.Effects = append(out.Effects, a.Name)
		case criteria.FieldHelpsWith:
			out.MedicalUses = append(out.MedicalUses, a.Name)
		case criteria.FieldNegatives:
			out.Negatives = append(out.Negatives, a.Name)
		case criteria.FieldFlavors:
			out.Flavors = append(out.Flavors, a.Name)
		case criteria.FieldTerpenes:
			out.Terpenes = append(out.Terpenes, a.Name)
		}
	}
	return out
}

func (m *StrainMapper) ToEntities(models []*model.Strain) []store.Strain {
	out := make([]store.Strain, len(models))
	for i, s := range models {
		out[i] = m.ToEntity(s)
	}
	return out
}

type AttributeMapper struct{}

func NewAttributeMapper() *AttributeMapper {
	return &AttributeMapper{}
}

func (m *AttributeMapper) ToEntity(a *model.Attribute) *entity.Attribute {
	if a == nil {
		return nil
	}
	translations := make(map[string]string, len(a.Translations))
	for lang, v := range a.Translations {
		if s, ok := v.(string); ok {
			translations[lang] = s
		} else if v != nil {
			translations[lang] = fmt.Sprint(v)
		}
	}
	return &entity.Attribute{
		Id:           a.Id,
		Kind:         a.Kind,
		Name:         a.Name,
		Translations: translations,
	}
}

func (m *AttributeMapper) ToModel(a *entity.Attribute) *model.Attribute {
	if a == nil {
		return nil
	}
	translations := make(datatypes.JSONMap, len(a.Translations))
	for lang, name := range a.Translations {
		translations[lang] = name
	}
	return &model.Attribute{
		Id:           a.Id,
		Kind:         a.Kind,
		Name:         a.Name,
		Translations: translations,
	}
}
