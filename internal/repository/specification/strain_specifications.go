package specification

import (
	"fmt"
	"strings"

	"ai-budtender-be/pkg/recommend/criteria"

	"gorm.io/gorm"
)

// CleanNumericSQL extracts the first number of a raw potency column. Placeholders and text without
// digits become NULL; callers also treat zero as absent.
func CleanNumericSQL(column string) string {
	return fmt.Sprintf(`NULLIF(substring(%s from '[0-9]+(?:\.[0-9]+)?'), '')::numeric`, column)
}

type ByCategory struct {
	Category string
}

func (s ByCategory) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("LOWER(strains.category) = LOWER(?)", s.Category)
}

// NumericCondition applies a Compare or Range expression to a cleaned potency column. Rows without a
// usable number never match.
type NumericCondition struct {
	Column string
	Expr   criteria.Expr
}

func (s NumericCondition) Apply(db *gorm.DB) *gorm.DB {
	col := CleanNumericSQL("strains." + s.Column)
	switch x := s.Expr.(type) {
	case criteria.Compare:
		op, ok := sqlOperators[x.Cmp]
		if !ok {
			return db
		}
		return db.Where(fmt.Sprintf("%s > 0 AND %s %s ?", col, col, op), x.Value)
	case criteria.Range:
		db = db.Where(fmt.Sprintf("%s > 0", col))
		if x.Min != nil {
			db = db.Where(fmt.Sprintf("%s >= ?", col), *x.Min)
		}
		if x.Max != nil {
			db = db.Where(fmt.Sprintf("%s <= ?", col), *x.Max)
		}
		return db
	}
	return db
}

var sqlOperators = map[criteria.Op]string{
	criteria.OpGte: ">=",
	criteria.OpGt:  ">",
	criteria.OpLte: "<=",
	criteria.OpLt:  "<",
	criteria.OpEq:  "=",
}

// HasAnyAttribute keeps strains linked to at least one attribute of kind whose name contains one of
// names, case-insensitively.
type HasAnyAttribute struct {
	Kind  string
	Names []string
}

func (s HasAnyAttribute) Apply(db *gorm.DB) *gorm.DB {
	if len(s.Names) == 0 {
		return db
	}
	return db.Where("strains.id IN (?)", attributeSubquery(db, s.Kind, s.Names))
}

// ExcludeAttributes drops strains linked to any matching attribute of kind.
type ExcludeAttributes struct {
	Kind  string
	Names []string
}

func (s ExcludeAttributes) Apply(db *gorm.DB) *gorm.DB {
	if len(s.Names) == 0 {
		return db
	}
	return db.Where("strains.id NOT IN (?)", attributeSubquery(db, s.Kind, s.Names))
}

func attributeSubquery(db *gorm.DB, kind string, names []string) *gorm.DB {
	patterns := make([]string, 0, len(names))
	for _, n := range names {
		if n = strings.TrimSpace(n); n != "" {
			patterns = append(patterns, "%"+escapeLike(n)+"%")
		}
	}
	return db.Session(&gorm.Session{NewDB: true}).
		Table("strain_attributes").
		Select("strain_attributes.strain_id").
		Joins("JOIN attributes ON attributes.id = strain_attributes.attribute_id").
		Where("attributes.kind = ?", kind).
		Where("attributes.name ILIKE ANY (ARRAY[?])", patterns)
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// AttributeKinds restricts attribute rows to the given kinds.
type AttributeKinds struct {
	Kinds []string
}

func (s AttributeKinds) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("attributes.kind IN ?", s.Kinds)
}
