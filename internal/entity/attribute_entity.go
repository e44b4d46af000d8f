package entity

type Attribute struct {
	Id           int64
	Kind         string
	Name         string
	Translations map[string]string
}

// Localized returns the name in language, falling back to the canonical name.
func (a *Attribute) Localized(language string) string {
	if name, ok := a.Translations[language]; ok && name != "" {
		return name
	}
	return a.Name
}

type ScoredStrainID struct {
	StrainId int64
	Distance float64
}

// NumericRange is the observed span of a cleaned numeric column.
type NumericRange struct {
	Min   float64
	Max   float64
	Valid bool
}
