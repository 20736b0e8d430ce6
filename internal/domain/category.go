package domain

import "fmt"

// Category is the content category requested from the content provider.
type Category int

const (
	CategoryGeneral Category = iota
	CategoryAnxiety
	CategoryDepression
	CategoryStress
	CategoryMotivation
	CategorySelfCare
)

var AllCategories = []Category{
	CategoryGeneral, CategoryAnxiety, CategoryDepression,
	CategoryStress, CategoryMotivation, CategorySelfCare,
}

func (c Category) String() string {
	switch c {
	case CategoryGeneral:
		return "general"
	case CategoryAnxiety:
		return "anxiety"
	case CategoryDepression:
		return "depression"
	case CategoryStress:
		return "stress"
	case CategoryMotivation:
		return "motivation"
	case CategorySelfCare:
		return "self_care"
	default:
		return fmt.Sprintf("category(%d)", int(c))
	}
}

func ParseCategory(s string) (Category, error) {
	for _, c := range AllCategories {
		if c.String() == s {
			return c, nil
		}
	}
	return CategoryGeneral, fmt.Errorf("unknown category %q", s)
}

// MarshalText / UnmarshalText let categories travel as strings in YAML and JSON.
func (c Category) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Category) UnmarshalText(b []byte) error {
	v, err := ParseCategory(string(b))
	if err != nil {
		return err
	}
	*c = v
	return nil
}
