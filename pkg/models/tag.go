package models

// TagCategory partitions tags; the same name may exist once per category.
type TagCategory string

// Tag categories.
const (
	TagCategoryITSystem TagCategory = "it_system"
	TagCategoryDataType TagCategory = "data_type"
	TagCategoryTag      TagCategory = "tag"
)

// TagCategories lists the categories in display order.
var TagCategories = []TagCategory{TagCategoryITSystem, TagCategoryDataType, TagCategoryTag}

// IsValid reports whether c is a known category.
func (c TagCategory) IsValid() bool {
	switch c {
	case TagCategoryITSystem, TagCategoryDataType, TagCategoryTag:
		return true
	}
	return false
}

// ImportKey is the JSON key carrying the comma-separated tags of this category on import.
func (c TagCategory) ImportKey() string {
	switch c {
	case TagCategoryITSystem:
		return "it_systems"
	case TagCategoryDataType:
		return "data_types"
	default:
		return "tags"
	}
}

// Tag is identified by (Name, Category).
type Tag struct {
	ID       int64       `json:"id"`
	Name     string      `json:"name"`
	Category TagCategory `json:"category"`
}
