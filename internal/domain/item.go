package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Item categories offered by the listing form.
const (
	CategoryElectronics = "Electronics"
	CategoryFurniture   = "Furniture"
	CategoryClothing    = "Clothing"
	CategoryBooks       = "Books"
	CategoryScrapMetal  = "Scrap Metal"
	CategoryOther       = "Other"
)

// Item conditions.
const (
	ConditionNew         = "New"
	ConditionUsedLikeNew = "Used - Like New"
	ConditionUsedGood    = "Used - Good"
	ConditionUsedFair    = "Used - Fair"
)

// Item types: Item is for trade or giveaway, Scrap is for recycling.
const (
	TypeItem  = "Item"
	TypeScrap = "Scrap"
)

const StatusAvailable = "Available"

var (
	Categories = []string{CategoryElectronics, CategoryFurniture, CategoryClothing, CategoryBooks, CategoryScrapMetal, CategoryOther}
	Conditions = []string{ConditionNew, ConditionUsedLikeNew, ConditionUsedGood, ConditionUsedFair}
	ItemTypes  = []string{TypeItem, TypeScrap}
)

// Item is a listed reusable or recyclable object. It always has exactly one
// owner and at least one image.
type Item struct {
	ID          string    `json:"id" bson:"_id"`
	Owner       string    `json:"user" bson:"user"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	Category    string    `json:"category" bson:"category"`
	Condition   string    `json:"condition" bson:"condition"`
	ItemType    string    `json:"itemType" bson:"itemType"`
	Status      string    `json:"status" bson:"status"`
	Images      []string  `json:"images" bson:"images"`
	CreatedAt   time.Time `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" bson:"updatedAt"`
}

// NewItem creates a new item owned by owner
func NewItem(owner, title, description, category, condition, itemType string, images []string) *Item {
	if itemType == "" {
		itemType = TypeItem
	}
	now := time.Now().UTC()
	return &Item{
		ID:          uuid.New().String(),
		Owner:       owner,
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(description),
		Category:    category,
		Condition:   condition,
		ItemType:    itemType,
		Status:      StatusAvailable,
		Images:      cleanImages(images),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// IsOwnedBy reports whether userID owns the item
func (i *Item) IsOwnedBy(userID string) bool {
	return userID != "" && i.Owner == userID
}

// Validate checks required fields and enumerations.
func (i *Item) Validate() error {
	switch {
	case i.Owner == "":
		return &ValidationError{Field: "user", Message: "owner is required"}
	case i.Title == "":
		return &ValidationError{Field: "title", Message: "title is required"}
	case i.Description == "":
		return &ValidationError{Field: "description", Message: "description is required"}
	case i.Category == "":
		return &ValidationError{Field: "category", Message: "category is required"}
	case !contains(Categories, i.Category):
		return &ValidationError{Field: "category", Message: "unknown category"}
	case i.Condition == "":
		return &ValidationError{Field: "condition", Message: "condition is required"}
	case !contains(Conditions, i.Condition):
		return &ValidationError{Field: "condition", Message: "unknown condition"}
	case !contains(ItemTypes, i.ItemType):
		return &ValidationError{Field: "itemType", Message: "unknown item type"}
	case len(i.Images) == 0:
		return ErrImagesRequired
	}
	return nil
}

// ItemChanges carries the fields of a partial update. A nil field, or an
// empty string, leaves the stored value unchanged.
type ItemChanges struct {
	Title       *string
	Description *string
	Category    *string
	Condition   *string
	ItemType    *string
	Status      *string
	Images      *[]string
}

// Apply merges changes into a copy of the item and validates the result. The
// receiver is left untouched when validation fails.
func (i *Item) Apply(changes ItemChanges) (*Item, error) {
	updated := *i
	updated.Images = append([]string(nil), i.Images...)

	setString(&updated.Title, changes.Title)
	setString(&updated.Description, changes.Description)
	setString(&updated.Category, changes.Category)
	setString(&updated.Condition, changes.Condition)
	setString(&updated.ItemType, changes.ItemType)
	setString(&updated.Status, changes.Status)
	if changes.Images != nil {
		images := cleanImages(*changes.Images)
		if len(images) == 0 {
			return nil, ErrImagesRequired
		}
		updated.Images = images
	}

	if err := updated.Validate(); err != nil {
		return nil, err
	}
	updated.UpdatedAt = time.Now().UTC()
	return &updated, nil
}

func setString(dst *string, src *string) {
	if src == nil {
		return
	}
	if v := strings.TrimSpace(*src); v != "" {
		*dst = v
	}
}

func cleanImages(images []string) []string {
	cleaned := make([]string, 0, len(images))
	for _, image := range images {
		if image = strings.TrimSpace(image); image != "" {
			cleaned = append(cleaned, image)
		}
	}
	return cleaned
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}
