package commands

import (
	"recircle-service/internal/domain"
)

// CreateItemCommand represents a command to list a new item
type CreateItemCommand struct {
	Title       string
	Description string
	Category    string
	Condition   string
	ItemType    string
	Images      []string
}

// ToItem builds the domain item owned by owner
func (c CreateItemCommand) ToItem(owner string) *domain.Item {
	return domain.NewItem(owner, c.Title, c.Description, c.Category, c.Condition, c.ItemType, c.Images)
}

// UpdateItemCommand represents a partial update of an item. Nil fields are
// left unchanged.
type UpdateItemCommand struct {
	ID          string
	Title       *string
	Description *string
	Category    *string
	Condition   *string
	ItemType    *string
	Status      *string
	Images      *[]string
}

// Changes returns the domain view of the update
func (c UpdateItemCommand) Changes() domain.ItemChanges {
	return domain.ItemChanges{
		Title:       c.Title,
		Description: c.Description,
		Category:    c.Category,
		Condition:   c.Condition,
		ItemType:    c.ItemType,
		Status:      c.Status,
		Images:      c.Images,
	}
}

// DeleteItemCommand represents a command to delete an item
type DeleteItemCommand struct {
	ID string
}
