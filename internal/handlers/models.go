package handlers

import (
	"recircle-service/internal/commands"
)

// MessageResponse represents a success response with a message
// @Description Success response with message
type MessageResponse struct {
	Message string `json:"message" example:"item removed"`
}

// CreateItemRequest represents the request body for listing an item
// @Description Request to list a new item
type CreateItemRequest struct {
	Title       string `json:"title" binding:"required" example:"Oak desk"`
	Description string `json:"description" binding:"required" example:"Solid oak desk, minor scratches"`
	// One of Electronics, Furniture, Clothing, Books, Scrap Metal, Other
	Category string `json:"category" binding:"required" example:"Furniture"`
	// One of New, Used - Like New, Used - Good, Used - Fair
	Condition string `json:"condition" binding:"required" example:"Used - Good"`
	// Item (default) or Scrap
	ItemType string `json:"itemType" example:"Item"`
	// Image URLs, at least one
	Images []string `json:"images" binding:"required" example:"https://example.org/desk.jpg"`
}

// ToCommand converts the request into a create command
func (r CreateItemRequest) ToCommand() commands.CreateItemCommand {
	return commands.CreateItemCommand{
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Condition:   r.Condition,
		ItemType:    r.ItemType,
		Images:      r.Images,
	}
}

// UpdateItemRequest represents a partial update. Omitted or empty fields
// are left unchanged; images, when present, must not be empty.
// @Description Request to update an item
type UpdateItemRequest struct {
	Title       *string   `json:"title,omitempty" example:"Standing desk"`
	Description *string   `json:"description,omitempty"`
	Category    *string   `json:"category,omitempty" example:"Furniture"`
	Condition   *string   `json:"condition,omitempty" example:"Used - Like New"`
	ItemType    *string   `json:"itemType,omitempty" example:"Item"`
	Status      *string   `json:"status,omitempty" example:"Reserved"`
	Images      *[]string `json:"images,omitempty"`
}

// ToCommand converts the request into an update command for item id
func (r UpdateItemRequest) ToCommand(id string) commands.UpdateItemCommand {
	return commands.UpdateItemCommand{
		ID:          id,
		Title:       r.Title,
		Description: r.Description,
		Category:    r.Category,
		Condition:   r.Condition,
		ItemType:    r.ItemType,
		Status:      r.Status,
		Images:      r.Images,
	}
}

// NGO is a partner organisation listed in the directory
type NGO struct {
	ID          int    `json:"id" example:"1"`
	Name        string `json:"name" example:"Green Earth Foundation"`
	Description string `json:"description"`
	Image       string `json:"image"`
	Website     string `json:"website" example:"https://example.org/green-earth"`
}

// HealthResponse reports the state of the service and its dependencies
type HealthResponse struct {
	Status    string       `json:"status" example:"ok"`
	Service   string       `json:"service" example:"recircle-service"`
	Store     string       `json:"store" example:"up"`
	Cache     *CacheHealth `json:"cache,omitempty"`
	Timestamp string       `json:"timestamp" example:"2024-01-15T12:00:00Z"`
}

// CacheHealth carries counters of the in-process cache
type CacheHealth struct {
	Entries       int    `json:"entries"`
	Hits          uint64 `json:"hits"`
	Misses        uint64 `json:"misses"`
	Expirations   uint64 `json:"expirations"`
	Invalidations uint64 `json:"invalidations"`
}
