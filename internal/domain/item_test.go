package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestItem() *Item {
	return NewItem("user-1", " Old Desk ", "Solid oak", CategoryFurniture, ConditionUsedGood, "", []string{"desk.jpg"})
}

func strPtr(s string) *string { return &s }

func TestNewItem(t *testing.T) {
	item := newTestItem()

	_, err := uuid.Parse(item.ID)
	assert.NoError(t, err)
	assert.Equal(t, "user-1", item.Owner)
	assert.Equal(t, "Old Desk", item.Title)
	assert.Equal(t, TypeItem, item.ItemType)
	assert.Equal(t, StatusAvailable, item.Status)
	assert.Equal(t, []string{"desk.jpg"}, item.Images)
	assert.False(t, item.CreatedAt.IsZero())
	assert.Equal(t, item.CreatedAt, item.UpdatedAt)
	assert.NoError(t, item.Validate())
}

func TestIsOwnedBy(t *testing.T) {
	item := newTestItem()

	assert.True(t, item.IsOwnedBy("user-1"))
	assert.False(t, item.IsOwnedBy("user-2"))
	assert.False(t, item.IsOwnedBy(""))
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Item)
		field  string
	}{
		{"missing title", func(i *Item) { i.Title = "" }, "title"},
		{"missing description", func(i *Item) { i.Description = "" }, "description"},
		{"missing category", func(i *Item) { i.Category = "" }, "category"},
		{"unknown category", func(i *Item) { i.Category = "Toys" }, "category"},
		{"unknown condition", func(i *Item) { i.Condition = "Broken" }, "condition"},
		{"unknown type", func(i *Item) { i.ItemType = "Gift" }, "itemType"},
		{"no images", func(i *Item) { i.Images = nil }, "images"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := newTestItem()
			tt.mutate(item)

			err := item.Validate()

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestNewItem_DropsBlankImages(t *testing.T) {
	item := NewItem("user-1", "Lamp", "Desk lamp", CategoryElectronics, ConditionNew, TypeScrap, []string{" ", ""})

	assert.Empty(t, item.Images)
	assert.ErrorIs(t, item.Validate(), ErrImagesRequired)
	assert.Equal(t, TypeScrap, item.ItemType)
}

func TestApply_PartialUpdate(t *testing.T) {
	item := newTestItem()

	updated, err := item.Apply(ItemChanges{
		Title:  strPtr("New Desk"),
		Status: strPtr("Reserved"),
	})

	require.NoError(t, err)
	assert.Equal(t, "New Desk", updated.Title)
	assert.Equal(t, "Reserved", updated.Status)
	assert.Equal(t, item.Description, updated.Description)
	assert.Equal(t, item.ID, updated.ID)
	assert.Equal(t, item.CreatedAt, updated.CreatedAt)
	assert.False(t, updated.UpdatedAt.Before(item.UpdatedAt))
	assert.Equal(t, "Old Desk", item.Title)
}

func TestApply_EmptyStringKeepsValue(t *testing.T) {
	item := newTestItem()

	updated, err := item.Apply(ItemChanges{Title: strPtr("  "), Category: strPtr("")})

	require.NoError(t, err)
	assert.Equal(t, "Old Desk", updated.Title)
	assert.Equal(t, CategoryFurniture, updated.Category)
}

func TestApply_ReplacesImages(t *testing.T) {
	item := newTestItem()
	images := []string{"a.jpg", "b.jpg"}

	updated, err := item.Apply(ItemChanges{Images: &images})

	require.NoError(t, err)
	assert.Equal(t, images, updated.Images)
	assert.Equal(t, []string{"desk.jpg"}, item.Images)
}

func TestApply_EmptyImagesRejected(t *testing.T) {
	item := newTestItem()
	images := []string{}

	_, err := item.Apply(ItemChanges{Images: &images})

	assert.ErrorIs(t, err, ErrImagesRequired)
}

func TestApply_InvalidCategoryRejected(t *testing.T) {
	item := newTestItem()

	_, err := item.Apply(ItemChanges{Category: strPtr("Toys")})

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "category", verr.Field)
	assert.Equal(t, CategoryFurniture, item.Category)
}

func TestNewUser_NormalizesEmail(t *testing.T) {
	user := NewUser(" Ada ", " Ada@Example.COM ", "hash")

	assert.Equal(t, "Ada", user.Name)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.Equal(t, RoleUser, user.Role)
	assert.NotEmpty(t, user.ID)
}
