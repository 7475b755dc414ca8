package vector

import (
	"context"

	"github.com/weaviate/weaviate/entities/models"
)

// ClassKnowledgeChunk holds one object per stored chunk when the Weaviate
// backend is selected.
const ClassKnowledgeChunk = "KnowledgeChunk"

// SchemaClient defines the interface for Weaviate schema operations
type SchemaClient interface {
	ClassExists(ctx context.Context, className string) (bool, error)
	CreateClass(ctx context.Context, class *models.Class) error
	GetClass(ctx context.Context, className string) (*models.Class, error)
	AddProperty(ctx context.Context, className string, property *models.Property) error
}

func exact(name string) *models.Property {
	return &models.Property{Name: name, DataType: []string{"text"}, Tokenization: "field"}
}

// KnowledgeChunkProperties lists the properties the chunk store writes.
// Filterable keys use field tokenization so equality matches the whole value.
func KnowledgeChunkProperties() []*models.Property {
	return []*models.Property{
		exact("toolId"),
		{Name: "content", DataType: []string{"text"}},
		{Name: "chunkIndex", DataType: []string{"int"}},
		exact("sourcePath"),
		exact("sourceType"),
		{Name: "sourceTitle", DataType: []string{"text"}},
		exact("contentHash"),
		{Name: "qualityScore", DataType: []string{"number"}},
		{Name: "sourceMetadata", DataType: []string{"text"}},
		exact("processingVersion"),
		{Name: "isActive", DataType: []string{"boolean"}},
		{Name: "createdAt", DataType: []string{"date"}},
	}
}

// EnsureSchema creates the chunk class, or adds properties missing from an
// older version of it.
func EnsureSchema(ctx context.Context, client SchemaClient) error {
	className := ClassKnowledgeChunk
	exists, err := client.ClassExists(ctx, className)
	if err != nil {
		return err
	}

	properties := KnowledgeChunkProperties()

	if !exists {
		class := &models.Class{
			Class:       className,
			Description: "An embedded chunk of a tool's knowledge base",
			Vectorizer:  "none",
			Properties:  properties,
		}
		return client.CreateClass(ctx, class)
	}

	class, err := client.GetClass(ctx, className)
	if err != nil {
		return err
	}

	existingProps := make(map[string]bool)
	for _, p := range class.Properties {
		existingProps[p.Name] = true
	}

	for _, p := range properties {
		if !existingProps[p.Name] {
			if err := client.AddProperty(ctx, className, p); err != nil {
				return err
			}
		}
	}

	return nil
}
