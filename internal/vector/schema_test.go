package vector

import (
	"context"
	"errors"
	"testing"

	"github.com/weaviate/weaviate/entities/models"
)

type MockSchemaClient struct {
	CreatedClass    *models.Class
	ExistingClass   *models.Class
	AddedProperties []*models.Property
	ExistsErr       error
}

func (m *MockSchemaClient) ClassExists(ctx context.Context, className string) (bool, error) {
	if m.ExistsErr != nil {
		return false, m.ExistsErr
	}
	if m.ExistingClass != nil {
		return true, nil
	}
	return false, nil
}

func (m *MockSchemaClient) CreateClass(ctx context.Context, class *models.Class) error {
	m.CreatedClass = class
	return nil
}

func (m *MockSchemaClient) GetClass(ctx context.Context, className string) (*models.Class, error) {
	return m.ExistingClass, nil
}

func (m *MockSchemaClient) AddProperty(ctx context.Context, className string, property *models.Property) error {
	m.AddedProperties = append(m.AddedProperties, property)
	return nil
}

func TestEnsureSchema_CreatesClass(t *testing.T) {
	client := &MockSchemaClient{}
	if err := EnsureSchema(context.Background(), client); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	if client.CreatedClass == nil {
		t.Fatal("Class not created")
	}
	if client.CreatedClass.Class != ClassKnowledgeChunk {
		t.Errorf("unexpected class name %q", client.CreatedClass.Class)
	}
	if client.CreatedClass.Vectorizer != "none" {
		t.Errorf("vectors are supplied by the pipeline, got vectorizer %q", client.CreatedClass.Vectorizer)
	}

	expectedProps := map[string]string{
		"toolId":       "text",
		"contentHash":  "text",
		"chunkIndex":   "int",
		"qualityScore": "number",
		"isActive":     "boolean",
		"createdAt":    "date",
	}

	found := 0
	for _, prop := range client.CreatedClass.Properties {
		if expectedType, ok := expectedProps[prop.Name]; ok {
			found++
			if len(prop.DataType) == 0 || prop.DataType[0] != expectedType {
				t.Errorf("Property %s has wrong DataType: %v (expected %s)", prop.Name, prop.DataType, expectedType)
			}
		}
	}
	if found != len(expectedProps) {
		t.Errorf("expected %d typed properties, found %d", len(expectedProps), found)
	}
}

func TestEnsureSchema_FilterKeysUseFieldTokenization(t *testing.T) {
	for _, p := range KnowledgeChunkProperties() {
		switch p.Name {
		case "toolId", "sourcePath", "contentHash":
			if p.Tokenization != "field" {
				t.Errorf("Property %s must use field tokenization, got %q", p.Name, p.Tokenization)
			}
		}
	}
}

func TestEnsureSchema_AddsMissingProperties(t *testing.T) {
	existingClass := &models.Class{
		Class: ClassKnowledgeChunk,
		Properties: []*models.Property{
			{Name: "toolId", DataType: []string{"text"}},
			{Name: "content", DataType: []string{"text"}},
		},
	}

	client := &MockSchemaClient{
		ExistingClass: existingClass,
	}

	if err := EnsureSchema(context.Background(), client); err != nil {
		t.Fatalf("EnsureSchema failed: %v", err)
	}

	if client.CreatedClass != nil {
		t.Fatal("Should not recreate class if it exists")
	}

	addedNames := make(map[string]bool)
	for _, p := range client.AddedProperties {
		addedNames[p.Name] = true
	}

	if !addedNames["contentHash"] {
		t.Error("Missing 'contentHash' property")
	}
	if !addedNames["sourceMetadata"] {
		t.Error("Missing 'sourceMetadata' property")
	}
	if addedNames["content"] || addedNames["toolId"] {
		t.Error("Should not re-add existing properties")
	}
	if len(client.AddedProperties) != len(KnowledgeChunkProperties())-2 {
		t.Errorf("expected %d added properties, got %d", len(KnowledgeChunkProperties())-2, len(client.AddedProperties))
	}
}

func TestEnsureSchema_ExistsError(t *testing.T) {
	client := &MockSchemaClient{ExistsErr: errors.New("connection refused")}
	if err := EnsureSchema(context.Background(), client); err == nil {
		t.Fatal("expected error")
	}
}
