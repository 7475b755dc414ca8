package vector

import (
	"context"

	"github.com/weaviate/weaviate-go-client/v5/weaviate"
	"github.com/weaviate/weaviate/entities/models"
)

// SchemaFor exposes the schema endpoints of a Weaviate client as a SchemaClient.
func SchemaFor(client *weaviate.Client) SchemaClient {
	return clientSchema{c: client}
}

type clientSchema struct {
	c *weaviate.Client
}

func (s clientSchema) ClassExists(ctx context.Context, class string) (bool, error) {
	return s.c.Schema().ClassExistenceChecker().WithClassName(class).Do(ctx)
}

func (s clientSchema) CreateClass(ctx context.Context, class *models.Class) error {
	return s.c.Schema().ClassCreator().WithClass(class).Do(ctx)
}

func (s clientSchema) GetClass(ctx context.Context, class string) (*models.Class, error) {
	return s.c.Schema().ClassGetter().WithClassName(class).Do(ctx)
}

func (s clientSchema) AddProperty(ctx context.Context, class string, prop *models.Property) error {
	return s.c.Schema().PropertyCreator().WithClassName(class).WithProperty(prop).Do(ctx)
}
