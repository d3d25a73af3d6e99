package dynamo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dmitrijs2005/lango/internal/server/store"
)

// TableWaitTimeout bounds how long EnsureTable waits for a new table.
var TableWaitTimeout = 2 * time.Minute

// EnsureTable creates the table and its username index when the table does
// not exist yet. It reports whether a table was created.
func (t *Table) EnsureTable(ctx context.Context, usernameIndex, usernameAttr string) (bool, error) {
	describe := &dynamodb.DescribeTableInput{TableName: aws.String(t.name)}

	_, err := t.api.DescribeTable(ctx, describe)
	if err == nil {
		return false, nil
	}
	var notFound *types.ResourceNotFoundException
	if !errors.As(err, &notFound) {
		return false, fmt.Errorf("describe table: %w", err)
	}

	_, err = t.api.CreateTable(ctx, &dynamodb.CreateTableInput{
		TableName:   aws.String(t.name),
		BillingMode: types.BillingModePayPerRequest,
		AttributeDefinitions: []types.AttributeDefinition{
			{AttributeName: aws.String(store.AttrPK), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(store.AttrSK), AttributeType: types.ScalarAttributeTypeS},
			{AttributeName: aws.String(usernameAttr), AttributeType: types.ScalarAttributeTypeS},
		},
		KeySchema: []types.KeySchemaElement{
			{AttributeName: aws.String(store.AttrPK), KeyType: types.KeyTypeHash},
			{AttributeName: aws.String(store.AttrSK), KeyType: types.KeyTypeRange},
		},
		GlobalSecondaryIndexes: []types.GlobalSecondaryIndex{
			{
				IndexName: aws.String(usernameIndex),
				KeySchema: []types.KeySchemaElement{
					{AttributeName: aws.String(usernameAttr), KeyType: types.KeyTypeHash},
					{AttributeName: aws.String(store.AttrSK), KeyType: types.KeyTypeRange},
				},
				Projection: &types.Projection{ProjectionType: types.ProjectionTypeAll},
			},
		},
	})
	if err != nil {
		var inUse *types.ResourceInUseException
		if errors.As(err, &inUse) {
			return false, nil
		}
		return false, fmt.Errorf("create table: %w", err)
	}

	waiter := dynamodb.NewTableExistsWaiter(t.api)
	if err := waiter.Wait(ctx, describe, TableWaitTimeout); err != nil {
		return true, fmt.Errorf("wait for table: %w", err)
	}
	return true, nil
}
