package dynamo

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dmitrijs2005/lango/internal/common"
	"github.com/dmitrijs2005/lango/internal/server/store"
)

const (
	condNotExists = "attribute_not_exists(PK)"
	condExists    = "attribute_exists(PK)"
)

// Table is a store.Table backed by one DynamoDB table.
type Table struct {
	api  API
	name string
}

// NewTable binds the table name to a client.
func NewTable(api API, name string) *Table {
	return &Table{api: api, name: name}
}

var _ store.Table = (*Table)(nil)

func (t *Table) Get(ctx context.Context, key store.Key) (store.Item, error) {
	out, err := t.api.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(t.name),
		Key:            encodeKey(key),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return store.Item{}, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return store.Item{}, common.ErrorNotFound
	}
	return decodeItem(out.Item)
}

func (t *Table) Put(ctx context.Context, item store.Item) error {
	return t.put(ctx, item, "")
}

func (t *Table) Create(ctx context.Context, item store.Item) error {
	return t.put(ctx, item, condNotExists)
}

func (t *Table) put(ctx context.Context, item store.Item, cond string) error {
	av, err := encodeItem(item)
	if err != nil {
		return err
	}
	in := &dynamodb.PutItemInput{TableName: aws.String(t.name), Item: av}
	if cond != "" {
		in.ConditionExpression = aws.String(cond)
	}
	if _, err := t.api.PutItem(ctx, in); err != nil {
		if isConditionFailed(err) {
			return common.ErrorAlreadyExists
		}
		return fmt.Errorf("put item: %w", err)
	}
	return nil
}

func (t *Table) Update(ctx context.Context, key store.Key, attrs map[string]any) (store.Item, error) {
	expr, names, values, err := updateExpression(attrs)
	if err != nil {
		return store.Item{}, err
	}

	out, err := t.api.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(t.name),
		Key:                       encodeKey(key),
		UpdateExpression:          aws.String(expr),
		ConditionExpression:       aws.String(condExists),
		ExpressionAttributeNames:  names,
		ExpressionAttributeValues: values,
		ReturnValues:              types.ReturnValueAllNew,
	})
	if err != nil {
		if isConditionFailed(err) {
			return store.Item{}, common.ErrorNotFound
		}
		return store.Item{}, fmt.Errorf("update item: %w", err)
	}
	return decodeItem(out.Attributes)
}

func (t *Table) Delete(ctx context.Context, key store.Key) error {
	_, err := t.api.DeleteItem(ctx, &dynamodb.DeleteItemInput{
		TableName:           aws.String(t.name),
		Key:                 encodeKey(key),
		ConditionExpression: aws.String(condExists),
	})
	if err != nil {
		if isConditionFailed(err) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("delete item: %w", err)
	}
	return nil
}

// Query follows LastEvaluatedKey until the partition range is exhausted.
func (t *Table) Query(ctx context.Context, pk, skPrefix string) ([]store.Item, error) {
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(t.name),
		KeyConditionExpression:    aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: pk},
		},
		ConsistentRead: aws.Bool(true),
	}
	if skPrefix != "" {
		in.KeyConditionExpression = aws.String("PK = :pk AND begins_with(SK, :sk)")
		in.ExpressionAttributeValues[":sk"] = &types.AttributeValueMemberS{Value: skPrefix}
	}
	return t.collect(ctx, in)
}

func (t *Table) QueryIndex(ctx context.Context, q store.IndexQuery) ([]store.Item, error) {
	in := &dynamodb.QueryInput{
		TableName:                 aws.String(t.name),
		IndexName:                 aws.String(q.Index),
		KeyConditionExpression:    aws.String("#attr = :v"),
		ExpressionAttributeNames:  map[string]string{"#attr": q.Attr},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":v": &types.AttributeValueMemberS{Value: q.Value},
		},
	}
	if q.SK != "" {
		in.KeyConditionExpression = aws.String("#attr = :v AND SK = :sk")
		in.ExpressionAttributeValues[":sk"] = &types.AttributeValueMemberS{Value: q.SK}
	}
	return t.collect(ctx, in)
}

func (t *Table) collect(ctx context.Context, in *dynamodb.QueryInput) ([]store.Item, error) {
	var out []store.Item
	p := dynamodb.NewQueryPaginator(t.api, in)
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("query: %w", err)
		}
		items, err := decodeItems(page.Items)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

func (t *Table) Transact(ctx context.Context, ops ...store.Op) error {
	if len(ops) == 0 {
		return nil
	}

	items := make([]types.TransactWriteItem, 0, len(ops))
	for _, op := range ops {
		twi, err := t.transactItem(op)
		if err != nil {
			return err
		}
		items = append(items, twi)
	}

	_, err := t.api.TransactWriteItems(ctx, &dynamodb.TransactWriteItemsInput{TransactItems: items})
	if err == nil {
		return nil
	}

	var canceled *types.TransactionCanceledException
	if errors.As(err, &canceled) {
		for i, reason := range canceled.CancellationReasons {
			if i >= len(ops) || aws.ToString(reason.Code) != "ConditionalCheckFailed" {
				continue
			}
			if ops[i].Kind == store.OpCreate {
				return common.ErrorAlreadyExists
			}
			return common.ErrorNotFound
		}
	}
	return fmt.Errorf("transact write: %w", err)
}

func (t *Table) transactItem(op store.Op) (types.TransactWriteItem, error) {
	switch op.Kind {
	case store.OpPut, store.OpCreate:
		av, err := encodeItem(op.Item)
		if err != nil {
			return types.TransactWriteItem{}, err
		}
		put := &types.Put{TableName: aws.String(t.name), Item: av}
		if op.Kind == store.OpCreate {
			put.ConditionExpression = aws.String(condNotExists)
		}
		return types.TransactWriteItem{Put: put}, nil
	case store.OpUpdate:
		expr, names, values, err := updateExpression(op.Attrs)
		if err != nil {
			return types.TransactWriteItem{}, err
		}
		return types.TransactWriteItem{Update: &types.Update{
			TableName:                 aws.String(t.name),
			Key:                       encodeKey(op.Key),
			UpdateExpression:          aws.String(expr),
			ConditionExpression:       aws.String(condExists),
			ExpressionAttributeNames:  names,
			ExpressionAttributeValues: values,
		}}, nil
	case store.OpDelete:
		return types.TransactWriteItem{Delete: &types.Delete{
			TableName:           aws.String(t.name),
			Key:                 encodeKey(op.Key),
			ConditionExpression: aws.String(condExists),
		}}, nil
	}
	return types.TransactWriteItem{}, fmt.Errorf("unsupported op %v", op.Kind)
}

// DeleteBatch sends keys in chunks of store.MaxBatch.
func (t *Table) DeleteBatch(ctx context.Context, keys []store.Key) ([]store.Key, error) {
	var unprocessed []store.Key
	for start := 0; start < len(keys); start += store.MaxBatch {
		end := min(start+store.MaxBatch, len(keys))

		reqs := make([]types.WriteRequest, 0, end-start)
		for _, k := range keys[start:end] {
			reqs = append(reqs, types.WriteRequest{DeleteRequest: &types.DeleteRequest{Key: encodeKey(k)}})
		}

		out, err := t.api.BatchWriteItem(ctx, &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{t.name: reqs},
		})
		if err != nil {
			return nil, fmt.Errorf("batch write: %w", err)
		}
		for _, wr := range out.UnprocessedItems[t.name] {
			if wr.DeleteRequest == nil {
				continue
			}
			k, err := decodeKey(wr.DeleteRequest.Key)
			if err != nil {
				return nil, err
			}
			unprocessed = append(unprocessed, k)
		}
	}
	return unprocessed, nil
}

// updateExpression renders "SET #a0 = :v0, ..." with attribute names sorted.
func updateExpression(attrs map[string]any) (string, map[string]string, map[string]types.AttributeValue, error) {
	if len(attrs) == 0 {
		return "", nil, nil, errors.New("update without attributes")
	}

	names := make([]string, 0, len(attrs))
	for k := range attrs {
		names = append(names, k)
	}
	sort.Strings(names)

	values, err := encodeItem(store.Item{Attrs: attrs})
	if err != nil {
		return "", nil, nil, err
	}

	exprNames := make(map[string]string, len(names))
	exprValues := make(map[string]types.AttributeValue, len(names))
	expr := "SET "
	for i, name := range names {
		n, v := fmt.Sprintf("#a%d", i), fmt.Sprintf(":v%d", i)
		if i > 0 {
			expr += ", "
		}
		expr += n + " = " + v
		exprNames[n] = name
		exprValues[v] = values[name]
	}
	return expr, exprNames, exprValues, nil
}

func isConditionFailed(err error) bool {
	var ccf *types.ConditionalCheckFailedException
	return errors.As(err, &ccf)
}
