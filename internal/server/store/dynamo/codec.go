package dynamo

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/dmitrijs2005/lango/internal/server/store"
)

var decoder = attributevalue.NewDecoder(func(o *attributevalue.DecoderOptions) {
	o.UseNumber = true
})

func encodeKey(k store.Key) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{
		store.AttrPK: &types.AttributeValueMemberS{Value: k.PK},
		store.AttrSK: &types.AttributeValueMemberS{Value: k.SK},
	}
}

func decodeKey(av map[string]types.AttributeValue) (store.Key, error) {
	pk, ok := av[store.AttrPK].(*types.AttributeValueMemberS)
	if !ok {
		return store.Key{}, fmt.Errorf("item without %s", store.AttrPK)
	}
	sk, ok := av[store.AttrSK].(*types.AttributeValueMemberS)
	if !ok {
		return store.Key{}, fmt.Errorf("item without %s", store.AttrSK)
	}
	return store.Key{PK: pk.Value, SK: sk.Value}, nil
}

func encodeItem(it store.Item) (map[string]types.AttributeValue, error) {
	av, err := attributevalue.MarshalMap(it.Attrs)
	if err != nil {
		return nil, fmt.Errorf("marshal attributes: %w", err)
	}
	if av == nil {
		av = make(map[string]types.AttributeValue, 2)
	}
	for k, v := range encodeKey(it.Key) {
		av[k] = v
	}
	return av, nil
}

func decodeItem(av map[string]types.AttributeValue) (store.Item, error) {
	key, err := decodeKey(av)
	if err != nil {
		return store.Item{}, err
	}

	rest := make(map[string]types.AttributeValue, len(av))
	for k, v := range av {
		if k != store.AttrPK && k != store.AttrSK {
			rest[k] = v
		}
	}

	var attrs map[string]any
	if err := decoder.Decode(&types.AttributeValueMemberM{Value: rest}, &attrs); err != nil {
		return store.Item{}, fmt.Errorf("unmarshal attributes: %w", err)
	}
	if attrs == nil {
		attrs = map[string]any{}
	}
	for k, v := range attrs {
		if n, ok := v.(attributevalue.Number); ok {
			i, err := n.Int64()
			if err != nil {
				return store.Item{}, fmt.Errorf("attribute %s: %w", k, err)
			}
			attrs[k] = i
		}
	}
	return store.Item{Key: key, Attrs: attrs}, nil
}

func decodeItems(avs []map[string]types.AttributeValue) ([]store.Item, error) {
	out := make([]store.Item, 0, len(avs))
	for _, av := range avs {
		it, err := decodeItem(av)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, nil
}
