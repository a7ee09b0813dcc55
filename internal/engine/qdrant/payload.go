package qdrant

import (
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"
)

func toPayload(attrs map[string]any) (map[string]*pb.Value, error) {
	if len(attrs) == 0 {
		return nil, nil
	}
	out := make(map[string]*pb.Value, len(attrs))
	for k, v := range attrs {
		pv, err := toValue(v)
		if err != nil {
			return nil, fmt.Errorf("attribute %q: %w", k, err)
		}
		out[k] = pv
	}
	return out, nil
}

func toValue(v any) (*pb.Value, error) {
	switch x := v.(type) {
	case nil:
		return &pb.Value{Kind: &pb.Value_NullValue{}}, nil
	case string:
		return &pb.Value{Kind: &pb.Value_StringValue{StringValue: x}}, nil
	case bool:
		return &pb.Value{Kind: &pb.Value_BoolValue{BoolValue: x}}, nil
	case int:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(x)}}, nil
	case int32:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: int64(x)}}, nil
	case int64:
		return &pb.Value{Kind: &pb.Value_IntegerValue{IntegerValue: x}}, nil
	case float32:
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: float64(x)}}, nil
	case float64:
		return &pb.Value{Kind: &pb.Value_DoubleValue{DoubleValue: x}}, nil
	case []any:
		list := &pb.ListValue{Values: make([]*pb.Value, len(x))}
		for i, item := range x {
			pv, err := toValue(item)
			if err != nil {
				return nil, err
			}
			list.Values[i] = pv
		}
		return &pb.Value{Kind: &pb.Value_ListValue{ListValue: list}}, nil
	case map[string]any:
		fields, err := toPayload(x)
		if err != nil {
			return nil, err
		}
		return &pb.Value{Kind: &pb.Value_StructValue{StructValue: &pb.Struct{Fields: fields}}}, nil
	default:
		return nil, fmt.Errorf("unsupported type %T", v)
	}
}
