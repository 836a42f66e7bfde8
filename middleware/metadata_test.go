package middleware

import (
	"context"
	"reflect"
	"testing"
)

func TestMetadataProvider_AttachesToContext(t *testing.T) {
	provider := func(in string) Metadata {
		return Metadata{
			"file_or_pattern": in,
			"input_len":       len(in),
		}
	}

	var seen Metadata
	fn := MetadataProvider[string, string](provider)(
		func(ctx context.Context, in string) ([]string, error) {
			seen = MetadataFromContext(ctx)
			return []string{in}, nil
		},
	)

	results, err := fn(context.Background(), "*.txt")
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 || results[0] != "*.txt" {
		t.Fatalf("got %v", results)
	}

	want := Metadata{"file_or_pattern": "*.txt", "input_len": 5}
	if !reflect.DeepEqual(seen, want) {
		t.Errorf("metadata = %v, want %v", seen, want)
	}
}

func TestMetadataProvider_MergesOverExisting(t *testing.T) {
	outer := MetadataProvider[string, string](func(in string) Metadata {
		return Metadata{"stage": "outer", "kept": true}
	})
	inner := MetadataProvider[string, string](func(in string) Metadata {
		return Metadata{"stage": "inner"}
	})

	var seen Metadata
	fn := outer(inner(func(ctx context.Context, in string) ([]string, error) {
		seen = MetadataFromContext(ctx)
		return nil, nil
	}))

	if _, err := fn(context.Background(), "x"); err != nil {
		t.Fatal(err)
	}
	if seen["stage"] != "inner" || seen["kept"] != true {
		t.Errorf("metadata = %v, want inner keys merged over outer", seen)
	}
}

func TestMetadataArgs_FlattensToKeyValuePairs(t *testing.T) {
	metadata := Metadata{
		"string":  "value",
		"integer": 42,
		"boolean": true,
	}

	args := metadata.Args()
	if len(args) != 6 {
		t.Fatalf("got %d args, want 6", len(args))
	}

	pairs := make(map[string]any)
	for i := 0; i+1 < len(args); i += 2 {
		key, ok := args[i].(string)
		if !ok {
			t.Fatalf("arg %d is %T, want string key", i, args[i])
		}
		pairs[key] = args[i+1]
	}

	if pairs["string"] != "value" || pairs["integer"] != 42 || pairs["boolean"] != true {
		t.Errorf("pairs = %v", pairs)
	}
}

func TestMetadataFromContext_EmptyContext(t *testing.T) {
	if m := MetadataFromContext(context.TODO()); m != nil {
		t.Errorf("got %v, want nil", m)
	}
	if m := MetadataFromContext(context.Background()); m != nil {
		t.Errorf("got %v, want nil", m)
	}
}
