package middleware

import (
	"context"
	"errors"
	"strings"
	"testing"
)

func TestRecover_PassesThroughSuccess(t *testing.T) {
	fn := Recover[string, int]()(func(ctx context.Context, in string) ([]int, error) {
		return []int{len(in)}, nil
	})

	result, err := fn(context.Background(), "a.txt")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 || result[0] != 5 {
		t.Fatalf("got %v, want [5]", result)
	}
}

func TestRecover_ConvertsPanicToRecoveryError(t *testing.T) {
	fn := Recover[string, int]()(func(ctx context.Context, in string) ([]int, error) {
		panic("stage blew up")
	})

	_, err := fn(context.Background(), "a.txt")
	if err == nil {
		t.Fatal("expected an error")
	}

	var recoveryErr *RecoveryError
	if !errors.As(err, &recoveryErr) {
		t.Fatalf("got %T, want *RecoveryError", err)
	}
	if recoveryErr.PanicValue != "stage blew up" {
		t.Errorf("PanicValue = %v", recoveryErr.PanicValue)
	}
	if !strings.Contains(recoveryErr.StackTrace, "runtime/debug.Stack") {
		t.Error("stack trace should be captured at the recovery point")
	}
}
