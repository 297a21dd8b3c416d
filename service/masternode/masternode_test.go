package masternode

import (
	"context"
	"errors"
	"log/slog"
	"testing"
)

func TestRegister(t *testing.T) {
	svc := New(slog.Default(), Config{AllowedKeys: []string{"key-a", "key-b"}})
	ctx := context.Background()

	tests := []struct {
		name    string
		key     string
		ip      string
		wantErr error
	}{
		{name: "allowed key", key: "key-a", ip: "203.0.113.7"},
		{name: "second key", key: "key-b", ip: "2001:db8::1"},
		{name: "unknown key", key: "key-c", ip: "203.0.113.7", wantErr: ErrInvalidKey},
		{name: "bad ip", key: "key-a", ip: "not-an-ip", wantErr: ErrInvalidIP},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			k, err := svc.Register(ctx, tt.key, tt.ip)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Register() error = %v, want %v", err, tt.wantErr)
			}
			if tt.wantErr == nil && (k == nil || k.Key != tt.key) {
				t.Errorf("Register() = %+v", k)
			}
		})
	}

	if got := svc.Keys(ctx); len(got) != 2 {
		t.Errorf("registered %d keys, want 2", len(got))
	}
}

func TestRegisterIdempotent(t *testing.T) {
	svc := New(slog.Default(), Config{AllowedKeys: []string{"key-a"}})
	ctx := context.Background()

	first, err := svc.Register(ctx, "key-a", "203.0.113.7")
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	again, err := svc.Register(ctx, "key-a", "203.0.113.8")
	if err != nil {
		t.Fatalf("Register() failed: %v", err)
	}

	if again != first {
		t.Error("duplicate registration created a second entry")
	}
	if got := svc.Keys(ctx); len(got) != 1 {
		t.Errorf("registered %d keys, want 1", len(got))
	}
}
