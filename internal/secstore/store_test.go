package secstore

import (
	"context"
	"errors"
	"testing"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()

	if _, err := store.Load(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.Save(ctx, "k", []byte("value")); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load(ctx, "k")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != "value" {
		t.Fatalf("expected value, got %q", got)
	}

	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load(ctx, "k"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	// deleting an absent key is not an error
	if err := store.Delete(ctx, "k"); err != nil {
		t.Fatalf("double delete: %v", err)
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	defer mr.Close()

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	store := NewRedis(client)
	ctx := context.Background()

	if err := store.Save(ctx, "descriptor", []byte("nostr+walletconnect://abc")); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, err := store.Load(ctx, "descriptor")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != "nostr+walletconnect://abc" {
		t.Fatalf("unexpected value %q", got)
	}

	if err := store.Delete(ctx, "descriptor"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.Load(ctx, "descriptor"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestEncryptedStoreRoundTrip(t *testing.T) {
	store, err := NewEncrypted(NewMemory(), "correct horse battery staple")
	if err != nil {
		t.Fatalf("new encrypted: %v", err)
	}
	ctx := context.Background()

	plaintext := []byte(`[{"id":"sub_1","name":"groceries"}]`)
	if err := store.Save(ctx, "sub_wallets_abc", plaintext); err != nil {
		t.Fatalf("save: %v", err)
	}

	got, err := store.Load(ctx, "sub_wallets_abc")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(got) != string(plaintext) {
		t.Fatalf("roundtrip mismatch: %q", got)
	}
}

func TestEncryptedStoreWrongPassphrase(t *testing.T) {
	inner := NewMemory()
	ctx := context.Background()

	store, err := NewEncrypted(inner, "original")
	if err != nil {
		t.Fatalf("new encrypted: %v", err)
	}
	if err := store.Save(ctx, "k", []byte("secret")); err != nil {
		t.Fatalf("save: %v", err)
	}

	wrong, err := NewEncrypted(inner, "imposter")
	if err != nil {
		t.Fatalf("new encrypted: %v", err)
	}
	if _, err := wrong.Load(ctx, "k"); err == nil {
		t.Fatal("expected decryption failure with wrong passphrase")
	}
}

func TestEncryptedStoreRequiresPassphrase(t *testing.T) {
	if _, err := NewEncrypted(NewMemory(), ""); err == nil {
		t.Fatal("expected error for empty passphrase")
	}
}
