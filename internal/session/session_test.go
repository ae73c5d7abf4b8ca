package session

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/brickvest/coinvest_layer/internal/app/storage/memory"
)

func TestUpdateKeepsRefreshTokenWhenEmpty(t *testing.T) {
	sess := New(nil, nil)
	ctx := context.Background()

	if err := sess.Update(ctx, "access-1", "refresh-1"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	// Reissue responses often omit the refresh header.
	if err := sess.Update(ctx, "access-2", ""); err != nil {
		t.Fatalf("Update: %v", err)
	}

	tokens := sess.Tokens()
	if tokens.Access != "access-2" {
		t.Fatalf("access = %q", tokens.Access)
	}
	if tokens.Refresh != "refresh-1" {
		t.Fatalf("refresh token must survive an access-only update, got %q", tokens.Refresh)
	}
}

func TestRestoreRoundTripsThroughStore(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	first := New(store, nil)
	if err := first.Update(ctx, "access-1", "refresh-1"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := first.SetIdentity(ctx, 42); err != nil {
		t.Fatalf("SetIdentity: %v", err)
	}

	second := New(store, nil)
	if err := second.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if !second.Authenticated() {
		t.Fatal("restored session must be authenticated")
	}
	if second.UserID() != 42 {
		t.Fatalf("user id = %d", second.UserID())
	}
	if tokens := second.Tokens(); tokens.Access != "access-1" || tokens.Refresh != "refresh-1" {
		t.Fatalf("tokens = %+v", tokens)
	}
}

func TestRestoreWithEmptyStoreIsNoop(t *testing.T) {
	sess := New(memory.New(), nil)
	if err := sess.Restore(context.Background()); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if sess.Authenticated() {
		t.Fatal("empty store must not authenticate the session")
	}
}

func TestClearDropsEverything(t *testing.T) {
	store := memory.New()
	ctx := context.Background()

	sess := New(store, nil)
	if err := sess.Update(ctx, "access-1", "refresh-1"); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := sess.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if sess.Authenticated() || sess.UserID() != 0 {
		t.Fatal("clear must drop tokens and identity")
	}

	restored := New(store, nil)
	if err := restored.Restore(ctx); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if restored.Authenticated() {
		t.Fatal("clear must also drop the persisted credentials")
	}
}

// unsignedJWT builds a structurally valid token without a real signature;
// the session never verifies, it only peeks at claims.
func unsignedJWT(t *testing.T, claims map[string]interface{}) string {
	t.Helper()
	header, _ := json.Marshal(map[string]string{"alg": "HS256", "typ": "JWT"})
	payload, err := json.Marshal(claims)
	if err != nil {
		t.Fatalf("marshal claims: %v", err)
	}
	enc := base64.RawURLEncoding
	return fmt.Sprintf("%s.%s.sig", enc.EncodeToString(header), enc.EncodeToString(payload))
}

func TestAccessExpiresAtPeeksUnverifiedExpClaim(t *testing.T) {
	sess := New(nil, nil)
	ctx := context.Background()

	exp := time.Now().Add(time.Hour).Truncate(time.Second)
	token := unsignedJWT(t, map[string]interface{}{"exp": exp.Unix()})
	if err := sess.Update(ctx, token, "refresh-1"); err != nil {
		t.Fatalf("Update: %v", err)
	}

	got, ok := sess.AccessExpiresAt()
	if !ok {
		t.Fatal("want exp claim")
	}
	if !got.Equal(exp) {
		t.Fatalf("exp = %s, want %s", got, exp)
	}
}

func TestAccessExpiresAtHandlesOpaqueTokens(t *testing.T) {
	sess := New(nil, nil)
	if err := sess.Update(context.Background(), "not-a-jwt", ""); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if _, ok := sess.AccessExpiresAt(); ok {
		t.Fatal("opaque token must not report an expiry")
	}
}
