package security

import (
	"testing"
	"time"
)

func TestSellerTokenRoundTrip(t *testing.T) {
	token, err := SignSellerToken("test-secret", time.Hour, 42)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := ParseSellerToken("test-secret", token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.SellerID != 42 {
		t.Fatalf("expected seller 42, got %d", claims.SellerID)
	}
}

func TestParseSellerToken_WrongSecret(t *testing.T) {
	token, err := SignSellerToken("test-secret", time.Hour, 42)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, errParse := ParseSellerToken("other-secret", token); errParse == nil {
		t.Fatalf("expected parse failure with wrong secret")
	}
}

func TestParseSellerToken_RejectsAdminToken(t *testing.T) {
	token, err := SignAdminToken("test-secret", time.Hour, 7)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, errParse := ParseSellerToken("test-secret", token); errParse == nil {
		t.Fatalf("expected admin token rejected on seller surface")
	}
	claims, errAdmin := ParseAdminToken("test-secret", token)
	if errAdmin != nil {
		t.Fatalf("parse admin: %v", errAdmin)
	}
	if claims.AdminID != 7 {
		t.Fatalf("expected admin 7, got %d", claims.AdminID)
	}
}

func TestParseSellerToken_Expired(t *testing.T) {
	token, err := SignSellerToken("test-secret", -time.Minute, 42)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, errParse := ParseSellerToken("test-secret", token); errParse == nil {
		t.Fatalf("expected expired token rejected")
	}
}

func TestPasswordHashing(t *testing.T) {
	hashed, err := HashPassword("hunter22")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if !CheckPassword(hashed, "hunter22") {
		t.Fatalf("expected matching password accepted")
	}
	if CheckPassword(hashed, "hunter23") {
		t.Fatalf("expected wrong password rejected")
	}
}
