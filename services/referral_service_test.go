package services

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bounty-marketplace/models"

	"github.com/gofiber/fiber/v2"
)

// newReferralApp mounts the referral handlers behind a stub user-context
// middleware so handler tests can pick the session user per request.
func newReferralApp(t *testing.T) (*fiber.App, *ReferralService) {
	t.Helper()
	db := newTestDB(t)
	svc := NewReferralService(db, NewNotificationService(db))

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", c.Get("X-User-ID"))
		return c.Next()
	})
	app.Post("/referral/code", svc.GenerateCode)
	app.Post("/referral/apply", svc.ApplyCode)
	app.Get("/referral", svc.GetMyReferrals)
	return app, svc
}

func doJSON(t *testing.T, app *fiber.App, method, path, userID string, body interface{}) (*http.Response, map[string]interface{}) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-User-ID", userID)

	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var parsed map[string]interface{}
	json.NewDecoder(resp.Body).Decode(&parsed)
	return resp, parsed
}

func TestGenerateCodeIsIdempotent(t *testing.T) {
	app, _ := newReferralApp(t)

	resp, first := doJSON(t, app, "POST", "/referral/code", hunterA, nil)
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	code, _ := first["code"].(string)
	if len(code) != 8 {
		t.Fatalf("expected 8-char code, got %q", code)
	}
	for _, r := range code {
		if !strings.ContainsRune(codeAlphabet, r) {
			t.Fatalf("code %q contains character outside alphabet", code)
		}
	}

	resp, second := doJSON(t, app, "POST", "/referral/code", hunterA, nil)
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("expected 200 on repeat, got %d", resp.StatusCode)
	}
	if second["code"] != code {
		t.Fatalf("expected the same code back, got %v", second["code"])
	}
}

func TestApplyCode(t *testing.T) {
	app, svc := newReferralApp(t)

	_, created := doJSON(t, app, "POST", "/referral/code", hunterA, nil)
	code := created["code"].(string)

	resp, _ := doJSON(t, app, "POST", "/referral/apply", hunterB, fiber.Map{"code": code})
	if resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}

	var referral models.Referral
	if err := svc.DB.First(&referral, "referred_id = ?", hunterB).Error; err != nil {
		t.Fatalf("referral row missing: %v", err)
	}
	if referral.ReferrerID != hunterA || !referral.BonusAwarded {
		t.Fatalf("unexpected referral row: %+v", referral)
	}

	// The referrer gets a notification.
	var count int64
	svc.DB.Model(&models.Notification{}).
		Where("user_id = ? AND kind = ?", hunterA, models.NotificationReferralBonus).
		Count(&count)
	if count != 1 {
		t.Fatalf("expected one referral notification, got %d", count)
	}
}

func TestApplyCodeRejections(t *testing.T) {
	app, _ := newReferralApp(t)

	_, created := doJSON(t, app, "POST", "/referral/code", hunterA, nil)
	code := created["code"].(string)

	cases := []struct {
		name   string
		userID string
		code   string
		setup  func()
		want   int
	}{
		{"unknown code", hunterB, "NOSUCHCD", nil, fiber.StatusNotFound},
		{"self referral", hunterA, code, nil, fiber.StatusBadRequest},
		{"missing code", hunterB, "", nil, fiber.StatusBadRequest},
	}
	for _, tc := range cases {
		resp, _ := doJSON(t, app, "POST", "/referral/apply", tc.userID, fiber.Map{"code": tc.code})
		if resp.StatusCode != tc.want {
			t.Fatalf("%s: expected %d, got %d", tc.name, tc.want, resp.StatusCode)
		}
	}

	// A second referral for the same user conflicts.
	if resp, _ := doJSON(t, app, "POST", "/referral/apply", hunterB, fiber.Map{"code": code}); resp.StatusCode != fiber.StatusCreated {
		t.Fatalf("first apply should succeed, got %d", resp.StatusCode)
	}
	if resp, _ := doJSON(t, app, "POST", "/referral/apply", hunterB, fiber.Map{"code": code}); resp.StatusCode != fiber.StatusConflict {
		t.Fatalf("second apply should conflict, got %d", resp.StatusCode)
	}
}

func TestGetMyReferrals(t *testing.T) {
	app, _ := newReferralApp(t)

	_, created := doJSON(t, app, "POST", "/referral/code", hunterA, nil)
	code := created["code"].(string)
	for i := 0; i < 3; i++ {
		doJSON(t, app, "POST", "/referral/apply", fmt.Sprintf("referred-%d", i), fiber.Map{"code": code})
	}

	req := httptest.NewRequest("GET", "/referral", nil)
	req.Header.Set("X-User-ID", hunterA)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	var referrals []models.Referral
	if err := json.NewDecoder(resp.Body).Decode(&referrals); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(referrals) != 3 {
		t.Fatalf("expected 3 referrals, got %d", len(referrals))
	}
}
