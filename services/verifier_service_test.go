package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"bounty-marketplace/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

func newVerifier(t *testing.T) *VerifierService {
	t.Helper()
	db := newTestDB(t)
	svc := NewVerifierService(db, NewSubmissionService(db))
	svc.TelegramBotToken = "test-bot-token"
	svc.DiscordBotToken = "test-bot-token"
	return svc
}

func seedTaskCampaign(t *testing.T, db *gorm.DB, kind models.TaskKind, target string) *models.Campaign {
	t.Helper()
	campaign := models.Campaign{
		ID:             uuid.NewString(),
		Slug:           "camp-" + uuid.NewString()[:8],
		Title:          "Join and earn",
		PromoterID:     "promoter-1",
		PromoterWallet: "0x00000000000000000000000000000000000000aa",
		Reward:         models.NewWei(10),
		RemainingWR:    models.NewWei(100),
		Status:         models.CampaignStatusActive,
	}
	campaign.Tasks = []models.CampaignTask{{
		ID:         uuid.NewString(),
		CampaignID: campaign.ID,
		Kind:       kind,
		Target:     target,
		Ordinal:    0,
	}}
	if err := db.Create(&campaign).Error; err != nil {
		t.Fatalf("failed to seed campaign: %v", err)
	}
	return &campaign
}

func seedSocialAccount(t *testing.T, db *gorm.DB, userID string, platform models.SocialPlatform, platformUserID string) {
	t.Helper()
	account := models.SocialAccount{
		ID:             uuid.NewString(),
		UserID:         userID,
		Platform:       platform,
		PlatformUserID: platformUserID,
		Username:       "hunter",
		AccessToken:    "token",
	}
	if err := db.Create(&account).Error; err != nil {
		t.Fatalf("failed to seed social account: %v", err)
	}
}

// A visit_link task needs no platform call: verifying it flips the flag and
// promotes the single-task submission to submitted.
func TestVerifyVisitLinkPromotesSubmission(t *testing.T) {
	svc := newVerifier(t)
	campaign := seedTaskCampaign(t, svc.DB, models.TaskVisitLink, "https://example.com/launch")

	sub, done, err := svc.VerifyTask(context.Background(), hunterA, campaign.ID, campaign.Tasks[0].ID)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !done {
		t.Fatalf("visit_link should always verify")
	}
	if sub.Status != models.SubmissionSubmitted {
		t.Fatalf("expected submitted status, got %s", sub.Status)
	}
	if !sub.AllTasksDone() {
		t.Fatalf("expected all tasks done")
	}
}

func TestVerifyRequiresLinkedAccount(t *testing.T) {
	svc := newVerifier(t)
	campaign := seedTaskCampaign(t, svc.DB, models.TaskTelegramJoin, "https://t.me/bountychat")

	_, _, err := svc.VerifyTask(context.Background(), hunterA, campaign.ID, campaign.Tasks[0].ID)
	if !errors.Is(err, ErrSocialNotLinked) {
		t.Fatalf("expected SocialNotLinked, got %v", err)
	}
}

func TestVerifyInactiveCampaign(t *testing.T) {
	svc := newVerifier(t)
	campaign := seedTaskCampaign(t, svc.DB, models.TaskVisitLink, "https://example.com")
	svc.DB.Model(&models.Campaign{}).Where("id = ?", campaign.ID).
		Update("status", models.CampaignStatusFinished)

	_, _, err := svc.VerifyTask(context.Background(), hunterA, campaign.ID, campaign.Tasks[0].ID)
	if !errors.Is(err, ErrCampaignUnavailable) {
		t.Fatalf("expected CampaignUnavailable, got %v", err)
	}
}

func TestVerifyUnknownTask(t *testing.T) {
	svc := newVerifier(t)
	campaign := seedTaskCampaign(t, svc.DB, models.TaskVisitLink, "https://example.com")

	_, _, err := svc.VerifyTask(context.Background(), hunterA, campaign.ID, uuid.NewString())
	if err == nil {
		t.Fatalf("expected error for unknown task id")
	}
}

func TestVerifyTelegramMembership(t *testing.T) {
	svc := newVerifier(t)
	campaign := seedTaskCampaign(t, svc.DB, models.TaskTelegramJoin, "https://t.me/bountychat")
	seedSocialAccount(t, svc.DB, hunterA, models.PlatformTelegram, "424242")

	var gotChatID string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotChatID = r.URL.Query().Get("chat_id")
		fmt.Fprint(w, `{"ok":true,"result":{"status":"member"}}`)
	}))
	defer server.Close()
	svc.TelegramAPIBase = server.URL

	_, done, err := svc.VerifyTask(context.Background(), hunterA, campaign.ID, campaign.Tasks[0].ID)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !done {
		t.Fatalf("expected membership to verify")
	}
	if gotChatID != "@bountychat" {
		t.Fatalf("expected chat_id @bountychat, got %q", gotChatID)
	}

	// The resolved chat handle is cached on the task.
	var task models.CampaignTask
	svc.DB.First(&task, "id = ?", campaign.Tasks[0].ID)
	if task.ResolvedTargetID != "@bountychat" {
		t.Fatalf("expected cached resolved target, got %q", task.ResolvedTargetID)
	}
}

func TestVerifyTelegramNotMember(t *testing.T) {
	svc := newVerifier(t)
	campaign := seedTaskCampaign(t, svc.DB, models.TaskTelegramJoin, "https://t.me/bountychat")
	seedSocialAccount(t, svc.DB, hunterA, models.PlatformTelegram, "424242")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"ok":true,"result":{"status":"left"}}`)
	}))
	defer server.Close()
	svc.TelegramAPIBase = server.URL

	sub, done, err := svc.VerifyTask(context.Background(), hunterA, campaign.ID, campaign.Tasks[0].ID)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if done {
		t.Fatalf("left member must not verify")
	}
	if sub.Status != models.SubmissionPending {
		t.Fatalf("expected pending submission, got %s", sub.Status)
	}
}

func TestVerifyTwitterFollow(t *testing.T) {
	svc := newVerifier(t)
	campaign := seedTaskCampaign(t, svc.DB, models.TaskTwitterFollow, "https://twitter.com/bountyproject")
	seedSocialAccount(t, svc.DB, hunterA, models.PlatformTwitter, "9001")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/2/users/by/username/bountyproject":
			fmt.Fprint(w, `{"data":{"id":"777"}}`)
		case r.URL.Path == "/1.1/friendships/show.json":
			if r.URL.Query().Get("source_id") != "9001" || r.URL.Query().Get("target_id") != "777" {
				http.Error(w, "wrong ids", http.StatusBadRequest)
				return
			}
			fmt.Fprint(w, `{"relationship":{"source":{"following":true}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()
	svc.TwitterAPIBase = server.URL

	_, done, err := svc.VerifyTask(context.Background(), hunterA, campaign.ID, campaign.Tasks[0].ID)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !done {
		t.Fatalf("expected follow to verify")
	}

	var task models.CampaignTask
	svc.DB.First(&task, "id = ?", campaign.Tasks[0].ID)
	if task.ResolvedTargetID != "777" {
		t.Fatalf("expected cached twitter id 777, got %q", task.ResolvedTargetID)
	}
}

func TestVerifyDiscordMembership(t *testing.T) {
	svc := newVerifier(t)
	campaign := seedTaskCampaign(t, svc.DB, models.TaskDiscordJoin, "https://discord.gg/abc123")
	seedSocialAccount(t, svc.DB, hunterA, models.PlatformDiscord, "5555")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/api/v10/invites/abc123":
			fmt.Fprint(w, `{"guild":{"id":"guild-1"}}`)
		case r.URL.Path == "/api/v10/guilds/guild-1/members/5555":
			w.WriteHeader(http.StatusOK)
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()
	svc.DiscordAPIBase = server.URL

	_, done, err := svc.VerifyTask(context.Background(), hunterA, campaign.ID, campaign.Tasks[0].ID)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if !done {
		t.Fatalf("expected guild membership to verify")
	}
}

func TestLastPathSegment(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"https://twitter.com/bountyproject", "bountyproject"},
		{"https://t.me/bountychat/", "bountychat"},
		{"https://discord.gg/abc123", "abc123"},
		{"@handle", "handle"},
		{"handle", "handle"},
		{"https://twitter.com/user/status/12345", "12345"},
		{"", ""},
	}
	for _, tc := range cases {
		if got := lastPathSegment(tc.in); got != tc.want {
			t.Fatalf("lastPathSegment(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
