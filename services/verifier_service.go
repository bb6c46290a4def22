// services/verifier_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"strings"

	"bounty-marketplace/models"
	"bounty-marketplace/utils"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// ErrSocialNotLinked: the hunter has not connected the platform account the
// task requires.
var ErrSocialNotLinked = errors.New("social account not linked")

var errUnsupportedTaskKind = errors.New("unsupported task kind")

// VerifierService checks social-platform state for campaign tasks. Each
// platform branch is a thin REST adapter over the platform's API; resolved
// target ids (guild id, chat handle, twitter user id) are cached on the
// campaign task after first resolution.
type VerifierService struct {
	DB          *gorm.DB
	Submissions *SubmissionService
	HTTP        *http.Client

	// API bases are fields so tests can point them at a local server.
	TwitterAPIBase  string
	TelegramAPIBase string
	DiscordAPIBase  string

	TelegramBotToken string
	DiscordBotToken  string
}

func NewVerifierService(db *gorm.DB, submissions *SubmissionService) *VerifierService {
	return &VerifierService{
		DB:               db,
		Submissions:      submissions,
		HTTP:             utils.HTTPClient,
		TwitterAPIBase:   "https://api.twitter.com",
		TelegramAPIBase:  "https://api.telegram.org",
		DiscordAPIBase:   "https://discord.com",
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DiscordBotToken:  os.Getenv("DISCORD_BOT_TOKEN"),
	}
}

// VerifyTask runs the platform check for one task and flips its flag when
// the check passes. Returns the (possibly promoted) submission and whether
// the task is now done.
func (s *VerifierService) VerifyTask(ctx context.Context, hunterID, campaignID, taskID string) (*models.Submission, bool, error) {
	var campaign models.Campaign
	if err := s.DB.WithContext(ctx).Preload("Tasks").First(&campaign, "id = ?", campaignID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, false, ErrCampaignUnavailable
		}
		return nil, false, fmt.Errorf("failed to load campaign: %w", err)
	}
	if campaign.Status != models.CampaignStatusActive {
		return nil, false, ErrCampaignUnavailable
	}

	var task *models.CampaignTask
	for i := range campaign.Tasks {
		if campaign.Tasks[i].ID == taskID {
			task = &campaign.Tasks[i]
			break
		}
	}
	if task == nil {
		return nil, false, fmt.Errorf("task %s not found on campaign", taskID)
	}

	sub, err := s.Submissions.EnsureSubmission(ctx, hunterID, &campaign)
	if err != nil {
		return nil, false, err
	}

	var done bool
	switch task.Kind {
	case models.TaskTwitterFollow:
		done, err = s.checkTwitterFollow(ctx, hunterID, task)
	case models.TaskTwitterRetweet:
		done, err = s.checkTwitterRetweet(ctx, hunterID, task)
	case models.TaskTelegramJoin:
		done, err = s.checkTelegramMembership(ctx, hunterID, task)
	case models.TaskDiscordJoin:
		done, err = s.checkDiscordMembership(ctx, hunterID, task)
	case models.TaskVisitLink:
		// No platform state to check; the click itself completes the task.
		done = true
	default:
		return nil, false, fmt.Errorf("%w: %q", errUnsupportedTaskKind, task.Kind)
	}
	if err != nil {
		return nil, false, err
	}

	if done {
		if err := s.Submissions.MarkTaskDone(ctx, sub, task.ID); err != nil {
			return nil, false, err
		}
	}
	return sub, done, nil
}

func (s *VerifierService) socialAccount(ctx context.Context, userID string, platform models.SocialPlatform) (*models.SocialAccount, error) {
	var account models.SocialAccount
	err := s.DB.WithContext(ctx).
		Where("user_id = ? AND platform = ?", userID, platform).
		First(&account).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %s", ErrSocialNotLinked, platform)
		}
		return nil, fmt.Errorf("failed to load social account: %w", err)
	}
	return &account, nil
}

// cacheResolvedTarget persists a resolved platform id on the campaign task
func (s *VerifierService) cacheResolvedTarget(ctx context.Context, task *models.CampaignTask, resolved string) {
	task.ResolvedTargetID = resolved
	if err := s.DB.WithContext(ctx).
		Model(&models.CampaignTask{}).
		Where("id = ?", task.ID).
		Update("resolved_target_id", resolved).Error; err != nil {
		log.Printf("⚠️ [VERIFY] failed to cache resolved target for task %s: %v", task.ID, err)
	}
}

// --- Twitter ---

func (s *VerifierService) checkTwitterFollow(ctx context.Context, userID string, task *models.CampaignTask) (bool, error) {
	account, err := s.socialAccount(ctx, userID, models.PlatformTwitter)
	if err != nil {
		return false, err
	}

	targetID := task.ResolvedTargetID
	if targetID == "" {
		username := lastPathSegment(task.Target)
		if username == "" {
			return false, fmt.Errorf("cannot extract username from target %q", task.Target)
		}
		var resolved struct {
			Data struct {
				ID string `json:"id"`
			} `json:"data"`
		}
		endpoint := fmt.Sprintf("%s/2/users/by/username/%s", s.TwitterAPIBase, url.PathEscape(username))
		if err := s.getJSON(ctx, endpoint, "Bearer "+account.AccessToken, &resolved); err != nil {
			return false, err
		}
		if resolved.Data.ID == "" {
			return false, fmt.Errorf("twitter user %q not found", username)
		}
		targetID = resolved.Data.ID
		s.cacheResolvedTarget(ctx, task, targetID)
	}

	var rel struct {
		Relationship struct {
			Source struct {
				Following bool `json:"following"`
			} `json:"source"`
		} `json:"relationship"`
	}
	endpoint := fmt.Sprintf("%s/1.1/friendships/show.json?source_id=%s&target_id=%s",
		s.TwitterAPIBase, url.QueryEscape(account.PlatformUserID), url.QueryEscape(targetID))
	if err := s.getJSON(ctx, endpoint, "Bearer "+account.AccessToken, &rel); err != nil {
		return false, err
	}
	return rel.Relationship.Source.Following, nil
}

func (s *VerifierService) checkTwitterRetweet(ctx context.Context, userID string, task *models.CampaignTask) (bool, error) {
	account, err := s.socialAccount(ctx, userID, models.PlatformTwitter)
	if err != nil {
		return false, err
	}

	tweetID := task.ResolvedTargetID
	if tweetID == "" {
		tweetID = lastPathSegment(task.Target)
		if tweetID == "" {
			return false, fmt.Errorf("cannot extract tweet id from target %q", task.Target)
		}
		s.cacheResolvedTarget(ctx, task, tweetID)
	}

	var page struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	endpoint := fmt.Sprintf("%s/2/tweets/%s/retweeted_by?max_results=100", s.TwitterAPIBase, url.PathEscape(tweetID))
	if err := s.getJSON(ctx, endpoint, "Bearer "+account.AccessToken, &page); err != nil {
		return false, err
	}
	for _, u := range page.Data {
		if u.ID == account.PlatformUserID {
			return true, nil
		}
	}
	return false, nil
}

// --- Telegram ---

func (s *VerifierService) checkTelegramMembership(ctx context.Context, userID string, task *models.CampaignTask) (bool, error) {
	account, err := s.socialAccount(ctx, userID, models.PlatformTelegram)
	if err != nil {
		return false, err
	}

	chatID := task.ResolvedTargetID
	if chatID == "" {
		// t.me/<name> → @<name>
		name := lastPathSegment(task.Target)
		if name == "" {
			return false, fmt.Errorf("cannot extract chat from target %q", task.Target)
		}
		chatID = "@" + name
		s.cacheResolvedTarget(ctx, task, chatID)
	}

	var result struct {
		OK     bool `json:"ok"`
		Result struct {
			Status string `json:"status"`
		} `json:"result"`
	}
	endpoint := fmt.Sprintf("%s/bot%s/getChatMember?chat_id=%s&user_id=%s",
		s.TelegramAPIBase, s.TelegramBotToken, url.QueryEscape(chatID), url.QueryEscape(account.PlatformUserID))
	if err := s.getJSON(ctx, endpoint, "", &result); err != nil {
		return false, err
	}
	if !result.OK {
		return false, nil
	}
	switch result.Result.Status {
	case "member", "administrator", "creator":
		return true, nil
	}
	return false, nil
}

// --- Discord ---

func (s *VerifierService) checkDiscordMembership(ctx context.Context, userID string, task *models.CampaignTask) (bool, error) {
	account, err := s.socialAccount(ctx, userID, models.PlatformDiscord)
	if err != nil {
		return false, err
	}

	guildID := task.ResolvedTargetID
	if guildID == "" {
		// discord.gg/<code> → invite lookup → guild id
		code := lastPathSegment(task.Target)
		if code == "" {
			return false, fmt.Errorf("cannot extract invite code from target %q", task.Target)
		}
		var invite struct {
			Guild struct {
				ID string `json:"id"`
			} `json:"guild"`
		}
		endpoint := fmt.Sprintf("%s/api/v10/invites/%s", s.DiscordAPIBase, url.PathEscape(code))
		if err := s.getJSON(ctx, endpoint, "Bot "+s.DiscordBotToken, &invite); err != nil {
			return false, err
		}
		if invite.Guild.ID == "" {
			return false, fmt.Errorf("discord invite %q did not resolve to a guild", code)
		}
		guildID = invite.Guild.ID
		s.cacheResolvedTarget(ctx, task, guildID)
	}

	endpoint := fmt.Sprintf("%s/api/v10/guilds/%s/members/%s",
		s.DiscordAPIBase, url.PathEscape(guildID), url.PathEscape(account.PlatformUserID))
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bot "+s.DiscordBotToken)

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return false, fmt.Errorf("discord API call failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	switch resp.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, fmt.Errorf("discord API returned status %d", resp.StatusCode)
	}
}

// --- helpers ---

func (s *VerifierService) getJSON(ctx context.Context, endpoint, authorization string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return err
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}

	resp, err := s.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("platform API call failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("platform API returned status %d: %s", resp.StatusCode, string(body))
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// lastPathSegment pulls the trailing segment from a platform URL, tolerating
// bare handles ("@name", "name") as well as full links.
func lastPathSegment(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "@")
	if raw == "" {
		return ""
	}
	if !strings.Contains(raw, "/") {
		return raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return ""
	}
	parts := strings.Split(path, "/")
	return parts[len(parts)-1]
}

// --- HTTP handlers ---

type verifyRequest struct {
	CampaignID string `json:"campaignId"`
	TaskID     string `json:"taskId"`
}

// VerifyTwitterTask handles POST /task/verify
func (s *VerifierService) VerifyTwitterTask(c *fiber.Ctx) error {
	return s.handleVerify(c)
}

// VerifyTelegramTask handles POST /task/verify/telegram
func (s *VerifierService) VerifyTelegramTask(c *fiber.Ctx) error {
	return s.handleVerify(c)
}

// VerifyDiscordTask handles POST /task/verify/discord
func (s *VerifierService) VerifyDiscordTask(c *fiber.Ctx) error {
	return s.handleVerify(c)
}

func (s *VerifierService) handleVerify(c *fiber.Ctx) error {
	hunterID := c.Locals("user_id").(string)

	var req verifyRequest
	if err := c.BodyParser(&req); err != nil || req.CampaignID == "" || req.TaskID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "campaignId and taskId are required"})
	}

	sub, done, err := s.VerifyTask(c.Context(), hunterID, req.CampaignID, req.TaskID)
	if err != nil {
		switch {
		case errors.Is(err, ErrSocialNotLinked):
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "social_not_linked", "detail": err.Error()})
		case errors.Is(err, ErrCampaignUnavailable):
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "campaign_unavailable", "detail": err.Error()})
		default:
			log.Printf("❌ [VERIFY] verification failed: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "verification_failed", "detail": err.Error()})
		}
	}

	return c.JSON(fiber.Map{
		"success":    done,
		"status":     sub.Status,
		"submission": sub,
	})
}
