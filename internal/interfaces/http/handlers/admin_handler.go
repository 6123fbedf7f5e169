// Package handlers adapts the domain layer to Fiber HTTP handlers for the
// single-admin control surface: auth, bot status, posts, news, schedule, and
// curated content management.
package handlers

import (
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/btcbuzzbot/bot/internal/domain/entities"
	"github.com/btcbuzzbot/bot/internal/domain/repositories"
	"github.com/btcbuzzbot/bot/internal/infrastructure/audit"
	"github.com/btcbuzzbot/bot/internal/infrastructure/security"
	"github.com/btcbuzzbot/bot/pkg/utils"
)

const adminTokenTTL = 24 * time.Hour

// Rescheduler is the slice of scheduler.Scheduler the admin handler needs;
// kept narrow so this package never imports the scheduler package directly.
type Rescheduler interface {
	Reschedule(newSchedule string)
}

// AdminHandler wires the Store and the single-admin account to HTTP
// endpoints. Every mutating action is recorded through audit.Logger, the
// same audit trail used across the platform's administrative surfaces.
type AdminHandler struct {
	store      repositories.Store
	adminUsers repositories.AdminUserRepository
	jwtService *security.JWTService
	hasher     security.PasswordHasher
	scheduler  Rescheduler
	audit      *audit.Logger
	logger     *slog.Logger
}

// NewAdminHandler constructs an AdminHandler.
func NewAdminHandler(store repositories.Store, adminUsers repositories.AdminUserRepository, jwtService *security.JWTService, hasher security.PasswordHasher, scheduler Rescheduler, auditLogger *audit.Logger, logger *slog.Logger) *AdminHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if auditLogger == nil {
		auditLogger = audit.NewLogger(logger)
	}
	return &AdminHandler{
		store:      store,
		adminUsers: adminUsers,
		jwtService: jwtService,
		hasher:     hasher,
		scheduler:  scheduler,
		audit:      auditLogger,
		logger:     logger.With(slog.String("component", "admin_handler")),
	}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Login verifies the admin's credentials and issues a bearer token.
func (h *AdminHandler) Login() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var payload loginRequest
		if err := c.BodyParser(&payload); err != nil {
			resp, status := utils.ToErrorResponse(utils.NewAppError("INVALID_JSON", "unable to parse request body", fiber.StatusBadRequest, err, nil))
			return c.Status(status).JSON(resp)
		}

		var errs utils.ValidationErrors
		utils.RequireEmail(&errs, "email", payload.Email)
		utils.Require(&errs, "password", payload.Password)
		if !errs.IsEmpty() {
			resp, status := utils.ToErrorResponse(utils.NewAppError("VALIDATION_FAILED", "invalid login payload", fiber.StatusUnprocessableEntity, errs, errs.ToDetails()))
			return c.Status(status).JSON(resp)
		}

		user, err := h.adminUsers.GetByEmail(c.UserContext(), payload.Email)
		if err != nil {
			h.logger.Warn("login failed: unknown admin", slog.String("email", payload.Email))
			return c.Status(fiber.StatusUnauthorized).JSON(utils.ErrorResponse{Code: "INVALID_CREDENTIALS", Message: "invalid email or password"})
		}

		if err := h.hasher.Compare(user.GetPasswordHash(), payload.Password); err != nil {
			h.logger.Warn("login failed: password mismatch", slog.String("email", payload.Email))
			return c.Status(fiber.StatusUnauthorized).JSON(utils.ErrorResponse{Code: "INVALID_CREDENTIALS", Message: "invalid email or password"})
		}

		token, err := h.jwtService.GenerateToken(c.UserContext(), user.GetID().String(), adminTokenTTL, map[string]any{"email": user.GetEmail()})
		if err != nil {
			resp, status := utils.ToErrorResponse(err)
			return c.Status(status).JSON(resp)
		}

		_ = h.audit.Record(c.UserContext(), audit.Entry{ActorID: user.GetID(), Action: "admin.login", TargetID: user.GetEmail()})
		return c.Status(fiber.StatusOK).JSON(loginResponse{Token: token, ExpiresAt: time.Now().UTC().Add(adminTokenTTL)})
	}
}

// Status returns the most recently logged BotStatus row.
func (h *AdminHandler) Status() fiber.Handler {
	return func(c *fiber.Ctx) error {
		status, err := h.store.GetLatestBotStatus(c.UserContext())
		if err != nil {
			resp, code := utils.ToErrorResponse(err)
			return c.Status(code).JSON(resp)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"status":             status.GetStatus(),
			"message":            status.GetMessage(),
			"timestamp":          status.GetTimestamp(),
			"next_scheduled_run": status.GetNextScheduledRun(),
		})
	}
}

// Posts returns the most recent published posts.
func (h *AdminHandler) Posts() fiber.Handler {
	return func(c *fiber.Ctx) error {
		limit := parseLimit(c, 20, 100)
		posts, err := h.store.GetPosts(c.UserContext(), limit)
		if err != nil {
			resp, code := utils.ToErrorResponse(err)
			return c.Status(code).JSON(resp)
		}

		out := make([]fiber.Map, 0, len(posts))
		for _, p := range posts {
			out = append(out, fiber.Map{
				"external_post_id": p.GetExternalPostID(),
				"text":             p.GetText(),
				"price_usd":        p.GetPriceUSD(),
				"price_change_pct": p.GetPriceChangePct(),
				"content_type":     p.GetContentType(),
				"likes":            p.GetLikes(),
				"retweets":         p.GetRetweets(),
				"timestamp":        p.GetTimestamp(),
			})
		}
		return c.Status(fiber.StatusOK).JSON(out)
	}
}

// News returns news items with an analyzed verdict from within the lookback
// window.
func (h *AdminHandler) News() fiber.Handler {
	return func(c *fiber.Ctx) error {
		hours := c.QueryInt("hours", 24)
		if hours <= 0 {
			hours = 24
		}
		items, err := h.store.GetRecentAnalyzedNews(c.UserContext(), hours)
		if err != nil {
			resp, code := utils.ToErrorResponse(err)
			return c.Status(code).JSON(resp)
		}

		out := make([]fiber.Map, 0, len(items))
		for _, item := range items {
			out = append(out, fiber.Map{
				"external_tweet_id":  item.GetExternalTweetID(),
				"text":               item.GetText(),
				"published_at":       item.GetPublishedAt(),
				"sentiment_label":    item.GetSentimentLabel(),
				"significance_label": item.GetSignificanceLabel(),
				"summary":            item.GetSummary(),
			})
		}
		return c.Status(fiber.StatusOK).JSON(out)
	}
}

// GetSchedule returns the current comma-separated "HH:MM" schedule.
func (h *AdminHandler) GetSchedule() fiber.Handler {
	return func(c *fiber.Ctx) error {
		schedule, err := h.store.GetScheduleConfig(c.UserContext())
		if err != nil && !errors.Is(err, repositories.ErrNotFound) {
			resp, code := utils.ToErrorResponse(err)
			return c.Status(code).JSON(resp)
		}
		return c.Status(fiber.StatusOK).JSON(fiber.Map{
			"schedule": schedule,
			"times":    entities.ParseSchedule(schedule),
		})
	}
}

type setScheduleRequest struct {
	Times []string `json:"times"`
}

// SetSchedule validates and persists a new "HH:MM" schedule, then triggers
// the live scheduler's reconfiguration.
func (h *AdminHandler) SetSchedule() fiber.Handler {
	return func(c *fiber.Ctx) error {
		var payload setScheduleRequest
		if err := c.BodyParser(&payload); err != nil {
			resp, status := utils.ToErrorResponse(utils.NewAppError("INVALID_JSON", "unable to parse request body", fiber.StatusBadRequest, err, nil))
			return c.Status(status).JSON(resp)
		}

		var errs utils.ValidationErrors
		if len(payload.Times) == 0 {
			errs.Add("times", "at least one HH:MM entry is required")
		}
		for _, t := range payload.Times {
			utils.RequirePattern(&errs, "times", t, `^([01]\d|2[0-3]):[0-5]\d$`, "must be HH:MM in 24h UTC")
		}
		if !errs.IsEmpty() {
			resp, status := utils.ToErrorResponse(utils.NewAppError("VALIDATION_FAILED", "invalid schedule payload", fiber.StatusUnprocessableEntity, errs, errs.ToDetails()))
			return c.Status(status).JSON(resp)
		}

		schedule := entities.FormatSchedule(payload.Times)
		if err := h.store.SetScheduleConfig(c.UserContext(), schedule); err != nil {
			resp, code := utils.ToErrorResponse(err)
			return c.Status(code).JSON(resp)
		}
		if h.scheduler != nil {
			h.scheduler.Reschedule(schedule)
		}
		_ = h.audit.Record(c.UserContext(), audit.Entry{ActorID: c.Locals("user_id"), Action: "admin.schedule.update", TargetID: schedule})
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"schedule": schedule, "times": payload.Times})
	}
}

type contentRequest struct {
	Text     string `json:"text"`
	Category string `json:"category"`
}

// ListQuotes returns every curated quote.
func (h *AdminHandler) ListQuotes() fiber.Handler { return h.listContent(entities.ContentKindQuote) }

// ListJokes returns every curated joke.
func (h *AdminHandler) ListJokes() fiber.Handler { return h.listContent(entities.ContentKindJoke) }

func (h *AdminHandler) listContent(kind entities.ContentKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var items []entities.ContentItem
		var err error
		if kind == entities.ContentKindJoke {
			items, err = h.store.ListJokes(c.UserContext())
		} else {
			items, err = h.store.ListQuotes(c.UserContext())
		}
		if err != nil {
			resp, code := utils.ToErrorResponse(err)
			return c.Status(code).JSON(resp)
		}

		out := make([]fiber.Map, 0, len(items))
		for _, item := range items {
			out = append(out, fiber.Map{
				"id":         item.GetID(),
				"text":       item.GetText(),
				"category":   item.GetCategory(),
				"used_count": item.GetUsedCount(),
				"last_used":  item.GetLastUsed(),
			})
		}
		return c.Status(fiber.StatusOK).JSON(out)
	}
}

// AddQuote adds a curated quote.
func (h *AdminHandler) AddQuote() fiber.Handler { return h.addContent(entities.ContentKindQuote) }

// AddJoke adds a curated joke.
func (h *AdminHandler) AddJoke() fiber.Handler { return h.addContent(entities.ContentKindJoke) }

func (h *AdminHandler) addContent(kind entities.ContentKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var payload contentRequest
		if err := c.BodyParser(&payload); err != nil {
			resp, status := utils.ToErrorResponse(utils.NewAppError("INVALID_JSON", "unable to parse request body", fiber.StatusBadRequest, err, nil))
			return c.Status(status).JSON(resp)
		}

		var errs utils.ValidationErrors
		utils.Require(&errs, "text", payload.Text)
		if !errs.IsEmpty() {
			resp, status := utils.ToErrorResponse(utils.NewAppError("VALIDATION_FAILED", "invalid content payload", fiber.StatusUnprocessableEntity, errs, errs.ToDetails()))
			return c.Status(status).JSON(resp)
		}

		var id uuid.UUID
		var err error
		if kind == entities.ContentKindJoke {
			id, err = h.store.AddJoke(c.UserContext(), payload.Text, payload.Category)
		} else {
			id, err = h.store.AddQuote(c.UserContext(), payload.Text, payload.Category)
		}
		if err != nil {
			resp, code := utils.ToErrorResponse(err)
			return c.Status(code).JSON(resp)
		}
		_ = h.audit.Record(c.UserContext(), audit.Entry{ActorID: c.Locals("user_id"), Action: "admin.content.add", TargetID: id.String(), Metadata: map[string]any{"kind": kind}})
		return c.Status(fiber.StatusCreated).JSON(fiber.Map{"id": id})
	}
}

// DeleteQuote removes a curated quote by id.
func (h *AdminHandler) DeleteQuote() fiber.Handler { return h.deleteContent(entities.ContentKindQuote) }

// DeleteJoke removes a curated joke by id.
func (h *AdminHandler) DeleteJoke() fiber.Handler { return h.deleteContent(entities.ContentKindJoke) }

func (h *AdminHandler) deleteContent(kind entities.ContentKind) fiber.Handler {
	return func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(utils.ErrorResponse{Code: "INVALID_ID", Message: "id must be a uuid"})
		}

		var deleted bool
		if kind == entities.ContentKindJoke {
			deleted, err = h.store.DeleteJoke(c.UserContext(), id)
		} else {
			deleted, err = h.store.DeleteQuote(c.UserContext(), id)
		}
		if err != nil {
			resp, code := utils.ToErrorResponse(err)
			return c.Status(code).JSON(resp)
		}
		if !deleted {
			return c.SendStatus(fiber.StatusNotFound)
		}
		_ = h.audit.Record(c.UserContext(), audit.Entry{ActorID: c.Locals("user_id"), Action: "admin.content.delete", TargetID: id.String(), Metadata: map[string]any{"kind": kind}})
		return c.SendStatus(fiber.StatusNoContent)
	}
}

// Health reports liveness; it never requires authentication.
func (h *AdminHandler) Health() fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok", "time": time.Now().UTC()})
	}
}

func parseLimit(c *fiber.Ctx, def, max int) int {
	raw := strings.TrimSpace(c.Query("limit"))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if n > max {
		return max
	}
	return n
}
