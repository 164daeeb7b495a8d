package handlers

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/staff-assignment/internal/auth"
	"github.com/spec-kit/staff-assignment/internal/domain"
	"github.com/spec-kit/staff-assignment/internal/validation"
	apperrors "github.com/spec-kit/staff-assignment/pkg/util/errorutil"
)

// bind parses the JSON body into req and runs its validate tags.
func bind(c *fiber.Ctx, v *validation.Validator, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return v.Struct(req)
}

// bindOptional is bind for endpoints whose body may be empty.
func bindOptional(c *fiber.Ctx, v *validation.Validator, req any) error {
	if len(c.Body()) == 0 {
		return nil
	}
	return bind(c, v, req)
}

func userPrincipal(c *fiber.Ctx) (*domain.User, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.User == nil {
		return nil, apperrors.NewUnauthorized("user required")
	}
	return principal.User, nil
}

func staffPrincipal(c *fiber.Ctx) (*domain.StaffMember, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Staff == nil {
		return nil, apperrors.NewUnauthorized("staff required")
	}
	return principal.Staff, nil
}

func parseBoolQuery(c *fiber.Ctx, key string, defaultVal bool) bool {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return defaultVal
}

func parseIntQuery(c *fiber.Ctx, key string, defaultVal int) int {
	if val := c.Query(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultVal
}

// parsePage turns page/page_size into limit and offset.
func parsePage(c *fiber.Ctx, defaultSize int) (limit, offset int) {
	page := parseIntQuery(c, "page", 1)
	pageSize := min(parseIntQuery(c, "page_size", defaultSize), 200)
	return pageSize, (page - 1) * pageSize
}

func parseTimeQuery(c *fiber.Ctx, key string) (*time.Time, error) {
	val := c.Query(key)
	if val == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, val)
	if err != nil {
		return nil, apperrors.NewValidationError("validation failed", map[string]any{key: "must be RFC3339"})
	}
	return &parsed, nil
}

func parseStatuses(c *fiber.Ctx) []domain.BookingStatus {
	raw := c.Query("status")
	if raw == "" {
		return nil
	}
	var statuses []domain.BookingStatus
	for _, part := range strings.Split(raw, ",") {
		if part = strings.ToUpper(strings.TrimSpace(part)); part != "" {
			statuses = append(statuses, domain.BookingStatus(part))
		}
	}
	return statuses
}

// splitQuery reads a comma separated query value.
func splitQuery(c *fiber.Ctx, key string) []string {
	raw := c.Query(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
