package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/andy/billhours/internal/billing"
	"github.com/andy/billhours/internal/domain"
	"github.com/andy/billhours/internal/repository"
	"github.com/ryanuber/go-glob"
	"github.com/shopspring/decimal"
)

// parseDate parses YYYY-MM-DD, "today" or "yesterday"
func parseDate(s string, now time.Time) (time.Time, error) {
	switch s {
	case "today":
		return domain.DateOnly(now), nil
	case "yesterday":
		return domain.DateOnly(now.AddDate(0, 0, -1)), nil
	default:
		t, err := domain.ParseDate(s)
		if err != nil {
			return time.Time{}, fmt.Errorf("expected format: YYYY-MM-DD, 'today', or 'yesterday'")
		}
		return t, nil
	}
}

func parseID(s, what string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s ID: %q", what, s)
	}
	return id, nil
}

func parseIDs(args []string, what string) ([]int64, error) {
	ids := make([]int64, 0, len(args))
	for _, a := range args {
		for _, part := range strings.Split(a, ",") {
			if part == "" {
				continue
			}
			id, err := parseID(part, what)
			if err != nil {
				return nil, err
			}
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func parseAmount(s, field string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%s: %q is not a number", field, s)
	}
	return d, nil
}

// parseRates turns "alice=120,bob=95" into user ID → rate
func parseRates(ctx context.Context, users repository.UserRepository, args []string) (map[int64]decimal.Decimal, error) {
	rates := make(map[int64]decimal.Decimal)
	for _, arg := range args {
		for _, pair := range strings.Split(arg, ",") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			who, value, ok := strings.Cut(pair, "=")
			if !ok {
				return nil, fmt.Errorf("rate %q: expected login=rate", pair)
			}
			user, err := resolveUser(ctx, users, strings.TrimSpace(who))
			if err != nil {
				return nil, err
			}
			rate, err := domain.ParseRate(strings.TrimSpace(value))
			if err != nil {
				return nil, err
			}
			rates[user.ID] = rate
		}
	}
	return rates, nil
}

// resolveProject accepts a project ID or identifier
func resolveProject(ctx context.Context, projects repository.ProjectRepository, idOrIdentifier string) (*domain.Project, error) {
	if id, err := strconv.ParseInt(idOrIdentifier, 10, 64); err == nil {
		return projects.GetByID(ctx, id)
	}
	p, err := projects.GetByIdentifier(ctx, idOrIdentifier)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("project %q not found", idOrIdentifier)
	}
	return p, err
}

// resolveUser accepts a user ID or login
func resolveUser(ctx context.Context, users repository.UserRepository, idOrLogin string) (*domain.User, error) {
	if id, err := strconv.ParseInt(idOrLogin, 10, 64); err == nil {
		return users.GetByID(ctx, id)
	}
	u, err := users.GetByLogin(ctx, idOrLogin)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("user %q not found", idOrLogin)
	}
	return u, err
}

// matchProjects keeps projects whose identifier or name matches the
// pattern. "*" is the only wildcard; an empty pattern keeps everything.
func matchProjects(projects []*domain.Project, pattern string) []*domain.Project {
	if pattern == "" {
		return projects
	}

	matched := make([]*domain.Project, 0, len(projects))
	for _, p := range projects {
		if glob.Glob(pattern, p.Identifier) || glob.Glob(pattern, p.Name) {
			matched = append(matched, p)
		}
	}
	return matched
}

// truncate truncates a string to the specified length with ellipsis
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// formatMoney formats an amount as "X,XXX.XX" with comma separators
func formatMoney(amount decimal.Decimal) string {
	amount = amount.Round(2)
	s := amount.Abs().StringFixed(2)

	dotPos := len(s) - 3
	intPart := s[:dotPos]
	decPart := s[dotPos:]

	result := make([]byte, 0, len(intPart)+len(intPart)/3)
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, byte(c))
	}

	if amount.IsNegative() {
		return "-" + string(result) + decPart
	}
	return string(result) + decPart
}

func formatHours(h decimal.Decimal) string {
	return h.StringFixed(2)
}

// formatOptional renders an absent value as "n/a"
func formatOptional(v decimal.NullDecimal, format func(decimal.Decimal) string) string {
	if !v.Valid {
		return "n/a"
	}
	return format(v.Decimal)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return domain.FormatDate(*t)
}

func describeWarnings(warnings []billing.Warning) []string {
	out := make([]string, 0, len(warnings))
	for _, w := range warnings {
		switch w {
		case billing.WarnOverBudget:
			out = append(out, "billable hours exceed the budget")
		case billing.WarnDivisionUndefined:
			out = append(out, "hourly rate is 0, hours purchased is undefined")
		default:
			out = append(out, string(w))
		}
	}
	sort.Strings(out)
	return out
}
