package analytics

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/gymflow-app/gymflow/internal/authz"
)

const expiryWindow = 7 * 24 * time.Hour

// Overview bundles the dashboard KPIs for a scope.
type Overview struct {
	ActiveMembers         int64     `json:"active_members"`
	NewMembersThisMonth   int64     `json:"new_members_this_month"`
	RevenueThisMonthCents int64     `json:"revenue_this_month_cents"`
	RevenueDisplay        string    `json:"revenue_display"`
	ExpiringSoon          int64     `json:"expiring_soon"`
	GeneratedAt           time.Time `json:"generated_at"`
}

// Service computes KPI overviews. Concurrent requests for the same scope
// collapse into a single query pass.
type Service struct {
	repo    Repository
	cache   *Cache
	group   singleflight.Group
	printer *message.Printer
	unit    currency.Unit
	now     func() time.Time
}

// NewService builds a Service instance.
func NewService(repo Repository, cache *Cache) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		printer: message.NewPrinter(language.English),
		unit:    currency.USD,
		now:     time.Now,
	}
}

// Overview computes the KPI snapshot for the decision's scope, optionally
// narrowed to one branch. The requested branch must lie inside the scope.
func (s *Service) Overview(ctx context.Context, decision authz.Decision, branchID *uuid.UUID) (Overview, error) {
	scope := decision.Scope
	if branchID != nil {
		if !scope.Contains(*branchID) {
			return Overview{}, authz.ErrBranchAccessDenied
		}
		scope = authz.ScopeOf(*branchID)
	}

	key, err := s.cache.BuildKey(ctx, "kpi", "overview", scopeKey(scope))
	if err != nil {
		return Overview{}, err
	}

	result, err, _ := s.group.Do(key, func() (any, error) {
		var overview Overview
		err := s.cache.FetchJSON(ctx, key, &overview, func(ctx context.Context) (any, error) {
			return s.compute(ctx, scope)
		})
		return overview, err
	})
	if err != nil {
		return Overview{}, err
	}
	return result.(Overview), nil
}

// Invalidate drops every cached overview. Called after payment or member
// writes so dashboards never serve stale revenue.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) compute(ctx context.Context, scope authz.Scope) (Overview, error) {
	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)

	active, err := s.repo.ActiveMembers(ctx, scope)
	if err != nil {
		return Overview{}, err
	}
	joined, err := s.repo.NewMembersSince(ctx, scope, monthStart)
	if err != nil {
		return Overview{}, err
	}
	revenue, err := s.repo.RevenueCentsBetween(ctx, scope, monthStart, monthStart.AddDate(0, 1, 0))
	if err != nil {
		return Overview{}, err
	}
	expiring, err := s.repo.ExpiringSubscriptions(ctx, scope, expiryWindow)
	if err != nil {
		return Overview{}, err
	}

	return Overview{
		ActiveMembers:         active,
		NewMembersThisMonth:   joined,
		RevenueThisMonthCents: revenue,
		RevenueDisplay:        s.printer.Sprintf("%v %.2f", currency.Symbol(s.unit), float64(revenue)/100),
		ExpiringSoon:          expiring,
		GeneratedAt:           now,
	}, nil
}

// scopeKey renders a deterministic cache key fragment for a scope.
func scopeKey(scope authz.Scope) string {
	if scope.All {
		return "all"
	}
	ids := make([]string, 0, len(scope.Branches))
	for _, b := range scope.Branches {
		ids = append(ids, b.String())
	}
	sort.Strings(ids)
	return strings.Join(ids, ",")
}
