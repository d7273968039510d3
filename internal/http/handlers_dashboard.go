package http

import (
	"context"
	"errors"
	"net/http"

	"golang.org/x/sync/errgroup"

	"finboard/internal/api"
	"finboard/internal/core"
	applog "finboard/internal/log"
)

const recentLimit = 5

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Dashboard", "dashboard")

	view, err := s.loadDashboard(r)
	if err != nil {
		if s.sessionRejected(w, r, applog.OpRead, err) {
			return
		}
		p.Notice = errorNotice(err)
		p.LoadFailed = true
		p.Data = dashboardView{}
		s.render(w, r, statusFor(err), "dashboard.html", p)
		return
	}
	p.Data = view
	s.render(w, r, http.StatusOK, "dashboard.html", p)
}

// handleSummaryPartial re-renders the summary cards after a
// transactions:changed event.
func (s *Server) handleSummaryPartial(w http.ResponseWriter, r *http.Request) {
	p := s.newPage(r, "Dashboard", "dashboard")
	view, err := s.loadDashboard(r)
	if err != nil {
		if s.sessionRejected(w, r, applog.OpRead, err) {
			return
		}
		p.Notice = errorNotice(err)
		p.LoadFailed = true
		p.Data = dashboardView{}
		s.renderPartial(w, r, statusFor(err), "dashboard.html", "summary-cards", p)
		return
	}
	p.Data = view
	s.renderPartial(w, r, http.StatusOK, "dashboard.html", "summary-cards", p)
}

// loadDashboard fetches the month summary, top categories and recent
// transactions in parallel, serving repeat views from the session cache.
func (s *Server) loadDashboard(r *http.Request) (dashboardView, error) {
	sess := currentSession(r)
	key := sess.ID + ":dashboard"
	if view, ok := s.dashboardCache.Get(key); ok {
		return view, nil
	}

	client := s.client(r)
	now := s.now()
	start, end := core.PeriodMonth.Range(now)

	var view dashboardView
	view.MonthLabel = now.Format("January 2006")

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		// end is exclusive; the backend's endDate is inclusive
		sum, err := client.Summary(ctx, start.Format(core.DateLayout), end.AddDate(0, 0, -1).Format(core.DateLayout))
		view.Summary = sum
		return err
	})
	g.Go(func() error {
		dash, err := client.Dashboard(ctx, core.PeriodMonth)
		view.TopCategories = dash.TopCategories
		return err
	})
	g.Go(func() error {
		recent, err := client.Recent(ctx, recentLimit)
		view.Recent = recent
		return err
	})
	if err := g.Wait(); err != nil {
		return dashboardView{}, err
	}

	s.dashboardCache.Set(key, view)
	return view, nil
}

// analyticsView is the body of analytics.html.
type analyticsView struct {
	Params     AnalyticsParams
	Months     []core.MonthTotals
	Categories []core.CategoryTotal
	Comparison core.Comparison
	// CategoryType is the type the breakdown was computed for.
	CategoryType core.TxType
	TotalIncome  core.Money
	TotalExpense core.Money
}

func (s *Server) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	params := ParseAnalyticsParams(r.URL.Query())
	p := s.newPage(r, "Analytics", "analytics")

	view, err := s.loadAnalytics(r.Context(), s.client(r), params)
	if err != nil {
		if s.sessionRejected(w, r, applog.OpRead, err) {
			return
		}
		p.Notice = errorNotice(err)
		p.LoadFailed = true
		p.Data = analyticsView{Params: params}
		s.render(w, r, statusFor(err), "analytics.html", p)
		return
	}
	p.Data = view

	if isHTMX(r) && htmxTarget(r) == "analytics-body" {
		s.renderPartial(w, r, http.StatusOK, "analytics.html", "analytics-body", p)
		return
	}
	s.render(w, r, http.StatusOK, "analytics.html", p)
}

type analyticsClient interface {
	Trends(ctx context.Context, period core.Period, typ core.TxType) ([]core.TrendPoint, error)
	CategoryAnalytics(ctx context.Context, period core.Period, typ core.TxType) ([]core.CategoryTotal, error)
	Comparison(ctx context.Context) (core.Comparison, error)
}

func (s *Server) loadAnalytics(ctx context.Context, client analyticsClient, params AnalyticsParams) (analyticsView, error) {
	view := analyticsView{Params: params, CategoryType: params.Type}
	if view.CategoryType == "" {
		view.CategoryType = core.Expense
	}

	var points []core.TrendPoint
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		points, err = client.Trends(ctx, params.Period, params.Type)
		return err
	})
	g.Go(func() error {
		var err error
		view.Categories, err = client.CategoryAnalytics(ctx, params.Period, view.CategoryType)
		return err
	})
	g.Go(func() error {
		var err error
		view.Comparison, err = client.Comparison(ctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return analyticsView{}, err
	}

	view.Months = core.GroupTrends(points)
	for _, m := range view.Months {
		view.TotalIncome = view.TotalIncome.Add(m.Income)
		view.TotalExpense = view.TotalExpense.Add(m.Expense)
	}
	return view, nil
}

// handleTrendsJSON feeds the trend chart script.
func (s *Server) handleTrendsJSON(w http.ResponseWriter, r *http.Request) {
	params := ParseAnalyticsParams(r.URL.Query())
	points, err := s.client(r).Trends(r.Context(), params.Period, params.Type)
	if err != nil {
		s.appMetrics.apiErrors.Add(1)
		if errors.Is(err, api.ErrUnauthorized) {
			s.expireSession(w, r)
			s.writeJSON(w, http.StatusUnauthorized, map[string]string{"redirect": withNotice("/auth/login", "expired")})
			return
		}
		s.structuredLogger.LogError(r.Context(), "Trend data failed", err, applog.ComponentAPI, applog.OpRead,
			applog.NewFields().WithSession(currentSession(r).ID, ""))
		s.writeJSON(w, statusFor(err), map[string]string{"error": errorNotice(err).Message})
		return
	}
	s.writeJSON(w, http.StatusOK, core.ChartSeries(core.GroupTrends(points)))
}
