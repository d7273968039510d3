package api

import (
	"context"
	"encoding/json"
	"net/url"

	"finboard/internal/core"
)

func periodQuery(period core.Period, typ core.TxType) url.Values {
	q := url.Values{}
	if period != "" {
		q.Set("period", string(period))
	}
	if typ != "" {
		q.Set("type", string(typ))
	}
	return q
}

func (c *Client) Dashboard(ctx context.Context, period core.Period) (core.DashboardAnalytics, error) {
	var out core.DashboardAnalytics
	err := c.get(ctx, "/analytics/dashboard", periodQuery(period, ""), &out)
	return out, err
}

// Trends returns per-month totals. An empty type returns both income and
// expense points.
func (c *Client) Trends(ctx context.Context, period core.Period, typ core.TxType) ([]core.TrendPoint, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/analytics/trends", periodQuery(period, typ), &raw); err != nil {
		return nil, err
	}
	var points []core.TrendPoint
	err := unwrapKey(raw, "trends", &points)
	return points, err
}

func (c *Client) CategoryAnalytics(ctx context.Context, period core.Period, typ core.TxType) ([]core.CategoryTotal, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/analytics/categories", periodQuery(period, typ), &raw); err != nil {
		return nil, err
	}
	var totals []core.CategoryTotal
	err := unwrapKey(raw, "categoryAnalysis", &totals)
	return totals, err
}

// Comparison returns this month against the previous one.
func (c *Client) Comparison(ctx context.Context) (core.Comparison, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/analytics/comparison", nil, &raw); err != nil {
		return core.Comparison{}, err
	}
	var cmp core.Comparison
	err := unwrapKey(raw, "comparison", &cmp)
	return cmp, err
}
