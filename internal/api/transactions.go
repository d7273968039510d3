package api

import (
	"context"
	"encoding/json"
	"net/url"
	"strconv"

	"finboard/internal/core"
)

// TransactionFilter holds the list query. Zero fields are not sent.
type TransactionFilter struct {
	Search    string
	Type      core.TxType
	Category  string
	StartDate string // YYYY-MM-DD
	EndDate   string
	Page      int
	Limit     int
	Sort      string
}

func (f TransactionFilter) values() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("search", f.Search)
	set("type", string(f.Type))
	set("category", f.Category)
	set("startDate", f.StartDate)
	set("endDate", f.EndDate)
	set("sort", f.Sort)
	if f.Page > 0 {
		q.Set("page", strconv.Itoa(f.Page))
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	return q
}

type TransactionPage struct {
	Transactions []core.Transaction `json:"transactions"`
	Pagination   core.Pagination    `json:"pagination"`
}

func (c *Client) Transactions(ctx context.Context, f TransactionFilter) (TransactionPage, error) {
	var out TransactionPage
	err := c.get(ctx, "/transactions", f.values(), &out)
	return out, err
}

func (c *Client) Transaction(ctx context.Context, id string) (core.Transaction, error) {
	var raw json.RawMessage
	if err := c.get(ctx, "/transactions/"+url.PathEscape(id), nil, &raw); err != nil {
		return core.Transaction{}, err
	}
	var tx core.Transaction
	err := unwrapKey(raw, "transaction", &tx)
	return tx, err
}

func (c *Client) CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	var raw json.RawMessage
	if err := c.post(ctx, "/transactions", in, &raw); err != nil {
		return core.Transaction{}, err
	}
	var tx core.Transaction
	err := unwrapKey(raw, "transaction", &tx)
	return tx, err
}

func (c *Client) UpdateTransaction(ctx context.Context, id string, in core.TransactionInput) (core.Transaction, error) {
	var raw json.RawMessage
	if err := c.put(ctx, "/transactions/"+url.PathEscape(id), in, &raw); err != nil {
		return core.Transaction{}, err
	}
	var tx core.Transaction
	err := unwrapKey(raw, "transaction", &tx)
	return tx, err
}

func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	return c.delete(ctx, "/transactions/"+url.PathEscape(id), nil, nil)
}

// Summary totals income and expense between two YYYY-MM-DD dates; empty
// bounds are open.
func (c *Client) Summary(ctx context.Context, start, end string) (core.TransactionSummary, error) {
	q := url.Values{}
	if start != "" {
		q.Set("startDate", start)
	}
	if end != "" {
		q.Set("endDate", end)
	}
	var raw json.RawMessage
	if err := c.get(ctx, "/transactions/summary", q, &raw); err != nil {
		return core.TransactionSummary{}, err
	}
	var s core.TransactionSummary
	err := unwrapKey(raw, "summary", &s)
	return s, err
}

// Recent returns the latest transactions, newest first.
func (c *Client) Recent(ctx context.Context, limit int) ([]core.Transaction, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Transactions []core.Transaction `json:"transactions"`
	}
	err := c.get(ctx, "/transactions/recent", q, &out)
	return out.Transactions, err
}
