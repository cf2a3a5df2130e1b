package fetcher

import (
	"context"
	"errors"
	"fmt"

	"frugal/internal/core"
)

const (
	PathTransactions = "/transactions"
	PathInsights     = "/insights"
	PathStats        = "/stats"
	PathChat         = "/chat"
)

var errNullList = errors.New("expected a JSON array, got null")

// Transactions returns the full transaction history.
func (c *Client) Transactions(ctx context.Context) ([]core.Transaction, error) {
	var out []core.Transaction
	if err := c.Get(ctx, PathTransactions, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, &SchemaError{Endpoint: "GET " + PathTransactions, Err: errNullList}
	}
	for i, t := range out {
		if err := t.Validate(); err != nil {
			return nil, &SchemaError{Endpoint: "GET " + PathTransactions, Err: fmt.Errorf("item %d: %w", i, err)}
		}
	}
	return out, nil
}

// Insights returns spending totals grouped by category.
func (c *Client) Insights(ctx context.Context) ([]core.CategoryTotal, error) {
	var out []core.CategoryTotal
	if err := c.Get(ctx, PathInsights, &out); err != nil {
		return nil, err
	}
	if out == nil {
		return nil, &SchemaError{Endpoint: "GET " + PathInsights, Err: errNullList}
	}
	for i, ct := range out {
		if err := ct.Validate(); err != nil {
			return nil, &SchemaError{Endpoint: "GET " + PathInsights, Err: fmt.Errorf("item %d: %w", i, err)}
		}
	}
	return out, nil
}

func (c *Client) Stats(ctx context.Context) (core.DashboardStats, error) {
	var out core.DashboardStats
	if err := c.Get(ctx, PathStats, &out); err != nil {
		return core.DashboardStats{}, err
	}
	return out, nil
}

// Chat sends one user message and returns the assistant's reply text.
func (c *Client) Chat(ctx context.Context, message string) (string, error) {
	var body any = core.ChatRequest{Message: message}
	if c.legacyChat {
		body = core.LegacyChatRequest{UserID: c.chatUserID, Message: message}
	}

	var reply core.ChatReply
	if err := c.Post(ctx, PathChat, body, &reply); err != nil {
		return "", err
	}
	return reply.Response, nil
}
