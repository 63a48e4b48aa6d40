// Package gifts talks to the Telegram gift endpoints: catalog listing,
// single-unit purchases and the bot star balance.
package gifts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"gopkg.in/telebot.v3"

	"github.com/Proton-105/giftshop-bot/internal/domain"
	apperrors "github.com/Proton-105/giftshop-bot/internal/errors"
	"github.com/Proton-105/giftshop-bot/pkg/metrics"
)

const (
	methodAvailableGifts = "getAvailableGifts"
	methodSendGift       = "sendGift"
	methodStarBalance    = "getMyStarBalance"
)

// RawAPI is the slice of *telebot.Bot the client needs.
type RawAPI interface {
	Raw(method string, payload interface{}) ([]byte, error)
}

// Client implements the catalog provider, purchase executor and balance reader.
type Client struct {
	api   RawAPI
	log   *slog.Logger
	retry func(ctx context.Context, fn func() error) error
}

// NewClient wraps api, usually a *telebot.Bot.
func NewClient(api RawAPI, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}

	return &Client{
		api:   api,
		log:   log.With(slog.String("component", "gifts")),
		retry: apperrors.WithRetry,
	}
}

type apiGift struct {
	ID             string `json:"id"`
	StarCount      int64  `json:"star_count"`
	TotalCount     *int64 `json:"total_count,omitempty"`
	RemainingCount *int64 `json:"remaining_count,omitempty"`
	Sticker        struct {
		Emoji string `json:"emoji"`
	} `json:"sticker"`
}

type giftsResponse struct {
	Result struct {
		Gifts []apiGift `json:"gifts"`
	} `json:"result"`
}

type balanceResponse struct {
	Result struct {
		Amount int64 `json:"amount"`
	} `json:"result"`
}

type boolResponse struct {
	Result bool `json:"result"`
}

// FetchCatalog lists gifts matching filter in API order. Transient failures are retried.
func (c *Client) FetchCatalog(ctx context.Context, filter domain.CatalogFilter) ([]domain.CatalogItem, error) {
	var resp giftsResponse

	err := c.retry(ctx, func() error {
		data, err := c.call(ctx, methodAvailableGifts, map[string]string{})
		if err != nil {
			return err
		}
		if err := json.Unmarshal(data, &resp); err != nil {
			return apperrors.NewExternalAPIError(methodAvailableGifts, fmt.Errorf("decode: %w", err), false)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	items := make([]domain.CatalogItem, 0, len(resp.Result.Gifts))
	for _, g := range resp.Result.Gifts {
		item, reason := toCatalogItem(g)
		if reason != "" {
			c.log.Warn("skipping malformed gift", slog.String("gift_id", g.ID), slog.String("reason", reason))
			continue
		}
		if filter.Match(item) {
			items = append(items, item)
		}
	}

	c.log.Debug("catalog fetched", slog.Int("total", len(resp.Result.Gifts)), slog.Int("matched", len(items)))
	return items, nil
}

// AttemptPurchase buys one unit. Any failure is logged and reported as false.
func (c *Client) AttemptPurchase(ctx context.Context, req domain.PurchaseRequest) bool {
	payload := map[string]string{"gift_id": req.ItemID}
	if req.Recipient.IsChannel() {
		payload["chat_id"] = req.Recipient.Channel
	} else {
		payload["user_id"] = strconv.FormatInt(req.Recipient.UserID, 10)
	}

	data, err := c.call(ctx, methodSendGift, payload)
	if err != nil {
		c.log.Warn("gift purchase failed",
			slog.Int64("user_id", req.PurchaserID),
			slog.String("item_id", req.ItemID),
			slog.Int64("price", req.UnitPrice),
			slog.Any("error", err),
		)
		return false
	}

	var resp boolResponse
	if err := json.Unmarshal(data, &resp); err != nil || !resp.Result {
		c.log.Warn("gift purchase rejected", slog.Int64("user_id", req.PurchaserID), slog.String("item_id", req.ItemID))
		return false
	}

	c.log.Debug("gift purchased", slog.Int64("user_id", req.PurchaserID), slog.String("item_id", req.ItemID))
	return true
}

// StarBalance returns the bot's current star balance.
func (c *Client) StarBalance(ctx context.Context) (int64, error) {
	data, err := c.call(ctx, methodStarBalance, map[string]string{})
	if err != nil {
		return 0, err
	}

	var resp balanceResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return 0, apperrors.NewExternalAPIError(methodStarBalance, fmt.Errorf("decode: %w", err), false)
	}

	metrics.SetStarBalance(resp.Result.Amount)
	return resp.Result.Amount, nil
}

func (c *Client) call(ctx context.Context, method string, payload map[string]string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	started := time.Now()
	data, err := c.api.Raw(method, payload)
	metrics.RecordGiftAPICall(method, err, time.Since(started))

	if err != nil {
		return nil, apperrors.NewExternalAPIError(method, err, isTransient(err))
	}
	return data, nil
}

// isTransient treats client errors as permanent and everything else as worth a retry.
func isTransient(err error) bool {
	var tgErr *telebot.Error
	if errors.As(err, &tgErr) {
		return tgErr.Code == http.StatusTooManyRequests || tgErr.Code >= http.StatusInternalServerError
	}
	return true
}

// toCatalogItem converts an API gift. A non-empty reason means the gift is
// unusable; a remaining count outside [0, supply] is clamped.
func toCatalogItem(g apiGift) (domain.CatalogItem, string) {
	switch {
	case g.ID == "":
		return domain.CatalogItem{}, "empty id"
	case g.StarCount <= 0:
		return domain.CatalogItem{}, "non-positive price"
	case g.TotalCount != nil && *g.TotalCount < 0:
		return domain.CatalogItem{}, "negative supply"
	}

	item := domain.CatalogItem{
		ID:    g.ID,
		Emoji: g.Sticker.Emoji,
		Price: g.StarCount,
	}

	if g.TotalCount != nil {
		supply := *g.TotalCount
		remaining := supply
		if g.RemainingCount != nil {
			remaining = min(max(*g.RemainingCount, 0), supply)
		}
		item.Supply = &supply
		item.Remaining = &remaining
	}

	return item, ""
}
