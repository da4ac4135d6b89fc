// Package whatsapp предоставляет клиент WhatsApp Business API для
// извещения владельца аптеки о новых заказах.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mmeshcher/pharmacy-system/internal/model"
)

const defaultBaseURL = "https://graph.facebook.com/v18.0"

// ErrRateLimited возвращается при ответе 429; задержка повтора берётся
// из заголовка Retry-After.
var ErrRateLimited = errors.New("rate limited")

// Client инкапсулирует HTTP-взаимодействие с WhatsApp Business API.
type Client struct {
	baseURL       string
	accessToken   string
	phoneNumberID string
	ownerPhone    string
	httpClient    *http.Client
}

// NewClient создаёт клиент для отправки сообщений от имени номера
// phoneNumberID на номер владельца ownerPhone.
func NewClient(accessToken, phoneNumberID, ownerPhone string) *Client {
	return &Client{
		baseURL:       defaultBaseURL,
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		ownerPhone:    ownerPhone,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// SetBaseURL переопределяет адрес API. Используется в тестах.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = strings.TrimRight(u, "/")
}

type textMessage struct {
	MessagingProduct string      `json:"messaging_product"`
	To               string      `json:"to"`
	Type             string      `json:"type"`
	Text             messageBody `json:"text"`
}

type messageBody struct {
	Body string `json:"body"`
}

// SendMessage отправляет текстовое сообщение на указанный номер.
// Возвращает задержку из Retry-After при ответе 429.
func (c *Client) SendMessage(ctx context.Context, to, body string) (time.Duration, error) {
	if c == nil || c.accessToken == "" {
		return 0, fmt.Errorf("whatsapp client not configured")
	}

	url := fmt.Sprintf("%s/%s/messages", c.baseURL, c.phoneNumberID)

	payload, err := json.Marshal(textMessage{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             messageBody{Body: body},
	})
	if err != nil {
		return 0, fmt.Errorf("marshal message: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return 0, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := time.Duration(0)
		if v := resp.Header.Get("Retry-After"); v != "" {
			if seconds, parseErr := strconv.Atoi(v); parseErr == nil {
				retryAfter = time.Duration(seconds) * time.Second
			}
		}
		return retryAfter, ErrRateLimited
	}

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	return 0, nil
}

// NotifyOrderPlaced отправляет владельцу сводку нового заказа.
// При 429 делает один повтор, выдержав задержку из Retry-After.
func (c *Client) NotifyOrderPlaced(ctx context.Context, order *model.Order, items []model.OrderItem) error {
	var b strings.Builder
	fmt.Fprintf(&b, "New order %s: %d item(s), total %.2f", order.Number, len(items), order.TotalAmount)
	if order.DiscountApplied > 0 {
		fmt.Fprintf(&b, " (discount %.2f)", order.DiscountApplied)
	}
	fmt.Fprintf(&b, ". Payment: %s.", order.PaymentMethod)

	msg := b.String()

	retryAfter, err := c.SendMessage(ctx, c.ownerPhone, msg)
	if !errors.Is(err, ErrRateLimited) {
		return err
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(retryAfter):
	}

	_, err = c.SendMessage(ctx, c.ownerPhone, msg)
	return err
}
