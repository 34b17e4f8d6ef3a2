package billing

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"

	"github.com/marlinkeeper/aquatrack/internal/config"
	"github.com/marlinkeeper/aquatrack/internal/models"
)

// PriceTable связывает цены у платёжного провайдера с тарифами приложения.
type PriceTable struct {
	starter string
	plus    string
	pro     string
}

// NewPriceTable строит таблицу цен из конфига.
func NewPriceTable(cfg config.Stripe) PriceTable {
	return PriceTable{
		starter: cfg.PriceIDStarter,
		plus:    cfg.PriceIDPlus,
		pro:     cfg.PriceIDPro,
	}
}

// PriceFor возвращает идентификатор цены тарифа. Для free цены нет.
func (t PriceTable) PriceFor(tier models.Tier) (string, bool) {
	switch tier {
	case models.TierStarter:
		return t.starter, t.starter != ""
	case models.TierPlus:
		return t.plus, t.plus != ""
	case models.TierPro:
		return t.pro, t.pro != ""
	}
	return "", false
}

// TierFor возвращает тариф по идентификатору цены.
func (t PriceTable) TierFor(priceID string) (models.Tier, bool) {
	switch priceID {
	case "":
		return "", false
	case t.starter:
		return models.TierStarter, true
	case t.plus:
		return models.TierPlus, true
	case t.pro:
		return models.TierPro, true
	}
	return "", false
}

// Checkout создаёт checkout-сессии у платёжного провайдера.
type Checkout struct {
	sc         *client.API
	prices     PriceTable
	successURL string
	cancelURL  string
	log        *slog.Logger
}

// NewCheckout создает новый экземпляр Checkout.
func NewCheckout(cfg config.Stripe, log *slog.Logger) *Checkout {
	sc := &client.API{}
	sc.Init(cfg.SecretKey, nil)
	return &Checkout{
		sc:         sc,
		prices:     NewPriceTable(cfg),
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
		log:        log,
	}
}

// CreateSession создаёт у провайдера checkout-сессию оплаты тарифа и
// возвращает URL страницы оплаты. Пользователь кладётся в
// client_reference_id, тариф — в метаданные: по ним обработчик
// checkout.session.completed привяжет оплату к подписке.
func (c *Checkout) CreateSession(ctx context.Context, userUID string, tier models.Tier) (string, error) {
	const op = "billing.CreateSession"

	priceID, ok := c.prices.PriceFor(tier)
	if !ok {
		return "", fmt.Errorf("%s: tier %q is not purchasable", op, tier)
	}

	params := &stripe.CheckoutSessionParams{
		Params: stripe.Params{
			Context: ctx,
		},
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		SuccessURL:        stripe.String(c.successURL),
		CancelURL:         stripe.String(c.cancelURL),
		ClientReferenceID: stripe.String(userUID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceID),
				Quantity: stripe.Int64(1),
			},
		},
	}
	params.AddMetadata("tier", string(tier))

	session, err := c.sc.CheckoutSessions.New(params)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	c.log.Info("checkout session created",
		slog.String("user_uid", userUID),
		slog.String("tier", string(tier)),
		slog.String("session_id", session.ID))
	return session.URL, nil
}
