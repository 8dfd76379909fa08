package payment

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	razorpay "github.com/razorpay/razorpay-go"
	"go.uber.org/zap"

	"parkwise/models"
)

// Gateway creates payment orders with the external processor and verifies
// its completion callbacks. The processor secret never leaves this side of
// the boundary.
type Gateway interface {
	CreateOrder(ctx context.Context, amount int64, currency string) (*models.PaymentOrder, error)
	Verify(orderID, paymentID, signature string) bool
}

// RazorpayGateway is the Razorpay-backed Gateway.
type RazorpayGateway struct {
	client *razorpay.Client
	secret string
	logger *zap.Logger
}

// NewRazorpayGateway builds a gateway from the processor key pair.
func NewRazorpayGateway(keyID, keySecret string, logger *zap.Logger) *RazorpayGateway {
	return &RazorpayGateway{
		client: razorpay.NewClient(keyID, keySecret),
		secret: keySecret,
		logger: logger,
	}
}

// CreateOrder registers an order with the processor. The amount is an
// integer number of minor currency units (e.g. paisa) and must be positive;
// invalid amounts are rejected locally. The currency defaults to INR.
func (g *RazorpayGateway) CreateOrder(ctx context.Context, amount int64, currency string) (*models.PaymentOrder, error) {
	if amount <= 0 {
		return nil, ErrInvalidAmount
	}
	if currency == "" {
		currency = "INR"
	}

	receipt := "rcpt_" + uuid.New().String()
	data := map[string]interface{}{
		"amount":   amount,
		"currency": currency,
		"receipt":  receipt,
	}
	body, err := g.client.Order.Create(data, nil)
	if err != nil {
		g.logger.Error("processor order creation failed", zap.Error(err), zap.Int64("amount", amount))
		return nil, fmt.Errorf("%w: %v", ErrOrderCreationFailed, err)
	}

	orderID, ok := body["id"].(string)
	if !ok || orderID == "" {
		return nil, fmt.Errorf("%w: processor response missing order id", ErrOrderCreationFailed)
	}

	order := &models.PaymentOrder{
		ID:       orderID,
		Amount:   amount,
		Currency: currency,
		Receipt:  receipt,
	}
	g.logger.Info("payment order created",
		zap.String("orderId", order.ID), zap.Int64("amount", amount), zap.String("currency", currency))
	return order, nil
}
