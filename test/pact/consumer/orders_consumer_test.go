//go:build pact
// +build pact

package consumer_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	pacttest "github.com/Apurer/order-inventory-coordinator/test/pact"

	pactconsumer "github.com/pact-foundation/pact-go/v2/consumer"
	pactlog "github.com/pact-foundation/pact-go/v2/log"
	"github.com/pact-foundation/pact-go/v2/matchers"
	"github.com/stretchr/testify/require"
)

type itemPayload struct {
	ProductID string `json:"productId"`
	Quantity  int64  `json:"quantity"`
}

type createOrderPayload struct {
	CustomerID string        `json:"customerId"`
	Items      []itemPayload `json:"items"`
}

type orderPayload struct {
	ID          string `json:"id"`
	CustomerID  string `json:"customerId"`
	Status      string `json:"status"`
	TotalAmount string `json:"totalAmount"`
	Items       []struct {
		ProductID string `json:"productId"`
		Quantity  int64  `json:"quantity"`
		Price     string `json:"price"`
	} `json:"items"`
}

type problemDetail struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail"`
}

type apiError struct {
	status      int
	problemType string
	detail      string
}

func (e apiError) Error() string {
	return fmt.Sprintf("%s: %s (status %d)", e.problemType, e.detail, e.status)
}

func TestOrderPortalContract(t *testing.T) {
	t.Helper()
	pactlog.SetLogLevel("INFO")

	pact, err := pactconsumer.NewV2Pact(pactconsumer.MockHTTPProviderConfig{
		Consumer: pacttest.ConsumerName,
		Provider: pacttest.ProviderName,
		PactDir:  pacttest.PactDir(t),
		LogDir:   pacttest.LogDir(t),
	})
	require.NoError(t, err)

	jsonContentType := matchers.Regex("application/json; charset=utf-8", "application\\/json(?:;\\s?charset=utf-8)?")
	orderBody := matchers.Map{
		"id":          matchers.Like(pacttest.ExistingOrderID),
		"customerId":  matchers.Like(pacttest.CustomerID),
		"status":      matchers.Term("PENDING", "PENDING|CONFIRMED|CANCELLED|COMPLETED"),
		"totalAmount": matchers.Like("0"),
		"items": matchers.ArrayMinLike(matchers.Map{
			"productId": matchers.Like(pacttest.ProductID),
			"quantity":  matchers.Like(5),
			"price":     matchers.Like("5"),
		}, 1),
	}
	problemBody := func(problemType string, status int) matchers.Map {
		return matchers.Map{
			"type":   matchers.S(problemType),
			"status": matchers.Like(status),
			"detail": matchers.Like("detail"),
		}
	}

	pact.AddInteraction().
		Given(pacttest.StateStockAvailable).
		UponReceiving("a request to place an order covered by stock").
		WithRequest("POST", "/orders", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.Header("Idempotency-Key", matchers.S(pacttest.IdempotencyKey))
			b.JSONBody(createOrderPayload{CustomerID: pacttest.CustomerID, Items: []itemPayload{{ProductID: pacttest.ProductID, Quantity: 5}}})
		}).
		WillRespondWith(http.StatusCreated, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(orderBody)
		})

	pact.AddInteraction().
		Given(pacttest.StateStockLow).
		UponReceiving("a request to place an order exceeding stock").
		WithRequest("POST", "/orders", func(b *pactconsumer.V2RequestBuilder) {
			b.Header("Content-Type", matchers.S("application/json"))
			b.JSONBody(createOrderPayload{CustomerID: pacttest.CustomerID, Items: []itemPayload{{ProductID: pacttest.ProductID, Quantity: 50}}})
		}).
		WillRespondWith(http.StatusBadRequest, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", matchers.S("application/problem+json"))
			b.JSONBody(problemBody("/problems/insufficient-inventory", http.StatusBadRequest))
		})

	pact.AddInteraction().
		Given(pacttest.StateOrderExists).
		UponReceiving("a request to fetch an existing order").
		WithRequest("GET", "/orders/"+pacttest.ExistingOrderID).
		WillRespondWith(http.StatusOK, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", jsonContentType)
			b.JSONBody(orderBody)
		})

	pact.AddInteraction().
		Given(pacttest.StateOrderMissing).
		UponReceiving("a request for a missing order").
		WithRequest("GET", "/orders/"+pacttest.MissingOrderID).
		WillRespondWith(http.StatusNotFound, func(b *pactconsumer.V2ResponseBuilder) {
			b.Header("Content-Type", matchers.S("application/problem+json"))
			b.JSONBody(problemBody("/problems/not-found", http.StatusNotFound))
		})

	err = pact.ExecuteTest(t, func(config pactconsumer.MockServerConfig) error {
		client := newOrderClient(config)
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		request := createOrderPayload{CustomerID: pacttest.CustomerID, Items: []itemPayload{{ProductID: pacttest.ProductID, Quantity: 5}}}
		created, err := client.PlaceOrder(ctx, request, pacttest.IdempotencyKey)
		if err != nil {
			return fmt.Errorf("place order: %w", err)
		}
		if created.ID == "" || created.Status != "PENDING" {
			return fmt.Errorf("unexpected created order %+v", created)
		}

		oversized := createOrderPayload{CustomerID: pacttest.CustomerID, Items: []itemPayload{{ProductID: pacttest.ProductID, Quantity: 50}}}
		_, err = client.PlaceOrder(ctx, oversized, "")
		apiErr, ok := err.(apiError)
		if !ok || apiErr.problemType != "/problems/insufficient-inventory" {
			return fmt.Errorf("expected insufficient inventory, got %v", err)
		}

		fetched, err := client.GetOrder(ctx, pacttest.ExistingOrderID)
		if err != nil {
			return fmt.Errorf("get order: %w", err)
		}
		if fetched.ID == "" {
			return fmt.Errorf("expected order id, got %+v", fetched)
		}

		_, err = client.GetOrder(ctx, pacttest.MissingOrderID)
		if apiErr, ok := err.(apiError); !ok || apiErr.status != http.StatusNotFound {
			return fmt.Errorf("expected 404, got %v", err)
		}
		return nil
	})
	require.NoError(t, err)
}

type orderClient struct {
	baseURL    string
	httpClient *http.Client
}

func newOrderClient(config pactconsumer.MockServerConfig) *orderClient {
	host := config.Host
	if host == "" {
		host = "localhost"
	}
	transport := &http.Transport{TLSClientConfig: config.TLSConfig}
	return &orderClient{
		baseURL:    fmt.Sprintf("http://%s:%d", host, config.Port),
		httpClient: &http.Client{Transport: transport, Timeout: 10 * time.Second},
	}
}

func (c *orderClient) PlaceOrder(ctx context.Context, order createOrderPayload, idempotencyKey string) (*orderPayload, error) {
	body, err := json.Marshal(order)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}
	return c.do(req)
}

func (c *orderClient) GetOrder(ctx context.Context, id string) (*orderPayload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/orders/"+id, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *orderClient) do(req *http.Request) (*orderPayload, error) {
	res, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode >= http.StatusBadRequest {
		var problem problemDetail
		_ = json.NewDecoder(res.Body).Decode(&problem)
		return nil, apiError{status: res.StatusCode, problemType: problem.Type, detail: problem.Detail}
	}
	var payload orderPayload
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return &payload, nil
}
