//go:build pact
// +build pact

package provider_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	pacttest "github.com/Apurer/order-inventory-coordinator/test/pact"

	coordinatorserver "github.com/Apurer/order-inventory-coordinator/go"
	inventorymemory "github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/adapters/memory"
	inventorymessaging "github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/adapters/messaging"
	inventoryapp "github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/application"
	inventoryports "github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/ports"
	ordersmemory "github.com/Apurer/order-inventory-coordinator/internal/domains/orders/adapters/memory"
	ordersmessaging "github.com/Apurer/order-inventory-coordinator/internal/domains/orders/adapters/messaging"
	ordersobs "github.com/Apurer/order-inventory-coordinator/internal/domains/orders/adapters/observability"
	ordersworkflows "github.com/Apurer/order-inventory-coordinator/internal/domains/orders/adapters/workflows"
	ordersapp "github.com/Apurer/order-inventory-coordinator/internal/domains/orders/application"
	orderdomain "github.com/Apurer/order-inventory-coordinator/internal/domains/orders/domain"

	"github.com/gin-gonic/gin"
	"github.com/pact-foundation/pact-go/v2/models"
	pactprovider "github.com/pact-foundation/pact-go/v2/provider"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestOrdersProviderPact(t *testing.T) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	app := newContractProviderApp(t)
	pactFile := filepath.ToSlash(pacttest.PactFile(t))
	if _, err := os.Stat(pactFile); errors.Is(err, os.ErrNotExist) {
		t.Fatalf("pact file not found at %s - run the pact consumer tests first", pactFile)
	} else {
		require.NoError(t, err)
	}

	stateHandlers := models.StateHandlers{
		pacttest.StateStockAvailable: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset(t)
			app.seedStock(t, 10)
			return nil, nil
		},
		pacttest.StateStockLow: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset(t)
			app.seedStock(t, 1)
			return nil, nil
		},
		pacttest.StateOrderExists: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset(t)
			if setup {
				app.seedOrder(t)
			}
			return nil, nil
		},
		pacttest.StateOrderMissing: func(setup bool, _ models.ProviderState) (models.ProviderStateResponse, error) {
			app.reset(t)
			return nil, nil
		},
	}

	err := pactprovider.NewVerifier().VerifyProvider(t, pactprovider.VerifyRequest{
		ProviderBaseURL: app.server.URL,
		Provider:        pacttest.ProviderName,
		PactFiles:       []string{pactFile},
		StateHandlers:   stateHandlers,
		BeforeEach: func() error {
			app.reset(t)
			return nil
		},
	})
	require.NoError(t, err)
}

// contractProviderApp rebuilds the in-memory services on every reset and serves whichever set is current.
type contractProviderApp struct {
	mu     sync.Mutex
	ledger *inventoryapp.Ledger
	orders *ordersmemory.Repository
	router *gin.Engine
	server *httptest.Server
}

func newContractProviderApp(t testing.TB) *contractProviderApp {
	t.Helper()
	app := &contractProviderApp{}
	app.reset(t)
	app.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		app.mu.Lock()
		router := app.router
		app.mu.Unlock()
		router.ServeHTTP(w, r)
	}))
	t.Cleanup(app.server.Close)
	return app
}

func (a *contractProviderApp) reset(t testing.TB) {
	t.Helper()
	ledger := inventoryapp.NewLedger(inventorymemory.NewRepository(),
		inventoryapp.WithReservationStore(inventorymemory.NewReservationStore(), 0))
	orders := ordersmemory.NewRepository()
	coordinator := ordersapp.NewCoordinator(
		orders,
		ordersmessaging.NewInventoryClient(ordersmessaging.NewInProcessRequester(inventorymessaging.NewGateway(ledger))),
	)
	service := ordersobs.New(coordinator)
	router := coordinatorserver.NewOrdersRouter(
		coordinatorserver.NewOrderAPI(service, ordersworkflows.NewInlineOrderWorkflows(service)),
		nil,
	)

	a.mu.Lock()
	a.ledger, a.orders, a.router = ledger, orders, router
	a.mu.Unlock()
}

func (a *contractProviderApp) seedStock(t testing.TB, quantity int64) {
	t.Helper()
	_, err := a.ledger.Upsert(context.Background(), inventoryports.UpsertInput{
		ProductID: pacttest.ProductID,
		Quantity:  quantity,
		Price:     decimal.NewFromInt(5),
	})
	require.NoError(t, err)
}

func (a *contractProviderApp) seedOrder(t testing.TB) {
	t.Helper()
	order, err := orderdomain.NewOrder(pacttest.ExistingOrderID, pacttest.CustomerID,
		[]orderdomain.Item{{ProductID: pacttest.ProductID, Quantity: 5, Price: decimal.NewFromInt(5)}},
		time.Date(2024, 6, 12, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	_, err = a.orders.Save(context.Background(), order)
	require.NoError(t, err)
}
