package messaging

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	inventorymemory "github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/adapters/memory"
	"github.com/Apurer/order-inventory-coordinator/internal/domains/inventory/application"
	"github.com/Apurer/order-inventory-coordinator/internal/shared/contracts"
)

func newTestGateway() *Gateway {
	ledger := application.NewLedger(inventorymemory.NewRepository(),
		application.WithReservationStore(inventorymemory.NewReservationStore(), 0))
	return NewGateway(ledger)
}

func TestDispatch_UpdateCheckReserve(t *testing.T) {
	gw := newTestGateway()
	ctx := context.Background()

	var record contracts.InventoryRecord
	reply := gw.Dispatch(ctx, contracts.PatternUpdateInventory, []byte(`{"productId":"P1","quantity":10,"price":"5"}`))
	require.NoError(t, contracts.Decode(reply, &record))
	require.Equal(t, "P1", record.ProductID)
	require.NotEmpty(t, record.ID)

	var check contracts.Availability
	reply = gw.Dispatch(ctx, contracts.PatternCheckInventory, []byte(`[{"productId":"P1","quantity":5}]`))
	require.NoError(t, contracts.Decode(reply, &check))
	require.True(t, check.Available)
	require.True(t, check.Prices["P1"].Equal(decimal.NewFromInt(5)))

	var reserve contracts.Availability
	reply = gw.Dispatch(ctx, contracts.PatternReserveInventory, []byte(`{"token":"o-1","items":[{"productId":"P1","quantity":5}]}`))
	require.NoError(t, contracts.Decode(reply, &reserve))
	require.True(t, reserve.Available)

	reply = gw.Dispatch(ctx, contracts.PatternReserveInventory, []byte(`[{"productId":"P1","quantity":6}]`))
	require.NoError(t, contracts.Decode(reply, &reserve))
	require.False(t, reserve.Available)
	require.Equal(t, "Insufficient inventory for product P1", reserve.Message)
}

func TestDispatch_ErrorCodes(t *testing.T) {
	gw := newTestGateway()
	ctx := context.Background()

	cases := []struct {
		name    string
		pattern string
		payload string
		code    string
	}{
		{"unknown pattern", "drop_tables", `{}`, contracts.CodeUnknownPattern},
		{"malformed json", contracts.PatternCheckInventory, `{"productId":`, contracts.CodeBadPayload},
		{"negative quantity", contracts.PatternUpdateInventory, `{"productId":"P1","quantity":-1,"price":"1"}`, contracts.CodeValidation},
		{"zero request", contracts.PatternCheckInventory, `[{"productId":"P1","quantity":0}]`, contracts.CodeValidation},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := contracts.Decode(gw.Dispatch(ctx, tc.pattern, []byte(tc.payload)), nil)
			var remote *contracts.RemoteError
			require.ErrorAs(t, err, &remote)
			require.Equal(t, tc.code, remote.Code)
		})
	}
}

func TestDispatch_TokenConflict(t *testing.T) {
	gw := newTestGateway()
	ctx := context.Background()
	gw.Dispatch(ctx, contracts.PatternUpdateInventory, []byte(`{"productId":"P1","quantity":10,"price":"1"}`))

	require.NoError(t, contracts.Decode(gw.Dispatch(ctx, contracts.PatternReserveInventory,
		[]byte(`{"token":"t","items":[{"productId":"P1","quantity":1}]}`)), nil))

	err := contracts.Decode(gw.Dispatch(ctx, contracts.PatternReserveInventory,
		[]byte(`{"token":"t","items":[{"productId":"P1","quantity":2}]}`)), nil)
	var remote *contracts.RemoteError
	require.ErrorAs(t, err, &remote)
	require.Equal(t, contracts.CodeConflict, remote.Code)
}

func TestHandleEvent(t *testing.T) {
	gw := newTestGateway()
	ctx := context.Background()

	require.NoError(t, gw.HandleEvent(ctx, contracts.EventOrderCreated, []byte(`{"orderId":"o-1","items":[]}`)))
	require.NoError(t, gw.HandleEvent(ctx, contracts.EventOrderStatusUpdated, []byte(`{"orderId":"o-1","status":"CONFIRMED","items":[]}`)))
	require.NoError(t, gw.HandleEvent(ctx, "something_else", nil))
	require.ErrorIs(t, gw.HandleEvent(ctx, contracts.EventOrderCreated, []byte(`nope`)), errBadPayload)
}
