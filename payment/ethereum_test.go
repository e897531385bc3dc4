package payment

import (
	"context"
	"errors"
	"io"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/labstack/gommon/log"
	"github.com/mivine/essentials-backend-go/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	merchantHex = "0x00000000000000000000000000000000000000aa"
	txHashHex   = "0x1111111111111111111111111111111111111111111111111111111111111111"
	// 1 storefront unit = 1e9 wei keeps the numbers readable
	testRate = "1000000000"
)

type fakeChain struct {
	receipt    *types.Receipt
	receiptErr error
	tx         *types.Transaction
	pending    bool
	head       uint64
}

func (f *fakeChain) TransactionReceipt(context.Context, common.Hash) (*types.Receipt, error) {
	return f.receipt, f.receiptErr
}

func (f *fakeChain) TransactionByHash(context.Context, common.Hash) (*types.Transaction, bool, error) {
	return f.tx, f.pending, nil
}

func (f *fakeChain) BlockNumber(context.Context) (uint64, error) {
	return f.head, nil
}

func testLogger() *log.Logger {
	l := log.New("test")
	l.SetOutput(io.Discard)
	return l
}

func paymentTo(to string, wei int64) *types.Transaction {
	return types.NewTransaction(0, common.HexToAddress(to), big.NewInt(wei), 21000, big.NewInt(1), nil)
}

func goodChain() *fakeChain {
	return &fakeChain{
		receipt: &types.Receipt{Status: types.ReceiptStatusSuccessful, BlockNumber: big.NewInt(100)},
		tx:      paymentTo(merchantHex, 5000*1_000_000_000),
		head:    102,
	}
}

func TestEthereumVerifier(t *testing.T) {
	checkout := &models.Checkout{ID: primitive.NewObjectID(), TotalPrice: 5000}
	details := models.PaymentDetails{"txHash": txHashHex}

	tests := []struct {
		name    string
		chain   func() *fakeChain
		details models.PaymentDetails
		want    bool
		wantErr bool
	}{
		{name: "valid payment", chain: goodChain, details: details, want: true},
		{name: "missing hash", chain: goodChain, details: models.PaymentDetails{}, want: false},
		{name: "malformed hash", chain: goodChain, details: models.PaymentDetails{"txHash": "0x12"}, want: false},
		{
			name: "unknown transaction",
			chain: func() *fakeChain {
				c := goodChain()
				c.receipt, c.receiptErr = nil, ethereum.NotFound
				return c
			},
			details: details,
		},
		{
			name: "rpc failure",
			chain: func() *fakeChain {
				c := goodChain()
				c.receipt, c.receiptErr = nil, errors.New("connection reset")
				return c
			},
			details: details,
			wantErr: true,
		},
		{
			name: "reverted",
			chain: func() *fakeChain {
				c := goodChain()
				c.receipt.Status = types.ReceiptStatusFailed
				return c
			},
			details: details,
		},
		{
			name: "wrong recipient",
			chain: func() *fakeChain {
				c := goodChain()
				c.tx = paymentTo("0x00000000000000000000000000000000000000bb", 5000*1_000_000_000)
				return c
			},
			details: details,
		},
		{
			name: "underpaid",
			chain: func() *fakeChain {
				c := goodChain()
				c.tx = paymentTo(merchantHex, 4999*1_000_000_000)
				return c
			},
			details: details,
		},
		{
			name: "too few confirmations",
			chain: func() *fakeChain {
				c := goodChain()
				c.head = 100
				return c
			},
			details: details,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := newEthereumVerifier(tt.chain(), merchantHex, testRate, 3, testLogger())
			require.NoError(t, err)

			ok, err := v.Verify(context.Background(), checkout, tt.details)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, ok)
		})
	}
}

func TestEthereumVerifier_CanonicalTxHash(t *testing.T) {
	v, err := newEthereumVerifier(goodChain(), merchantHex, testRate, 3, testLogger())
	require.NoError(t, err)

	mixed := "0xABCDEF" + txHashHex[8:]
	details := models.PaymentDetails{"txHash": mixed}
	ok, err := v.Verify(context.Background(), &models.Checkout{ID: primitive.NewObjectID(), TotalPrice: 5000}, details)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "0xabcdef"+txHashHex[8:], details["txHash"])
}

func TestNewEthereumVerifier_InvalidConfig(t *testing.T) {
	_, err := newEthereumVerifier(goodChain(), "not-an-address", testRate, 1, testLogger())
	assert.Error(t, err)

	_, err = newEthereumVerifier(goodChain(), merchantHex, "-5", 1, testLogger())
	assert.Error(t, err)
}

func TestManualVerifier(t *testing.T) {
	v := ManualVerifier{}

	ok, err := v.Verify(context.Background(), &models.Checkout{}, models.PaymentDetails{"status": "COMPLETED", "id": "8AB"})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = v.Verify(context.Background(), &models.Checkout{}, models.PaymentDetails{"status": "PENDING"})
	require.NoError(t, err)
	assert.False(t, ok)
}
