package payment

import (
	"context"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"
	"github.com/mivine/essentials-backend-go/models"
	"github.com/pkg/errors"
)

// chainReader is the slice of ethclient.Client the verifier needs.
type chainReader interface {
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
	TransactionByHash(ctx context.Context, hash common.Hash) (tx *types.Transaction, isPending bool, err error)
	BlockNumber(ctx context.Context) (uint64, error)
}

// EthereumVerifier checks that the transaction named in the payment details
// transferred at least the checkout total to the merchant address and is
// buried under enough blocks.
type EthereumVerifier struct {
	client           chainReader
	merchant         common.Address
	weiPerUnit       *big.Int
	minConfirmations uint64
	logger           echo.Logger
}

func NewEthereumVerifier(rpcURL, merchant, weiPerUnit string, minConfirmations uint64, logger echo.Logger) (*EthereumVerifier, error) {
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to Ethereum client")
	}
	return newEthereumVerifier(client, merchant, weiPerUnit, minConfirmations, logger)
}

func newEthereumVerifier(client chainReader, merchant, weiPerUnit string, minConfirmations uint64, logger echo.Logger) (*EthereumVerifier, error) {
	if !common.IsHexAddress(merchant) {
		return nil, errors.Errorf("invalid merchant address %q", merchant)
	}
	rate, ok := new(big.Int).SetString(weiPerUnit, 10)
	if !ok || rate.Sign() <= 0 {
		return nil, errors.Errorf("invalid wei per unit %q", weiPerUnit)
	}
	if minConfirmations == 0 {
		minConfirmations = 1
	}
	return &EthereumVerifier{
		client:           client,
		merchant:         common.HexToAddress(merchant),
		weiPerUnit:       rate,
		minConfirmations: minConfirmations,
		logger:           logger,
	}, nil
}

func (v *EthereumVerifier) Verify(ctx context.Context, checkout *models.Checkout, details models.PaymentDetails) (bool, error) {
	raw, _ := details["txHash"].(string)
	if raw == "" || len(strings.TrimPrefix(raw, "0x")) != 2*common.HashLength {
		v.reject(checkout, raw, "missing or malformed txHash")
		return false, nil
	}
	hash := common.HexToHash(raw)

	receipt, err := v.client.TransactionReceipt(ctx, hash)
	if errors.Is(err, ethereum.NotFound) {
		v.reject(checkout, raw, "receipt not found")
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "failed to get receipt")
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		v.reject(checkout, raw, "transaction reverted")
		return false, nil
	}

	tx, pending, err := v.client.TransactionByHash(ctx, hash)
	if err != nil {
		return false, errors.Wrap(err, "failed to get transaction")
	}
	if pending {
		v.reject(checkout, raw, "transaction pending")
		return false, nil
	}
	if tx.To() == nil || *tx.To() != v.merchant {
		v.reject(checkout, raw, "wrong recipient")
		return false, nil
	}
	if want := v.amountDue(checkout.TotalPrice); tx.Value().Cmp(want) < 0 {
		v.reject(checkout, raw, "insufficient amount")
		return false, nil
	}

	head, err := v.client.BlockNumber(ctx)
	if err != nil {
		return false, errors.Wrap(err, "failed to get block number")
	}
	mined := receipt.BlockNumber.Uint64()
	if head < mined || head-mined+1 < v.minConfirmations {
		v.reject(checkout, raw, "not enough confirmations")
		return false, nil
	}

	// one transaction must always be stored under the same key, whatever
	// casing or prefix the client sent
	details["txHash"] = hash.Hex()
	return true, nil
}

// amountDue converts a storefront price to wei.
func (v *EthereumVerifier) amountDue(total float64) *big.Int {
	f := new(big.Float).SetPrec(256).SetFloat64(total)
	f.Mul(f, new(big.Float).SetInt(v.weiPerUnit))
	wei, _ := f.Int(nil)
	return wei
}

func (v *EthereumVerifier) reject(checkout *models.Checkout, txHash, reason string) {
	v.logger.Warnj(log.JSON{
		"msg":      "payment rejected",
		"checkout": checkout.ID.Hex(),
		"txHash":   txHash,
		"reason":   reason,
	})
}
