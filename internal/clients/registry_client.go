package clients

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"

	"go-solver/internal/config"
	"go-solver/internal/solver"
)

// registryABI covers the single registry entry point the solver calls.
const registryABI = `[{
	"name": "submitSolution",
	"type": "function",
	"inputs": [
		{"name": "batchId", "type": "string"},
		{"name": "commitment", "type": "bytes32"},
		{"name": "totalSurplus", "type": "string"}
	],
	"outputs": []
}]`

// SignerFunc signs a prepared transaction. Key management is not the
// solver's concern; the operator injects whatever signing backend they
// run.
type SignerFunc func(ctx context.Context, tx *types.Transaction) (*types.Transaction, error)

// SubmissionReceipt reports the result of a registry submission.
type SubmissionReceipt struct {
	TxHash      string `json:"tx_hash"`
	BlockNumber uint64 `json:"block_number"`
	Accepted    bool   `json:"accepted"`
}

// RegistryClient submits solution commitments to the on-chain
// registry. Failures are reported to the caller and never retried
// silently.
type RegistryClient struct {
	client      *ethclient.Client
	contract    common.Address
	from        common.Address
	chainID     *big.Int
	gasLimit    uint64
	confirmWait time.Duration
	parsedABI   abi.ABI
	sign        SignerFunc
}

// NewRegistryClient dials the configured network and prepares the
// registry call encoder.
func NewRegistryClient(network *config.NetworkConfig, from common.Address, sign SignerFunc) (*RegistryClient, error) {
	client, err := ethclient.Dial(network.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC endpoint %s: %w", network.RPCEndpoint, err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(registryABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse registry ABI: %w", err)
	}

	confirmWait := time.Duration(network.ConfirmTimeout) * time.Second
	if confirmWait <= 0 {
		confirmWait = 2 * time.Minute
	}
	gasLimit := network.GasLimit
	if gasLimit == 0 {
		gasLimit = 300000
	}

	return &RegistryClient{
		client:      client,
		contract:    common.HexToAddress(network.RegistryContract),
		from:        from,
		chainID:     big.NewInt(network.ChainID),
		gasLimit:    gasLimit,
		confirmWait: confirmWait,
		parsedABI:   parsedABI,
		sign:        sign,
	}, nil
}

// Submit sends the solution's commitment to the registry and waits for
// the transaction to be mined.
func (c *RegistryClient) Submit(ctx context.Context, solution *solver.Solution) (*SubmissionReceipt, error) {
	calldata, err := c.parsedABI.Pack("submitSolution",
		solution.BatchID,
		common.HexToHash("0x"+solution.CommitmentHash),
		solution.TotalSurplus,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack submitSolution call: %w", err)
	}

	nonce, err := c.client.PendingNonceAt(ctx, c.from)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nonce for %s: %w", c.from.Hex(), err)
	}
	gasPrice, err := c.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to suggest gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.contract,
		Gas:      c.gasLimit,
		GasPrice: gasPrice,
		Data:     calldata,
	})

	signedTx, err := c.sign(ctx, tx)
	if err != nil {
		return nil, fmt.Errorf("failed to sign registry transaction: %w", err)
	}

	if err := c.client.SendTransaction(ctx, signedTx); err != nil {
		return nil, fmt.Errorf("failed to send registry transaction: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"tx_hash":     signedTx.Hash().Hex(),
		"batch_id":    solution.BatchID,
		"commitment":  solution.CommitmentHash,
		"solution_id": solution.ID,
	}).Info("Registry transaction sent, waiting for confirmation")

	receipt, err := c.waitMined(ctx, signedTx.Hash())
	if err != nil {
		return nil, err
	}

	return &SubmissionReceipt{
		TxHash:      signedTx.Hash().Hex(),
		BlockNumber: receipt.BlockNumber.Uint64(),
		Accepted:    receipt.Status == types.ReceiptStatusSuccessful,
	}, nil
}

// waitMined polls for the transaction receipt until the confirm
// timeout elapses or the context is cancelled.
func (c *RegistryClient) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	deadline := time.Now().Add(c.confirmWait)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for {
		receipt, err := c.client.TransactionReceipt(ctx, txHash)
		if err == nil {
			return receipt, nil
		}

		if time.Now().After(deadline) {
			return nil, fmt.Errorf("transaction %s not confirmed within %s", txHash.Hex(), c.confirmWait)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Close releases the underlying RPC connection.
func (c *RegistryClient) Close() {
	c.client.Close()
}
