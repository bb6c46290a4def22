// services/escrow.go
package services

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"log"
	"math/big"
	"os"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
)

// escrowABIJSON covers the two escrow methods this service ever calls.
const escrowABIJSON = `[
	{"type":"function","name":"payReward","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"rescueERC20","stateMutability":"nonpayable","inputs":[{"name":"token","type":"address"},{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]}
]`

// ChainCaller is the on-chain surface the settlement engine and the
// reconcile worker depend on. Tests substitute a fake.
type ChainCaller interface {
	// PayReward transfers amount WR from escrow to the hunter and waits for
	// one confirmation. Returns the transaction hash.
	PayReward(ctx context.Context, to common.Address, amount *big.Int) (string, error)

	// RescueERC20 drains amount WR from escrow back to the promoter and
	// waits for one confirmation. Returns the transaction hash.
	RescueERC20(ctx context.Context, to common.Address, amount *big.Int) (string, error)

	// ReceiptStatus looks up a transaction receipt. found is false while the
	// transaction is still unmined (or unknown to the node).
	ReceiptStatus(ctx context.Context, txHash string) (status uint64, found bool, err error)
}

// EscrowClient issues the two escrow contract calls against a fixed contract
// address with a single signing key. Nonce assignment is sequential per key,
// which serializes our transactions at the chain level.
type EscrowClient struct {
	eth        *ethclient.Client
	abi        abi.ABI
	escrowAddr common.Address
	tokenAddr  common.Address
	chainID    *big.Int
	key        *ecdsa.PrivateKey
	from       common.Address
}

// NewEscrowClientFromEnv dials the RPC endpoint and loads the signer key.
// Required env: ESCROW_RPC_URL, ESCROW_CONTRACT_ADDRESS, WR_TOKEN_ADDRESS,
// ESCROW_SIGNER_KEY (hex private key, configured out-of-band).
func NewEscrowClientFromEnv(ctx context.Context) (*EscrowClient, error) {
	rpcURL := os.Getenv("ESCROW_RPC_URL")
	escrowAddr := os.Getenv("ESCROW_CONTRACT_ADDRESS")
	tokenAddr := os.Getenv("WR_TOKEN_ADDRESS")
	keyHex := os.Getenv("ESCROW_SIGNER_KEY")
	if rpcURL == "" || escrowAddr == "" || tokenAddr == "" || keyHex == "" {
		return nil, fmt.Errorf("ESCROW_RPC_URL, ESCROW_CONTRACT_ADDRESS, WR_TOKEN_ADDRESS and ESCROW_SIGNER_KEY must be set")
	}

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, fmt.Errorf("failed to dial RPC endpoint: %w", err)
	}

	chainID, err := client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chain id: %w", err)
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(keyHex, "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid ESCROW_SIGNER_KEY: %w", err)
	}

	parsedABI, err := abi.JSON(strings.NewReader(escrowABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse escrow ABI: %w", err)
	}

	return &EscrowClient{
		eth:        client,
		abi:        parsedABI,
		escrowAddr: common.HexToAddress(escrowAddr),
		tokenAddr:  common.HexToAddress(tokenAddr),
		chainID:    chainID,
		key:        key,
		from:       crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

func (c *EscrowClient) PayReward(ctx context.Context, to common.Address, amount *big.Int) (string, error) {
	return c.transact(ctx, "payReward", to, amount)
}

func (c *EscrowClient) RescueERC20(ctx context.Context, to common.Address, amount *big.Int) (string, error) {
	return c.transact(ctx, "rescueERC20", to, amount)
}

func (c *EscrowClient) ReceiptStatus(ctx context.Context, txHash string) (uint64, bool, error) {
	receipt, err := c.eth.TransactionReceipt(ctx, common.HexToHash(txHash))
	if err != nil {
		if err == ethereum.NotFound {
			return 0, false, nil
		}
		return 0, false, err
	}
	return receipt.Status, true, nil
}

// transact packs, signs, sends and waits for one confirmation. Any failure,
// including a reverted receipt, comes back as an error; there is no retry
// here — the settlement engine records the failure and the caller retries.
func (c *EscrowClient) transact(ctx context.Context, method string, to common.Address, amount *big.Int) (string, error) {
	data, err := c.abi.Pack(method, c.tokenAddr, to, amount)
	if err != nil {
		return "", fmt.Errorf("failed to pack %s call: %w", method, err)
	}

	nonce, err := c.eth.PendingNonceAt(ctx, c.from)
	if err != nil {
		return "", fmt.Errorf("failed to fetch nonce: %w", err)
	}

	gasPrice, err := c.eth.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to fetch gas price: %w", err)
	}

	gasLimit, err := c.eth.EstimateGas(ctx, ethereum.CallMsg{
		From: c.from,
		To:   &c.escrowAddr,
		Data: data,
	})
	if err != nil {
		return "", fmt.Errorf("gas estimation for %s failed: %w", method, err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &c.escrowAddr,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})

	signed, err := types.SignTx(tx, types.LatestSignerForChainID(c.chainID), c.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s transaction: %w", method, err)
	}

	if err := c.eth.SendTransaction(ctx, signed); err != nil {
		return "", fmt.Errorf("failed to send %s transaction: %w", method, err)
	}

	log.Printf("⛓️ [ESCROW] sent %s tx %s (to=%s amount=%s)", method, signed.Hash().Hex(), to.Hex(), amount.String())

	receipt, err := bind.WaitMined(ctx, c.eth, signed)
	if err != nil {
		return "", fmt.Errorf("waiting for %s confirmation: %w", method, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return "", fmt.Errorf("%s transaction %s reverted", method, signed.Hash().Hex())
	}

	return signed.Hash().Hex(), nil
}
