// Package ethnode provides an in-process JSON-RPC endpoint answering
// Ethereum methods from a fixed table, for tests of code dialing a node.
package ethnode

import (
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
)

const ChainID = 1

// Failure is a JSON-RPC error object.
type Failure struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type request struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

// Node answers each method with the entry of Results, or fails with the
// entry of Errors. Unknown methods fail with -32601.
type Node struct {
	Results map[string]any
	Errors  map[string]Failure

	mu    sync.Mutex
	calls map[string]int
	total int
}

// Default returns a node of chain ID 1 with the given base fee and native balance.
func Default(baseFee, balance *big.Int) *Node {
	return &Node{
		Results: map[string]any{
			"eth_chainId":             hexutil.EncodeBig(big.NewInt(ChainID)),
			"eth_getBlockByNumber":    Header(baseFee, 0x100),
			"eth_getBalance":          hexutil.EncodeBig(balance),
			"eth_getTransactionCount": hexutil.EncodeUint64(0),
		},
	}
}

// Start serves n over HTTP until the test ends.
func Start(t *testing.T, n *Node) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(n.serveHTTP))
	t.Cleanup(srv.Close)

	return srv
}

// StartBroken serves HTTP 502 for every request and counts them in n.
func StartBroken(t *testing.T, n *Node) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		n.record("")
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)

	return srv
}

// Calls returns how often method was requested. An empty method counts all requests.
func (n *Node) Calls(method string) int {
	n.mu.Lock()
	defer n.mu.Unlock()

	if method == "" {
		return n.total
	}

	return n.calls[method]
}

// Fail makes method answer with failure from now on.
func (n *Node) Fail(method string, failure Failure) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.Errors == nil {
		n.Errors = make(map[string]Failure)
	}
	n.Errors[method] = failure
}

func (n *Node) record(method string) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.calls == nil {
		n.calls = make(map[string]int)
	}
	n.calls[method]++
	n.total++
}

func (n *Node) serveHTTP(w http.ResponseWriter, r *http.Request) {
	var req request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	n.record(req.Method)

	n.mu.Lock()
	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	if failure, ok := n.Errors[req.Method]; ok {
		resp["error"] = failure
	} else if result, ok := n.Results[req.Method]; ok {
		resp["result"] = result
	} else {
		resp["error"] = Failure{Code: -32601, Message: "the method " + req.Method + " does not exist"}
	}
	n.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(resp)
}

// Header is the JSON form of a block header. A nil baseFee yields a
// pre-London header.
func Header(baseFee *big.Int, number uint64) map[string]any {
	zeroHash := common.Hash{}.Hex()

	header := map[string]any{
		"parentHash":       zeroHash,
		"sha3Uncles":       types.EmptyUncleHash.Hex(),
		"miner":            common.Address{}.Hex(),
		"stateRoot":        zeroHash,
		"transactionsRoot": types.EmptyTxsHash.Hex(),
		"receiptsRoot":     types.EmptyReceiptsHash.Hex(),
		"logsBloom":        "0x" + strings.Repeat("00", types.BloomByteLength),
		"difficulty":       "0x0",
		"number":           hexutil.EncodeUint64(number),
		"gasLimit":         hexutil.EncodeUint64(30_000_000),
		"gasUsed":          "0x0",
		"timestamp":        hexutil.EncodeUint64(1_700_000_000),
		"extraData":        "0x",
		"mixHash":          zeroHash,
		"nonce":            "0x0000000000000000",
	}
	if baseFee != nil {
		header["baseFeePerGas"] = hexutil.EncodeBig(baseFee)
	}

	return header
}
