/*
Package rpctest provides a fake JSON-RPC node for CLI and client tests. It
answers the requests done by client initialization and dispatches contract
invocations to per-method handlers.
*/
package rpctest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/nspcc-dev/neo-go/pkg/config/netmode"
	"github.com/nspcc-dev/neo-go/pkg/neorpc/result"
	"github.com/nspcc-dev/neo-go/pkg/util"
	"github.com/nspcc-dev/neo-go/pkg/vm/stackitem"
	"github.com/stretchr/testify/require"
)

// Network is the magic reported by the server.
const Network = netmode.UnitTestNet

// Invocation is a single invokefunction request.
type Invocation struct {
	Contract util.Uint160
	Method   string
}

// Server is a fake RPC node.
type Server struct {
	*httptest.Server

	lock        sync.Mutex
	results     map[Invocation]*result.Invoke
	invocations []Invocation
	heights     map[util.Uint256]uint32
	blockCount  uint32
	autoMine    bool
}

type request struct {
	ID     json.RawMessage   `json:"id"`
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
}

type response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int64  `json:"code"`
	Message string `json:"message"`
}

// NewServer starts a fake RPC node, it's stopped when the test ends.
func NewServer(t testing.TB) *Server {
	s := &Server{
		results:    make(map[Invocation]*result.Invoke),
		heights:    make(map[util.Uint256]uint32),
		blockCount: 1,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		var r request
		require.NoError(t, json.NewDecoder(req.Body).Decode(&r))

		resp := response{JSONRPC: "2.0", ID: r.ID}
		switch r.Method {
		case "getversion":
			resp.Result = result.Version{
				TCPPort:   20332,
				UserAgent: "/NEO-GO:rpctest/",
				Protocol: result.Protocol{
					Network:              Network,
					MillisecondsPerBlock: 15000,
					AddressVersion:       0x35,
				},
			}
		case "getnativecontracts":
			resp.Result = []any{}
		case "invokefunction":
			resp.Result, resp.Error = s.invoke(t, r.Params)
		case "getblockcount":
			resp.Result = s.nextBlockCount()
		case "gettransactionheight":
			resp.Result, resp.Error = s.transactionHeight(t, r.Params)
		default:
			resp.Error = &rpcError{Code: -32601, Message: "Method not found"}
		}
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
	t.Cleanup(s.Close)
	return s
}

// Halt makes invocations of the given contract method return the given
// items.
func (s *Server) Halt(contract util.Uint160, method string, items ...stackitem.Item) {
	s.set(contract, method, &result.Invoke{State: "HALT", Script: []byte{}, Stack: items})
}

// Fault makes invocations of the given contract method fail with the given
// exception.
func (s *Server) Fault(contract util.Uint160, method string, exception string) {
	s.set(contract, method, &result.Invoke{State: "FAULT", Script: []byte{}, FaultException: exception, Stack: []stackitem.Item{}})
}

// SetBlockCount sets the number of blocks reported by the server. If
// autoMine is set, every getblockcount request adds a block after the
// answer.
func (s *Server) SetBlockCount(n uint32, autoMine bool) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.blockCount = n
	s.autoMine = autoMine
}

// SetTransactionHeight sets the height of the block with the transaction.
func (s *Server) SetTransactionHeight(h util.Uint256, height uint32) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.heights[h] = height
}

// Invocations returns all contract invocations made so far.
func (s *Server) Invocations() []Invocation {
	s.lock.Lock()
	defer s.lock.Unlock()
	return append([]Invocation(nil), s.invocations...)
}

func (s *Server) set(contract util.Uint160, method string, res *result.Invoke) {
	s.lock.Lock()
	defer s.lock.Unlock()
	s.results[Invocation{contract, method}] = res
}

func (s *Server) invoke(t testing.TB, params []json.RawMessage) (*result.Invoke, *rpcError) {
	require.GreaterOrEqual(t, len(params), 2)
	var (
		hash   string
		method string
	)
	require.NoError(t, json.Unmarshal(params[0], &hash))
	require.NoError(t, json.Unmarshal(params[1], &method))
	contract, err := util.Uint160DecodeStringLE(trim0x(hash))
	require.NoError(t, err)

	s.lock.Lock()
	defer s.lock.Unlock()
	inv := Invocation{contract, method}
	s.invocations = append(s.invocations, inv)
	res, ok := s.results[inv]
	if !ok {
		return nil, &rpcError{Code: -32602, Message: "unknown method " + method}
	}
	return res, nil
}

func (s *Server) nextBlockCount() uint32 {
	s.lock.Lock()
	defer s.lock.Unlock()
	n := s.blockCount
	if s.autoMine {
		s.blockCount++
	}
	return n
}

func (s *Server) transactionHeight(t testing.TB, params []json.RawMessage) (any, *rpcError) {
	require.Len(t, params, 1)
	var hash string
	require.NoError(t, json.Unmarshal(params[0], &hash))
	h, err := util.Uint256DecodeStringLE(trim0x(hash))
	require.NoError(t, err)

	s.lock.Lock()
	defer s.lock.Unlock()
	height, ok := s.heights[h]
	if !ok {
		return nil, &rpcError{Code: -100, Message: "Unknown transaction"}
	}
	return height, nil
}

func trim0x(s string) string {
	if len(s) > 2 && s[:2] == "0x" {
		return s[2:]
	}
	return s
}
