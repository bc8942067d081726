package chain

import (
	"fmt"
	"testing"

	cmtjsonrpctypes "github.com/cometbft/cometbft/rpc/jsonrpc/types"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func TestTxNotFoundDetection(t *testing.T) {
	notFound := &cmtjsonrpctypes.RPCError{
		Code:    -32603,
		Message: "Internal error",
		Data:    "tx (ABCD1234) not found",
	}

	cases := []struct {
		name string
		err  error
		want bool
	}{
		{"rpc error with not found data", notFound, true},
		{"wrapped rpc error", fmt.Errorf("response error: %w", notFound), true},
		{"rpc error with other data", &cmtjsonrpctypes.RPCError{Code: -32603, Data: "height out of range"}, false},
		{"plain error mentioning not found", errors.New("tx (ABCD1234) not found"), false},
		{"transport error", errors.New("connection refused"), false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, isTxNotFound(tc.err))
		})
	}
}
