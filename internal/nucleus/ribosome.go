package nucleus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/roach88/hcore/internal/ir"
)

// Invocation is what a ribosome receives for one call.
type Invocation struct {
	Call  ir.ZomeFnCall
	Dna   *ir.Dna
	Agent ir.Address
}

// Ribosome executes zome functions. Call runs on a worker goroutine and
// may block.
type Ribosome interface {
	Call(ctx context.Context, inv Invocation) (json.RawMessage, error)
}

// ZomeFunction is one natively implemented zome function.
type ZomeFunction func(ctx context.Context, inv Invocation) (json.RawMessage, error)

// Functions is a Ribosome backed by Go functions, keyed by zome then
// function name.
type Functions map[string]map[string]ZomeFunction

// Register adds fn as zome/name.
func (f Functions) Register(zome, name string, fn ZomeFunction) {
	if f[zome] == nil {
		f[zome] = map[string]ZomeFunction{}
	}
	f[zome][name] = fn
}

func (f Functions) Call(ctx context.Context, inv Invocation) (json.RawMessage, error) {
	fn, ok := f[inv.Call.ZomeName][inv.Call.FnName]
	if !ok {
		return nil, fmt.Errorf("no implementation for %s/%s", inv.Call.ZomeName, inv.Call.FnName)
	}
	return fn(ctx, inv)
}

// Echo is a Ribosome whose every function returns its parameters.
type Echo struct{}

func (Echo) Call(_ context.Context, inv Invocation) (json.RawMessage, error) {
	return json.RawMessage(inv.Call.ParametersString()), nil
}
