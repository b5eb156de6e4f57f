package engine

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParamsLookups(t *testing.T) {
	p := DefaultParams()

	assert.True(t, p.IsBase("sol"))
	assert.True(t, p.IsBase("USDC"))
	assert.False(t, p.IsBase("TOKX"))
	assert.True(t, p.IsStablecoin("usdt"))
	assert.False(t, p.IsStablecoin("SOL"))
	assert.True(t, p.IsNativeLike("WSOL"))
	assert.True(t, p.IsRoutingToken("ray"))
}

func TestConstructorPicksUpFieldOverrides(t *testing.T) {
	p := DefaultParams()
	p.RoutingTokens = []string{"HOPX"}
	p.StablecoinContracts = []string{"usdc.contract.near"}

	NewRoutingFilter(&p, testLogger())

	assert.True(t, p.IsRoutingToken("hopx"))
	assert.False(t, p.IsRoutingToken("RAY"))
	assert.True(t, p.IsStablecoinContract("usdc.contract.near"))
}

// The sync fan-out hands one Params to every per-address goroutine, so the
// lookups must be safe for concurrent use without any prior method call.
func TestParamsSharedAcrossGoroutines(t *testing.T) {
	p := DefaultParams()

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 100 {
				_ = p.IsBase("SOL")
				_ = p.IsRoutingToken("RAY")
				_ = p.IsStablecoin("USDC")
				_ = p.IsWrappedNative("WSOL")
			}
		}()
	}
	wg.Wait()

	assert.True(t, p.IsBase("SOL"))
}
