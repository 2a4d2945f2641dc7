package llm

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunChain_RateLimitedModelsFallThrough(t *testing.T) {
	fake := newFake(ProviderGroq).
		on("m1", fail(http.StatusTooManyRequests)).
		on("m2", fail(http.StatusTooManyRequests)).
		on("m3", ok("hello from m3"))

	text, err := RunChain(context.Background(), fake, []string{"m1", "m2", "m3"}, "p", false, ChainOptions{})
	require.NoError(t, err)
	assert.Equal(t, "hello from m3", text)
	assert.Equal(t, []string{"m1", "m2", "m3"}, fake.models())
}

func TestRunChain_AuthFailureShortCircuits(t *testing.T) {
	fake := newFake(ProviderGroq).
		on("m1", fail(http.StatusUnauthorized)).
		on("m2", ok("never"))

	_, err := RunChain(context.Background(), fake, []string{"m1", "m2"}, "p", false, ChainOptions{})
	var authErr *AuthError
	require.ErrorAs(t, err, &authErr)
	assert.Equal(t, ProviderGroq, authErr.Provider)
	assert.Equal(t, []string{"m1"}, fake.models(), "m2 must not be attempted")
}

func TestRunChain_ForbiddenIsAuth(t *testing.T) {
	fake := newFake(ProviderMistral).on("m1", fail(http.StatusForbidden))
	_, err := RunChain(context.Background(), fake, []string{"m1", "m2"}, "p", false, ChainOptions{})
	var authErr *AuthError
	assert.ErrorAs(t, err, &authErr)
}

func TestRunChain_PaymentRequiredIsBilling(t *testing.T) {
	fake := newFake(ProviderOpenRouter).
		on("m1", fail(http.StatusPaymentRequired)).
		on("m2", ok("never"))

	_, err := RunChain(context.Background(), fake, []string{"m1", "m2"}, "p", false, ChainOptions{})
	var billing *BillingError
	require.ErrorAs(t, err, &billing)
	assert.Equal(t, []string{"m1"}, fake.models())
}

func TestRunChain_OtherStatusContinues(t *testing.T) {
	fake := newFake(ProviderCerebras).
		on("m1", fail(http.StatusInternalServerError)).
		on("m2", fail(http.StatusNotFound)).
		on("m3", ok("done"))

	text, err := RunChain(context.Background(), fake, []string{"m1", "m2", "m3"}, "p", false, ChainOptions{})
	require.NoError(t, err)
	assert.Equal(t, "done", text)
}

func TestRunChain_EmptyResponseContinues(t *testing.T) {
	fake := newFake(ProviderCerebras).
		on("m1", ok("   ")).
		on("m2", ok("real"))

	text, err := RunChain(context.Background(), fake, []string{"m1", "m2"}, "p", false, ChainOptions{})
	require.NoError(t, err)
	assert.Equal(t, "real", text)
}

func TestRunChain_JSONModeBadRequestRetriesWithoutJSON(t *testing.T) {
	fake := newFake(ProviderGroq).
		on("m1", fail(http.StatusBadRequest), ok(`{"a":1}`))

	text, err := RunChain(context.Background(), fake, []string{"m1"}, "p", true, ChainOptions{})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, text)

	require.Len(t, fake.calls, 2)
	assert.True(t, fake.calls[0].expectJSON)
	assert.False(t, fake.calls[1].expectJSON)
}

func TestRunChain_ExhaustedReportsAttempts(t *testing.T) {
	fake := newFake(ProviderGroq).
		on("m1", fail(http.StatusTooManyRequests)).
		on("m2", fail(http.StatusServiceUnavailable))

	_, err := RunChain(context.Background(), fake, []string{"m1", "m2"}, "p", false, ChainOptions{})
	var exhausted *ChainExhaustedError
	require.ErrorAs(t, err, &exhausted)
	require.Len(t, exhausted.Attempts, 2)
	assert.Equal(t, "m1", exhausted.Attempts[0].Model)
	assert.Contains(t, err.Error(), "HTTP 503")
}

func TestRunChain_PerModelTimeoutMovesOn(t *testing.T) {
	fake := newFake(ProviderGroq).
		on("slow", hang()).
		on("fast", ok("quick"))

	text, err := RunChain(context.Background(), fake, []string{"slow", "fast"}, "p", false, ChainOptions{
		PerModelTimeout: 20 * time.Millisecond,
		TotalBudget:     time.Second,
	})
	require.NoError(t, err)
	assert.Equal(t, "quick", text)
}

func TestRunChain_TotalBudgetIsDistinctTimeout(t *testing.T) {
	fake := newFake(ProviderGroq).
		on("m1", hang()).
		on("m2", hang()).
		on("m3", hang())

	start := time.Now()
	_, err := RunChain(context.Background(), fake, []string{"m1", "m2", "m3"}, "p", false, ChainOptions{
		PerModelTimeout: time.Second,
		TotalBudget:     30 * time.Millisecond,
	})
	var timeout *TimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 30*time.Millisecond, timeout.Budget)
	assert.Less(t, time.Since(start), 500*time.Millisecond)

	var modelTimeout *ModelTimeoutError
	assert.NotErrorAs(t, err, &modelTimeout)
}

func TestRunChain_CallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	fake := newFake(ProviderGroq).on("m1", ok("x"))

	_, err := RunChain(ctx, fake, []string{"m1"}, "p", false, ChainOptions{})
	assert.ErrorIs(t, err, context.Canceled)
}
