package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platterly/platterly-backend/internal/reconcile"
	pkgerrors "github.com/platterly/platterly-backend/pkg/errors"
)

type stubEventService struct {
	handleFn func(ctx context.Context, event reconcile.GatewayEvent) error
	events   []reconcile.GatewayEvent
}

func (s *stubEventService) HandleEvent(ctx context.Context, event reconcile.GatewayEvent) error {
	s.events = append(s.events, event)
	if s.handleFn != nil {
		return s.handleFn(ctx, event)
	}
	return nil
}

type stubSplitService struct {
	settleFn func(ctx context.Context, ref string) error
	settled  []string
}

func (s *stubSplitService) IsShareEvent(merchantOrderID string) bool {
	return strings.HasPrefix(merchantOrderID, "SPLIT-")
}

func (s *stubSplitService) SettleShare(ctx context.Context, gatewayOrderRef string) error {
	s.settled = append(s.settled, gatewayOrderRef)
	if s.settleFn != nil {
		return s.settleFn(ctx, gatewayOrderRef)
	}
	return nil
}

type stubSecret string

func (s stubSecret) WebhookSecret() string { return string(s) }

// memoryGuard mimics the redis SetNX guard with a plain map.
type memoryGuard struct {
	seen map[string]struct{}
}

func newMemoryGuard() *memoryGuard {
	return &memoryGuard{seen: map[string]struct{}{}}
}

func (g *memoryGuard) CheckAndMark(ctx context.Context, eventID string) (bool, error) {
	if _, ok := g.seen[eventID]; ok {
		return true, nil
	}
	g.seen[eventID] = struct{}{}
	return false, nil
}

func (g *memoryGuard) Delete(ctx context.Context, eventID string) error {
	delete(g.seen, eventID)
	return nil
}

const testSecret = "webhook-test-secret"

func sign(payload []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func postEvent(t *testing.T, handler http.HandlerFunc, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/gateway", bytes.NewReader(body))
	if signature != "" {
		req.Header.Set(signatureHeader, signature)
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestGatewayRejectsBadSignature(t *testing.T) {
	svc := &stubEventService{}
	handler := Gateway(svc, nil, stubSecret(testSecret), newMemoryGuard(), nil)

	body := []byte(`{"event":"checkout.completed","payload":{"merchantOrderId":"x"}}`)

	rec := postEvent(t, handler, body, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = postEvent(t, handler, body, sign(body, "some-other-secret"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	assert.Empty(t, svc.events)
}

func TestGatewayDispatchesVerifiedEvent(t *testing.T) {
	svc := &stubEventService{}
	handler := Gateway(svc, nil, stubSecret(testSecret), newMemoryGuard(), nil)

	body := []byte(`{"event":"checkout.completed","payload":{"merchantOrderId":"order-1","gatewayOrderId":"GW-1","amountMinorUnits":50000}}`)
	rec := postEvent(t, handler, body, sign(body, testSecret))

	assert.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, svc.events, 1)
	assert.Equal(t, reconcile.EventCheckoutCompleted, svc.events[0].Event)
	assert.Equal(t, "order-1", svc.events[0].Payload.MerchantOrderID)
	assert.Equal(t, int64(50000), svc.events[0].Payload.AmountMinor)
}

func TestGatewayDeduplicatesRedelivery(t *testing.T) {
	svc := &stubEventService{}
	handler := Gateway(svc, nil, stubSecret(testSecret), newMemoryGuard(), nil)

	body := []byte(`{"event":"checkout.completed","payload":{"merchantOrderId":"order-2"}}`)
	sig := sign(body, testSecret)

	for i := 0; i < 3; i++ {
		rec := postEvent(t, handler, body, sig)
		assert.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Len(t, svc.events, 1)
}

func TestGatewayFailedHandlingAllowsRetry(t *testing.T) {
	calls := 0
	svc := &stubEventService{
		handleFn: func(ctx context.Context, event reconcile.GatewayEvent) error {
			calls++
			if calls == 1 {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, errors.New("db down"), "save order")
			}
			return nil
		},
	}
	handler := Gateway(svc, nil, stubSecret(testSecret), newMemoryGuard(), nil)

	body := []byte(`{"event":"checkout.completed","payload":{"merchantOrderId":"order-3"}}`)
	sig := sign(body, testSecret)

	rec := postEvent(t, handler, body, sig)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	// The guard mark was dropped on failure, so the redelivery goes through.
	rec = postEvent(t, handler, body, sig)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 2, calls)
}

func TestGatewayRoutesSplitSharesBeforeReconciliation(t *testing.T) {
	svc := &stubEventService{}
	splits := &stubSplitService{}
	handler := Gateway(svc, splits, stubSecret(testSecret), newMemoryGuard(), nil)

	body := []byte(`{"event":"checkout.completed","payload":{"merchantOrderId":"SPLIT-abc-def","gatewayOrderId":"GWO-1"}}`)
	rec := postEvent(t, handler, body, sign(body, testSecret))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"GWO-1"}, splits.settled)
	assert.Empty(t, svc.events)
}

func TestGatewaySplitRoutingOnlyForCheckoutCompleted(t *testing.T) {
	svc := &stubEventService{}
	splits := &stubSplitService{}
	handler := Gateway(svc, splits, stubSecret(testSecret), newMemoryGuard(), nil)

	body := []byte(`{"event":"checkout.failed","payload":{"merchantOrderId":"SPLIT-abc-def"}}`)
	rec := postEvent(t, handler, body, sign(body, testSecret))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, splits.settled)
	assert.Len(t, svc.events, 1)
}

func TestGatewayMalformedBodyRejected(t *testing.T) {
	svc := &stubEventService{}
	handler := Gateway(svc, nil, stubSecret(testSecret), newMemoryGuard(), nil)

	body := []byte(`{"event":`)
	rec := postEvent(t, handler, body, sign(body, testSecret))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, svc.events)
}
