package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wycliu/parkrwa-backend/internal/snapshot"
	"github.com/wycliu/parkrwa-backend/internal/spaces"
	"github.com/wycliu/parkrwa-backend/internal/txbuilder"
	"github.com/wycliu/parkrwa-backend/pkg/config"
	pkgerrors "github.com/wycliu/parkrwa-backend/pkg/errors"
	"github.com/wycliu/parkrwa-backend/pkg/logger"
)

func ref(prefix string) string {
	return "0x" + prefix + strings.Repeat("0", 64-len(prefix))
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func testBuilder(t *testing.T) *txbuilder.Builder {
	t.Helper()
	builder, err := txbuilder.New(txbuilder.Config{
		PackageID: ref("0f"),
		LotID:     ref("10"),
	})
	require.NoError(t, err)
	return builder
}

type stubService struct {
	allFn       func(ctx context.Context) ([]spaces.Space, error)
	ownedFn     func(ctx context.Context, owner string) ([]spaces.Space, error)
	availableFn func(ctx context.Context) ([]spaces.Space, error)
	oneFn       func(ctx context.Context, id string) (*spaces.Space, error)
	lotFn       func(ctx context.Context) (*spaces.Lot, error)
	paymentsFn  func(ctx context.Context) ([]spaces.PaymentReceipt, error)
}

func (s *stubService) FetchAll(ctx context.Context) ([]spaces.Space, error) {
	if s.allFn != nil {
		return s.allFn(ctx)
	}
	return nil, nil
}

func (s *stubService) FetchOwned(ctx context.Context, owner string) ([]spaces.Space, error) {
	if s.ownedFn != nil {
		return s.ownedFn(ctx, owner)
	}
	return nil, nil
}

func (s *stubService) FetchAvailable(ctx context.Context) ([]spaces.Space, error) {
	if s.availableFn != nil {
		return s.availableFn(ctx)
	}
	return nil, nil
}

func (s *stubService) FetchOne(ctx context.Context, id string) (*spaces.Space, error) {
	if s.oneFn != nil {
		return s.oneFn(ctx, id)
	}
	return nil, nil
}

func (s *stubService) FetchLot(ctx context.Context) (*spaces.Lot, error) {
	if s.lotFn != nil {
		return s.lotFn(ctx)
	}
	return nil, nil
}

func (s *stubService) FetchPayments(ctx context.Context) ([]spaces.PaymentReceipt, error) {
	if s.paymentsFn != nil {
		return s.paymentsFn(ctx)
	}
	return nil, nil
}

type stubSnapshots struct {
	spaces   *snapshot.SpacesSnapshot
	payments *snapshot.PaymentsSnapshot
	err      error
}

func (s *stubSnapshots) LoadSpaces(context.Context) (*snapshot.SpacesSnapshot, error) {
	return s.spaces, s.err
}

func (s *stubSnapshots) LoadPayments(context.Context) (*snapshot.PaymentsSnapshot, error) {
	return s.payments, s.err
}

func decodeEnvelope(t *testing.T, body *bytes.Buffer) map[string]any {
	t.Helper()
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(body.Bytes(), &envelope))
	return envelope
}

func TestSpacesListLive(t *testing.T) {
	svc := &stubService{
		allFn: func(context.Context) ([]spaces.Space, error) {
			return []spaces.Space{{ID: ref("01"), Location: "Level 1 Bay 1", HourlyRate: 2_000_000_000}}, nil
		},
	}
	handler := SpacesList(svc, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/spaces", nil)
	resp := httptest.NewRecorder()
	handler(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	envelope := decodeEnvelope(t, resp.Body)
	data := envelope["data"].(map[string]any)
	assert.EqualValues(t, 1, data["count"])
	assert.Nil(t, data["pass_id"])
}

func TestSpacesListServesSnapshot(t *testing.T) {
	svc := &stubService{
		allFn: func(context.Context) ([]spaces.Space, error) {
			t.Fatal("live fetch must not run when a snapshot exists")
			return nil, nil
		},
	}
	snaps := &stubSnapshots{
		spaces: &snapshot.SpacesSnapshot{
			PassID:  "pass-1",
			TakenAt: time.Now().UTC(),
			Count:   1,
			Records: []spaces.Space{{ID: ref("01")}},
		},
	}
	handler := SpacesList(svc, snaps, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/spaces?source=snapshot", nil)
	resp := httptest.NewRecorder()
	handler(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	envelope := decodeEnvelope(t, resp.Body)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, "pass-1", data["pass_id"])
}

func TestSpacesListSnapshotMissingFallsBackToLive(t *testing.T) {
	var liveCalls int
	svc := &stubService{
		allFn: func(context.Context) ([]spaces.Space, error) {
			liveCalls++
			return []spaces.Space{{ID: ref("02")}}, nil
		},
	}
	handler := SpacesList(svc, &stubSnapshots{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/spaces?source=snapshot", nil)
	resp := httptest.NewRecorder()
	handler(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, 1, liveCalls)
}

func TestSpacesListSyncUnavailable(t *testing.T) {
	svc := &stubService{
		allFn: func(context.Context) ([]spaces.Space, error) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeSyncUnavailable, errors.New("rpc down"), "event discovery failed")
		},
	}
	handler := SpacesList(svc, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/spaces", nil)
	resp := httptest.NewRecorder()
	handler(resp, req)

	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
	envelope := decodeEnvelope(t, resp.Body)
	errBody := envelope["error"].(map[string]any)
	assert.Equal(t, string(pkgerrors.CodeSyncUnavailable), errBody["code"])
}

func TestSpacesOwnedRejectsMalformedAddress(t *testing.T) {
	handler := SpacesOwned(&stubService{}, nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/spaces/owned/bogus", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("address", "bogus")
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	resp := httptest.NewRecorder()
	handler(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestSpacesOwnedFiltersSnapshotExactMatch(t *testing.T) {
	owner := ref("aa")
	snaps := &stubSnapshots{
		spaces: &snapshot.SpacesSnapshot{
			PassID: "pass-2",
			Records: []spaces.Space{
				{ID: ref("01"), Owner: owner},
				{ID: ref("02"), Owner: ref("bb")},
			},
		},
	}
	handler := SpacesOwned(&stubService{}, snaps, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/spaces/owned/"+owner+"?source=snapshot", nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("address", owner)
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	resp := httptest.NewRecorder()
	handler(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	envelope := decodeEnvelope(t, resp.Body)
	data := envelope["data"].(map[string]any)
	assert.EqualValues(t, 1, data["count"])
}

func TestSpaceFetchNotFound(t *testing.T) {
	handler := SpaceFetch(&stubService{}, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/spaces/"+ref("03"), nil)
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", ref("03"))
	req = req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
	resp := httptest.NewRecorder()
	handler(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestHealthReadyFailsWhenLedgerUnreachable(t *testing.T) {
	cfg := testConfig()
	handler := HealthReady(cfg, pingerFunc(func(context.Context) error {
		return errors.New("connection refused")
	}), nil, testLogger())

	req := httptest.NewRequest(http.MethodGet, "/health/ready", nil)
	resp := httptest.NewRecorder()
	handler(resp, req)

	require.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func testConfig() *config.Config {
	return &config.Config{App: config.AppConfig{Env: "test", Port: "8080"}}
}

func TestTxPaymentBuildsFromLedgerRate(t *testing.T) {
	spaceID := ref("05")
	svc := &stubService{
		oneFn: func(_ context.Context, id string) (*spaces.Space, error) {
			require.Equal(t, spaceID, id)
			return &spaces.Space{ID: spaceID, HourlyRate: 2_000_000_000}, nil
		},
	}
	handler := TxPayment(testBuilder(t), svc, testLogger())

	body, _ := json.Marshal(map[string]any{"space_id": spaceID, "hours": 3})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tx/payment", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	handler(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	envelope := decodeEnvelope(t, resp.Body)
	data := envelope["data"].(map[string]any)
	commands := data["commands"].([]any)
	require.Len(t, commands, 2)
	split := commands[0].(map[string]any)["split_coins"].(map[string]any)
	amounts := split["amounts"].([]any)
	assert.Equal(t, "6000000000", amounts[0])
}

func TestTxPaymentUnknownSpace(t *testing.T) {
	handler := TxPayment(testBuilder(t), &stubService{}, testLogger())

	body, _ := json.Marshal(map[string]any{"space_id": ref("05"), "hours": 2})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tx/payment", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	handler(resp, req)

	require.Equal(t, http.StatusNotFound, resp.Code)
}

func TestTxPaymentRejectsHoursOutOfRange(t *testing.T) {
	handler := TxPayment(testBuilder(t), &stubService{}, testLogger())

	body, _ := json.Marshal(map[string]any{"space_id": ref("05"), "hours": 25})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tx/payment", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	handler(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTxPurchaseRejectsUnlistedSpace(t *testing.T) {
	spaceID := ref("06")
	svc := &stubService{
		oneFn: func(context.Context, string) (*spaces.Space, error) {
			return &spaces.Space{ID: spaceID, Price: 0}, nil
		},
	}
	handler := TxPurchase(testBuilder(t), svc, testLogger())

	body, _ := json.Marshal(map[string]any{"space_id": spaceID})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tx/purchase", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	handler(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
	envelope := decodeEnvelope(t, resp.Body)
	errBody := envelope["error"].(map[string]any)
	assert.Equal(t, string(pkgerrors.CodeInvalidArgument), errBody["code"])
}

func TestTxSetPriceConvertsDisplayAmountExactly(t *testing.T) {
	handler := TxSetPrice(testBuilder(t), testLogger())

	body, _ := json.Marshal(map[string]any{"space_id": ref("07"), "price": "1.5"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tx/set-price", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	handler(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	envelope := decodeEnvelope(t, resp.Body)
	data := envelope["data"].(map[string]any)
	commands := data["commands"].([]any)
	call := commands[0].(map[string]any)["move_call"].(map[string]any)
	args := call["arguments"].([]any)
	price := args[len(args)-1].(map[string]any)
	assert.Equal(t, "1500000000", price["u64"])
}

func TestTxSetPriceRejectsMalformedAmount(t *testing.T) {
	handler := TxSetPrice(testBuilder(t), testLogger())

	body, _ := json.Marshal(map[string]any{"space_id": ref("07"), "price": "1.5.0"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tx/set-price", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	handler(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTxTransferRejectsMalformedRecipient(t *testing.T) {
	handler := TxTransfer(testBuilder(t), testLogger())

	body, _ := json.Marshal(map[string]any{"space_id": ref("08"), "recipient": "0x123"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tx/transfer", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	handler(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTxMintBuildsUnsignedTransaction(t *testing.T) {
	handler := TxMint(testBuilder(t), testLogger())

	body, _ := json.Marshal(map[string]any{
		"location":    "Level 3 Bay 9",
		"hourly_rate": "2",
		"price":       "0",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tx/mint", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	handler(resp, req)

	require.Equal(t, http.StatusOK, resp.Code)
	envelope := decodeEnvelope(t, resp.Body)
	data := envelope["data"].(map[string]any)
	commands := data["commands"].([]any)
	require.Len(t, commands, 1)
}

func TestTxMintRejectsZeroRate(t *testing.T) {
	handler := TxMint(testBuilder(t), testLogger())

	body, _ := json.Marshal(map[string]any{"location": "Level 3 Bay 9", "hourly_rate": "0"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tx/mint", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	handler(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}

func TestTxOutcomeRecordsRejection(t *testing.T) {
	handler := TxOutcome(testLogger())

	body, _ := json.Marshal(map[string]any{
		"tx_digest": "9WzSXdCNqVqqQ3eJU1BXx2FGLLHw8XjSjYZc5eYU1rMm",
		"status":    "rejected",
		"reason":    "MoveAbort in parking_rwa::pay_for_parking",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tx/outcome", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	handler(resp, req)

	require.Equal(t, http.StatusAccepted, resp.Code)
	envelope := decodeEnvelope(t, resp.Body)
	data := envelope["data"].(map[string]any)
	assert.Equal(t, true, data["recorded"])
}

func TestTxOutcomeRejectsUnknownStatus(t *testing.T) {
	handler := TxOutcome(testLogger())

	body, _ := json.Marshal(map[string]any{"tx_digest": "abc", "status": "maybe"})
	req := httptest.NewRequest(http.MethodPost, "/api/v1/tx/outcome", bytes.NewReader(body))
	resp := httptest.NewRecorder()
	handler(resp, req)

	require.Equal(t, http.StatusBadRequest, resp.Code)
}
