package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"goldledger/internal/infra"
	"goldledger/internal/model"
	"goldledger/internal/service"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ── Stubs ────────────────────────────────────────────────────────────────────

type stubMailer struct {
	configured bool
	err        error
	sent       []string // subjects
	to         []string
	html       string
}

func (m *stubMailer) Configured() bool { return m.configured }

func (m *stubMailer) Send(to []string, subject, _ string, html string) error {
	if m.err != nil {
		return m.err
	}
	m.to = to
	m.sent = append(m.sent, subject)
	m.html = html
	return nil
}

var _ MailSender = (*stubMailer)(nil)

type stubValidator struct {
	low         []service.LowOwnershipAlert
	outstanding []service.OutstandingPaymentAlert
	err         error
}

func (v *stubValidator) ValidateSale(context.Context, model.ItemRef, uuid.UUID, decimal.Decimal, bool) (*service.SaleValidation, error) {
	return nil, errors.New("not used")
}

func (v *stubValidator) LowOwnershipAlerts(context.Context, *uuid.UUID, decimal.Decimal) ([]service.LowOwnershipAlert, error) {
	return v.low, v.err
}

func (v *stubValidator) OutstandingPaymentAlerts(context.Context, *uuid.UUID) ([]service.OutstandingPaymentAlert, error) {
	return v.outstanding, nil
}

var _ service.BalanceValidator = (*stubValidator)(nil)

type stubQueue struct{ digests []AlertDigest }

func (q *stubQueue) EnqueueAlertDigest(_ context.Context, d AlertDigest) error {
	q.digests = append(q.digests, d)
	return nil
}

func sampleDigest() AlertDigest {
	return AlertDigest{
		GeneratedAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
		Threshold:   decimal.NewFromInt(50),
		LowOwnership: []LowOwnershipLine{
			{ItemKey: "raw_gold:18", ItemName: "Raw gold 18K", Unit: "g", BranchID: "b1", Weight: decimal.RequireFromString("12.5")},
			{ItemKey: "product:x", ItemName: "Ring <R-1>", Unit: "unit", BranchID: "b1",
				Weight: decimal.RequireFromString("7.2"), Quantity: decimal.NewFromInt(2)},
		},
		Outstanding: []OutstandingLine{
			{SupplierID: "s1", AmountOwed: decimal.RequireFromString("1234.5"), Lots: 2,
				OldestLotAt: time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)},
		},
	}
}

func payload(t *testing.T, d AlertDigest) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(d)
	require.NoError(t, err)
	return raw
}

// ── Tests: rendering ─────────────────────────────────────────────────────────

func TestRenderDigest(t *testing.T) {
	subject, text := renderDigest(sampleDigest())

	assert.Equal(t, "Gold ledger alerts: 2 low ownership, 1 outstanding payables", subject)
	assert.Contains(t, text, "threshold 50 g")
	assert.Contains(t, text, "12.500 g")
	assert.Contains(t, text, "2 units (7.200 g)")
	assert.Contains(t, text, "owed 1234.50 across 2 lots, oldest 2026-01-15")
}

// ── Tests: AlertDigestWorker ─────────────────────────────────────────────────

func TestAlertDigestWorker_SendsEscapedDigest(t *testing.T) {
	mailer := &stubMailer{configured: true}
	w := NewAlertDigestWorker(mailer, " ops@example.com, ,owner@example.com")

	require.NoError(t, w.Process(context.Background(), payload(t, sampleDigest())))
	require.Len(t, mailer.sent, 1)
	assert.Equal(t, []string{"ops@example.com", "owner@example.com"}, mailer.to)
	assert.Contains(t, mailer.html, "Ring &lt;R-1&gt;")
}

func TestAlertDigestWorker_SkipsWithoutMail(t *testing.T) {
	cases := map[string]struct {
		mailer *stubMailer
		to     string
		digest AlertDigest
	}{
		"empty digest":    {&stubMailer{configured: true}, "ops@example.com", AlertDigest{}},
		"mail not set up": {&stubMailer{}, "ops@example.com", sampleDigest()},
		"no recipients":   {&stubMailer{configured: true}, "", sampleDigest()},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			w := NewAlertDigestWorker(tc.mailer, tc.to)
			require.NoError(t, w.Process(context.Background(), payload(t, tc.digest)))
			assert.Empty(t, tc.mailer.sent)
		})
	}
}

func TestAlertDigestWorker_InvalidPayloadDropped(t *testing.T) {
	mailer := &stubMailer{configured: true}
	w := NewAlertDigestWorker(mailer, "ops@example.com")
	assert.NoError(t, w.Process(context.Background(), json.RawMessage(`{"low_ownership":`)))
	assert.Empty(t, mailer.sent)
}

func TestAlertDigestWorker_SendErrorRetries(t *testing.T) {
	relayDown := errors.New("relay down")
	w := NewAlertDigestWorker(&stubMailer{configured: true, err: relayDown}, "ops@example.com")
	assert.ErrorIs(t, w.Process(context.Background(), payload(t, sampleDigest())), relayDown)
}

// ── Tests: scan ──────────────────────────────────────────────────────────────

func TestScanAlerts_QueuesDigest(t *testing.T) {
	branch := uuid.New()
	supplier := uuid.New()
	v := &stubValidator{
		low: []service.LowOwnershipAlert{{
			Item:     service.ItemDescription{Key: "raw_gold:21", Name: "Raw gold 21K", Unit: "g"},
			BranchID: branch, Weight: decimal.NewFromInt(3),
		}},
		outstanding: []service.OutstandingPaymentAlert{{
			SupplierID: supplier, AmountOwed: decimal.RequireFromString("99.999"), Lots: 1,
		}},
	}
	q := &stubQueue{}
	now := time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

	err := scanAlerts(context.Background(), AlertCronConfig{Validator: v, Queue: q, Threshold: decimal.NewFromInt(50)}, now)
	require.NoError(t, err)
	require.Len(t, q.digests, 1)

	d := q.digests[0]
	assert.Equal(t, now, d.GeneratedAt)
	require.Len(t, d.LowOwnership, 1)
	assert.Equal(t, "Raw gold 21K", d.LowOwnership[0].ItemName)
	assert.Equal(t, branch.String(), d.LowOwnership[0].BranchID)
	require.Len(t, d.Outstanding, 1)
	assert.Equal(t, "100", d.Outstanding[0].AmountOwed.String())
}

func TestScanAlerts_NothingToReport(t *testing.T) {
	q := &stubQueue{}
	require.NoError(t, scanAlerts(context.Background(), AlertCronConfig{Validator: &stubValidator{}, Queue: q}, time.Now()))
	assert.Empty(t, q.digests)
}

func TestScanAlerts_SkipsWhileMailCircuitOpen(t *testing.T) {
	cb := infra.NewCircuitBreaker("smtp", infra.CircuitBreakerConfig{FailureThreshold: 1, OpenTimeout: time.Hour})
	_ = cb.Execute(func() error { return errors.New("relay down") })
	require.Equal(t, infra.CBOpen, cb.State())

	q := &stubQueue{}
	v := &stubValidator{low: []service.LowOwnershipAlert{{Weight: decimal.NewFromInt(1)}}}
	require.NoError(t, scanAlerts(context.Background(), AlertCronConfig{Validator: v, Queue: q, MailCB: cb}, time.Now()))
	assert.Empty(t, q.digests)
}

func TestScanAlerts_ValidatorError(t *testing.T) {
	boom := errors.New("store offline")
	q := &stubQueue{}
	err := scanAlerts(context.Background(), AlertCronConfig{Validator: &stubValidator{err: boom}, Queue: q}, time.Now())
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, q.digests)
}

// ── Tests: audit stream ──────────────────────────────────────────────────────

func TestAuditFields(t *testing.T) {
	lotA, lotB, mv := uuid.New(), uuid.New(), uuid.New()
	branch := uuid.New()
	fields := auditFields(service.LedgerEvent{
		Command: "sale", Reference: "SALE-1", Actor: "clerk1", BranchID: branch,
		ItemKeys: []string{"raw_gold:18"}, LotIDs: []uuid.UUID{lotA, lotB}, MovementIDs: []uuid.UUID{mv},
		OccurredAt: time.Date(2026, 3, 2, 9, 0, 0, 0, time.FixedZone("ART", -3*3600)),
	})

	assert.Equal(t, "sale", fields["command"])
	assert.Equal(t, branch.String(), fields["branch_id"])
	assert.Equal(t, lotA.String()+","+lotB.String(), fields["lot_ids"])
	assert.Equal(t, mv.String(), fields["movement_ids"])
	assert.Equal(t, "2026-03-02T12:00:00Z", fields["occurred_at"])
}

func TestLedgerEventWorker_InvalidPayloadDropped(t *testing.T) {
	w := NewLedgerEventWorker(nil)
	assert.NoError(t, w.Process(context.Background(), json.RawMessage(`not json`)))
}
