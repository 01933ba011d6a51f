package service

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/ticketline/deskbot/internal/domain"
	"github.com/ticketline/deskbot/internal/line"
)

func newTestGateway(m *stubMessenger, l DeliveryLogger, q QuotaChecker) *Gateway {
	g := NewGateway(m, l, q)
	g.backoff = []time.Duration{time.Millisecond, time.Millisecond}
	return g
}

func TestGatewayPushSuccessSingleEntry(t *testing.T) {
	m := &stubMessenger{}
	l := &memDeliveryLog{}
	g := newTestGateway(m, l, &stubQuota{allow: true})

	require.NoError(t, g.PushText(context.Background(), "U1", "hello"))
	require.Equal(t, 1, m.pushCalls)
	require.Len(t, l.entries, 1)

	e := l.entries[0]
	require.True(t, e.Success)
	require.Equal(t, domain.MessagePush, e.MessageType)
	require.Equal(t, domain.DirectionOutbound, e.Direction)
	require.Equal(t, 0, e.RetryCount)
	require.Equal(t, "U1", e.ExternalUserID)
}

func TestGatewayPushRetriesThenSucceeds(t *testing.T) {
	m := &stubMessenger{pushErrs: []error{apiErr500()}}
	l := &memDeliveryLog{}
	g := newTestGateway(m, l, &stubQuota{allow: true})

	require.NoError(t, g.PushText(context.Background(), "U1", "hello"))
	require.Equal(t, 2, m.pushCalls)
	require.Len(t, l.entries, 1)
	require.True(t, l.entries[0].Success)
	require.Equal(t, 1, l.entries[0].RetryCount)
}

func TestGatewayPushTerminalFailureLogsOnce(t *testing.T) {
	m := &stubMessenger{pushErrs: []error{apiErr500(), apiErr500(), apiErr500()}}
	l := &memDeliveryLog{}
	g := newTestGateway(m, l, &stubQuota{allow: true})

	err := g.PushText(context.Background(), "U1", "hello")
	require.Error(t, err)
	require.Equal(t, 3, m.pushCalls)
	require.Len(t, l.entries, 1)

	e := l.entries[0]
	require.False(t, e.Success)
	require.Equal(t, 2, e.RetryCount) // max attempts minus one
	require.Equal(t, domain.ErrCodeAPIError, e.ErrorCode)
	require.NotEmpty(t, e.ErrorMessage)
}

func TestGatewayPushQuotaExceededFailsFast(t *testing.T) {
	m := &stubMessenger{}
	l := &memDeliveryLog{}
	g := newTestGateway(m, l, &stubQuota{allow: false})

	err := g.PushText(context.Background(), "U1", "hello")
	require.ErrorIs(t, err, domain.ErrQuotaExceeded)
	require.Equal(t, 0, m.pushCalls) // API never contacted
	require.Len(t, l.entries, 1)
	require.False(t, l.entries[0].Success)
	require.Equal(t, domain.ErrCodeQuotaExceeded, l.entries[0].ErrorCode)
	require.Equal(t, 0, l.entries[0].RetryCount)
}

func TestGatewayReplyNotRetried(t *testing.T) {
	m := &stubMessenger{replyErr: apiErr500()}
	l := &memDeliveryLog{}
	g := newTestGateway(m, l, &stubQuota{allow: false}) // quota must not apply to replies

	err := g.Reply(context.Background(), "rt-1", "U1")
	require.Error(t, err)
	require.Equal(t, 1, m.replies)
	require.Len(t, l.entries, 1)
	require.False(t, l.entries[0].Success)
	require.Equal(t, domain.MessageReply, l.entries[0].MessageType)
}

func TestGatewayReplySkipsQuota(t *testing.T) {
	m := &stubMessenger{}
	l := &memDeliveryLog{}
	g := newTestGateway(m, l, &stubQuota{allow: false})

	require.NoError(t, g.Reply(context.Background(), "rt-1", "U1"))
	require.Len(t, l.entries, 1)
	require.True(t, l.entries[0].Success)
}

func TestGatewayBackoffCancellable(t *testing.T) {
	m := &stubMessenger{pushErrs: []error{apiErr500(), apiErr500(), apiErr500()}}
	l := &memDeliveryLog{}
	g := NewGateway(m, l, &stubQuota{allow: true})
	g.backoff = []time.Duration{time.Hour, time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	err := g.PushText(ctx, "U1", "hello")
	require.Error(t, err)
	require.Less(t, time.Since(start), time.Second)
	require.Equal(t, 1, m.pushCalls)
	require.Len(t, l.entries, 1)
}

// A multicast is one logical push against the quota; once its row is
// committed, further pushes and multicasts in the month are refused.
func TestGatewayMulticastCountsTowardQuota(t *testing.T) {
	m := &stubMessenger{}
	l := &memDeliveryLog{}
	quota := NewQuota(&logBackedCounter{log: l}, 1, 80)
	g := newTestGateway(m, l, quota)

	require.NoError(t, g.Multicast(context.Background(), []string{"U1", "U2"}, "notice"))

	err := g.Multicast(context.Background(), []string{"U1"}, "again")
	require.ErrorIs(t, err, domain.ErrQuotaExceeded)
	err = g.PushText(context.Background(), "U1", "hello")
	require.ErrorIs(t, err, domain.ErrQuotaExceeded)

	require.Equal(t, 1, m.multis) // only the first send reached the API
	require.Equal(t, 0, m.pushCalls)
}

// A send aborted by shutdown still gets its one delivery-log row even though
// the request context is already cancelled.
func TestGatewayRecordsRowAfterCancelledSend(t *testing.T) {
	m := &stubMessenger{pushErrs: []error{apiErr500(), apiErr500(), apiErr500()}}
	l := &ctxCheckingLog{}
	g := NewGateway(m, l, &stubQuota{allow: true})
	g.backoff = []time.Duration{time.Hour, time.Hour}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.Error(t, g.PushText(ctx, "U1", "hello"))
	require.Len(t, l.entries, 1)
	require.False(t, l.entries[0].Success)
	require.Equal(t, domain.ErrCodeAPIError, l.entries[0].ErrorCode)
}

func TestGatewayMulticastOneLogicalSend(t *testing.T) {
	m := &stubMessenger{}
	l := &memDeliveryLog{}
	g := newTestGateway(m, l, &stubQuota{allow: true})

	require.NoError(t, g.Multicast(context.Background(), []string{"U1", "U2"}, "notice"))
	require.Equal(t, 1, m.multis)
	require.Len(t, l.entries, 1)
	require.Equal(t, domain.MessageMulticast, l.entries[0].MessageType)
}

func TestGatewayPushTicketEventLinksTicket(t *testing.T) {
	m := &stubMessenger{}
	l := &memDeliveryLog{}
	g := newTestGateway(m, l, &stubQuota{allow: true})

	ticketID := uuid.New()
	err := g.PushTicketEvent(context.Background(), "U1", ticketID, "TK-1", domain.TicketStatusChanged)
	require.NoError(t, err)
	require.Len(t, l.entries, 1)
	require.NotNil(t, l.entries[0].TicketID)
	require.Equal(t, ticketID, *l.entries[0].TicketID)
}

func apiErr500() error {
	return &line.APIError{StatusCode: http.StatusInternalServerError, Message: "boom"}
}
