package commands

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/rafall04/raf-bot-v2-sub002/internal/application/dispatch"
	appEvidence "github.com/rafall04/raf-bot-v2-sub002/internal/application/evidence"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/fieldwork"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/lifecycle"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/notify"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/render"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/sessionstore"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/triage"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/wifi"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/actor"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/device"
	deviceMocks "github.com/rafall04/raf-bot-v2-sub002/internal/domain/device/mocks"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/ticket"
	"github.com/rafall04/raf-bot-v2-sub002/internal/infrastructure/memory"
)

type fixture struct {
	router  *Router
	gateway *deviceMocks.MockGateway
	repo    *memory.TicketRepository
	store   *sessionstore.Store
}

// newFixture wires the full conversational stack against in-memory
// persistence and a mocked device gateway.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	gateway := deviceMocks.NewMockGateway(ctrl)
	logger := zerolog.Nop()

	repo := memory.NewTicketRepository()
	changelog := memory.NewChangeLog(100)
	directory := memory.NewDirectory(
		&actor.Actor{Ref: "cust-1", Name: "Alice", Role: actor.RoleCustomer, DeviceRef: "dev-1", SSIDIndices: []int{1}},
		&actor.Actor{Ref: "cust-2", Name: "Eve", Role: actor.RoleCustomer, DeviceRef: "dev-2", SSIDIndices: []int{1, 5}},
		&actor.Actor{Ref: "tech-1", Name: "Budi", Role: actor.RoleTechnician},
	)

	fanout := notify.NewFanout(notify.NewLogSender(logger), logger)
	renderer := render.MustNew(render.DefaultTemplates, logger)
	store := sessionstore.New(time.Minute, nil, logger)
	t.Cleanup(store.Close)

	lc := lifecycle.NewService(repo, fanout, renderer, lifecycle.DefaultOptions(), logger)
	agg := appEvidence.NewAggregator(lc, fanout, renderer, 10*time.Millisecond, 10, logger)
	t.Cleanup(agg.Close)

	wifiFlow := wifi.NewWorkflow(gateway, changelog, renderer, fanout, false, logger)
	triageFlow := triage.NewWorkflow(lc, gateway, directory, fanout, renderer, logger)
	fieldworkFlow := fieldwork.NewWorkflow(lc, agg, renderer, fieldwork.AssignmentPolicy{MaxActiveTickets: 3}, logger)

	engine := dispatch.NewEngine(store, renderer, logger)
	wifiFlow.RegisterHandlers(engine)
	triageFlow.RegisterHandlers(engine)
	fieldworkFlow.RegisterHandlers(engine)

	router := NewRouter(directory, engine, wifiFlow, triageFlow, fieldworkFlow, renderer, logger)
	return &fixture{router: router, gateway: gateway, repo: repo, store: store}
}

func TestRouter_UnknownActor(t *testing.T) {
	f := newFixture(t)

	msgs := f.router.Handle(context.Background(), "0812-not-registered", "hi")

	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "not registered")
}

func TestRouter_Menu(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for _, input := range []string{"hi", "halo", "menu", "help", "what is this", ""} {
		msgs := f.router.Handle(ctx, "cust-1", input)
		require.Len(t, msgs, 1, input)
		assert.Contains(t, msgs[0].Text, "Change WiFi name", input)
	}
}

func TestRouter_CancelWithoutSession(t *testing.T) {
	f := newFixture(t)

	msgs := f.router.Handle(context.Background(), "cust-1", "batal")

	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "cancelled")
}

func TestRouter_WifiNameChange(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// single SSID, so the flow starts at the value prompt
	msgs := f.router.Handle(ctx, "cust-1", "wifiname")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "new WiFi name")
	assert.True(t, f.store.Has("cust-1"))

	msgs = f.router.Handle(ctx, "cust-1", "HomeNet")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Reply YES")

	f.gateway.EXPECT().QueryDeviceSnapshot(gomock.Any(), "dev-1").Return(&device.Snapshot{Online: true}, nil)
	f.gateway.EXPECT().
		ApplyParameters(gomock.Any(), "dev-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, params []device.Parameter) (*device.ApplyResult, error) {
			require.Len(t, params, 1)
			assert.Equal(t, device.SSIDNamePath(1), params[0].Path)
			assert.Equal(t, "HomeNet", params[0].Value)
			return &device.ApplyResult{Accepted: true}, nil
		})

	msgs = f.router.Handle(ctx, "cust-1", "yes")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "sent to your router")
	assert.False(t, f.store.Has("cust-1"))
}

func TestRouter_WifiRequiresCustomer(t *testing.T) {
	f := newFixture(t)

	msgs := f.router.Handle(context.Background(), "tech-1", "wifiname")

	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "not allowed")
}

func TestRouter_SessionTakesPrecedence(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.router.Handle(ctx, "cust-2", "2") // wifi password flow, two SSIDs
	require.True(t, f.store.Has("cust-2"))

	// "1" now answers the mode question instead of starting a name change
	msgs := f.router.Handle(ctx, "cust-2", "1")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "Which network?")
}

func TestRouter_ReportFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	msgs := f.router.Handle(ctx, "cust-1", "lapor")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "describes the problem")

	msgs = f.router.Handle(ctx, "cust-1", "1")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "light on your router")

	msgs = f.router.Handle(ctx, "cust-1", "no")
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0].Text, "registered ticket")

	tickets, err := f.repo.List(ctx, ticket.Filter{})
	require.NoError(t, err)
	require.Len(t, tickets, 1)
	assert.Equal(t, ticket.PriorityHigh, tickets[0].Priority)
}

func TestRouter_TechnicianCommands(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tk := ticket.New("cust-1", "dev-1", "no_internet", ticket.PriorityNormal)
	require.NoError(t, f.repo.Create(ctx, tk))

	t.Run("customer cannot assign", func(t *testing.T) {
		msgs := f.router.Handle(ctx, "cust-1", "assign "+tk.ID)
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0].Text, "not allowed")
	})

	t.Run("assign is case-insensitive on the ticket id", func(t *testing.T) {
		msgs := f.router.Handle(ctx, "tech-1", "assign "+strings.ToLower(tk.ID))
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0].Text, tk.ID)
	})

	t.Run("verify opens a prompt session", func(t *testing.T) {
		msgs := f.router.Handle(ctx, "tech-1", "verify "+tk.ID)
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0].Text, "6-digit")
		assert.True(t, f.store.Has("tech-1"))

		// cancel the prompt so the store is clean again
		f.router.Handle(ctx, "tech-1", "cancel")
		assert.False(t, f.store.Has("tech-1"))
	})
}
