package wifi

import (
	"context"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/rafall04/raf-bot-v2-sub002/internal/application/notify"
	"github.com/rafall04/raf-bot-v2-sub002/internal/application/render"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/actor"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/device"
	deviceMocks "github.com/rafall04/raf-bot-v2-sub002/internal/domain/device/mocks"
	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/session"
)

func testActor(indices ...int) *actor.Actor {
	return &actor.Actor{
		Ref:         "cust-1",
		Name:        "Alice",
		Role:        actor.RoleCustomer,
		DeviceRef:   "dev-1",
		SSIDIndices: indices,
	}
}

func newTestWorkflow(t *testing.T, directExecute bool) (*Workflow, *deviceMocks.MockGateway, *deviceMocks.MockChangeLog) {
	t.Helper()
	ctrl := gomock.NewController(t)
	gateway := deviceMocks.NewMockGateway(ctrl)
	changelog := deviceMocks.NewMockChangeLog(ctrl)
	renderer := render.MustNew(render.DefaultTemplates, zerolog.Nop())
	fanout := notify.NewFanout(notify.NewLogSender(zerolog.Nop()), zerolog.Nop())
	return NewWorkflow(gateway, changelog, renderer, fanout, directExecute, zerolog.Nop()), gateway, changelog
}

func TestWorkflow_Start(t *testing.T) {
	t.Run("multiple indices asks for mode", func(t *testing.T) {
		wf, _, _ := newTestWorkflow(t, false)

		sess, msgs := wf.Start(testActor(1, 2), session.ChangeName)

		assert.Equal(t, StepSelectMode, sess.Step)
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0].Text, "one WiFi network or all")
	})

	t.Run("single index skips straight to value", func(t *testing.T) {
		wf, _, _ := newTestWorkflow(t, false)

		sess, msgs := wf.Start(testActor(1), session.ChangePassword)

		assert.Equal(t, StepAskValue, sess.Step)
		p := sess.Payload.(*session.WifiChange)
		assert.Equal(t, session.ApplySingle, p.Mode)
		assert.Equal(t, 1, p.TargetIndex)
		require.Len(t, msgs, 1)
		assert.Contains(t, msgs[0].Text, "password")
	})
}

func TestWorkflow_SelectMode(t *testing.T) {
	ctx := context.Background()
	wf, _, _ := newTestWorkflow(t, false)

	t.Run("single", func(t *testing.T) {
		sess, _ := wf.Start(testActor(1, 2), session.ChangeName)

		res, err := wf.handleSelectMode(ctx, sess, "1")

		require.NoError(t, err)
		assert.Equal(t, StepSelectTarget, res.Next)
		assert.Equal(t, session.ApplySingle, sess.Payload.(*session.WifiChange).Mode)
	})

	t.Run("all", func(t *testing.T) {
		sess, _ := wf.Start(testActor(1, 2), session.ChangeName)

		res, err := wf.handleSelectMode(ctx, sess, "2")

		require.NoError(t, err)
		assert.Equal(t, StepAskValue, res.Next)
		assert.Equal(t, session.ApplyAll, sess.Payload.(*session.WifiChange).Mode)
	})

	t.Run("garbage re-prompts", func(t *testing.T) {
		sess, _ := wf.Start(testActor(1, 2), session.ChangeName)

		res, err := wf.handleSelectMode(ctx, sess, "maybe")

		require.NoError(t, err)
		assert.Empty(t, res.Next)
		assert.False(t, res.Done)
	})
}

func TestWorkflow_SelectTarget(t *testing.T) {
	ctx := context.Background()
	wf, _, _ := newTestWorkflow(t, false)

	start := func(t *testing.T) *session.Session {
		sess, _ := wf.Start(testActor(1, 3), session.ChangeName)
		_, err := wf.handleSelectMode(ctx, sess, "1")
		require.NoError(t, err)
		sess.Step = StepSelectTarget
		return sess
	}

	t.Run("allowed index", func(t *testing.T) {
		sess := start(t)

		res, err := wf.handleSelectTarget(ctx, sess, "3")

		require.NoError(t, err)
		assert.Equal(t, StepAskValue, res.Next)
		assert.Equal(t, 3, sess.Payload.(*session.WifiChange).TargetIndex)
	})

	t.Run("index outside allowed set is unauthorized", func(t *testing.T) {
		sess := start(t)

		res, err := wf.handleSelectTarget(ctx, sess, "2")

		require.NoError(t, err)
		assert.Empty(t, res.Next)
		require.Len(t, res.Messages, 1)
		assert.Contains(t, res.Messages[0].Text, "not allowed")
	})

	t.Run("non-numeric re-prompts", func(t *testing.T) {
		sess := start(t)

		res, err := wf.handleSelectTarget(ctx, sess, "first one")

		require.NoError(t, err)
		assert.Empty(t, res.Next)
	})
}

func TestWorkflow_AskValue(t *testing.T) {
	ctx := context.Background()
	wf, _, _ := newTestWorkflow(t, false)

	t.Run("valid name moves to confirm", func(t *testing.T) {
		sess, _ := wf.Start(testActor(1), session.ChangeName)

		res, err := wf.handleAskValue(ctx, sess, "HomeNet 5G")

		require.NoError(t, err)
		assert.Equal(t, StepConfirm, res.Next)
		assert.Equal(t, "HomeNet 5G", sess.Payload.(*session.WifiChange).NewValue)
		require.Len(t, res.Messages, 1)
		assert.Contains(t, res.Messages[0].Text, "HomeNet 5G")
	})

	t.Run("name too long", func(t *testing.T) {
		sess, _ := wf.Start(testActor(1), session.ChangeName)

		res, err := wf.handleAskValue(ctx, sess, strings.Repeat("x", 33))

		require.NoError(t, err)
		assert.Empty(t, res.Next)
	})

	t.Run("short password rejected", func(t *testing.T) {
		sess, _ := wf.Start(testActor(1), session.ChangePassword)

		res, err := wf.handleAskValue(ctx, sess, "short")

		require.NoError(t, err)
		assert.Empty(t, res.Next)
		require.Len(t, res.Messages, 1)
		assert.Contains(t, res.Messages[0].Text, "8-63")
	})
}

func TestWorkflow_Confirm(t *testing.T) {
	ctx := context.Background()

	confirmReady := func(t *testing.T, wf *Workflow, indices ...int) *session.Session {
		t.Helper()
		sess, _ := wf.Start(testActor(indices...), session.ChangeName)
		if len(indices) > 1 {
			_, err := wf.handleSelectMode(ctx, sess, "2")
			require.NoError(t, err)
			sess.Step = StepAskValue
		}
		_, err := wf.handleAskValue(ctx, sess, "NewName")
		require.NoError(t, err)
		sess.Step = StepConfirm
		return sess
	}

	t.Run("yes applies all indices in one batch", func(t *testing.T) {
		wf, gateway, changelog := newTestWorkflow(t, false)
		sess := confirmReady(t, wf, 1, 2)

		gateway.EXPECT().
			QueryDeviceSnapshot(ctx, "dev-1").
			Return(&device.Snapshot{Online: true, Parameters: map[string]string{
				device.SSIDNamePath(1): "OldName1",
				device.SSIDNamePath(2): "OldName2",
			}}, nil)
		gateway.EXPECT().
			ApplyParameters(ctx, "dev-1", gomock.Any()).
			DoAndReturn(func(_ context.Context, _ string, params []device.Parameter) (*device.ApplyResult, error) {
				require.Len(t, params, 2)
				assert.Equal(t, device.SSIDNamePath(1), params[0].Path)
				assert.Equal(t, device.SSIDNamePath(2), params[1].Path)
				assert.Equal(t, "NewName", params[0].Value)
				return &device.ApplyResult{Accepted: true, TaskRef: "task-7"}, nil
			})
		changelog.EXPECT().
			Append(ctx, gomock.Any()).
			DoAndReturn(func(_ context.Context, entry device.ChangeEntry) error {
				assert.Equal(t, "dev-1", entry.DeviceRef)
				assert.Equal(t, "cust-1", entry.ActorRef)
				assert.Equal(t, "NewName", entry.NewValue)
				assert.NotEmpty(t, entry.OldValue)
				return nil
			}).
			Times(2)

		res, err := wf.handleConfirm(ctx, sess, "yes")

		require.NoError(t, err)
		assert.True(t, res.Done)
		assert.True(t, sess.Payload.(*session.WifiChange).Submitted)
	})

	t.Run("no aborts without touching the gateway", func(t *testing.T) {
		wf, _, _ := newTestWorkflow(t, false)
		sess := confirmReady(t, wf, 1)

		res, err := wf.handleConfirm(ctx, sess, "tidak")

		require.NoError(t, err)
		assert.True(t, res.Done)
	})

	t.Run("resubmit after acceptance is idempotent", func(t *testing.T) {
		wf, gateway, changelog := newTestWorkflow(t, false)
		sess := confirmReady(t, wf, 1)

		gateway.EXPECT().QueryDeviceSnapshot(ctx, "dev-1").Return(nil, device.ErrUpstream)
		gateway.EXPECT().
			ApplyParameters(ctx, "dev-1", gomock.Any()).
			Return(&device.ApplyResult{Accepted: true, TaskRef: "task-8"}, nil)
		changelog.EXPECT().Append(ctx, gomock.Any()).Return(nil)

		res, err := wf.handleConfirm(ctx, sess, "ya")
		require.NoError(t, err)
		require.True(t, res.Done)

		// second confirmation must not reach the gateway again
		res, err = wf.handleConfirm(ctx, sess, "yes")
		require.NoError(t, err)
		assert.True(t, res.Done)
		require.Len(t, res.Messages, 1)
		assert.Contains(t, res.Messages[0].Text, "already sent")
	})

	t.Run("gateway rejection keeps session", func(t *testing.T) {
		wf, gateway, _ := newTestWorkflow(t, false)
		sess := confirmReady(t, wf, 1)

		gateway.EXPECT().QueryDeviceSnapshot(ctx, "dev-1").Return(nil, device.ErrUpstream)
		gateway.EXPECT().
			ApplyParameters(ctx, "dev-1", gomock.Any()).
			Return(nil, device.ErrUpstream)

		res, err := wf.handleConfirm(ctx, sess, "yes")

		require.NoError(t, err)
		assert.False(t, res.Done)
		assert.False(t, sess.Payload.(*session.WifiChange).Submitted)
	})
}

func TestWorkflow_DirectExecute(t *testing.T) {
	ctx := context.Background()
	wf, gateway, changelog := newTestWorkflow(t, true)
	sess, _ := wf.Start(testActor(1), session.ChangePassword)

	gateway.EXPECT().
		QueryDeviceSnapshot(ctx, "dev-1").
		Return(&device.Snapshot{Online: true}, nil)
	gateway.EXPECT().
		ApplyParameters(ctx, "dev-1", gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, params []device.Parameter) (*device.ApplyResult, error) {
			require.Len(t, params, 1)
			assert.Equal(t, device.SSIDPassphrasePath(1), params[0].Path)
			return &device.ApplyResult{Accepted: true}, nil
		})
	changelog.EXPECT().Append(ctx, gomock.Any()).Return(nil)

	res, err := wf.handleAskValue(ctx, sess, "supersecret99")

	require.NoError(t, err)
	assert.True(t, res.Done)
}

func TestValidateValue(t *testing.T) {
	cases := []struct {
		kind  session.ChangeKind
		value string
		ok    bool
	}{
		{session.ChangeName, "HomeNet", true},
		{session.ChangeName, strings.Repeat("a", 32), true},
		{session.ChangeName, strings.Repeat("a", 33), false},
		{session.ChangeName, "", false},
		{session.ChangePassword, "12345678", true},
		{session.ChangePassword, strings.Repeat("p", 63), true},
		{session.ChangePassword, strings.Repeat("p", 64), false},
		{session.ChangePassword, "1234567", false},
	}
	for _, tc := range cases {
		_, ok := validateValue(tc.kind, tc.value)
		assert.Equal(t, tc.ok, ok, "%s %q", tc.kind, tc.value)
	}
}
