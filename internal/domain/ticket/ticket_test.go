package ticket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rafall04/raf-bot-v2-sub002/internal/domain/evidence"
)

const (
	testOTPTTL  = 4 * time.Hour
	testCodeTTL = 2 * time.Hour
)

func newTestTicket() *Ticket {
	return New("cust-1", "device-1", "no_internet", PriorityNormal)
}

func attachUnits(t *testing.T, tk *Ticket, n int, now time.Time) {
	t.Helper()
	units := make([]evidence.Unit, 0, n)
	for i := 0; i < n; i++ {
		units = append(units, evidence.NewPhoto("ref", "tech-1"))
	}
	require.NoError(t, tk.AttachEvidence(units, now))
}

func TestNew(t *testing.T) {
	tk := newTestTicket()

	assert.Equal(t, StatusNew, tk.Status)
	assert.Equal(t, PriorityNormal, tk.Priority)
	assert.Len(t, tk.ID, 6)
	assert.Nil(t, tk.OTPHash)
	assert.False(t, tk.Terminal())
}

func TestCanTransitionTo(t *testing.T) {
	cases := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusNew, StatusAssigned, true},
		{StatusNew, StatusCancelled, true},
		{StatusNew, StatusVerified, false},
		{StatusNew, StatusResolved, false},
		{StatusAssigned, StatusVerified, true},
		{StatusAssigned, StatusCancelled, true},
		{StatusAssigned, StatusResolved, false},
		{StatusVerified, StatusAwaitingConfirmation, true},
		{StatusVerified, StatusCancelled, false},
		{StatusAwaitingConfirmation, StatusResolved, true},
		{StatusAwaitingConfirmation, StatusCancelled, false},
		{StatusResolved, StatusNew, false},
		{StatusResolved, StatusCancelled, false},
		{StatusCancelled, StatusNew, false},
		{StatusCancelled, StatusAssigned, false},
	}
	for _, tc := range cases {
		tk := newTestTicket()
		tk.Status = tc.from
		assert.Equal(t, tc.allowed, tk.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
}

func TestTicket_Assign(t *testing.T) {
	now := time.Now().UTC()

	t.Run("from new issues otp", func(t *testing.T) {
		tk := newTestTicket()

		otp, err := tk.Assign("tech-1", testOTPTTL, now)

		require.NoError(t, err)
		assert.Len(t, otp, OTPDigits)
		assert.Equal(t, StatusAssigned, tk.Status)
		assert.Equal(t, "tech-1", tk.AssignedTechnicianRef)
		assert.NotNil(t, tk.OTPHash)
		assert.NotNil(t, tk.AssignedAt)
	})

	t.Run("rejected while otp still valid", func(t *testing.T) {
		tk := newTestTicket()
		_, err := tk.Assign("tech-1", testOTPTTL, now)
		require.NoError(t, err)

		_, err = tk.Assign("tech-2", testOTPTTL, now.Add(time.Hour))

		require.ErrorIs(t, err, ErrAlreadyAssigned)
		assert.Equal(t, "tech-1", tk.AssignedTechnicianRef)
	})

	t.Run("reassignment after otp lapses", func(t *testing.T) {
		tk := newTestTicket()
		first, err := tk.Assign("tech-1", testOTPTTL, now)
		require.NoError(t, err)

		second, err := tk.Assign("tech-2", testOTPTTL, now.Add(testOTPTTL+time.Minute))

		require.NoError(t, err)
		assert.NotEqual(t, first, second)
		assert.Equal(t, StatusAssigned, tk.Status)
		assert.Equal(t, "tech-2", tk.AssignedTechnicianRef)
	})

	t.Run("reassignment after expired otp was cleared", func(t *testing.T) {
		tk := newTestTicket()
		_, err := tk.Assign("tech-1", testOTPTTL, now)
		require.NoError(t, err)
		err = tk.VerifyOTP("000000", testOTPTTL, now.Add(testOTPTTL+time.Minute))
		require.ErrorIs(t, err, ErrExpired)

		_, err = tk.Assign("tech-2", testOTPTTL, now.Add(testOTPTTL+2*time.Minute))

		require.NoError(t, err)
		assert.Equal(t, "tech-2", tk.AssignedTechnicianRef)
	})

	t.Run("terminal ticket", func(t *testing.T) {
		tk := newTestTicket()
		require.NoError(t, tk.Cancel("cust-1", "changed my mind", now))

		_, err := tk.Assign("tech-1", testOTPTTL, now)

		require.ErrorIs(t, err, ErrNotFound)
	})
}

func TestTicket_VerifyOTP(t *testing.T) {
	now := time.Now().UTC()

	t.Run("correct code verifies", func(t *testing.T) {
		tk := newTestTicket()
		otp, err := tk.Assign("tech-1", testOTPTTL, now)
		require.NoError(t, err)

		require.NoError(t, tk.VerifyOTP(otp, testOTPTTL, now.Add(time.Hour)))

		assert.Equal(t, StatusVerified, tk.Status)
		assert.Nil(t, tk.OTPHash)
	})

	t.Run("mismatch does not consume code", func(t *testing.T) {
		tk := newTestTicket()
		otp, err := tk.Assign("tech-1", testOTPTTL, now)
		require.NoError(t, err)

		err = tk.VerifyOTP("999999", testOTPTTL, now)
		require.ErrorIs(t, err, ErrMismatch)
		assert.Equal(t, StatusAssigned, tk.Status)

		require.NoError(t, tk.VerifyOTP(otp, testOTPTTL, now))
		assert.Equal(t, StatusVerified, tk.Status)
	})

	t.Run("expired code cleared, status unchanged", func(t *testing.T) {
		tk := newTestTicket()
		otp, err := tk.Assign("tech-1", testOTPTTL, now)
		require.NoError(t, err)

		err = tk.VerifyOTP(otp, testOTPTTL, now.Add(testOTPTTL+time.Second))

		require.ErrorIs(t, err, ErrExpired)
		assert.Equal(t, StatusAssigned, tk.Status)
		assert.Nil(t, tk.OTPHash)

		// the lapsed code is gone for good
		err = tk.VerifyOTP(otp, testOTPTTL, now)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("unassigned ticket", func(t *testing.T) {
		tk := newTestTicket()
		err := tk.VerifyOTP("123456", testOTPTTL, now)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestTicket_AttachEvidence(t *testing.T) {
	now := time.Now().UTC()

	t.Run("only after verification", func(t *testing.T) {
		tk := newTestTicket()
		err := tk.AttachEvidence([]evidence.Unit{evidence.NewPhoto("p1", "tech-1")}, now)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})

	t.Run("preserves submission order", func(t *testing.T) {
		tk := newTestTicket()
		otp, err := tk.Assign("tech-1", testOTPTTL, now)
		require.NoError(t, err)
		require.NoError(t, tk.VerifyOTP(otp, testOTPTTL, now))

		first := evidence.NewPhoto("p1", "tech-1")
		second := evidence.NewPhoto("p2", "tech-1")
		require.NoError(t, tk.AttachEvidence([]evidence.Unit{first, second}, now))
		require.NoError(t, tk.AttachEvidence([]evidence.Unit{evidence.NewPhoto("p3", "tech-1")}, now))

		require.Len(t, tk.Evidence, 3)
		assert.Equal(t, "p1", tk.Evidence[0].StorageRef)
		assert.Equal(t, "p2", tk.Evidence[1].StorageRef)
		assert.Equal(t, "p3", tk.Evidence[2].StorageRef)
	})
}

func TestTicket_MarkResolved(t *testing.T) {
	now := time.Now().UTC()

	verified := func(t *testing.T) *Ticket {
		t.Helper()
		tk := newTestTicket()
		otp, err := tk.Assign("tech-1", testOTPTTL, now)
		require.NoError(t, err)
		require.NoError(t, tk.VerifyOTP(otp, testOTPTTL, now))
		return tk
	}

	t.Run("requires minimum evidence", func(t *testing.T) {
		tk := verified(t)
		attachUnits(t, tk, 1, now)

		_, err := tk.MarkResolved("replaced drop cable", 2, testCodeTTL, now)

		require.ErrorIs(t, err, ErrInsufficientEvidence)
		assert.Equal(t, StatusVerified, tk.Status)
	})

	t.Run("issues completion code", func(t *testing.T) {
		tk := verified(t)
		attachUnits(t, tk, 2, now)

		code, err := tk.MarkResolved("replaced drop cable", 2, testCodeTTL, now)

		require.NoError(t, err)
		assert.Len(t, code, CompletionCodeDigits)
		assert.Equal(t, StatusAwaitingConfirmation, tk.Status)
		assert.Equal(t, "replaced drop cable", tk.ResolutionNotes)
		assert.NotNil(t, tk.CompletionHash)
	})

	t.Run("invalid from new", func(t *testing.T) {
		tk := newTestTicket()
		_, err := tk.MarkResolved("notes", 0, testCodeTTL, now)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})
}

func TestTicket_ConfirmCompletion(t *testing.T) {
	now := time.Now().UTC()

	awaiting := func(t *testing.T) (*Ticket, string) {
		t.Helper()
		tk := newTestTicket()
		otp, err := tk.Assign("tech-1", testOTPTTL, now)
		require.NoError(t, err)
		require.NoError(t, tk.VerifyOTP(otp, testOTPTTL, now.Add(time.Hour)))
		attachUnits(t, tk, 2, now.Add(time.Hour))
		code, err := tk.MarkResolved("spliced fiber", 2, testCodeTTL, now.Add(2*time.Hour))
		require.NoError(t, err)
		return tk, code
	}

	t.Run("resolves and stamps duration", func(t *testing.T) {
		tk, code := awaiting(t)

		require.NoError(t, tk.ConfirmCompletion(code, testCodeTTL, now.Add(3*time.Hour)))

		assert.Equal(t, StatusResolved, tk.Status)
		assert.True(t, tk.Terminal())
		assert.NotNil(t, tk.ResolvedAt)
		assert.NotNil(t, tk.ArchivedAt)
		assert.Equal(t, 3*time.Hour, tk.ResolutionDuration)
		assert.Nil(t, tk.CompletionHash)
	})

	t.Run("mismatch keeps ticket open", func(t *testing.T) {
		tk, code := awaiting(t)

		err := tk.ConfirmCompletion("0000", testCodeTTL, now.Add(3*time.Hour))
		require.ErrorIs(t, err, ErrMismatch)
		assert.Equal(t, StatusAwaitingConfirmation, tk.Status)

		require.NoError(t, tk.ConfirmCompletion(code, testCodeTTL, now.Add(3*time.Hour)))
	})

	t.Run("expired code", func(t *testing.T) {
		tk, code := awaiting(t)

		err := tk.ConfirmCompletion(code, testCodeTTL, now.Add(2*time.Hour).Add(testCodeTTL+time.Second))

		require.ErrorIs(t, err, ErrExpired)
		assert.Equal(t, StatusAwaitingConfirmation, tk.Status)
	})
}

func TestTicket_Cancel(t *testing.T) {
	now := time.Now().UTC()

	t.Run("from new", func(t *testing.T) {
		tk := newTestTicket()

		require.NoError(t, tk.Cancel("cust-1", "resolved itself", now))

		assert.Equal(t, StatusCancelled, tk.Status)
		assert.Equal(t, "cust-1", tk.CancelledBy)
		assert.Equal(t, "resolved itself", tk.CancelReason)
		assert.NotNil(t, tk.ArchivedAt)
	})

	t.Run("from assigned clears otp", func(t *testing.T) {
		tk := newTestTicket()
		_, err := tk.Assign("tech-1", testOTPTTL, now)
		require.NoError(t, err)

		require.NoError(t, tk.Cancel("admin-1", "duplicate report", now))

		assert.Nil(t, tk.OTPHash)
		assert.Nil(t, tk.OTPIssuedAt)
	})

	t.Run("refused once verified", func(t *testing.T) {
		tk := newTestTicket()
		otp, err := tk.Assign("tech-1", testOTPTTL, now)
		require.NoError(t, err)
		require.NoError(t, tk.VerifyOTP(otp, testOTPTTL, now))

		err = tk.Cancel("cust-1", "nevermind", now)

		require.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, StatusVerified, tk.Status)
	})

	t.Run("cancelled ticket stays cancelled", func(t *testing.T) {
		tk := newTestTicket()
		require.NoError(t, tk.Cancel("cust-1", "first", now))
		err := tk.Cancel("cust-1", "again", now)
		require.ErrorIs(t, err, ErrInvalidTransition)
	})
}
