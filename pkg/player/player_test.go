package player

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pianistbot/pianist/pkg/robot"
)

type fakeArm struct {
	commands    []string
	connected   bool
	connectErr  error
	moveErr     error
	moveErrOnce bool
}

func (a *fakeArm) Connect(ctx context.Context) error {
	if a.connectErr != nil {
		return a.connectErr
	}
	a.connected = true
	a.commands = append(a.commands, "connect")
	return nil
}

func (a *fakeArm) Disconnect() {
	a.connected = false
	a.commands = append(a.commands, "disconnect")
}

func (a *fakeArm) MoveJoints(ctx context.Context, pose robot.JointPose, speed, accel float64, wait bool) error {
	if a.moveErr != nil {
		err := a.moveErr
		if a.moveErrOnce {
			a.moveErr = nil
		}
		return err
	}
	a.commands = append(a.commands, fmt.Sprintf("move %s", pose))
	return nil
}

type fakeHand struct {
	commands   []string
	connected  bool
	connectErr error

	// cancelAfter cancels this context once the given number of single-motor
	// moves have been issued, simulating an operator stop mid-routine.
	cancelAfter int
	singleMoves int
	cancel      context.CancelFunc
}

func (h *fakeHand) Connect(ctx context.Context) error {
	if h.connectErr != nil {
		return h.connectErr
	}
	h.connected = true
	h.commands = append(h.commands, "connect")
	return nil
}

func (h *fakeHand) Disconnect() {
	h.connected = false
	h.commands = append(h.commands, "disconnect")
}

func (h *fakeHand) SetAllMotors(ctx context.Context, value int, hold time.Duration) error {
	h.commands = append(h.commands, fmt.Sprintf("all=%d", value))
	return nil
}

func (h *fakeHand) MoveSingleMotor(ctx context.Context, index, value int, hold time.Duration) error {
	h.commands = append(h.commands, fmt.Sprintf("m%d=%d", index, value))
	h.singleMoves++
	if h.cancelAfter > 0 && h.singleMoves == h.cancelAfter && h.cancel != nil {
		h.cancel()
	}
	return nil
}

func (h *fakeHand) CycleAllMotors(ctx context.Context, openValue, closeValue int, hold time.Duration) error {
	h.commands = append(h.commands, fmt.Sprintf("cycle %d/%d", openValue, closeValue))
	return nil
}

func TestNoteTestSequence(t *testing.T) {
	arm := &fakeArm{}
	hand := &fakeHand{}
	p := New(arm, hand, Config{ReturnHome: true}, nil)

	require.NoError(t, p.NoteTest(context.Background(), 2))

	// Lifecycle: connect, move to play center, routine, park, disconnect.
	require.Len(t, arm.commands, 4)
	assert.Equal(t, "connect", arm.commands[0])
	assert.Equal(t, "move "+DefaultPlayCenter.String(), arm.commands[1])
	assert.Equal(t, "move "+DefaultHome.String(), arm.commands[2])
	assert.Equal(t, "disconnect", arm.commands[3])
	assert.False(t, arm.connected)
	assert.False(t, hand.connected)

	// Strike depth for the default open/close/fraction values.
	strike := robot.StrikeValue(DefaultOpenValue, DefaultCloseReference, DefaultDownFraction)
	assert.Equal(t, 648, strike)

	// Full open on entry and exit: combined, per-finger, combined again.
	openSeq := []string{"all=1000", "m3=1000", "m2=1000", "m1=1000", "m0=1000", "all=1000"}

	var want []string
	want = append(want, "connect")
	want = append(want, openSeq...)
	for loop := 0; loop < 2; loop++ {
		for _, f := range []int{3, 2, 1, 0} {
			want = append(want, fmt.Sprintf("m%d=%d", f, strike), fmt.Sprintf("m%d=1000", f))
		}
	}
	want = append(want, openSeq...)
	want = append(want, "disconnect")
	assert.Equal(t, want, hand.commands)
}

func TestNoteTestRejectsNonPositiveLoops(t *testing.T) {
	p := New(&fakeArm{}, &fakeHand{}, Config{}, nil)
	assert.Error(t, p.NoteTest(context.Background(), 0))
}

func TestMoveFailureSkipsHand(t *testing.T) {
	arm := &fakeArm{moveErr: errors.New("joint fault"), moveErrOnce: true}
	hand := &fakeHand{}
	p := New(arm, hand, Config{}, nil)

	err := p.NoteTest(context.Background(), 1)
	require.Error(t, err)

	// The hand was never touched; the arm still parked and disconnected.
	assert.Empty(t, hand.commands)
	assert.Equal(t, []string{"connect", "move " + DefaultHome.String(), "disconnect"}, arm.commands)
}

func TestHandConnectFailureStillParksArm(t *testing.T) {
	arm := &fakeArm{}
	hand := &fakeHand{connectErr: errors.New("port busy")}
	p := New(arm, hand, Config{}, nil)

	err := p.NoteTest(context.Background(), 1)
	require.Error(t, err)

	assert.Empty(t, hand.commands) // never connected, so no disconnect either
	assert.Equal(t, "move "+DefaultHome.String(), arm.commands[len(arm.commands)-2])
	assert.Equal(t, "disconnect", arm.commands[len(arm.commands)-1])
}

func TestPracticeInterruptParksArm(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	arm := &fakeArm{}
	// Cancel during the second loop: after the entry open (6 singles... the
	// combined opens are not singles) plus the first loop's 8 moves.
	hand := &fakeHand{cancelAfter: 4 + 8 + 2, cancel: cancel}
	p := New(arm, hand, Config{ReturnHome: false}, nil)

	// An operator stop is a clean outcome, not an error.
	require.NoError(t, p.Practice(ctx))

	// Despite ReturnHome being off, an interrupted run parks the arm.
	assert.Equal(t, "move "+DefaultHome.String(), arm.commands[len(arm.commands)-2])
	assert.Equal(t, "disconnect", arm.commands[len(arm.commands)-1])

	// The in-flight loop ran to the end before teardown forced the hand open.
	tail := hand.commands[len(hand.commands)-7:]
	assert.Equal(t, []string{"all=1000", "m3=1000", "m2=1000", "m1=1000", "m0=1000", "all=1000", "disconnect"}, tail)
}

func TestPracticeMaxLoops(t *testing.T) {
	arm := &fakeArm{}
	hand := &fakeHand{}
	p := New(arm, hand, Config{MaxLoops: 3, ReturnHome: true}, nil)

	require.NoError(t, p.Practice(context.Background()))

	// 3 loops × 4 fingers × press+release, plus 2×4 open reinforcements.
	assert.Equal(t, 3*4*2+8, hand.singleMoves)
}

func TestStartupSelfTest(t *testing.T) {
	arm := &fakeArm{}
	hand := &fakeHand{}
	p := New(arm, hand, Config{}, nil)

	require.NoError(t, p.Startup(context.Background()))

	// Self-test stays at home: one move out, one move back.
	assert.Equal(t, []string{"connect", "move " + DefaultHome.String(), "move " + DefaultHome.String(), "disconnect"}, arm.commands)
	assert.Contains(t, hand.commands, "cycle 1000/120")
}
