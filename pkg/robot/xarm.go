package robot

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math"
	"net"
	"strings"
	"time"
)

// XArmConfig configures the TCP connection to the xArm control box.
type XArmConfig struct {
	// Addr is the control-box address, host or host:port.
	Addr string
	// Speed and Accel are the defaults used when MoveJoints gets zero values.
	Speed float64 // deg/s
	Accel float64 // deg/s²

	DialTimeout time.Duration
	ReadTimeout time.Duration
}

// XArm is a thin client for the xArm gateway protocol: length-prefixed
// register frames over a single TCP connection to the control box.
type XArm struct {
	cfg  XArmConfig
	conn net.Conn
	txn  uint16
}

// Gateway framing: [txn u16][protocol u16][length u16][register u8][payload].
// The reply echoes txn and register; bit 6 of the state byte flags an error.
const (
	xarmDefaultPort    = "502"
	xarmProtocol       = 0x0002
	xarmErrorBit       = 0x40
	xarmStateMoving    = 1
	xarmMoveSettlePoll = 100 * time.Millisecond
	xarmWaitCap        = 60 * time.Second
	defaultXArmSpeed   = 80.0
	defaultXArmAccel   = 800.0
	defaultDialTimeout = 3 * time.Second
	defaultReadTimeout = 2 * time.Second
)

// Control-box registers used by this driver.
const (
	regMotionEnable = 11
	regSetState     = 12
	regGetState     = 13
	regSetMode      = 19
	regMoveJoints   = 21
)

// NewXArm creates an arm driver; Connect must be called before any motion.
func NewXArm(cfg XArmConfig) *XArm {
	if cfg.Speed <= 0 {
		cfg.Speed = defaultXArmSpeed
	}
	if cfg.Accel <= 0 {
		cfg.Accel = defaultXArmAccel
	}
	if cfg.DialTimeout <= 0 {
		cfg.DialTimeout = defaultDialTimeout
	}
	if cfg.ReadTimeout <= 0 {
		cfg.ReadTimeout = defaultReadTimeout
	}
	return &XArm{cfg: cfg}
}

// Connect dials the control box and brings the arm into position mode with
// motion enabled.
func (x *XArm) Connect(ctx context.Context) error {
	dialer := net.Dialer{Timeout: x.cfg.DialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", withDefaultPort(x.cfg.Addr, xarmDefaultPort))
	if err != nil {
		return fmt.Errorf("dial arm at %s: %w", x.cfg.Addr, err)
	}
	x.conn = conn

	// Enable all axes, position mode, ready state.
	if _, err := x.command(regMotionEnable, []byte{8, 1}); err != nil {
		x.Disconnect()
		return fmt.Errorf("motion enable: %w", err)
	}
	if _, err := x.command(regSetMode, []byte{0}); err != nil {
		x.Disconnect()
		return fmt.Errorf("set mode: %w", err)
	}
	if _, err := x.command(regSetState, []byte{0}); err != nil {
		x.Disconnect()
		return fmt.Errorf("set state: %w", err)
	}
	return nil
}

// Disconnect closes the control-box connection. Safe to call twice.
func (x *XArm) Disconnect() {
	if x.conn == nil {
		return
	}
	x.conn.Close()
	x.conn = nil
}

// MoveJoints commands a joint-space move. Zero speed/accel fall back to the
// configured defaults. With wait set, it polls the arm state until motion
// settles or ctx is cancelled.
func (x *XArm) MoveJoints(ctx context.Context, pose JointPose, speed, accel float64, wait bool) error {
	if x.conn == nil {
		return ErrNotConnected
	}
	if speed <= 0 {
		speed = x.cfg.Speed
	}
	if accel <= 0 {
		accel = x.cfg.Accel
	}

	// The wire protocol is radian-based and sized for seven axes.
	payload := make([]byte, 0, 4*10)
	for _, deg := range pose {
		payload = appendFloat32(payload, degToRad(deg))
	}
	payload = appendFloat32(payload, 0) // unused seventh axis
	payload = appendFloat32(payload, degToRad(speed))
	payload = appendFloat32(payload, degToRad(accel))

	if _, err := x.command(regMoveJoints, payload); err != nil {
		return fmt.Errorf("move joints: %w", err)
	}
	if !wait {
		return nil
	}
	return x.waitSettled(ctx)
}

func (x *XArm) waitSettled(ctx context.Context) error {
	deadline := time.Now().Add(xarmWaitCap)
	ticker := time.NewTicker(xarmMoveSettlePoll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("arm did not settle within %s", xarmWaitCap)
		}
		data, err := x.command(regGetState, nil)
		if err != nil {
			return fmt.Errorf("poll state: %w", err)
		}
		if len(data) >= 1 && data[0] != xarmStateMoving {
			return nil
		}
	}
}

// command sends one register frame and reads the matching reply, returning
// the reply payload after the state byte.
func (x *XArm) command(register byte, payload []byte) ([]byte, error) {
	if x.conn == nil {
		return nil, ErrNotConnected
	}
	x.txn++

	frame := make([]byte, 7+len(payload))
	binary.BigEndian.PutUint16(frame[0:2], x.txn)
	binary.BigEndian.PutUint16(frame[2:4], xarmProtocol)
	binary.BigEndian.PutUint16(frame[4:6], uint16(1+len(payload)))
	frame[6] = register
	copy(frame[7:], payload)

	if _, err := x.conn.Write(frame); err != nil {
		return nil, fmt.Errorf("write frame: %w", err)
	}

	x.conn.SetReadDeadline(time.Now().Add(x.cfg.ReadTimeout))
	header := make([]byte, 7)
	if _, err := io.ReadFull(x.conn, header); err != nil {
		return nil, fmt.Errorf("read reply header: %w", err)
	}
	if got := header[6]; got != register {
		return nil, fmt.Errorf("reply register mismatch: sent %d, got %d", register, got)
	}
	bodyLen := int(binary.BigEndian.Uint16(header[4:6])) - 1
	if bodyLen < 1 {
		return nil, fmt.Errorf("short reply for register %d", register)
	}
	body := make([]byte, bodyLen)
	if _, err := io.ReadFull(x.conn, body); err != nil {
		return nil, fmt.Errorf("read reply body: %w", err)
	}
	if state := body[0]; state&xarmErrorBit != 0 {
		return nil, fmt.Errorf("arm rejected register %d command (state 0x%02x)", register, state)
	}
	return body[1:], nil
}

func withDefaultPort(addr, port string) string {
	if strings.Contains(addr, ":") {
		return addr
	}
	return net.JoinHostPort(addr, port)
}

func degToRad(deg float64) float32 {
	return float32(deg * math.Pi / 180)
}

func appendFloat32(b []byte, v float32) []byte {
	var buf [4]byte
	binary.LittleEndian.PutUint32(buf[:], math.Float32bits(v))
	return append(b, buf[:]...)
}
