package robot

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"github.com/goburrow/modbus"
)

// InspireConfig configures the Modbus RTU link to the Inspire hand.
type InspireConfig struct {
	Port    string
	SlaveID byte
	Timeout time.Duration
}

// InspireHand drives the 6-motor Inspire hand over Modbus RTU. Motor
// positions are written as a block of six holding registers starting at the
// angle-set base address.
type InspireHand struct {
	cfg     InspireConfig
	handler *modbus.RTUClientHandler
	client  modbus.Client

	// Some firmware revisions expose word addresses instead of byte
	// addresses; on the first write failure the driver retries at base/2
	// and sticks with whichever worked.
	angleBase uint16
	probed    bool
}

const (
	inspireAngleSetBase = 1486
	inspireBaudRate     = 115200
	inspireDataBits     = 8
	inspireParity       = "N"
	inspireStopBits     = 1
	inspireBusTimeout   = 200 * time.Millisecond
	inspireCycleSettle  = 200 * time.Millisecond
)

// NewInspireHand creates a hand driver; Connect must be called before any
// motor command.
func NewInspireHand(cfg InspireConfig) *InspireHand {
	if cfg.SlaveID == 0 {
		cfg.SlaveID = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = inspireBusTimeout
	}
	return &InspireHand{cfg: cfg, angleBase: inspireAngleSetBase}
}

// Connect opens the serial port. The hand has no session handshake; a
// successful port open is a successful connect.
func (h *InspireHand) Connect(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	handler := modbus.NewRTUClientHandler(h.cfg.Port)
	handler.BaudRate = inspireBaudRate
	handler.DataBits = inspireDataBits
	handler.Parity = inspireParity
	handler.StopBits = inspireStopBits
	handler.SlaveId = h.cfg.SlaveID
	handler.Timeout = h.cfg.Timeout
	if err := handler.Connect(); err != nil {
		return fmt.Errorf("open hand port %s: %w", h.cfg.Port, err)
	}
	h.handler = handler
	h.client = modbus.NewClient(handler)
	return nil
}

// Disconnect closes the serial port. Safe to call twice.
func (h *InspireHand) Disconnect() {
	if h.handler == nil {
		return
	}
	h.handler.Close()
	h.handler = nil
	h.client = nil
}

// SetAllMotors commands every motor to the same position, then sleeps hold.
func (h *InspireHand) SetAllMotors(ctx context.Context, value int, hold time.Duration) error {
	if err := validateMotorValue(value); err != nil {
		return err
	}
	var values [MotorCount]uint16
	for i := range values {
		values[i] = uint16(value)
	}
	return h.writeAngles(ctx, values, hold)
}

// MoveSingleMotor commands one motor while leaving the others untouched,
// then sleeps hold.
func (h *InspireHand) MoveSingleMotor(ctx context.Context, index, value int, hold time.Duration) error {
	if index < 0 || index >= MotorCount {
		return fmt.Errorf("motor index %d out of range [0,%d]", index, MotorCount-1)
	}
	if err := validateMotorValue(value); err != nil {
		return err
	}
	var values [MotorCount]uint16
	for i := range values {
		values[i] = NoAction
	}
	values[index] = uint16(value)
	return h.writeAngles(ctx, values, hold)
}

// CycleAllMotors exercises each motor in turn: open, close, open again, with
// hold sleeps between commands and a short settle after each motor.
func (h *InspireHand) CycleAllMotors(ctx context.Context, openValue, closeValue int, hold time.Duration) error {
	if err := validateMotorValue(openValue); err != nil {
		return err
	}
	if err := validateMotorValue(closeValue); err != nil {
		return err
	}
	for index := 0; index < MotorCount; index++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		for _, value := range [...]int{openValue, closeValue, openValue} {
			if err := h.MoveSingleMotor(ctx, index, value, hold); err != nil {
				return fmt.Errorf("cycle motor %d: %w", index, err)
			}
		}
		time.Sleep(inspireCycleSettle)
	}
	return nil
}

func (h *InspireHand) writeAngles(ctx context.Context, values [MotorCount]uint16, hold time.Duration) error {
	if h.client == nil {
		return ErrNotConnected
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data := make([]byte, 2*MotorCount)
	for i, v := range values {
		binary.BigEndian.PutUint16(data[2*i:], v)
	}
	_, err := h.client.WriteMultipleRegisters(h.angleBase, MotorCount, data)
	if err != nil && !h.probed {
		// Retry once at the word address.
		h.probed = true
		if _, retryErr := h.client.WriteMultipleRegisters(inspireAngleSetBase/2, MotorCount, data); retryErr == nil {
			h.angleBase = inspireAngleSetBase / 2
			err = nil
		}
	}
	if err != nil {
		return fmt.Errorf("write motor registers: %w", err)
	}
	h.probed = true
	if hold > 0 {
		time.Sleep(hold)
	}
	return nil
}

func validateMotorValue(value int) error {
	if value < 0 || value > MaxMotorValue {
		return fmt.Errorf("motor value %d out of range [0,%d]", value, MaxMotorValue)
	}
	return nil
}
