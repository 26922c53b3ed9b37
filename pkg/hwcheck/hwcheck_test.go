package hwcheck

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchesKeyword(t *testing.T) {
	for _, product := range []string{
		"USB-RS485 Adapter",
		"FT232R USB UART",
		"CH340 serial converter",
		"CP2102N USB to UART Bridge",
		"Generic USB Serial",
	} {
		assert.True(t, matchesKeyword(product), "product %q", product)
	}
	for _, product := range []string{"", "Webcam C920", "Bluetooth Radio"} {
		assert.False(t, matchesKeyword(product), "product %q", product)
	}
}

func TestEnsurePort(t *testing.T) {
	assert.Equal(t, "192.168.0.203:502", ensurePort("192.168.0.203", "502"))
	assert.Equal(t, "192.168.0.203:7000", ensurePort("192.168.0.203:7000", "7000"))
	assert.Equal(t, "10.0.0.1:9999", ensurePort("10.0.0.1:9999", "502"))
}

func TestResolveHandPortExplicit(t *testing.T) {
	assert.Equal(t, "/dev/ttyUSB3", ResolveHandPort("/dev/ttyUSB3"))
}

func TestResultOK(t *testing.T) {
	assert.False(t, Result{}.OK())
	assert.False(t, Result{ArmReachable: true, HandPortPresent: true}.OK())
	assert.True(t, Result{ArmReachable: true, HandPortPresent: true, HandPortAccessible: true}.OK())
}
