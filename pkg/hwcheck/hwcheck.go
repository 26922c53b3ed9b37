// Package hwcheck probes whether the rig's hardware looks reachable before
// a routine commits to motion. The checks are advisory: they catch unplugged
// cables and wrong addresses, not servo faults.
package hwcheck

import (
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"go.bug.st/serial/enumerator"
)

// DefaultHandPort is the fallback serial device when discovery finds no
// RS485 adapter.
const DefaultHandPort = "/dev/ttyUSB0"

// DefaultArmPort is the TCP port of the xArm control box gateway.
const DefaultArmPort = "502"

// knownAdapters maps VID:PID pairs of common USB-to-RS485 bridge chips.
var knownAdapters = map[string]string{
	"1A86:7523": "CH340",
	"10C4:EA60": "CP210x",
	"0403:6001": "FTDI",
	"067B:2303": "PL2303",
}

// portKeywords match product strings of serial adapters worth offering.
var portKeywords = []string{
	"rs485", "485", "ftdi", "ch340", "cp210", "pl2303", "usb serial", "uart",
}

// PortInfo describes one discovered serial port.
type PortInfo struct {
	Device  string
	Product string
	VID     string
	PID     string
	// Adapter is the recognized bridge chip name, empty when unknown.
	Adapter string
}

// ScanPorts lists serial ports that look like RS485 adapters, most likely
// candidates first. Recognized bridge chips sort before keyword matches.
func ScanPorts() ([]PortInfo, error) {
	ports, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	var known, likely []PortInfo
	for _, p := range ports {
		info := PortInfo{
			Device:  p.Name,
			Product: p.Product,
			VID:     strings.ToUpper(p.VID),
			PID:     strings.ToUpper(p.PID),
		}
		if p.IsUSB {
			info.Adapter = knownAdapters[info.VID+":"+info.PID]
		}
		switch {
		case info.Adapter != "":
			known = append(known, info)
		case matchesKeyword(p.Product):
			likely = append(likely, info)
		}
	}
	return append(known, likely...), nil
}

func matchesKeyword(product string) bool {
	product = strings.ToLower(product)
	for _, kw := range portKeywords {
		if strings.Contains(product, kw) {
			return true
		}
	}
	return false
}

// ResolveHandPort turns a configured port into a concrete device path.
// "auto" picks the best discovered adapter, falling back to DefaultHandPort
// when discovery finds nothing.
func ResolveHandPort(configured string) string {
	if configured != "" && !strings.EqualFold(configured, "auto") {
		return configured
	}
	ports, err := ScanPorts()
	if err != nil || len(ports) == 0 {
		return DefaultHandPort
	}
	return ports[0].Device
}

// Result is the outcome of a precheck run.
type Result struct {
	ArmAddr      string
	ArmReachable bool
	ArmErr       error

	HandPort           string
	HandPortPresent    bool
	HandPortAccessible bool
	HandErr            error
}

// OK reports whether both actuators passed.
func (r Result) OK() bool {
	return r.ArmReachable && r.HandPortPresent && r.HandPortAccessible
}

// Run probes the arm's TCP endpoint and the hand's serial device. It never
// moves anything; a dial and an open are the whole test.
func Run(armAddr, handPort string, timeout time.Duration) Result {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	result := Result{
		ArmAddr:  ensurePort(armAddr, DefaultArmPort),
		HandPort: ResolveHandPort(handPort),
	}

	conn, err := net.DialTimeout("tcp", result.ArmAddr, timeout)
	if err != nil {
		result.ArmErr = err
	} else {
		conn.Close()
		result.ArmReachable = true
	}

	if _, err := os.Stat(result.HandPort); err != nil {
		result.HandErr = err
		return result
	}
	result.HandPortPresent = true

	f, err := os.OpenFile(result.HandPort, os.O_RDWR, 0)
	if err != nil {
		result.HandErr = err
		return result
	}
	f.Close()
	result.HandPortAccessible = true
	return result
}

func ensurePort(addr, port string) string {
	if strings.Contains(addr, ":") {
		return addr
	}
	return net.JoinHostPort(addr, port)
}
