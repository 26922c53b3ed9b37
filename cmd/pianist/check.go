package main

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/pianistbot/pianist/pkg/hwcheck"
)

type CheckCommand struct {
	Hardware HardwareOptions `group:"Hardware"`
	Timeout  float64         `long:"timeout" default:"2" description:"Probe timeout in seconds"`
}

func (c *CheckCommand) Execute(args []string) error {
	fmt.Println(headerStyle.Render("Pianist Hardware Check"))
	fmt.Println()

	// Serial adapter inventory first, so a wrong --hand-port is easy to spot.
	ports, err := hwcheck.ScanPorts()
	if err != nil {
		fmt.Fprintln(os.Stderr, warnStyle.Render(fmt.Sprintf("serial discovery failed: %v", err)))
	}
	printPortsTable(ports)
	fmt.Println()

	result := hwcheck.Run(c.Hardware.ArmAddr, c.Hardware.HandPort, secondsToDuration(c.Timeout))

	if result.ArmReachable {
		fmt.Println(successStyle.Render("✓ arm reachable") + dimStyle.Render("  "+result.ArmAddr))
	} else {
		fmt.Println(errorStyle.Render("✗ arm unreachable") + dimStyle.Render(fmt.Sprintf("  %s (%v)", result.ArmAddr, result.ArmErr)))
	}
	switch {
	case result.HandPortAccessible:
		fmt.Println(successStyle.Render("✓ hand port accessible") + dimStyle.Render("  "+result.HandPort))
	case result.HandPortPresent:
		fmt.Println(errorStyle.Render("✗ hand port present but not accessible") + dimStyle.Render(fmt.Sprintf("  %s (%v)", result.HandPort, result.HandErr)))
	default:
		fmt.Println(errorStyle.Render("✗ hand port missing") + dimStyle.Render(fmt.Sprintf("  %s (%v)", result.HandPort, result.HandErr)))
	}
	fmt.Println()

	switch {
	case result.OK():
		fmt.Println(successStyle.Render("PASS") + " both actuators look reachable")
		return nil
	case result.ArmReachable || result.HandPortAccessible:
		fmt.Println(warnStyle.Render("PARTIAL") + " one actuator is missing")
		os.Exit(1)
	default:
		fmt.Println(errorStyle.Render("FAIL") + " neither actuator is reachable")
		os.Exit(2)
	}
	return nil
}

func printPortsTable(ports []hwcheck.PortInfo) {
	if len(ports) == 0 {
		fmt.Println(dimStyle.Render("No RS485-looking serial adapters found."))
		return
	}

	tableHeaderStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")).Padding(0, 1)
	tableCellStyle := lipgloss.NewStyle().Padding(0, 1)

	rows := make([][]string, 0, len(ports))
	for _, p := range ports {
		adapter := p.Adapter
		if adapter == "" {
			adapter = "unknown"
		}
		ids := "-"
		if p.VID != "" {
			ids = p.VID + ":" + p.PID
		}
		rows = append(rows, []string{p.Device, adapter, ids, p.Product})
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(dimStyle).
		Headers("Device", "Adapter", "VID:PID", "Product").
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return tableHeaderStyle
			}
			return tableCellStyle
		})

	fmt.Println(t.Render())
}
