package controller

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.bug.st/serial/enumerator"
)

// Raspberry Pi Pico USB CDC
const (
	PicoVendorID  uint16 = 0x2E8A
	PicoProductID uint16 = 0x000A
)

var ErrNoUSBSerial = errors.New("no USB serial ports found")

// Port describes a USB serial port
type Port struct {
	Name         string
	VendorID     uint16
	ProductID    uint16
	SerialNumber string
	Product      string
}

// IsPico reports whether the port is a Pico running the winder firmware
func (p Port) IsPico() bool {
	return p.VendorID == PicoVendorID && p.ProductID == PicoProductID
}

func (p Port) String() string {
	s := fmt.Sprintf("%s [%04X:%04X]", p.Name, p.VendorID, p.ProductID)
	if p.Product != "" {
		s += " " + p.Product
	}
	if p.SerialNumber != "" {
		s += " (" + p.SerialNumber + ")"
	}
	return s
}

// ListPorts returns the USB serial ports, Pico boards first
func ListPorts() ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}
	ports := usbPorts(details)
	if len(ports) == 0 {
		return nil, ErrNoUSBSerial
	}
	return ports, nil
}

// GetSerialPorts returns the names of the USB serial ports
func GetSerialPorts() ([]string, error) {
	ports, err := ListPorts()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(ports))
	for _, p := range ports {
		names = append(names, p.Name)
	}
	return names, nil
}

// FindPort picks the first Pico, or the only USB serial port when there is exactly one
func FindPort() (string, error) {
	ports, err := ListPorts()
	if err != nil {
		return "", err
	}
	if ports[0].IsPico() || len(ports) == 1 {
		return ports[0].Name, nil
	}
	return "", fmt.Errorf("found %d USB serial ports and none is a Pico: set --port", len(ports))
}

func usbPorts(details []*enumerator.PortDetails) []Port {
	var ports []Port
	for _, d := range details {
		if d == nil || !d.IsUSB {
			continue
		}
		vid, err := strconv.ParseUint(d.VID, 16, 16)
		if err != nil {
			continue
		}
		pid, err := strconv.ParseUint(d.PID, 16, 16)
		if err != nil {
			continue
		}
		ports = append(ports, Port{
			Name:         d.Name,
			VendorID:     uint16(vid),
			ProductID:    uint16(pid),
			SerialNumber: d.SerialNumber,
			Product:      strings.TrimSpace(d.Product),
		})
	}

	sort.SliceStable(ports, func(i, j int) bool {
		return ports[i].IsPico() && !ports[j].IsPico()
	})
	return ports
}
