// Package controller is the host side of the winder: it finds the board, bridges a terminal to its
// serial line protocol, keeps the safety timeout fed during long jobs and pushes live PATTERN updates.
package controller

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/calvinmclean/coilwinder/log"
)

// KeepaliveCommand is recognized by the firmware, so it resets the safety timeout, and it changes nothing
const KeepaliveCommand = "SYS VERSION"

const defaultDrain = 500 * time.Millisecond

var ErrNoPort = errors.New("serial port disabled")

// Controller forwards commands to the winder and prints what it answers
type Controller struct {
	port      io.ReadWriteCloser
	keepalive time.Duration
	drain     time.Duration
	logger    log.Logger
	onLine    func(string)

	mu sync.Mutex
}

// Option configures a Controller
type Option func(*Controller)

func WithLogger(l log.Logger) Option {
	return func(c *Controller) {
		c.logger = log.OrNoop(l)
	}
}

// WithKeepalive sends KeepaliveCommand at the given interval while running. Zero disables it.
func WithKeepalive(d time.Duration) Option {
	return func(c *Controller) {
		c.keepalive = d
	}
}

// WithDrain is how long Run keeps printing device output after the input ends
func WithDrain(d time.Duration) Option {
	return func(c *Controller) {
		c.drain = d
	}
}

// WithLineHandler is called with every line received from the device
func WithLineHandler(fn func(string)) Option {
	return func(c *Controller) {
		c.onLine = fn
	}
}

// New creates a Controller on an already open port
func New(port io.ReadWriteCloser, opts ...Option) *Controller {
	c := &Controller{
		port:   port,
		drain:  defaultDrain,
		logger: log.NewNoopLogger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open connects to the port named in cfg, or discovers one when it is empty
func Open(cfg Config, opts ...Option) (*Controller, error) {
	name := cfg.SerialPort
	switch name {
	case SerialPortNone:
		return nil, ErrNoPort
	case "":
		var err error
		name, err = FindPort()
		if err != nil {
			return nil, err
		}
	}

	port, err := serial.Open(name, &serial.Mode{BaudRate: cfg.BaudRate})
	if err != nil {
		return nil, fmt.Errorf("error opening %s: %w", name, err)
	}

	opts = append([]Option{WithKeepalive(cfg.Keepalive)}, opts...)
	return New(port, opts...), nil
}

// NewFromEnv opens the port described by the default config file and COILWINDER_* variables
func NewFromEnv(opts ...Option) (*Controller, error) {
	cfg := DefaultConfig()
	if err := LoadConfig(&cfg, DefaultConfigPath(), nil); err != nil {
		return nil, err
	}
	return Open(cfg, opts...)
}

// Send writes a single command line
func (c *Controller) Send(cmd string) error {
	cmd = strings.TrimSpace(cmd)
	if cmd == "" {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	_, err := io.WriteString(c.port, cmd+"\n")
	if err != nil {
		return fmt.Errorf("error writing command: %w", err)
	}
	c.logger.Debug("sent command", log.String("command", cmd))
	return nil
}

// Close closes the port
func (c *Controller) Close() error {
	return c.port.Close()
}

// Run forwards lines from in to the device and device lines to out. It returns when ctx is done,
// when the device connection ends, or shortly after in is exhausted.
func (c *Controller) Run(ctx context.Context, in io.Reader, out io.Writer) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	deviceErr := make(chan error, 1)
	go func() {
		deviceErr <- c.readDevice(out)
	}()

	inputDone := make(chan error, 1)
	go func() {
		inputDone <- c.forward(in)
	}()

	var keepalive <-chan time.Time
	if c.keepalive > 0 {
		ticker := time.NewTicker(c.keepalive)
		defer ticker.Stop()
		keepalive = ticker.C
	}

	var drain <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-deviceErr:
			return err
		case err := <-inputDone:
			if err != nil {
				return err
			}
			inputDone = nil
			drain = time.After(c.drain)
		case <-drain:
			return nil
		case <-keepalive:
			if err := c.Send(KeepaliveCommand); err != nil {
				return err
			}
		}
	}
}

func (c *Controller) forward(in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if err := c.Send(scanner.Text()); err != nil {
			return err
		}
	}
	return scanner.Err()
}

func (c *Controller) readDevice(out io.Writer) error {
	scanner := bufio.NewScanner(c.port)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if line == "" {
			continue
		}
		if _, err := fmt.Fprintln(out, line); err != nil {
			return err
		}
		if c.onLine != nil {
			c.onLine(line)
		}
	}

	err := scanner.Err()
	if err != nil {
		c.logger.Warn("device connection closed", log.Err(err))
	}
	return err
}
