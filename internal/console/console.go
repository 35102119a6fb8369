// Package console provides an interactive simulator for the controller. It
// plays the central's role: connect, disconnect and write commands are fed
// to the controller as if they came from the BLE stack.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"

	"github.com/chaz8081/servoble/internal/command"
	"github.com/chaz8081/servoble/internal/controller"
	"github.com/chaz8081/servoble/internal/hardware"
)

// angleStep is the increment used by the up and down commands, matching
// the companion app buttons.
const angleStep = 15

// Console handles interactive simulation.
type Console struct {
	ctrl      *controller.Controller
	driver    *hardware.LogDriver
	transport *Loopback
	pins      hardware.Pins
	out       io.Writer

	// appAngle tracks the angle the simulated app last sent.
	appAngle int
}

// New creates a console for ctrl. transport must be the controller's
// transport so printed output can follow the prompt.
func New(ctrl *controller.Controller, driver *hardware.LogDriver, transport *Loopback, pins hardware.Pins) *Console {
	return &Console{
		ctrl:      ctrl,
		driver:    driver,
		transport: transport,
		pins:      pins,
		out:       os.Stdout,
	}
}

// SetOutput redirects console and notification output.
func (c *Console) SetOutput(w io.Writer) {
	c.out = w
	c.transport.SetOutput(w)
}

// Run starts the interactive command loop. It calls cancel when the user
// quits or closes input.
func (c *Console) Run(ctx context.Context, cancel context.CancelFunc) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "servoble> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	c.SetOutput(rl.Stdout())
	c.printHelp()

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt {
				continue
			}
			fmt.Fprintln(c.out, "Exiting...")
			cancel()
			return nil
		}

		if quit := c.Exec(line); quit {
			cancel()
			return nil
		}
	}
}

// Exec runs one console command and reports whether the user asked to quit.
func (c *Console) Exec(line string) bool {
	input := strings.TrimSpace(line)
	if input == "" {
		return false
	}

	name, rest, _ := strings.Cut(input, " ")
	switch strings.ToLower(name) {
	case "help", "?":
		c.printHelp()

	case "connect", "c":
		c.ctrl.OnConnect()

	case "disconnect", "d":
		c.ctrl.OnDisconnect()

	case "write", "w":
		if rest == "" {
			fmt.Fprintln(c.out, "Usage: write <payload>")
			return false
		}
		c.ctrl.OnWrite([]byte(rest))

	case "servo", "s":
		c.cmdServo(rest)

	case "up":
		if c.appAngle < 180 {
			c.send(c.appAngle + angleStep)
		}

	case "down":
		if c.appAngle > 0 {
			c.send(c.appAngle - angleStep)
		}

	case "status":
		c.cmdStatus()

	case "quit", "exit", "q":
		fmt.Fprintln(c.out, "Exiting...")
		return true

	default:
		fmt.Fprintf(c.out, "Unknown command: %s (type 'help' for commands)\n", name)
	}
	return false
}

func (c *Console) cmdServo(arg string) {
	angle, err := strconv.Atoi(strings.TrimSpace(arg))
	if err != nil {
		fmt.Fprintln(c.out, "Usage: servo <angle>")
		return
	}
	c.send(angle)
}

// send writes a servo command the way the companion app formats it.
func (c *Console) send(angle int) {
	c.appAngle = angle
	c.ctrl.OnWrite([]byte("Servo: " + strconv.Itoa(angle)))
}

func (c *Console) cmdStatus() {
	st := c.ctrl.Status()
	fmt.Fprintf(c.out, "state:    %s\n", st.State)
	fmt.Fprintf(c.out, "greeting: %q next\n", controller.Greeting(st.Phase))
	if st.HasAngle {
		fmt.Fprintf(c.out, "angle:    %d\n", st.Angle)
	} else {
		fmt.Fprintln(c.out, "angle:    (none)")
	}
	for _, ch := range command.Channels() {
		if v, ok := c.driver.Angle(ch); ok {
			fmt.Fprintf(c.out, "servo %-9s %d\n", ch.String()+":", v)
		}
	}
	fmt.Fprintf(c.out, "led:      %t\n", c.driver.Level(c.pins.LED))
	fmt.Fprintf(c.out, "queued:   %d\n", st.Queued)
	fmt.Fprintf(c.out, "notified: %d, adverts: %d\n", len(c.transport.Notifications()), c.transport.Adverts())
}

func (c *Console) printHelp() {
	fmt.Fprintln(c.out, `
servoble simulator commands:
  connect            - Simulate a central connecting
  disconnect         - Simulate the central disconnecting
  write <payload>    - Write raw text to the characteristic
  servo <angle>      - Write "Servo: <angle>"
  up / down          - Step the angle by 15 degrees (0..180)
  status             - Show controller and output state
  quit               - Exit`)
}
