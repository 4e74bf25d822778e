// Command totembusctl is a CLI to connect to a TotemBUS network over an
// SLCAN gateway and exercise it: ping a module, read/write a command,
// subscribe to updates, or run a motor smoke test.
package main

import (
	"fmt"
	"net"
	"os"
	"strconv"
	"time"

	"github.com/GoAethereal/cancel"
	"github.com/urfave/cli"

	"github.com/totemmaker/totembus-go/module"
	"github.com/totemmaker/totembus-go/motor"
	"github.com/totemmaker/totembus-go/network"
)

func dial(addr string) (*network.Network, error) {
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}
	var n *network.Network
	tr := network.NewSLCANTransport(conn, func(id uint32, data []byte) {
		n.HandleFrame(id, data)
	})
	n = network.New(tr, network.Config{})
	return n, nil
}

func ctrlFromContext(c *cli.Context) (*network.Network, *module.Ctrl, error) {
	addr := c.GlobalString("addr")
	if addr == "" {
		return nil, nil, fmt.Errorf("missing --addr host:port")
	}
	number := uint16(c.GlobalInt("module"))
	serial := uint16(c.GlobalInt("serial"))

	n, err := dial(addr)
	if err != nil {
		return nil, nil, err
	}
	ctrl := module.NewCtrl(number, serial)
	ctrl.Attach(n)
	return n, ctrl, nil
}

func withTimeout(d time.Duration) (cancel.Context, func()) {
	ctx := cancel.New()
	timer := time.AfterFunc(d, ctx.Cancel)
	return ctx, func() { timer.Stop(); ctx.Cancel() }
}

func pingCommand(c *cli.Context) error {
	addr := c.GlobalString("addr")
	if addr == "" {
		return fmt.Errorf("missing --addr host:port")
	}
	number := uint16(c.GlobalInt("module"))
	serial := uint16(c.GlobalInt("serial"))

	n, err := dial(addr)
	if err != nil {
		return err
	}
	defer n.Close()

	if n.IsConnected(number, serial, 3, time.Second) {
		fmt.Printf("module %d is connected\n", number)
		return nil
	}
	return fmt.Errorf("module %d did not respond", number)
}

func readCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: totembusctl read <command>")
	}
	n, ctrl, err := ctrlFromContext(c)
	if err != nil {
		return err
	}
	defer n.Close()
	defer ctrl.Detach()

	ctx, cancelFn := withTimeout(2 * time.Second)
	defer cancelFn()
	value, err := ctrl.ReadCommand(ctx, c.Args().Get(0))
	if err != nil {
		return err
	}
	fmt.Println(value)
	return nil
}

func writeCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: totembusctl write <command> [value]")
	}
	n, ctrl, err := ctrlFromContext(c)
	if err != nil {
		return err
	}
	defer n.Close()
	defer ctrl.Detach()

	ctx, cancelFn := withTimeout(2 * time.Second)
	defer cancelFn()
	name := c.Args().Get(0)
	if c.NArg() < 2 {
		return ctrl.WriteCommand(ctx, name, true)
	}
	value, err := strconv.ParseInt(c.Args().Get(1), 10, 32)
	if err != nil {
		return fmt.Errorf("value %q is not an integer: %w", c.Args().Get(1), err)
	}
	return ctrl.WriteValue(ctx, name, int32(value), true)
}

func subscribeCommand(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("usage: totembusctl subscribe <command> [intervalMS]")
	}
	n, ctrl, err := ctrlFromContext(c)
	if err != nil {
		return err
	}
	defer n.Close()
	defer ctrl.Detach()

	interval := int32(200)
	if c.NArg() >= 2 {
		v, err := strconv.ParseInt(c.Args().Get(1), 10, 32)
		if err != nil {
			return fmt.Errorf("interval %q is not an integer: %w", c.Args().Get(1), err)
		}
		interval = int32(v)
	}

	ctrl.OnMessage(func(command uint32, value int32, str string) {
		fmt.Printf("command=%#x value=%d string=%q\n", command, value, str)
	})

	ctx, cancelFn := withTimeout(2 * time.Second)
	defer cancelFn()
	if err := ctrl.Subscribe(ctx, c.Args().Get(0), interval, true); err != nil {
		return err
	}

	fmt.Println("subscribed, press ctrl-c to stop")
	select {}
}

func motorTestCommand(c *cli.Context) error {
	n, ctrl, err := ctrlFromContext(c)
	if err != nil {
		return err
	}
	defer n.Close()
	defer ctrl.Detach()

	d := motor.NewDriver(ctrl, true)
	d.AddFrontLeft("motorA", 20, 100, false)
	d.AddFrontRight("motorB", 20, 100, true)
	d.AddRearLeft("motorC", 20, 100, false)
	d.AddRearRight("motorD", 20, 100, true)

	fmt.Println("driving forward")
	if err := d.Move(50, 0); err != nil {
		return err
	}
	time.Sleep(time.Second)
	fmt.Println("braking")
	return d.BrakeAll(100)
}

func main() {
	app := cli.NewApp()
	app.Name = "totembusctl"
	app.Usage = "exercise a TotemBUS network over an SLCAN gateway"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "addr", Usage: "SLCAN gateway address, host:port"},
		cli.IntFlag{Name: "module", Value: 1, Usage: "target module number"},
		cli.IntFlag{Name: "serial", Value: 0, Usage: "target module serial (0 = any)"},
	}
	app.Commands = []cli.Command{
		{
			Name:   "ping",
			Usage:  "Check whether a module is connected",
			Action: pingCommand,
		},
		{
			Name:   "read",
			Usage:  "Read a command's current value",
			Action: readCommand,
		},
		{
			Name:   "write",
			Usage:  "Invoke a command, optionally carrying an integer value",
			Action: writeCommand,
		},
		{
			Name:   "subscribe",
			Usage:  "Subscribe to a command's updates and print them",
			Action: subscribeCommand,
		},
		{
			Name:   "motor-test",
			Usage:  "Drive a four-wheel motor module forward briefly, then brake",
			Action: motorTestCommand,
		},
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "totembusctl:", err)
		os.Exit(1)
	}
}
