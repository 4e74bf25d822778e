package module

import (
	"github.com/GoAethereal/cancel"
	"github.com/totemmaker/totembus-go"
)

// HashCmd reduces a command name to its wire hash, the same FNV-1a
// fold ModuleCtrl::hashCmd wraps TotemBUS::hash in. Exported so callers
// that send the same command at high frequency (motor, for one) can
// hash it once at setup instead of on every write, the way
// MotorDriver::setABCDChannel precomputes cmdHashPower/cmdHashBrake.
func HashCmd(command string) uint32 {
	return totembus.Hash(command)
}

// HashModel reduces a model name to its 16-bit wire hash, mirroring
// ModuleCtrl::hashModel.
func HashModel(model string) uint16 {
	return totembus.Hash16(model)
}

func hashCmd(command string) uint32 { return HashCmd(command) }

// WriteCommand invokes command with no payload. When wait is true it
// blocks for a ResponseOk/ResponseFail (or ctx's deadline/cancel) and
// returns ErrStatusFailed on ResponseFail, the same contract
// moduleWrite(..., responseReq=true, blocking=true) gives.
func (c *Ctrl) WriteCommand(ctx cancel.Context, command string, wait bool) error {
	return c.writeCommandHash(ctx, hashCmd(command), command, wait)
}

func (c *Ctrl) writeCommandHash(ctx cancel.Context, hash uint32, label string, wait bool) error {
	done := c.armIfWaiting(wait, hash)
	if err := c.send(totembus.WriteCommandFrame(hash, wait)); err != nil {
		return err
	}
	return c.finish(ctx, label, wait, done)
}

// WriteValue invokes command carrying an integer value.
func (c *Ctrl) WriteValue(ctx cancel.Context, command string, value int32, wait bool) error {
	return c.writeValueHash(ctx, hashCmd(command), command, value, wait)
}

// WriteValueHash is WriteValue for a command hash computed ahead of
// time with HashCmd, avoiding a re-hash on every call on a hot path.
func (c *Ctrl) WriteValueHash(ctx cancel.Context, hash uint32, value int32, wait bool) error {
	return c.writeValueHash(ctx, hash, "", value, wait)
}

func (c *Ctrl) writeValueHash(ctx cancel.Context, hash uint32, label string, value int32, wait bool) error {
	done := c.armIfWaiting(wait, hash)
	if err := c.send(totembus.WriteValueFrame(hash, value, wait)); err != nil {
		return err
	}
	return c.finish(ctx, label, wait, done)
}

// WriteValueAsync fires a non-blocking WriteValue with no response
// expected, the common case for a high-frequency control loop (motor
// power/brake updates, servo positions) where TotemModule::write's
// fire-and-forget overload is used in the original.
func (c *Ctrl) WriteValueAsync(hash uint32, value int32) error {
	return c.send(totembus.WriteValueFrame(hash, value, false))
}

// WriteString invokes command carrying a string value.
func (c *Ctrl) WriteString(ctx cancel.Context, command string, value string, wait bool) error {
	hash := hashCmd(command)
	done := c.armIfWaiting(wait, hash)
	if err := c.send(totembus.WriteStringFrame(hash, value, wait)); err != nil {
		return err
	}
	return c.finish(ctx, command, wait, done)
}

// ReadCommand requests the board's current value for command and
// blocks for its ResponseValue, always — a read with no answer is not
// meaningful, matching moduleRead's implicit responseReq=true.
func (c *Ctrl) ReadCommand(ctx cancel.Context, command string) (int32, error) {
	hash := hashCmd(command)
	done := c.prepareWait(hash)
	if err := c.send(totembus.ReadCommandFrame(hash)); err != nil {
		return 0, err
	}
	if !c.waitResponse(ctx, done) {
		return 0, &ErrNoResponse{Command: command}
	}
	c.mu.Lock()
	value := c.lastValue
	matched := c.lastCommand == hash
	c.mu.Unlock()
	if !matched {
		return 0, &ErrStatusFailed{Command: command}
	}
	return value, nil
}

// Subscribe asks the board to push command's value every intervalMS
// milliseconds.
func (c *Ctrl) Subscribe(ctx cancel.Context, command string, intervalMS int32, wait bool) error {
	hash := hashCmd(command)
	done := c.armIfWaiting(wait, hash)
	if err := c.send(totembus.SubscribeFrame(hash, intervalMS, wait)); err != nil {
		return err
	}
	return c.finish(ctx, command, wait, done)
}

// RequestValue is ReadCommand sent as a byte-tagged RequestValue frame
// instead of an untagged lookup, matching TotemBLEModule::cmdRequestValue.
// It blocks for command's ResponseValue the same way ReadCommand does.
func (c *Ctrl) RequestValue(ctx cancel.Context, command string) (int32, error) {
	hash := hashCmd(command)
	done := c.prepareWait(hash)
	if err := c.send(totembus.RequestValueFrame(hash)); err != nil {
		return 0, err
	}
	if !c.waitResponse(ctx, done) {
		return 0, &ErrNoResponse{Command: command}
	}
	c.mu.Lock()
	value := c.lastValue
	matched := c.lastCommand == hash
	c.mu.Unlock()
	if !matched {
		return 0, &ErrStatusFailed{Command: command}
	}
	return value, nil
}

// RequestString is RequestValue for a string-valued command, matching
// TotemBLEModule::cmdRequestString.
func (c *Ctrl) RequestString(ctx cancel.Context, command string) (string, error) {
	hash := hashCmd(command)
	done := c.prepareWait(hash)
	if err := c.send(totembus.RequestStringFrame(hash)); err != nil {
		return "", err
	}
	if !c.waitResponse(ctx, done) {
		return "", &ErrNoResponse{Command: command}
	}
	c.mu.Lock()
	value := c.lastString
	matched := c.lastCommand == hash
	c.mu.Unlock()
	if !matched {
		return "", &ErrStatusFailed{Command: command}
	}
	return value, nil
}

// SendValue pushes an integer value to command as a byte-tagged,
// fire-and-forget SendValue frame, matching TotemBLEModule::cmdSendValue
// (whose networkSend call never waits for a reply).
func (c *Ctrl) SendValue(command string, value int32) error {
	return c.send(totembus.SendValueFrame(hashCmd(command), value))
}

// SendString is SendValue for a string payload, matching
// TotemBLEModule::cmdSendString.
func (c *Ctrl) SendString(command string, value string) error {
	return c.send(totembus.SendStringFrame(hashCmd(command), value))
}

func (c *Ctrl) armIfWaiting(wait bool, hash uint32) chan struct{} {
	if !wait {
		return nil
	}
	return c.prepareWait(hash)
}

func (c *Ctrl) finish(ctx cancel.Context, command string, wait bool, done chan struct{}) error {
	if !wait {
		return nil
	}
	if !c.waitResponse(ctx, done) {
		return &ErrNoResponse{Command: command}
	}
	c.mu.Lock()
	succ := c.succ
	c.mu.Unlock()
	if !succ {
		return &ErrStatusFailed{Command: command}
	}
	return nil
}

func (c *Ctrl) send(f totembus.BusFrame) error {
	return c.net.Send(c.Number, c.Serial, f)
}
