// Package motor ports MotorDriver.h's four-wheel mixer and up-to-three
// servo channels to a module.Ctrl: drive/turn in, per-wheel power and
// brake commands out, collapsed onto a single "motorABCD"/
// "motorABCD/brake" write when all four wheels use the reserved
// motorA/B/C/D command names.
package motor

import (
	"github.com/totemmaker/totembus-go/module"
)

// wheel identifies one of the four mixer positions.
type wheel int

const (
	frontLeft wheel = iota
	frontRight
	rearLeft
	rearRight
	wheelCount
)

// the reserved command hashes MotorDriver::setABCDChannel switches on,
// computed once instead of hardcoded as magic constants.
var (
	hashMotorA         = module.HashCmd("motorA")
	hashMotorB         = module.HashCmd("motorB")
	hashMotorC         = module.HashCmd("motorC")
	hashMotorD         = module.HashCmd("motorD")
	hashMotorABCD      = module.HashCmd("motorABCD")
	hashMotorABrake    = module.HashCmd("motorA/brake")
	hashMotorBBrake    = module.HashCmd("motorB/brake")
	hashMotorCBrake    = module.HashCmd("motorC/brake")
	hashMotorDBrake    = module.HashCmd("motorD/brake")
	hashMotorABCDBrake = module.HashCmd("motorABCD/brake")
)

type motorChannel struct {
	hashPower uint32
	hashBrake uint32
	minPower  int
	maxPower  int
	invert    bool

	power         int8
	brake         int8
	powerComputed int8
	brakeComputed int8
}

type servoChannel struct {
	hash      uint32
	minPos    int8
	centerPos int8
	maxPos    int8
	invert    bool
	posComputed int8
	configured  bool
}

// Driver mixes drive/turn and discrete brake requests into per-wheel
// power commands, and maps servo positions onto configured ranges,
// batching the four-wheel update into single "motorABCD"/
// "motorABCD/brake" writes when possible.
type Driver struct {
	ctrl *module.Ctrl

	singleCommand bool
	turnIntensity int

	motors [wheelCount]motorChannel
	servos [3]servoChannel

	abcdPower [4]*int8
	abcdBrake [4]*int8
	dummy     int8
}

// NewDriver returns a Driver sending writes through ctrl.
// singleCommandUpdate matches MotorDriver's constructor argument: true
// batches all four wheels' power (or brake) into one "motorABCD" write
// whenever every configured wheel uses the reserved motorA/B/C/D
// command, false always writes one command per wheel.
func NewDriver(ctrl *module.Ctrl, singleCommandUpdate bool) *Driver {
	d := &Driver{ctrl: ctrl, singleCommand: singleCommandUpdate, turnIntensity: 100}
	for i := range d.abcdPower {
		d.abcdPower[i] = &d.dummy
		d.abcdBrake[i] = &d.dummy
	}
	return d
}

// SetTurnIntensity sets turning sensitivity, 0 (gentle) to 100 (sharp).
func (d *Driver) SetTurnIntensity(intensity int) {
	d.turnIntensity = clamp(intensity, 0, 100)
}

// AddFrontLeft configures the front-left wheel's command and power range.
func (d *Driver) AddFrontLeft(command string, minPower, maxPower int, inverted bool) {
	d.configureWheel(frontLeft, command, minPower, maxPower, inverted)
}

// AddFrontRight configures the front-right wheel's command and power range.
func (d *Driver) AddFrontRight(command string, minPower, maxPower int, inverted bool) {
	d.configureWheel(frontRight, command, minPower, maxPower, inverted)
}

// AddRearLeft configures the rear-left wheel's command and power range.
func (d *Driver) AddRearLeft(command string, minPower, maxPower int, inverted bool) {
	d.configureWheel(rearLeft, command, minPower, maxPower, inverted)
}

// AddRearRight configures the rear-right wheel's command and power range.
func (d *Driver) AddRearRight(command string, minPower, maxPower int, inverted bool) {
	d.configureWheel(rearRight, command, minPower, maxPower, inverted)
}

func (d *Driver) configureWheel(w wheel, command string, minPower, maxPower int, inverted bool) {
	m := &d.motors[w]
	d.setABCDChannel(command, m)
	m.minPower = minPower
	m.maxPower = maxPower
	m.invert = inverted
}

// setABCDChannel wires m into the shared ABCD slot when its command
// hash matches one of the four reserved names, exactly as
// MotorDriver::setABCDChannel does, falling back to per-motor updates
// (clearing singleCommand) the first time a non-reserved command shows
// up.
func (d *Driver) setABCDChannel(command string, m *motorChannel) {
	m.hashPower = module.HashCmd(command)
	m.hashBrake = 0
	switch m.hashPower {
	case hashMotorA:
		d.abcdPower[0] = &m.powerComputed
		d.abcdBrake[0] = &m.brakeComputed
		m.hashBrake = hashMotorABrake
	case hashMotorB:
		d.abcdPower[1] = &m.powerComputed
		d.abcdBrake[1] = &m.brakeComputed
		m.hashBrake = hashMotorBBrake
	case hashMotorC:
		d.abcdPower[2] = &m.powerComputed
		d.abcdBrake[2] = &m.brakeComputed
		m.hashBrake = hashMotorCBrake
	case hashMotorD:
		d.abcdPower[3] = &m.powerComputed
		d.abcdBrake[3] = &m.brakeComputed
		m.hashBrake = hashMotorDBrake
	default:
		d.singleCommand = false
	}
}

// AddServo configures one of up to three servo channels (ch 0-2).
func (d *Driver) AddServo(ch int, command string, minPos, centerPos, maxPos int, inverted bool) {
	if ch < 0 || ch > 2 {
		return
	}
	s := &d.servos[ch]
	s.hash = module.HashCmd(command)
	s.minPos = int8(minPos)
	s.centerPos = int8(centerPos)
	s.maxPos = int8(maxPos)
	s.invert = inverted
	s.configured = true
}

// MoveServo sets servo ch (0-2) to position in [-100, 100].
func (d *Driver) MoveServo(ch int, position int) error {
	if ch < 0 || ch > 2 {
		return nil
	}
	s := &d.servos[ch]
	if !s.configured {
		return nil
	}
	return d.updateServo(s, clamp(position, -100, 100))
}

// Move sets drive (forward/back) and turn, each in [-100, 100], mixing
// them into per-wheel power exactly as MotorDriver::move does: turn is
// scaled by an intensity that rises from the configured turn intensity
// toward 100 as |drive| approaches full speed, then left/right wheels get
// drive±turn.
func (d *Driver) Move(drive, turn int) error {
	turn = clamp(turn, -100, 100)
	drive = clamp(drive, -100, 100)
	intensity := d.turnIntensity + ((100-d.turnIntensity)*abs(drive))/100
	turn = (turn * intensity) / 100
	d.motors[frontLeft].power = int8(clamp(drive+turn, -100, 100))
	d.motors[frontRight].power = int8(clamp(drive-turn, -100, 100))
	d.motors[rearLeft].power = d.motors[frontLeft].power
	d.motors[rearRight].power = d.motors[frontRight].power
	return d.updateMotors()
}

// Brake sets each wheel's independent brake level in [0, 100].
func (d *Driver) Brake(fl, fr, rl, rr int) error {
	d.motors[frontLeft].brake = int8(clamp(fl, 0, 100))
	d.motors[frontRight].brake = int8(clamp(fr, 0, 100))
	d.motors[rearLeft].brake = int8(clamp(rl, 0, 100))
	d.motors[rearRight].brake = int8(clamp(rr, 0, 100))
	return d.updateMotors()
}

// BrakeAll brakes every wheel equally.
func (d *Driver) BrakeAll(power int) error {
	return d.Brake(power, power, power, power)
}

// BrakeRear brakes only the rear wheels, leaving front brakes unchanged.
func (d *Driver) BrakeRear(power int) error {
	return d.Brake(int(d.motors[frontLeft].brake), int(d.motors[frontRight].brake), power, power)
}

// BrakeFront brakes only the front wheels, leaving rear brakes unchanged.
func (d *Driver) BrakeFront(power int) error {
	return d.Brake(power, power, int(d.motors[rearLeft].brake), int(d.motors[rearRight].brake))
}

func (d *Driver) updateMotors() error {
	var powerChanged, brakeChanged bool
	for i := range d.motors {
		m := &d.motors[i]
		if m.hashPower == 0 {
			continue
		}
		power := m.power
		brake := m.brake
		if m.power != 0 {
			negative := m.power < 0
			power = int8(abs(int(m.power)))
			switch {
			case int(brake) >= int(power):
				power = 0
			case brake != 0:
				power -= brake
				brake = 0
			}
			if power != 0 {
				power = int8(mapRange(int(power), 1, 100, m.minPower, m.maxPower))
				if negative {
					power = -power
				}
				if m.invert {
					power = -power
				}
			}
		}
		if power != m.powerComputed {
			powerChanged = true
			m.powerComputed = power
			if !d.singleCommand {
				if err := d.ctrl.WriteValueAsync(m.hashPower, int32(m.powerComputed)); err != nil {
					return err
				}
			}
		}
		if brake != m.brakeComputed {
			brakeChanged = true
			m.brakeComputed = brake
			if !d.singleCommand && m.hashBrake != 0 {
				if err := d.ctrl.WriteValueAsync(m.hashBrake, int32(m.brakeComputed)); err != nil {
					return err
				}
			}
		}
	}
	if d.singleCommand && powerChanged {
		if err := d.writeABCD(hashMotorABCD, d.abcdPower); err != nil {
			return err
		}
	}
	if d.singleCommand && brakeChanged {
		if err := d.writeABCD(hashMotorABCDBrake, d.abcdBrake); err != nil {
			return err
		}
	}
	return nil
}

// writeABCD packs four int8 channel values into the single "motorABCD"
// style command. The original sends them as four distinct arguments to
// a variadic write; the wire format carries only one value per Data
// record, so the four values are packed big-endian into one int32
// (A<<24 | B<<16 | C<<8 | D), a board emulator unpacks the same way.
func (d *Driver) writeABCD(hash uint32, vals [4]*int8) error {
	packed := int32(uint32(byte(*vals[0]))<<24 | uint32(byte(*vals[1]))<<16 | uint32(byte(*vals[2]))<<8 | uint32(byte(*vals[3])))
	return d.ctrl.WriteValueAsync(hash, packed)
}

func (d *Driver) updateServo(s *servoChannel, position int) error {
	if s.invert {
		position = -position
	}
	posComputed := s.centerPos
	switch {
	case position < 0:
		posComputed = int8(mapRange(position, -100, -1, int(s.minPos), int(s.centerPos)-1))
	case position > 0:
		posComputed = int8(mapRange(position, 1, 100, int(s.centerPos)+1, int(s.maxPos)))
	}
	if s.posComputed == posComputed {
		return nil
	}
	s.posComputed = posComputed
	return d.ctrl.WriteValueAsync(s.hash, int32(posComputed))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

// mapRange re-maps v from [inLo, inHi] onto [outLo, outHi], matching
// Arduino's map() (integer, truncating).
func mapRange(v, inLo, inHi, outLo, outHi int) int {
	return (v-inLo)*(outHi-outLo)/(inHi-inLo) + outLo
}
