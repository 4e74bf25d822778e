package labboard

import "github.com/GoAethereal/cancel"

// Key names index Keys' per-key state, matching LabBoard.h's KEY_* enum.
const (
	KeyMinus = iota
	KeyPlus
	KeyRight
	KeyMiddle
	KeyLeft
)

// LED names index LEDs' per-LED state, matching LabBoard.h's LED_* enum.
// LEDAll addresses every LED at once.
const (
	LEDAll = iota
	LEDDig1
	LEDDig2
	LED50V
	LED5V
	LED05V
	LEDDAC1
	LEDDAC2
	LEDDAC3
	LEDVin
	LEDVreg
	LEDmAmp
)

// Invalid is the value that marks a Voltage/Amp reading with no valid
// measurement. The Voltage getters return the board's reply converted
// as-is and never substitute Invalid themselves.
const Invalid = -100.0

// Board is a high-level Lab Board client over a Conn, grouping commands
// the way LabBoard.h groups them into nested member structs.
type Board struct {
	conn *Conn

	Voltage Voltage
	TXD     TXD
	RXD     RXD
	Display Display
	LED     LEDs
	Key     Keys
	Config  Config
}

// NewBoard builds a Board driving conn.
func NewBoard(conn *Conn) *Board {
	b := &Board{conn: conn}
	b.Voltage.conn = conn
	b.TXD.conn = conn
	b.RXD.conn = conn
	b.Display.conn = conn
	b.LED.conn = conn
	b.Key.conn = conn
	b.Config.conn = conn
	return b
}

// GetDIG1 reads the DIG1 pin's digital state.
func (b *Board) GetDIG1(ctx cancel.Context) (bool, error) {
	v, err := b.conn.Read(ctx, "DIG1", false)
	return v != 0, err
}

// GetDIG2 reads the DIG2 pin's digital state.
func (b *Board) GetDIG2(ctx cancel.Context) (bool, error) {
	v, err := b.conn.Read(ctx, "DIG2", false)
	return v != 0, err
}

// RunBoot restarts the board into firmware-update mode.
func (b *Board) RunBoot() error { return b.conn.Write("BOOT", 1) }

// Restart restarts the board.
func (b *Board) Restart() error { return b.conn.Write("RST", 1) }

// Voltage reads/writes the board's analog input and output pins.
type Voltage struct{ conn *Conn }

func (v *Voltage) GetVIN(ctx cancel.Context) (float64, error) {
	return v.readMilli(ctx, "IN:VIN")
}
func (v *Voltage) Get50V(ctx cancel.Context) (float64, error) {
	return v.readMilli(ctx, "IN:50V")
}
func (v *Voltage) Get5V(ctx cancel.Context) (float64, error) {
	return v.readMilli(ctx, "IN:5V")
}
func (v *Voltage) Get05V(ctx cancel.Context) (float64, error) {
	return v.readMilli(ctx, "IN:05V")
}
func (v *Voltage) GetAmp(ctx cancel.Context) (float64, error) {
	val, err := v.conn.Read(ctx, "IN:AMP", false)
	return float64(val), err
}
func (v *Voltage) SetVREG(voltage float64) error {
	return v.conn.Write("OUT:VREG", int32(voltage*1000))
}
func (v *Voltage) SetDAC1(voltage float64) error {
	return v.conn.Write("OUT:DAC1", int32(voltage*1000))
}
func (v *Voltage) SetDAC2(voltage float64) error {
	return v.conn.Write("OUT:DAC2", int32(voltage*1000))
}
func (v *Voltage) SetDAC3(voltage float64) error {
	return v.conn.Write("OUT:DAC3", int32(voltage*1000))
}
func (v *Voltage) GetVREG(ctx cancel.Context) (float64, error) {
	return v.readMilli(ctx, "OUT:VREG")
}
func (v *Voltage) GetDAC1(ctx cancel.Context) (float64, error) {
	return v.readMilli(ctx, "OUT:DAC1")
}
func (v *Voltage) GetDAC2(ctx cancel.Context) (float64, error) {
	return v.readMilli(ctx, "OUT:DAC2")
}
func (v *Voltage) GetDAC3(ctx cancel.Context) (float64, error) {
	return v.readMilli(ctx, "OUT:DAC3")
}

func (v *Voltage) readMilli(ctx cancel.Context, cmd string) (float64, error) {
	val, err := v.conn.Read(ctx, cmd, false)
	return float64(val) / 1000, err
}

// TXD drives the board's programmable pulse generator.
type TXD struct{ conn *Conn }

func (t *TXD) Stop() error      { return t.conn.Write("TXD:RUN", 0) }
func (t *TXD) Start() error     { return t.conn.Write("TXD:RUN", 1) }
func (t *TXD) StartBurst() error { return t.conn.Write("TXD:RUN", 2) }
func (t *TXD) SetBurstCount(count uint16) error {
	return t.conn.Write("TXD:CNT", count)
}
func (t *TXD) SetFrequency(hz uint32) error { return t.conn.Write("TXD:FHZ", hz) }
func (t *TXD) SetDutyCycle(percent float64) error {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	return t.conn.Write("TXD:DPCT", int32(percent*10))
}
func (t *TXD) SetPeriod(periodSeconds float64) error {
	if periodSeconds < 0 {
		periodSeconds = 0
	}
	return t.conn.Write("TXD:FUS", int32(periodSeconds*1e6))
}
func (t *TXD) SetPulseWidth(pulseSeconds float64) error {
	if pulseSeconds < 0 {
		pulseSeconds = 0
	}
	return t.conn.Write("TXD:DUS", int32(pulseSeconds*1e6))
}
func (t *TXD) IsBurst(ctx cancel.Context) (bool, error) {
	v, err := t.conn.Read(ctx, "TXD:RUN", false)
	return v == 2, err
}
func (t *TXD) IsRunning(ctx cancel.Context) (bool, error) {
	v, err := t.conn.Read(ctx, "TXD:RUN", false)
	return v != 0, err
}
func (t *TXD) GetFrequency(ctx cancel.Context) (uint32, error) {
	v, err := t.conn.Read(ctx, "TXD:FHZ", false)
	return uint32(v), err
}
func (t *TXD) GetDutyCycle(ctx cancel.Context) (float64, error) {
	v, err := t.conn.Read(ctx, "TXD:DPCT", false)
	return float64(v) / 10, err
}
func (t *TXD) GetPeriod(ctx cancel.Context) (float64, error) {
	v, err := t.conn.Read(ctx, "TXD:FUS", false)
	return float64(v) / 1e6, err
}
func (t *TXD) GetPulseWidth(ctx cancel.Context) (float64, error) {
	v, err := t.conn.Read(ctx, "TXD:DUS", false)
	return float64(v) / 1e6, err
}

// RXD monitors the board's DIG1 pin as a frequency/pulse counter.
type RXD struct{ conn *Conn }

func (r *RXD) Stop() error  { return r.conn.Write("RXD:RUN", 0) }
func (r *RXD) Start() error { return r.conn.Write("RXD:RUN", 1) }
func (r *RXD) GetFrequency(ctx cancel.Context) (uint32, error) {
	v, err := r.conn.Read(ctx, "RXD:FHZ", false)
	return uint32(v), err
}
func (r *RXD) GetPeriod(ctx cancel.Context) (float64, error) {
	hz, err := r.GetFrequency(ctx)
	if err != nil || hz == 0 {
		return 0, err
	}
	return 1.0 / float64(hz), nil
}
func (r *RXD) GetCount(ctx cancel.Context) (uint32, error) {
	v, err := r.conn.Read(ctx, "RXD:CNT", false)
	return uint32(v), err
}
func (r *RXD) ResetCount() error { return r.conn.Write("RXD:CNT", 0) }
func (r *RXD) SetSampleEdge(rising bool) error {
	if rising {
		return r.conn.Write("RXD:EDGE", 1)
	}
	return r.conn.Write("RXD:EDGE", 0)
}
func (r *RXD) GetSampleEdge(ctx cancel.Context) (bool, error) {
	v, err := r.conn.Read(ctx, "RXD:EDGE", false)
	return v != 0, err
}

// Display drives the board's seven-segment display.
type Display struct{ conn *Conn }

// Print writes value left-aligned to the display.
func (d *Display) Print(value interface{}) error {
	return d.conn.Write("DISP:TXT", value)
}

// PrintAt writes value starting offset segments from the left.
func (d *Display) PrintAt(offset uint8, value interface{}) error {
	return d.conn.Write("DISP:TXT", offset, value)
}

// Clear blanks the display.
func (d *Display) Clear() error { return d.Print("") }

// SetBlink sets the whole display's blink rate in milliseconds, 0 to stop.
func (d *Display) SetBlink(rateMS uint16) error {
	return d.conn.Write("DISP:BLI", rateMS)
}

// SetSegmentBlink sets one segment's (1-9 from the left) blink rate.
func (d *Display) SetSegmentBlink(segment uint8, rateMS uint16) error {
	if segment == 0 {
		return d.SetBlink(rateMS)
	}
	return d.SetBlinkBinary(1<<(segment-1), rateMS)
}

// SetBlinkBinary sets the blink rate for the segments named by bitmap.
func (d *Display) SetBlinkBinary(bitmap uint16, rateMS uint16) error {
	return d.conn.Write("DISP:BLI", bitmap, rateMS)
}

// SetBrightness sets display brightness, clamped to 0-15.
func (d *Display) SetBrightness(brightness uint8) error {
	if brightness > 15 {
		brightness = 15
	}
	return d.conn.Write("DISP:DIM", brightness)
}

// SetMonitor toggles mirroring Serial output onto the display.
func (d *Display) SetMonitor(enabled bool) error {
	v := uint8(0)
	if enabled {
		v = 1
	}
	return d.conn.Write("DISP:MON", v)
}

// LEDs controls the board's indicator LEDs.
type LEDs struct{ conn *Conn }

// Set turns LED num (LEDAll for every LED) on or off.
func (l *LEDs) Set(num uint8, on bool) error {
	v := 0
	if on {
		v = 1
	}
	return l.conn.Write("LED", num, v)
}
func (l *LEDs) On(num uint8) error  { return l.Set(num, true) }
func (l *LEDs) Off(num uint8) error { return l.Set(num, false) }

// Get reads whether LED num is currently on.
func (l *LEDs) Get(ctx cancel.Context, num uint8) (bool, error) {
	bitmap, err := l.GetBinary(ctx)
	return bitmap&(1<<num) != 0, err
}

// SetBinary turns on exactly the LEDs named by bitmap.
func (l *LEDs) SetBinary(bitmap uint16) error {
	return l.conn.Write("LED", fmtHex(bitmap))
}

// GetBinary reads the bitmap of currently-on LEDs.
func (l *LEDs) GetBinary(ctx cancel.Context) (uint16, error) {
	v, err := l.conn.Read(ctx, "LED", true)
	return uint16(v), err
}

// Keys reads the board's physical key states.
type Keys struct{ conn *Conn }

// Get reads whether key num (see Key* constants) is pressed.
func (k *Keys) Get(ctx cancel.Context, num uint8) (bool, error) {
	bitmap, err := k.GetBinary(ctx)
	return bitmap&(1<<num) != 0, err
}

// GetBinary reads the bitmap of currently-pressed keys.
func (k *Keys) GetBinary(ctx cancel.Context) (uint16, error) {
	v, err := k.conn.Read(ctx, "KEY", true)
	return uint16(v), err
}

// Config reads/writes arbitrary named board settings.
type Config struct{ conn *Conn }

func (c *Config) Set(name string, value int32) error {
	return c.conn.Write(name, value)
}
func (c *Config) Get(ctx cancel.Context, name string) (int32, error) {
	return c.conn.Read(ctx, "CFG:"+name, false)
}

func fmtHex(v uint16) string {
	const hexDigits = "0123456789ABCDEF"
	if v == 0 {
		return "0"
	}
	var buf [4]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = hexDigits[v&0xF]
		v >>= 4
	}
	return string(buf[i:])
}
