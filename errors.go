package totembus

import "errors"

// ErrInvalidAddress is returned by Bus.Send when number exceeds the
// 8-bit module-number field or serial exceeds the 15-bit serial field.
var ErrInvalidAddress = errors.New("totembus: module number or serial out of range")
