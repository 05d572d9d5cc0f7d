package qr

import (
	"errors"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// ErrEncoding is returned when the underlying QR encoder rejects a message,
// e.g. because it is empty or too long for the symbology.
var ErrEncoding = errors.New("qr encoding failed")

// RecoveryLevel selects the QR error-correction level.
type RecoveryLevel int

const (
	Low RecoveryLevel = iota
	Medium
	High
	Highest
)

// ParseRecoveryLevel maps the single-letter level names (L/M/Q/H) used in
// config files and flags to a RecoveryLevel. Unknown names default to Medium.
func ParseRecoveryLevel(s string) RecoveryLevel {
	switch s {
	case "L", "l", "low":
		return Low
	case "Q", "q", "quartile", "high":
		return High
	case "H", "h", "highest":
		return Highest
	default:
		return Medium
	}
}

func (l RecoveryLevel) toLib() qrcode.RecoveryLevel {
	switch l {
	case Low:
		return qrcode.Low
	case High:
		return qrcode.High
	case Highest:
		return qrcode.Highest
	default:
		return qrcode.Medium
	}
}

// Encoder turns a message into a binary matrix.
type Encoder interface {
	Encode(message string) (Matrix, error)
}

// QREncoder encodes messages as QR symbols without a quiet-zone border,
// so the matrix maps one-to-one onto relief cells.
type QREncoder struct {
	Level RecoveryLevel
}

// NewEncoder returns a QREncoder at the given recovery level.
func NewEncoder(level RecoveryLevel) *QREncoder {
	return &QREncoder{Level: level}
}

// Encode produces the bit matrix for message. The quiet zone is stripped:
// the relief base plate plays that role in the physical part.
func (e *QREncoder) Encode(message string) (Matrix, error) {
	if message == "" {
		return Matrix{}, fmt.Errorf("empty message: %w", ErrEncoding)
	}
	code, err := qrcode.New(message, e.Level.toLib())
	if err != nil {
		return Matrix{}, fmt.Errorf("encode %q: %v: %w", message, err, ErrEncoding)
	}
	code.DisableBorder = true
	m, err := FromBools(code.Bitmap())
	if err != nil {
		return Matrix{}, fmt.Errorf("encode %q: %v: %w", message, err, ErrEncoding)
	}
	return m, nil
}
