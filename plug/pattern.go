package plug

import (
	"fmt"
	"io"

	"github.com/juju/errors"
	"github.com/temoto/fplug/log2"
)

type OutcomeKind uint8

const (
	OutcomeProtocolError OutcomeKind = iota
	OutcomeSuccess
	OutcomeFailure
)

func (self OutcomeKind) String() string {
	switch self {
	case OutcomeProtocolError:
		return "protocol-error"
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	}
	return fmt.Sprintf("outcome(%d)", uint8(self))
}

// Outcome of one response. Power is valid only for OutcomeSuccess.
type Outcome struct {
	Kind     OutcomeKind
	Power    Power
	Response []byte
}

// Pattern matches buf of same length where buf[i]&Mask[i] == Data[i]&Mask[i].
type Pattern struct {
	Name string
	Data []byte
	Mask []byte
	Kind OutcomeKind
}

func (self *Pattern) Len() int { return len(self.Data) }

func (self *Pattern) Match(buf []byte) bool {
	if len(buf) != len(self.Data) {
		return false
	}
	for i, b := range buf {
		if b&self.Mask[i] != self.Data[i]&self.Mask[i] {
			return false
		}
	}
	return true
}

func responsePrefix() []byte {
	return []byte{
		EHD1, EHD2,
		0x00, 0x00, // TID
		DEOJPlug[0], DEOJPlug[1], DEOJPlug[2],
		SEOJController[0], SEOJController[1], SEOJController[2],
	}
}

func fullMask(n int, wild ...int) []byte {
	m := make([]byte, n)
	for i := range m {
		m[i] = 0xff
	}
	for _, i := range wild {
		m[i] = 0x00
	}
	return m
}

var (
	PatternGetRes = Pattern{
		Name: "Get_Res",
		Data: append(responsePrefix(), ESVGetRes, 0x01, EPCInstantPower, 0x02, 0x00, 0x00),
		Mask: fullMask(SuccessLength, offsetTID, offsetTID+1, offsetValue, offsetValue+1),
		Kind: OutcomeSuccess,
	}
	PatternGetSNA = Pattern{
		Name: "Get_SNA",
		Data: append(responsePrefix(), ESVGetSNA, 0x01, EPCInstantPower, 0x00),
		Mask: fullMask(FailureLength, offsetTID, offsetTID+1),
		Kind: OutcomeFailure,
	}
	DefaultPatterns = []*Pattern{&PatternGetRes, &PatternGetSNA}
)

// Matcher reads one response frame byte by byte.
// It never reads past the first matching pattern and never more than MaxLength.
type Matcher struct {
	Patterns  []*Pattern
	MaxLength int
	Log       *log2.Log
}

func NewMatcher(maxLength int, log *log2.Log) *Matcher {
	if maxLength <= 0 {
		maxLength = DefaultMaxResponseLength
	}
	return &Matcher{
		Patterns:  DefaultPatterns,
		MaxLength: maxLength,
		Log:       log,
	}
}

// Read returns ErrDesync on overrun. I/O errors keep their cause.
func (self *Matcher) Read(r io.Reader) (Outcome, error) {
	buf := make([]byte, 0, self.MaxLength)
	var one [1]byte
	for len(buf) < self.MaxLength {
		n, err := r.Read(one[:])
		if n == 1 {
			buf = append(buf, one[0])
			if p := self.match(buf); p != nil {
				self.Log.Debugf("matcher pattern=%s length=%d", p.Name, len(buf))
				o := Outcome{Kind: p.Kind, Response: buf}
				if p.Kind == OutcomeSuccess {
					o.Power = DecodePower(buf)
				}
				return o, nil
			}
		}
		if err != nil {
			self.Log.Dump(log2.LDebug, buf)
			return Outcome{Response: buf}, errors.Annotatef(err, "response read after %d bytes", len(buf))
		}
		if n == 0 {
			self.Log.Dump(log2.LDebug, buf)
			return Outcome{Response: buf}, errors.Annotatef(io.EOF, "response read returned 0 bytes after %d", len(buf))
		}
	}
	self.Log.Debugf("matcher overrun length=%d", len(buf))
	self.Log.Dump(log2.LDebug, buf)
	return Outcome{Response: buf}, errors.Annotatef(ErrDesync, "no pattern matched in %d bytes", len(buf))
}

func (self *Matcher) match(buf []byte) *Pattern {
	for _, p := range self.Patterns {
		if p.Len() == len(buf) && p.Match(buf) {
			return p
		}
	}
	return nil
}
