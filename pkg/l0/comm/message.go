package comm

import (
	"fmt"
	"strings"
)

// ParamType is the wire type of a message parameter.
type ParamType int

// Parameter types, named after their format specifiers.
const (
	ParamUint32        ParamType = iota // %u
	ParamInt32                          // %i
	ParamUint16                         // %hu
	ParamInt16                          // %hi
	ParamByte                           // %c
	ParamString                         // %s
	ParamBuffer                         // %*s
	ParamProgmemBuffer                  // %.*s
)

var paramSpecs = map[string]ParamType{
	"%u":   ParamUint32,
	"%i":   ParamInt32,
	"%hu":  ParamUint16,
	"%hi":  ParamInt16,
	"%c":   ParamByte,
	"%s":   ParamString,
	"%*s":  ParamBuffer,
	"%.*s": ParamProgmemBuffer,
}

// IsBuffer reports whether the parameter is a length prefixed string.
func (t ParamType) IsBuffer() bool {
	return t >= ParamString
}

// Param is a named message parameter.
type Param struct {
	Name string
	Type ParamType
}

// Message describes one message format. Commands and responses share
// the same id space.
type Message struct {
	ID     int
	Name   string
	Format string
	Params []Param
}

// Ack is the empty message: encoding it produces no content, which is
// how acknowledgement blocks are built.
var Ack = &Message{ID: -1}

// ParseFormat parses "name param=%u other=%c" into a Message with
// ID -1.
func ParseFormat(format string) (*Message, error) {
	fields := strings.Fields(format)
	if len(fields) == 0 {
		return nil, &FormatError{Format: format, Reason: "empty"}
	}
	m := &Message{ID: -1, Name: fields[0], Format: format}
	for _, field := range fields[1:] {
		pos := strings.IndexByte(field, '=')
		if pos <= 0 {
			return nil, &FormatError{Format: format, Reason: fmt.Sprintf("bad parameter %q", field)}
		}
		typ, ok := paramSpecs[field[pos+1:]]
		if !ok {
			return nil, &FormatError{Format: format, Reason: fmt.Sprintf("unknown type %q", field[pos+1:])}
		}
		m.Params = append(m.Params, Param{Name: field[:pos], Type: typ})
	}
	return m, nil
}

// Args are parsed parameter values: uint32 for integer types and
// []byte for strings.
type Args []interface{}

// Uint returns integer argument i.
func (a Args) Uint(i int) uint32 {
	v, _ := a[i].(uint32)
	return v
}

// Int returns integer argument i as signed.
func (a Args) Int(i int) int32 {
	return int32(a.Uint(i))
}

// Bytes returns string argument i.
func (a Args) Bytes(i int) []byte {
	v, _ := a[i].([]byte)
	return v
}

func argUint32(arg interface{}) (uint32, bool) {
	switch v := arg.(type) {
	case uint32:
		return v, true
	case int32:
		return uint32(v), true
	case uint16:
		return uint32(v), true
	case int16:
		return uint32(v), true
	case uint8:
		return uint32(v), true
	case int8:
		return uint32(v), true
	case int:
		return uint32(v), true
	case uint:
		return uint32(v), true
	case int64:
		return uint32(v), true
	case uint64:
		return uint32(v), true
	case bool:
		if v {
			return 1, true
		}
		return 0, true
	}
	return 0, false
}

func argBytes(arg interface{}) ([]byte, bool) {
	switch v := arg.(type) {
	case []byte:
		return v, true
	case string:
		return []byte(v), true
	}
	return nil, false
}

// Encode appends the message id and args to dst without letting dst
// grow beyond max bytes. Strings are truncated to the room left;
// integers that do not fit fail with ErrEncode.
func (m *Message) Encode(dst []byte, max int, args ...interface{}) ([]byte, error) {
	if len(args) != len(m.Params) {
		return dst, fmt.Errorf("%s: %d arguments for %d parameters: %w", m.Name, len(args), len(m.Params), ErrEncode)
	}
	if m.ID >= 0 {
		if len(dst)+IntSize(uint32(m.ID)) > max {
			return dst, ErrEncode
		}
		dst = AppendInt(dst, uint32(m.ID))
	}
	for n, param := range m.Params {
		if param.Type.IsBuffer() {
			data, ok := argBytes(args[n])
			if !ok {
				return dst, fmt.Errorf("%s.%s: want bytes, got %T: %w", m.Name, param.Name, args[n], ErrEncode)
			}
			room := max - len(dst) - 1
			if room < 0 {
				return dst, ErrEncode
			}
			if len(data) > room {
				data = data[:room]
			}
			if len(data) > 0xff {
				data = data[:0xff]
			}
			dst = append(dst, byte(len(data)))
			dst = append(dst, data...)
			continue
		}
		v, ok := argUint32(args[n])
		if !ok {
			return dst, fmt.Errorf("%s.%s: want integer, got %T: %w", m.Name, param.Name, args[n], ErrEncode)
		}
		if len(dst)+IntSize(v) > max {
			return dst, ErrEncode
		}
		dst = AppendInt(dst, v)
	}
	return dst, nil
}

// Parse decodes the parameters of m (not the id) from buf and
// returns them with the number of bytes consumed.
func (m *Message) Parse(buf []byte) (Args, int, error) {
	args := make(Args, len(m.Params))
	pos := 0
	for n, param := range m.Params {
		if !param.Type.IsBuffer() {
			v, size, err := ParseInt(buf[pos:])
			if err != nil {
				return nil, pos, fmt.Errorf("%s.%s: %w", m.Name, param.Name, err)
			}
			pos += size
			args[n] = v
			continue
		}
		// string length is a single raw byte
		if pos >= len(buf) || int(buf[pos]) > len(buf)-pos-1 {
			return nil, pos, fmt.Errorf("%s.%s: %w", m.Name, param.Name, ErrShortData)
		}
		size := int(buf[pos])
		pos++
		args[n] = append([]byte(nil), buf[pos:pos+size]...)
		pos += size
	}
	return args, pos, nil
}

// Values converts parsed args into typed values keyed by parameter
// name, as a host would present them.
func (m *Message) Values(args Args) map[string]interface{} {
	values := make(map[string]interface{}, len(m.Params))
	for n, param := range m.Params {
		switch param.Type {
		case ParamInt32:
			values[param.Name] = args.Int(n)
		case ParamUint16:
			values[param.Name] = uint16(args.Uint(n))
		case ParamInt16:
			values[param.Name] = int16(args.Uint(n))
		case ParamByte:
			values[param.Name] = uint8(args.Uint(n))
		case ParamUint32:
			values[param.Name] = args.Uint(n)
		default:
			values[param.Name] = args.Bytes(n)
		}
	}
	return values
}
