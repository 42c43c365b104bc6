package logger

import (
	"strings"
	"time"

	"github.com/rs/zerolog"
)

type fieldKind uint8

const (
	kindString fieldKind = iota
	kindInt
	kindFloat
	kindBool
	kindError
	kindAny
)

// Field is one structured key/value pair. Build it with the constructors
// below.
type Field struct {
	Key  string
	kind fieldKind
	str  string
	num  int64
	flt  float64
	err  error
	any  interface{}
}

func (f Field) apply(e *zerolog.Event) {
	switch f.kind {
	case kindString:
		e.Str(f.Key, f.str)
	case kindInt:
		e.Int64(f.Key, f.num)
	case kindFloat:
		e.Float64(f.Key, f.flt)
	case kindBool:
		e.Bool(f.Key, f.num != 0)
	case kindError:
		e.AnErr(f.Key, f.err)
	default:
		e.Interface(f.Key, f.any)
	}
}

// value is the plain form of the field as stored by the error collector.
func (f Field) value() interface{} {
	switch f.kind {
	case kindString:
		return f.str
	case kindInt:
		return f.num
	case kindFloat:
		return f.flt
	case kindBool:
		return f.num != 0
	case kindError:
		if f.err == nil {
			return nil
		}
		return f.err.Error()
	default:
		return f.any
	}
}

func fieldMap(fields []Field) map[string]interface{} {
	m := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		m[f.Key] = f.value()
	}
	return m
}

func String(key, value string) Field { return Field{Key: key, kind: kindString, str: value} }

func Int(key string, value int) Field { return Int64(key, int64(value)) }

func Int64(key string, value int64) Field { return Field{Key: key, kind: kindInt, num: value} }

func Float64(key string, value float64) Field { return Field{Key: key, kind: kindFloat, flt: value} }

func Bool(key string, value bool) Field {
	f := Field{Key: key, kind: kindBool}
	if value {
		f.num = 1
	}
	return f
}

// Error logs err under "error".
func Error(err error) Field { return Field{Key: zerolog.ErrorFieldName, kind: kindError, err: err} }

func Any(key string, value interface{}) Field { return Field{Key: key, kind: kindAny, any: value} }

// Duration logs whole milliseconds.
func Duration(key string, value time.Duration) Field {
	return Int64(key, value.Milliseconds())
}

func Strings(key string, value []string) Field {
	return String(key, strings.Join(value, ", "))
}
