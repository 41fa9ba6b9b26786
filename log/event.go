package log

import (
	"fmt"
	"reflect"
	"strconv"
	"time"

	"github.com/toon-format/toon-go"
)

// simpleTypeToStr converts simple types to string
// returns false if v is of complex type
func simpleTypeToStr(v any) (string, bool) {
	if v == nil {
		return "", false
	}
	switch reflect.TypeOf(v).Kind() {
	case reflect.Array, reflect.Slice, reflect.Struct, reflect.Map, reflect.Chan, reflect.Interface, reflect.Pointer, reflect.Func:
		return "", false
	case reflect.String:
		return v.(string), true
	}
	return fmt.Sprint(v), true
}

// MarshalEvent formats an event as:
// ${name} ${unix ms} ${len(data)}\n
// ${data}\n
// where data is vals encoded in toon format
func MarshalEvent(name string, t time.Time, vals ...any) ([]byte, error) {
	n := len(vals)
	if n%2 != 0 {
		return nil, fmt.Errorf("odd number of vals: %d", n)
	}
	var d []byte
	if n > 0 {
		m := map[string]any{}
		for i := 0; i < n; i += 2 {
			k, ok := simpleTypeToStr(vals[i])
			if !ok {
				return nil, fmt.Errorf("key at %d is of type %T, must be a simple type", i, vals[i])
			}
			m[k] = vals[i+1]
		}
		var err error
		d, err = toon.Marshal(m)
		if err != nil {
			return nil, err
		}
	}
	res := []byte(name)
	res = append(res, ' ')
	res = strconv.AppendInt(res, t.UnixMilli(), 10)
	res = append(res, ' ')
	res = strconv.AppendInt(res, int64(len(d)), 10)
	res = append(res, '\n')
	res = append(res, d...)
	res = append(res, '\n')
	return res, nil
}

// Event logs an event with key/value pairs to events log
func Event(name string, vals ...any) {
	d, err := MarshalEvent(name, time.Now().UTC(), vals...)
	if IfErrf(err, "Event('%s'): %v", name, err) {
		return
	}
	mu.Lock()
	wd := eventsLog
	mu.Unlock()
	_ = wd.Write(d)
}

func EventWithDuration(name string, dur time.Duration, vals ...any) {
	vals = append(vals, "durmicro", dur.Microseconds())
	Event(name, vals...)
}
