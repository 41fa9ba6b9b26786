package u

import (
	"fmt"
)

func Must(err error) {
	if err != nil {
		panic(err)
	}
}

func fmtPanicMsg(def string, args []any) string {
	if len(args) == 0 {
		return def
	}
	s := fmt.Sprintf("%s", args[0])
	if len(args) > 1 {
		s = fmt.Sprintf(s, args[1:]...)
	}
	return s
}

// PanicIf panics if cond is true. args are an optional format string and
// its arguments.
func PanicIf(cond bool, args ...any) {
	if cond {
		panic(fmtPanicMsg("condition failed", args))
	}
}

func PanicIfErr(err error, args ...any) {
	if err != nil {
		panic(fmtPanicMsg(err.Error(), args))
	}
}
