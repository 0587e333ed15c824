package safe

import (
	"fmt"
	"reflect"
	"runtime/debug"

	"SMProject/logger"
	"SMProject/tools/errs"

	"go.uber.org/zap"
)

// MustNotNil panics if v is a nil pointer, map, chan, func or interface.
func MustNotNil(v any, name string) {
	if v == nil {
		panic(fmt.Sprintf("%s must not be nil", name))
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr, reflect.Map, reflect.Chan, reflect.Func, reflect.Interface, reflect.Slice:
		if rv.IsNil() {
			panic(fmt.Sprintf("%s must not be nil", name))
		}
	}
}

func DefaultString(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func DefaultInt(i, fallback int) int {
	if i <= 0 {
		return fallback
	}
	return i
}

// Go runs f in a goroutine; a panic is logged instead of crashing the process.
func Go(name string, f func()) {
	go func() {
		defer Recover(name)
		f()
	}()
}

// Recover is deferred at the top of long lived goroutines.
func Recover(name string) {
	if r := recover(); r != nil {
		err := errs.ErrPanic(r)
		logger.Error("panic recovered",
			zap.String("goroutine", name),
			zap.Error(err),
			zap.ByteString("stack", debug.Stack()))
	}
}
