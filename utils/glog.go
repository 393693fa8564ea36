package utils

import (
	"flag"
	"strconv"
)

// SetLogLevel changes glog's -v at runtime and returns a func restoring the old level.
func SetLogLevel(v int) func() {
	gFlag := lookupFlag("v")
	old := getLogLevel(gFlag)
	setFlag(gFlag, strconv.Itoa(v))
	return func() {
		setFlag(gFlag, strconv.Itoa(old))
	}
}

func WithLogLevel(v int, f func()) {
	defer SetLogLevel(v)()
	f()
}

func GetLogLevel() int {
	return getLogLevel(lookupFlag("v"))
}

// LogToStderr routes glog output to stderr, used by tests and the client binary.
func LogToStderr() {
	setFlag(lookupFlag("logtostderr"), "true")
}

func lookupFlag(name string) *flag.Flag {
	gFlag := flag.Lookup(name)
	if gFlag == nil {
		panic("flag '" + name + "' is nil, glog not linked?")
	}
	return gFlag
}

func setFlag(gFlag *flag.Flag, v string) {
	if err := gFlag.Value.Set(v); err != nil {
		panic(err)
	}
}

func getLogLevel(gFlag *flag.Flag) int {
	i, err := strconv.Atoi(gFlag.Value.String())
	if err != nil {
		panic(err)
	}
	return i
}
