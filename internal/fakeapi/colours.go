package fakeapi

import "fmt"

const (
	green   = "\033[32m"
	blue    = "\033[34m"
	cyan    = "\033[36m"
	yellow  = "\033[33m"
	magenta = "\033[35m"
	red     = "\033[31m"
	gray    = "\033[90m"
	reset   = "\033[0m"
)

var methodColours = map[string]string{
	"GET":    green,
	"POST":   blue,
	"PUT":    cyan,
	"DELETE": yellow,
	"PATCH":  magenta,
}

// routeTag renders "[ GET    ]" coloured by method.
func routeTag(method string) string {
	colour, ok := methodColours[method]
	if !ok {
		colour = gray
	}
	return fmt.Sprintf("[%s %-7s%s]", colour, method, reset)
}

func statusColour(status int) string {
	switch {
	case status >= 500:
		return red
	case status >= 400:
		return yellow
	default:
		return green
	}
}
