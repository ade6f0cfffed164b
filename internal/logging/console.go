package logging

import (
	"fmt"

	"github.com/rs/zerolog"
)

const (
	colorRed     = 31
	colorGreen   = 32
	colorYellow  = 33
	colorBlue    = 34
	colorMagenta = 35

	colorBold = 1
)

func colorize(s any, c int) string {
	return fmt.Sprintf("\x1b[%dm%v\x1b[0m", c, s)
}

func consoleFormatLevel() zerolog.Formatter {
	return func(i any) string {
		ll, _ := i.(string)
		switch ll {
		case "trace":
			return colorize("TRC", colorBlue)
		case "debug":
			return colorize("DBG", colorMagenta)
		case "info":
			return colorize("INF", colorGreen)
		case "warn":
			return colorize("WRN", colorYellow)
		case "error":
			return colorize("ERR", colorRed)
		case "fatal":
			return colorize(colorize("FTL", colorRed), colorBold)
		default:
			return colorize("???", colorBold)
		}
	}
}

func consoleFormatErrFieldName() zerolog.Formatter {
	return func(i any) string {
		return fmt.Sprintf("%s=", i)
	}
}

func consoleFormatErrFieldValue() zerolog.Formatter {
	return func(i any) string {
		return fmt.Sprintf("%s", i)
	}
}
