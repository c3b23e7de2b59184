package frontend

import "maps"

// ThemeSetter applies line-editor token colours.
type ThemeSetter interface {
	SetThemeColors(colors map[string]string)
}

// LightColors is the line-editor palette for light terminal backgrounds.
var LightColors = map[string]string{
	"Command":                "\x1b[93m",
	"Comment":                "\x1b[92m",
	"ContinuationPrompt":     "\x1b[94m",
	"DefaultToken":           "\x1b[97m",
	"Emphasis":               "\x1b[96m",
	"InlinePrediction":       "\x1b[90m",
	"Keyword":                "\x1b[92m",
	"ListPrediction":         "\x1b[33m",
	"ListPredictionSelected": "\x1b[34;238m",
	"Member":                 "\x1b[34m",
	"Number":                 "\x1b[34m",
	"Operator":               "DarkGray",
	"Parameter":              "DarkGray",
	"Selection":              "\x1b[34;238m",
	"String":                 "DarkCyan",
	"Type":                   "\x1b[32m",
	"Variable":               "Green",
}

// DarkColors is the line-editor palette for dark terminal backgrounds.
var DarkColors = map[string]string{
	"Command":                "\x1b[93m",
	"Comment":                "\x1b[32m",
	"ContinuationPrompt":     "\x1b[34m",
	"DefaultToken":           "\x1b[37m",
	"Emphasis":               "\x1b[96m",
	"InlinePrediction":       "\x1b[38;5;238m",
	"Keyword":                "\x1b[92m",
	"ListPrediction":         "\x1b[33m",
	"ListPredictionSelected": "\x1b[48;5;238m",
	"Member":                 "\x1b[97m",
	"Number":                 "\x1b[97m",
	"Operator":               "\x1b[90m",
	"Parameter":              "\x1b[90m",
	"Selection":              "\x1b[30;47m",
	"String":                 "\x1b[36m",
	"Type":                   "\x1b[34m",
	"Variable":               "\x1b[92m",
}

// palette returns a copy so hosts cannot alter the shared tables.
func palette(light bool) map[string]string {
	if light {
		return maps.Clone(LightColors)
	}
	return maps.Clone(DarkColors)
}
