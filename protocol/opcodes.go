// Package protocol implements the shellserver command protocol: the opcode
// catalog, request encoding and response decoding on top of a transport.
//
// A request is the opcode followed by ';'-joined fields. Fields are not
// escaped, so encoding refuses values that would make a request ambiguous.
//
//	1<exit><path>;<width>;<duration>   render prompt
//	2Init<name> 2Exit 2Get 2Conf 2Set<opt>
//	3<ref>                             resolve path reference
//	4Get 4<path>                       fuzzy source list, record jump
//	5<opts>;<dir>                      list directory
//	6<name>                            switch theme
//	7<w>;<h>;<opts>;<tokens...>        search history
//	8<opts>                            scroll-back buffer
//	9Add<path>;<alias> 9Del<path> 9DRf<ref>
package protocol

// Opcodes and opcode prefixes understood by the daemon.
const (
	OpPrompt        = "1"
	OpInit          = "2Init"
	OpExit          = "2Exit"
	OpPathRefs      = "2Get"
	OpConfig        = "2Conf"
	OpSetOption     = "2Set"
	OpResolveRef    = "3"
	OpFuzzySource   = "4Get"
	OpRecordJump    = "4"
	OpListDir       = "5"
	OpTheme         = "6"
	OpHistory       = "7"
	OpBuffer        = "8"
	OpAddRef        = "9Add"
	OpDeleteRef     = "9Del"
	OpDeleteRefName = "9DRf"
)

const (
	fieldSep  = ";"
	recordSep = "\n"
)

// Options are the daemon toggles accepted by SetOption.
var Options = []string{
	"timeit", "no-timeit",
	"trackdir", "no-trackdir",
	"fallback", "no-fallback",
	"watchdog", "no-watchdog",
	"disable-git", "enable-git",
	"use-gitstatus", "use-git", "use-pygit2",
	"test-status", "no-test-status",
	"linear", "no-linear",
	"read-async", "no-read-async",
	"let-crash",
}

// Themes are the theme names the daemon switches between.
var Themes = []string{"terminal", "system", "blue", "prompt"}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
