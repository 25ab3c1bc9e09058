package errcapture

import (
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/mcptap/mcptap/internal/event"
)

// Deny-list patterns for library/runtime code. Anything matching is
// in_app=false; everything else is caller code.
var (
	// Module cache and vendored third-party packages.
	modCacheRe = regexp.MustCompile(`[\\/]pkg[\\/]mod[\\/]`)
	vendorRe   = regexp.MustCompile(`[\\/]vendor[\\/]`)

	// Toolchain installs that keep stdlib under /lib/go<version>/.
	libGoRe = regexp.MustCompile(`/lib/go\d+(\.\d+)*/`)
)

// parseFrames converts recorded program counters into structured frames,
// in the order the runtime reports them (innermost call first), capped at
// MaxStackFrames.
func (c *Capturer) parseFrames(pcs []uintptr) []event.StackFrame {
	if len(pcs) == 0 {
		return nil
	}

	var out []event.StackFrame
	iter := runtime.CallersFrames(pcs)
	for len(out) < MaxStackFrames {
		fr, more := iter.Next()
		if fr.File != "" || fr.Function != "" {
			out = append(out, c.buildFrame(fr))
		}
		if !more {
			break
		}
	}
	return out
}

func (c *Capturer) buildFrame(fr runtime.Frame) event.StackFrame {
	absPath := fr.File
	module, function := splitFunction(fr.Function)
	inApp := isInApp(absPath)

	frame := event.StackFrame{
		Filename: filenameForModule(module, absPath),
		AbsPath:  absPath,
		Function: function,
		Module:   module,
		Lineno:   fr.Line,
		InApp:    inApp,
	}

	if inApp {
		if line := c.sources.Line(absPath, fr.Line); line != "" {
			frame.ContextLine = line
		}
	}

	return frame
}

// splitFunction separates a runtime function name like
// "github.com/x/y/pkg.(*T).Method" into package path and function name.
func splitFunction(name string) (module, function string) {
	if name == "" {
		return "", "<unknown>"
	}
	slash := strings.LastIndex(name, "/")
	dot := strings.Index(name[slash+1:], ".")
	if dot < 0 {
		return "", name
	}
	dot += slash + 1
	return name[:dot], name[dot+1:]
}

// isInApp reports whether a source path belongs to caller code rather than
// the standard library, the module cache, or vendored packages.
func isInApp(absPath string) bool {
	if absPath == "" {
		return false
	}

	if modCacheRe.MatchString(absPath) || vendorRe.MatchString(absPath) {
		return false
	}

	normalized := strings.ReplaceAll(absPath, "\\", "/")

	for _, root := range stdlibRoots() {
		if root == "" {
			continue
		}
		src := strings.ReplaceAll(filepath.Join(root, "src"), "\\", "/")
		if strings.HasPrefix(normalized, src) {
			return false
		}
	}

	return !libGoRe.MatchString(normalized)
}

func stdlibRoots() []string {
	return []string{runtime.GOROOT()}
}

// filenameForModule derives a module-relative filename from an absolute
// path: the longest trailing piece of the package path that appears as a
// directory chain in the path, plus the file name. Falls back to the base
// name for single-segment packages and to the absolute path when nothing
// matches. Never fails.
func filenameForModule(module, absPath string) string {
	if absPath == "" || module == "" {
		return absPath
	}

	normalized := strings.ReplaceAll(absPath, "\\", "/")
	base := normalized[strings.LastIndex(normalized, "/")+1:]

	parts := strings.Split(module, "/")
	if len(parts) == 1 {
		// No package hierarchy to anchor on, e.g. "main" or "runtime".
		return base
	}

	dir := normalized[:len(normalized)-len(base)]
	for i := 0; i < len(parts); i++ {
		suffix := "/" + strings.Join(parts[i:], "/") + "/"
		if idx := strings.LastIndex(dir, suffix); idx >= 0 {
			return normalized[idx+1:]
		}
	}

	return absPath
}
