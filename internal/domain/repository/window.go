package repository

// IsValidWindow returns true if w is a supported rollup window.
func IsValidWindow(w Window) bool {
	switch w {
	case WindowRaw, Window1m, Window1h, Window1d:
		return true
	default:
		return false
	}
}

// DefaultWindow returns the default rollup window.
func DefaultWindow() Window { return Window1h }

// NormalizeWindow converts a raw string to a valid window (or default).
func NormalizeWindow(s string) Window {
	if s == "" {
		return DefaultWindow()
	}
	w := Window(s)
	if IsValidWindow(w) {
		return w
	}
	return DefaultWindow()
}
