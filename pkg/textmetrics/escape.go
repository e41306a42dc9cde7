package textmetrics

// escapeLen returns the length of the escape sequence at the start of s, or
// 0 if s does not start with a complete, recognized sequence.
func escapeLen(s string) int {
	if len(s) < 2 || s[0] != '\x1b' {
		return 0
	}

	switch s[1] {
	case '[': // CSI: ESC [ params intermediates final
		for j := 2; j < len(s); j++ {
			b := s[j]
			switch {
			case b >= 0x40 && b <= 0x7e:
				return j + 1
			case b >= 0x20 && b <= 0x3f:
			default:
				return 0
			}
		}
	case ']', '_', 'P', '^', 'X': // OSC, APC, DCS, PM, SOS: terminated by BEL or ST
		for j := 2; j < len(s); j++ {
			if s[j] == '\x07' {
				return j + 1
			}
			if s[j] == '\x1b' {
				if j+1 < len(s) && s[j+1] == '\\' {
					return j + 2
				}
				return 0
			}
		}
	default: // ESC intermediates final, e.g. ESC 7 or ESC ( B
		for j := 1; j < len(s); j++ {
			b := s[j]
			switch {
			case b >= 0x20 && b <= 0x2f:
			case b >= 0x30 && b <= 0x7e:
				return j + 1
			default:
				return 0
			}
		}
	}
	return 0
}

// IsReset reports whether seq is an SGR sequence that resets all
// attributes.
func IsReset(seq string) bool {
	return seq == "\x1b[m" || seq == "\x1b[0m"
}

// IsSGR reports whether seq is a Select Graphic Rendition sequence.
func IsSGR(seq string) bool {
	return len(seq) >= 3 && seq[0] == '\x1b' && seq[1] == '[' && seq[len(seq)-1] == 'm'
}
