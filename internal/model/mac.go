package model

import (
	"encoding/hex"
	"net"
	"strings"

	"github.com/rotisserie/eris"
)

// NormalizeMAC canonicalises a 48-bit hardware address to upper-case,
// colon-separated form (AA:BB:CC:DD:EE:FF). Colon, dash, Cisco dotted and
// bare 12-digit hex input are accepted.
func NormalizeMAC(raw string) (string, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return "", eris.New("model: empty mac")
	}

	var hw net.HardwareAddr
	if len(s) == 12 {
		b, err := hex.DecodeString(s)
		if err != nil {
			return "", eris.Wrapf(err, "model: parse mac %q", raw)
		}
		hw = b
	} else {
		parsed, err := net.ParseMAC(s)
		if err != nil {
			return "", eris.Wrapf(err, "model: parse mac %q", raw)
		}
		hw = parsed
	}

	if len(hw) != 6 {
		return "", eris.Errorf("model: mac %q is not a 48-bit address", raw)
	}
	return strings.ToUpper(hw.String()), nil
}
