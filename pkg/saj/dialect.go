package saj

import (
	"fmt"
	"strings"
)

// Dialect selects the wire protocol spoken by the inverter's communication module.
type Dialect int

const (
	Ethernet Dialect = iota
	WiFi
)

const (
	DialectEthernetStr = "ethernet"
	DialectWiFiStr     = "wifi"
)

func (d Dialect) String() string {
	switch d {
	case Ethernet:
		return DialectEthernetStr
	case WiFi:
		return DialectWiFiStr
	default:
		return fmt.Sprintf("unknown(%d)", int(d))
	}
}

func (d Dialect) IsWiFi() bool {
	return d == WiFi
}

func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case DialectEthernetStr, "":
		return Ethernet, nil
	case DialectWiFiStr:
		return WiFi, nil
	default:
		return Ethernet, fmt.Errorf("saj: unknown dialect %q (expected %s or %s)", s, DialectEthernetStr, DialectWiFiStr)
	}
}
