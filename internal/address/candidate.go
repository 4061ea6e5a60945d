package address

import (
	"net/netip"
	"strings"
)

// candidateAddressField is the position of the connection address in an
// ICE candidate descriptor:
//
//	candidate:<foundation> <component> <transport> <priority> <address> <port> typ <type> ...
const candidateAddressField = 4

// ParseCandidate extracts the connection address from a candidate
// descriptor. Obfuscated mDNS host names are reported as unusable.
func ParseCandidate(descriptor string) (string, bool) {
	fields := strings.Fields(descriptor)
	if len(fields) <= candidateAddressField {
		return "", false
	}
	addr, err := netip.ParseAddr(fields[candidateAddressField])
	if err != nil {
		return "", false
	}
	return addr.String(), true
}
