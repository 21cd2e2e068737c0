package bulkudp

import (
	"net"
	"os"
	"strings"
	"sync"
)

const fallbackHostname = "localhost"

var (
	hostname     string
	hostnameOnce sync.Once

	fqdn     string
	fqdnOnce sync.Once
)

// resolveLogSource picks the `logsource` value for a handler: the fully
// qualified domain name if asked for, else the configured local name, else
// the short hostname.
func resolveLogSource(opts *HandlerOptions) string {
	switch {
	case opts.FQDN:
		return FQDN()
	case len(opts.LocalName) > 0:
		return opts.LocalName
	default:
		return Hostname()
	}
}

// Hostname returns the host name reported by the kernel. Results are cached
// for reuse.
func Hostname() string {
	hostnameOnce.Do(func() {
		h, err := os.Hostname()
		if err != nil || len(h) == 0 {
			InternalLogger().Printf("failed to get hostname, using %q: %v", fallbackHostname, err)
			h = fallbackHostname
		}
		hostname = h
	})
	return hostname
}

// FQDN returns the fully qualified domain name of this host: the first name
// containing a dot among the reverse lookups of the host's addresses. If
// there is none, it is the same as Hostname. Results are cached for reuse.
func FQDN() string {
	fqdnOnce.Do(func() {
		fqdn = lookupFQDN(Hostname())
	})
	return fqdn
}

func lookupFQDN(host string) string {
	if strings.Contains(host, ".") {
		return host
	}

	addrs, err := net.LookupHost(host)
	if err != nil {
		return host
	}

	for _, addr := range addrs {
		names, err := net.LookupAddr(addr)
		if err != nil {
			continue
		}
		for _, name := range names {
			name = strings.TrimSuffix(name, ".")
			if strings.Contains(name, ".") {
				return name
			}
		}
	}

	return host
}
