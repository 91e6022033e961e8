package main

import (
	"net"
	"strconv"
)

// reachableURLs lists the base URLs a client can use to reach a server bound
// to addr. A wildcard bind is expanded to the addresses of the local
// interfaces.
func reachableURLs(addr net.Addr, secure bool) []string {
	scheme := "http://"
	if secure {
		scheme = "https://"
	}
	tcpAddr, ok := addr.(*net.TCPAddr)
	if !ok {
		return []string{scheme + addr.String()}
	}
	port := strconv.Itoa(tcpAddr.Port)
	if tcpAddr.IP != nil && !tcpAddr.IP.IsUnspecified() {
		return []string{scheme + net.JoinHostPort(tcpAddr.IP.String(), port)}
	}
	ips, err := interfaceIPs()
	if err != nil || len(ips) == 0 {
		return []string{scheme + net.JoinHostPort("localhost", port)}
	}
	urls := make([]string, 0, len(ips))
	for _, ip := range ips {
		urls = append(urls, scheme+net.JoinHostPort(ip.String(), port))
	}
	return urls
}

// interfaceIPs returns the IPv4 addresses of the interfaces that are up.
func interfaceIPs() ([]net.IP, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, err
	}
	var ips []net.IP
	for _, ifi := range ifaces {
		if ifi.Flags&net.FlagUp == 0 {
			continue
		}
		addrs, _ := ifi.Addrs()
		for _, a := range addrs {
			var ip net.IP
			switch v := a.(type) {
			case *net.IPNet:
				ip = v.IP
			case *net.IPAddr:
				ip = v.IP
			default:
				continue
			}
			if ip4 := ip.To4(); ip4 != nil {
				ips = append(ips, ip4)
			}
		}
	}
	return ips, nil
}
