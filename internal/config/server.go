// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// BindListenAddr replaces the host part of a listen address when it is of the
// form ":PORT" or empty. Explicit host:port values are left untouched.
// Supports "if:<name>" to bind to the first non-loopback IPv4 of an interface.
func BindListenAddr(listenAddr, bind string) (string, error) {
	if bind == "" {
		return listenAddr, nil
	}
	if listenAddr != "" && listenAddr[0] != ':' {
		return listenAddr, nil
	}

	port := listenAddr
	if port == "" {
		port = ":0"
	}

	host := bind
	if strings.HasPrefix(bind, "if:") {
		ifName := bind[3:]
		iface, err := net.InterfaceByName(ifName)
		if err != nil {
			return "", fmt.Errorf("resolve interface %q: %w", ifName, err)
		}
		ip, err := firstIPv4(iface)
		if err != nil {
			return "", err
		}
		if ip == nil {
			return "", fmt.Errorf("no suitable IPv4 on interface %q", ifName)
		}
		host = ip.String()
	}

	return net.JoinHostPort(host, port[1:]), nil
}

// LocalIPv4 returns the first IPv4 address of an up, non-loopback interface,
// or "0.0.0.0" when none is found.
func LocalIPv4() string {
	ifaces, err := net.Interfaces()
	if err != nil {
		return "0.0.0.0"
	}
	for i := range ifaces {
		iface := ifaces[i]
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}
		ip, err := firstIPv4(&iface)
		if err != nil || ip == nil {
			continue
		}
		return ip.String()
	}
	return "0.0.0.0"
}

func firstIPv4(iface *net.Interface) (net.IP, error) {
	addrs, err := iface.Addrs()
	if err != nil {
		return nil, fmt.Errorf("list addrs for %q: %w", iface.Name, err)
	}
	for _, a := range addrs {
		var ip net.IP
		switch v := a.(type) {
		case *net.IPNet:
			ip = v.IP
		case *net.IPAddr:
			ip = v.IP
		}
		if ip == nil || ip.IsLoopback() || ip.To4() == nil {
			continue
		}
		return ip.To4(), nil
	}
	return nil, nil
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// MaxConns bounds concurrently accepted connections; 0 disables the limit.
	MaxConns int

	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration

	// MaxHeaderBytes controls the maximum number of bytes the server will read parsing the request header's keys and values
	MaxHeaderBytes int

	// ShutdownTimeout is the maximum duration to wait for graceful shutdown
	ShutdownTimeout time.Duration
}

const (
	defaultReadTimeout     = 10 * time.Second
	defaultWriteTimeout    = 30 * time.Second
	defaultIdleTimeout     = 120 * time.Second
	defaultMaxHeaderBytes  = 1 << 20 // 1 MB
	defaultShutdownTimeout = 15 * time.Second
	minShutdownTimeout     = 3 * time.Second
)

// ParseServerConfigForApp resolves server config from the effective AppConfig.
// Zero values fall back to built-in defaults.
func ParseServerConfigForApp(cfg AppConfig) ServerConfig {
	out := ServerConfig{
		ListenAddr:      cfg.API.ListenAddr,
		MaxConns:        cfg.API.MaxConns,
		ReadTimeout:     defaultReadTimeout,
		WriteTimeout:    defaultWriteTimeout,
		IdleTimeout:     defaultIdleTimeout,
		MaxHeaderBytes:  defaultMaxHeaderBytes,
		ShutdownTimeout: defaultShutdownTimeout,
	}
	if out.ListenAddr == "" {
		out.ListenAddr = defaultListenAddr
	}
	if cfg.Server.ReadTimeout > 0 {
		out.ReadTimeout = cfg.Server.ReadTimeout
	}
	if cfg.Server.WriteTimeout > 0 {
		out.WriteTimeout = cfg.Server.WriteTimeout
	}
	if cfg.Server.IdleTimeout > 0 {
		out.IdleTimeout = cfg.Server.IdleTimeout
	}
	if cfg.Server.MaxHeaderBytes > 0 {
		out.MaxHeaderBytes = cfg.Server.MaxHeaderBytes
	}
	if cfg.Server.ShutdownTimeout > 0 {
		out.ShutdownTimeout = cfg.Server.ShutdownTimeout
	}
	if out.ShutdownTimeout < minShutdownTimeout {
		out.ShutdownTimeout = minShutdownTimeout
	}
	return out
}

// ListenPort returns the port component of a listen address, or "" when it
// cannot be parsed.
func ListenPort(addr string) string {
	_, port, err := net.SplitHostPort(addr)
	if err != nil {
		return ""
	}
	return port
}
