package main

import (
	"fmt"
	"net"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/BurntSushi/toml"

	"github.com/vidrail/rtvt/transport"
)

// tomlConfig describes the daemon's TOML configuration as nested blocks,
// one per configuration concern.
type tomlConfig struct {
	Mode      string
	Listen    string
	Peer      string
	Logging   logConf
	Limits    limitsConf
	Timeouts  timeoutsConf
	Profiling bool
}

// logConf describes the Logging-configuration block.
type logConf struct {
	Level        string
	ReportCaller bool `toml:"report-caller"`
	Format       string
}

// limitsConf describes the Limits-configuration block. Zero values fall
// back to transport.DefaultConfig()'s corresponding field.
type limitsConf struct {
	MTU              int
	MaxFramePayload  int `toml:"max-frame-payload"`
	SocketBufferSize int `toml:"socket-buffer-size"`
	URLMaxLength     int `toml:"url-max-length"`
}

// timeoutsConf describes the Timeouts-configuration block. Durations are
// given in milliseconds, since BurntSushi/toml has no native
// time.Duration support.
type timeoutsConf struct {
	IFragRetransMS  int `toml:"ifrag-retrans-ms"`
	IFragMaxRetrans int `toml:"ifrag-max-retrans"`

	DataRetransMS  int `toml:"data-retrans-ms"`
	DataMaxRetrans int `toml:"data-max-retrans"`

	ConnectMS         int `toml:"connect-ms"`
	ConnectMaxRetrans int `toml:"connect-max-retrans"`

	HeartbeatIntervalMS int `toml:"heartbeat-interval-ms"`
	HeartbeatMaxMiss    int `toml:"heartbeat-max-miss"`

	ReassemblyMS int `toml:"reassembly-ms"`
}

// daemonConfig is the parsed, validated result of loading a TOML file.
type daemonConfig struct {
	role      transport.Role
	localAddr *net.UDPAddr
	peerAddr  *net.UDPAddr // nil for TX, which learns its peer from CONNECT
	cfg       transport.Config
	profiling bool
}

// applyLogging configures logrus from the Logging block, mirroring
// cmd/dtnd/configuration.go's handling of the same fields.
func applyLogging(lc logConf) {
	if lc.Level != "" {
		if lvl, err := log.ParseLevel(lc.Level); err != nil {
			log.WithFields(log.Fields{
				"level":    lc.Level,
				"error":    err,
				"provided": "panic,fatal,error,warn,info,debug,trace",
			}).Warn("failed to set log level, leaving it unchanged")
		} else {
			log.SetLevel(lvl)
		}
	}

	log.SetReportCaller(lc.ReportCaller)

	switch lc.Format {
	case "", "text":
		log.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "15:04:05.000",
		})
	case "json":
		log.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	default:
		log.WithField("format", lc.Format).Warn("unknown logging format")
	}
}

// limitsToConfig overlays a limitsConf's non-zero fields onto base.
func limitsToConfig(base transport.Config, lc limitsConf) transport.Config {
	if lc.MTU != 0 {
		base.MTU = lc.MTU
	}
	if lc.MaxFramePayload != 0 {
		base.MaxFramePayload = lc.MaxFramePayload
	}
	if lc.SocketBufferSize != 0 {
		base.SocketBufferSize = lc.SocketBufferSize
	}
	if lc.URLMaxLength != 0 {
		base.URLMaxLength = lc.URLMaxLength
	}
	return base
}

// timeoutsToConfig overlays a timeoutsConf's non-zero fields onto base.
func timeoutsToConfig(base transport.Config, tc timeoutsConf) transport.Config {
	ms := func(v int) time.Duration { return time.Duration(v) * time.Millisecond }

	if tc.IFragRetransMS != 0 {
		base.IFragRetransTimeout = ms(tc.IFragRetransMS)
	}
	if tc.IFragMaxRetrans != 0 {
		base.IFragMaxRetrans = tc.IFragMaxRetrans
	}
	if tc.DataRetransMS != 0 {
		base.DataRetransTimeout = ms(tc.DataRetransMS)
	}
	if tc.DataMaxRetrans != 0 {
		base.DataMaxRetrans = tc.DataMaxRetrans
	}
	if tc.ConnectMS != 0 {
		base.ConnectTimeout = ms(tc.ConnectMS)
	}
	if tc.ConnectMaxRetrans != 0 {
		base.ConnectMaxRetrans = tc.ConnectMaxRetrans
	}
	if tc.HeartbeatIntervalMS != 0 {
		base.HeartbeatInterval = ms(tc.HeartbeatIntervalMS)
	}
	if tc.HeartbeatMaxMiss != 0 {
		base.HeartbeatMaxMiss = tc.HeartbeatMaxMiss
	}
	if tc.ReassemblyMS != 0 {
		base.ReassemblyTimeout = ms(tc.ReassemblyMS)
	}
	return base
}

// parseConfig loads and validates a TOML configuration file into a
// daemonConfig, applying logging as a side effect.
func parseConfig(filename string) (dc daemonConfig, err error) {
	var tc tomlConfig
	if _, err = toml.DecodeFile(filename, &tc); err != nil {
		return
	}

	applyLogging(tc.Logging)

	switch tc.Mode {
	case "tx":
		dc.role = transport.RoleTX
	case "rx":
		dc.role = transport.RoleRX
	default:
		err = fmt.Errorf("mode must be \"tx\" or \"rx\", got %q", tc.Mode)
		return
	}

	if tc.Listen == "" {
		err = fmt.Errorf("listen address is empty")
		return
	}
	if dc.localAddr, err = net.ResolveUDPAddr("udp", tc.Listen); err != nil {
		err = fmt.Errorf("resolving listen address: %w", err)
		return
	}

	if dc.role == transport.RoleRX {
		if tc.Peer == "" {
			err = fmt.Errorf("rx mode requires a peer address")
			return
		}
		if dc.peerAddr, err = net.ResolveUDPAddr("udp", tc.Peer); err != nil {
			err = fmt.Errorf("resolving peer address: %w", err)
			return
		}
	}

	cfg := transport.DefaultConfig()
	cfg = limitsToConfig(cfg, tc.Limits)
	cfg = timeoutsToConfig(cfg, tc.Timeouts)
	if err = cfg.Validate(); err != nil {
		return
	}
	dc.cfg = cfg
	dc.profiling = tc.Profiling

	return
}
