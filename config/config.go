/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package config reads mlagd's YAML configuration file, following
// sptp/client's ReadConfig shape: defaults set on a literal, then
// yaml.Unmarshal on top (spec.md §6 "Configuration constants").
package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"
)

// Config is mlagd's daemon configuration.
type Config struct {
	Iface              string        `yaml:"iface"`                // bound IPL interface
	LocalIP            string        `yaml:"local_ip"`              // this chassis' IPL-facing IPv4
	PeerIP             string        `yaml:"peer_ip"`               // remote chassis' IPL-facing IPv4
	VlanID             uint16        `yaml:"vlan_id"`               // ipl_vlan_id, never removed while the channel is up
	ControlPort        int           `yaml:"control_port"`          // TCP peer-channel port, master binds/slave connects
	HeartbeatPort      int           `yaml:"heartbeat_port"`        // UDP keepalive port
	KeepaliveInterval  time.Duration `yaml:"keepalive_interval"`    // 1..30s, default 1s
	ReloadDelay        time.Duration `yaml:"reload_delay"`          // 0..300s, default 30s
	RPCSocketPath      string        `yaml:"rpc_socket_path"`       // unix socket for mlagctl
	MetricsPort        int           `yaml:"metrics_port"`          // JSON counters; prometheus /metrics on metrics_port+1
	LogLevel           string        `yaml:"log_level"`
	SyncTimeout        time.Duration `yaml:"sync_timeout"`          // per-subsystem sync phase timeout
}

// Default returns the baseline config before file values are applied,
// matching sptp/client.ReadConfig's "set defaults on the literal" idiom.
func Default() Config {
	return Config{
		ControlPort:       7778,
		HeartbeatPort:     7777,
		KeepaliveInterval: time.Second,
		ReloadDelay:       30 * time.Second,
		RPCSocketPath:     "/var/run/mlagd.sock",
		MetricsPort:       9477,
		LogLevel:          "info",
		SyncTimeout:       5 * time.Second,
	}
}

// ReadConfig reads and unmarshals the config file at path over the
// defaults.
func ReadConfig(path string) (*Config, error) {
	c := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.UnmarshalStrict(data, &c); err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// Validate enforces spec.md §8's boundary behaviors: keepalive 1..30s,
// reload-delay 0..300s, VLAN id 1..4095.
func (c *Config) Validate() error {
	if c.KeepaliveInterval < time.Second || c.KeepaliveInterval > 30*time.Second {
		return fmt.Errorf("bad config: keepalive_interval must be 1..30s, got %s", c.KeepaliveInterval)
	}
	if c.ReloadDelay < 0 || c.ReloadDelay > 300*time.Second {
		return fmt.Errorf("bad config: reload_delay must be 0..300s, got %s", c.ReloadDelay)
	}
	if c.VlanID < 1 || c.VlanID > 4095 {
		return fmt.Errorf("bad config: vlan_id must be 1..4095, got %d", c.VlanID)
	}
	if c.Iface == "" {
		return fmt.Errorf("bad config: 'iface' is required")
	}
	return nil
}
