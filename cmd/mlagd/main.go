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

package main

import (
	"context"
	"encoding/binary"
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/facebookincubator/mlagd/config"
	"github.com/facebookincubator/mlagd/mlagd"
	log "github.com/sirupsen/logrus"
)

func systemIDFromIface(iface string) (uint64, error) {
	ifi, err := net.InterfaceByName(iface)
	if err != nil {
		return 0, fmt.Errorf("resolving system id from iface %q: %w", iface, err)
	}
	mac := ifi.HardwareAddr
	if len(mac) != 6 {
		return 0, fmt.Errorf("iface %q has no 6-byte MAC to derive a system id from", iface)
	}
	var buf [8]byte
	copy(buf[2:], mac)
	return binary.BigEndian.Uint64(buf[:]), nil
}

func main() {
	var (
		cfgPath  string
		verbose  bool
		systemID uint64
	)

	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "mlagd: multi-chassis link aggregation control-plane daemon\n\nFlags:\n")
		flag.PrintDefaults()
	}
	flag.StringVar(&cfgPath, "cfg", "", "Path to YAML config (built-in defaults are used when unset)")
	flag.BoolVar(&verbose, "verbose", false, "Verbose logging")
	flag.Uint64Var(&systemID, "system-id", 0, "LACP system id for this chassis; 0 derives it from the bound iface's MAC")
	flag.Parse()

	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	var (
		cfg *config.Config
		err error
	)
	if cfgPath != "" {
		cfg, err = config.ReadConfig(cfgPath)
		if err != nil {
			log.Fatalf("reading config %s: %v", cfgPath, err)
		}
	} else {
		log.Warning("no -cfg given, using built-in defaults")
		c := config.Default()
		cfg = &c
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	log.Debugf("config: %+v", *cfg)

	if systemID == 0 {
		systemID, err = systemIDFromIface(cfg.Iface)
		if err != nil {
			log.Fatal(err)
		}
	}

	d, err := mlagd.New(cfg, systemID)
	if err != nil {
		log.Fatalf("constructing daemon: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	sigStop := make(chan os.Signal, 1)
	signal.Notify(sigStop, syscall.SIGINT, syscall.SIGQUIT, syscall.SIGTERM)
	go func() {
		sig := <-sigStop
		log.Warningf("received %s, shutting down", sig)
		cancel()
	}()

	if err := d.Run(ctx); err != nil {
		log.Fatalf("daemon exited with error: %v", err)
	}
}
