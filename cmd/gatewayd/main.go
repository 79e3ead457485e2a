// Copyright 2019 The Gaea Authors. All Rights Reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/hanchuanchuan/goinception-gateway/auditlog"
	"github.com/hanchuanchuan/goinception-gateway/config"
	"github.com/hanchuanchuan/goinception-gateway/gateway"
	"github.com/hanchuanchuan/goinception-gateway/logging"
	"github.com/hanchuanchuan/goinception-gateway/session"
)

// buildVersion is the banner printed by -info; the wire-protocol front-end
// this binary feeds is assumed to exist elsewhere (spec §1).
const buildVersion = "goinception-gateway dev build"

func main() {
	var configFile = flag.String("config", "", "gateway config file (default: etc/gateway.yaml)")
	var metricsAddr = flag.String("metrics-addr", ":9104", "address to serve /metrics on")
	var info = flag.Bool("info", false, "show build info and exit")
	var stdio = flag.Bool("stdio", false, "read statements from stdin instead of waiting for a wire-protocol front-end")
	flag.Parse()

	if *info {
		fmt.Println(buildVersion)
		return
	}

	logger := logging.GetLogger("main")
	logger.Infof("starting %s", buildVersion)

	mgr, err := config.NewManager(*configFile)
	if err != nil {
		logger.Fatalw("load config failed", "error", err)
		return
	}
	cfg := mgr.Config

	auditLog := auditlog.New()
	if path := cfg.AuditLogPath(); path != "" {
		auditLog.SetPath(path)
	}
	defer auditLog.Close()

	store := session.NewStore()
	gw := gateway.New(cfg, store, auditLog)

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{Addr: *metricsAddr, Handler: mux}
	go func() {
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Warnw("metrics server stopped", "error", err)
		}
	}()

	logger.Infof("gateway ready, config=%s, metrics on %s", mgr.ConfigPath, *metricsAddr)

	if *stdio {
		runStdio(gw, os.Stdin, os.Stdout)
		_ = metricsSrv.Close()
		logging.Sync()
		return
	}

	sc := make(chan os.Signal, 1)
	signal.Notify(sc,
		syscall.SIGINT,
		syscall.SIGTERM,
		syscall.SIGQUIT,
		syscall.SIGPIPE,
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for sig := range sc {
			switch sig {
			case syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT:
				logger.Infof("got signal %v, quit", sig)
				_ = metricsSrv.Close()
				return
			case syscall.SIGPIPE:
				logger.Infof("ignoring broken pipe signal")
			}
		}
	}()
	wg.Wait()
	logging.Sync()
}
