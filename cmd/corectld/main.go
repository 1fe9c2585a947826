// Command corectld is the controller process entry point: it owns
// everything spec.md places in scope for this core (config, logging, the
// southbound TCP accept loop, the status REST surface) and wires it
// together around the three external collaborators spec.md §1 places out
// of scope — the OpenFlow 1.0 wire codec, the NetKAT-style policy compiler
// and evaluator, and the packet header codec. A real deployment links a
// concrete implementation of each into the Compiler/Evaluator/Codec/Wire
// package variables below before calling main; this binary fails fast with
// a clear message if any of them is left unset, rather than silently
// running with no switches able to connect.
//
// Grounded on cmd/cherry/main.go's flag/config/signal-handling shape, with
// viper+fsnotify's hot-reload ported onto goconf+fsnotify (see
// package config).
package main

import (
	"flag"
	"fmt"
	"net"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ofcored/controller/config"
	"github.com/ofcored/controller/controller"
	"github.com/ofcored/controller/log"
	"github.com/ofcored/controller/of"
	"github.com/ofcored/controller/policy"
	"github.com/ofcored/controller/topology"
)

const programName = "corectld"

var logger = log.Get("main")

var (
	defaultConfigFile = flag.String("config", fmt.Sprintf("/usr/local/etc/%v.conf", programName), "absolute path of the configuration file")
	showVersion       = flag.Bool("version", false, "show program version and exit")
)

// Wire, Compiler, Evaluator, and Codec are the out-of-scope external
// collaborators (spec.md §1): a deployment that links this package into a
// larger binary sets these before main.main runs (e.g. from an init in the
// binary's own main package, or by building this package as a library
// entry point rather than as-is). Left nil, the process still loads its
// config and log settings but exits before starting the status REST
// surface or opening the southbound listener.
var (
	Wire        of.WireCodec
	Compiler    policy.Compiler
	Evaluator   policy.Evaluator
	Codec       of.HeaderCodec
	Topology    topology.View = topology.NewGraph()
	Application controller.App
)

func main() {
	runtime.GOMAXPROCS(runtime.NumCPU())
	flag.Parse()
	if *showVersion {
		fmt.Println(programName)
		os.Exit(0)
	}

	cfg, err := config.Load(*defaultConfigFile)
	if err != nil {
		logger.Fatalf("failed to read config file %v: %v", *defaultConfigFile, err)
	}
	log.SetLevel(log.ParseLevel(cfg.LogLevel))

	watcher, err := config.WatchLogLevel(*defaultConfigFile)
	if err != nil {
		logger.Warningf("config hot-reload disabled: %v", err)
	} else {
		defer watcher.Close()
	}

	if Wire == nil || Compiler == nil || Evaluator == nil || Codec == nil || Application == nil {
		logger.Fatalf("no wire codec, policy compiler/evaluator, header codec, or app linked in; " +
			"corectld is a process-wiring entry point, not a standalone controller")
	}

	ctl := controller.New(Topology, Compiler, Evaluator, Codec, cfg.UpdateMode, time.Duration(cfg.BarrierTimeout)*time.Second)

	go func() {
		addr := fmt.Sprintf(":%v", cfg.Port+1)
		if err := ctl.ServeStatus(addr); err != nil {
			logger.Errorf("status REST surface stopped: %v", err)
		}
	}()

	initSignalHandler()

	listen(ctl, cfg)
}

func initSignalHandler() {
	go func() {
		c := make(chan os.Signal, 5)
		signal.Notify(c, syscall.SIGTERM, syscall.SIGINT)
		<-c
		logger.Warning("shutting down...")
		time.Sleep(time.Second)
		os.Exit(0)
	}()
}

// listen runs the southbound TCP accept loop (spec.md §6: default port
// 6633, backlog 64). Each accepted connection is handed to Wire to perform
// the OF1.0 handshake off the accept goroutine, then registered with the
// controller so its events join the dispatch loop.
func listen(ctl *controller.Controller, cfg *config.Config) {
	addr := fmt.Sprintf(":%v", cfg.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		logger.Fatalf("failed to listen on %v: %v", addr, err)
	}
	defer listener.Close()
	logger.Infof("%v listening on %v", programName, addr)

	backlog := make(chan net.Conn, cfg.Backlog)
	go func() {
		for raw := range backlog {
			go attach(ctl, raw)
		}
	}()

	ctl.StartIndependent(Application)

	for {
		conn, err := listener.Accept()
		if err != nil {
			logger.Errorf("accept failed: %v", err)
			continue
		}
		select {
		case backlog <- conn:
		default:
			logger.Warningf("accept backlog full, dropping connection from %v", conn.RemoteAddr())
			conn.Close()
		}
	}
}

func attach(ctl *controller.Controller, raw net.Conn) {
	conn, events, err := Wire.Attach(raw)
	if err != nil {
		logger.Errorf("OpenFlow handshake with %v failed: %v", raw.RemoteAddr(), err)
		raw.Close()
		return
	}
	logger.Infof("switch %v connected from %v", conn.SwitchId(), raw.RemoteAddr())
	ctl.AddConnection(conn, events)
}
