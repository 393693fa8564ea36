package main

import (
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/leisurelyrcxf/tsoracle/cmd"
	"github.com/leisurelyrcxf/tsoracle/consts"
	"github.com/leisurelyrcxf/tsoracle/metrics"
	"github.com/leisurelyrcxf/tsoracle/oracle"
	"github.com/leisurelyrcxf/tsoracle/oracle/impl"
	"github.com/leisurelyrcxf/tsoracle/oracle/impl/persistent"
	"github.com/leisurelyrcxf/tsoracle/oracle/observer"
)

func main() {
	cmd.RegisterPortFlags(consts.DefaultOracleServerPort)
	cmd.RegisterMetricsFlags()
	cmd.RegisterStoreFlags()
	cmd.RegisterOracleFlags()
	flagMemory := flag.Bool("memory", false, "serve from memory, timestamps are not persisted")
	cmd.ParseFlags()

	var factory impl.Factory
	if *flagMemory {
		glog.Warningf("serving in memory, timestamps restart from 1 after reboot")
		factory = impl.NewMemoryFactory()
	} else {
		stores := cmd.NewStoreFactory()
		defer stores.Close()

		var newObserver impl.ObserverFactory = func(namespace string) oracle.Observer {
			return observer.NewDebugLogger(namespace)
		}
		if *cmd.FlagMetricsPort > 0 {
			m := metrics.New(prometheus.DefaultRegisterer)
			newObserver = func(namespace string) oracle.Observer {
				return observer.Multi(observer.NewDebugLogger(namespace), m.Observer(namespace))
			}
		}
		factory = impl.NewPersistentFactory(stores, newObserver, persistent.WithConfig(cmd.NewPersistentConfig()))
	}

	if *cmd.FlagMetricsPort > 0 {
		metricsServer := metrics.NewServer(*cmd.FlagMetricsPort, prometheus.DefaultGatherer)
		if err := metricsServer.Start(); err != nil {
			glog.Fatalf("failed to start metrics server: %v", err)
		}
		defer metricsServer.Stop()
	}

	server := impl.NewServer(*cmd.FlagPort, impl.NewRegistry(factory))
	if err := server.Start(); err != nil {
		glog.Fatalf("failed to start: %v", err)
	}
	glog.Infof("oracle server listening on %s", server.Addr())

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)
	select {
	case sig := <-signals:
		glog.Infof("received signal %v, stopping", sig)
		server.Stop()
	case <-server.Done:
	}
	glog.Flush()
}
