/*
Copyright 2021 Loggie Authors

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
	"flag"
	"fmt"
	"net/http"
	"os"
	"runtime"

	"github.com/pkg/errors"
	"go.uber.org/automaxprocs/maxprocs"

	"github.com/loggie-io/artifactgate/cmd/subcmd"
	"github.com/loggie-io/artifactgate/pkg/core/log"
	"github.com/loggie-io/artifactgate/pkg/core/signals"
	"github.com/loggie-io/artifactgate/pkg/core/sysconfig"
	"github.com/loggie-io/artifactgate/pkg/decompress"
	"github.com/loggie-io/artifactgate/pkg/eventbus"
	_ "github.com/loggie-io/artifactgate/pkg/include"
	"github.com/loggie-io/artifactgate/pkg/processor"
)

var (
	globalConfigFile string
	outputDir        string
)

func init() {
	flag.StringVar(&globalConfigFile, "config.system", "", "global config file, defaults are used when empty")
	flag.StringVar(&outputDir, "output", "", "directory decompressed artifacts are written to, overrides gateway.watch.outputDirectory")
}

func main() {
	if err := subcmd.SwitchSubCommand(); err != nil {
		if errors.Is(err, subcmd.ErrExit) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	flag.Parse()
	log.InitDefaultLogger()

	// Automatically set GOMAXPROCS to match Linux container CPU quota
	if _, err := maxprocs.Set(maxprocs.Logger(log.Debug)); err != nil {
		log.Fatal("set maxprocs error: %v", err)
	}
	log.Info("real GOMAXPROCS %d", runtime.GOMAXPROCS(-1))

	syscfg, err := sysconfig.Load(globalConfigFile)
	if err != nil {
		log.Fatal("unpack global config file error: %+v", err)
	}
	gw := syscfg.Gateway

	// start eventBus listeners
	eventbus.StartAndRun(gw.MonitorEventBus)
	// init log after error func
	log.AfterError = eventbus.AfterErrorFunc

	if gw.Http.Enabled {
		go func() {
			if err := http.ListenAndServe(fmt.Sprintf("%s:%d", gw.Http.Host, gw.Http.Port), nil); err != nil {
				log.Fatal("http listen and serve err: %v", err)
			}
		}()
	}

	if err := gw.Watch.OverrideOutput(outputDir); err != nil {
		log.Fatal("-output %s: %v", outputDir, err)
	}
	output := gw.Watch.OutputDirectory
	if output == "" {
		output = "."
	}

	proc, err := processor.New(decompress.NewGateway(&gw.Decompress), output, gw.Worker.Size)
	if err != nil {
		log.Fatal("init processor error: %v", err)
	}
	defer proc.Release()

	if !gw.Watch.Enabled {
		if flag.NArg() == 0 {
			log.Fatal("no artifact given and gateway.watch is disabled")
		}
		failed := runBatch(proc, flag.Args())
		eventbus.Stop()
		if failed > 0 {
			os.Exit(1)
		}
		return
	}

	// set up signals so we handle the first shutdown signal gracefully
	stopCh := signals.SetupSignalHandler()

	watcher, err := processor.NewWatcher(gw.Watch, proc)
	if err != nil {
		log.Fatal("watch %s error: %v", gw.Watch.Directory, err)
	}
	if flag.NArg() > 0 {
		runBatch(proc, flag.Args())
	}

	log.Info("started artifactgate")
	watcher.Run(stopCh)
	log.Info("shutting down artifactgate")
	eventbus.Stop()
}

func runBatch(proc *processor.Processor, paths []string) int {
	var failed int
	for _, r := range proc.ProcessAll(context.Background(), paths) {
		if r.Err != nil {
			failed++
			fmt.Fprintf(os.Stdout, "FAIL\t%s\t%v\n", r.Source, r.Err)
			continue
		}
		fmt.Fprintf(os.Stdout, "%s\t%s\t%s\t%d\t%016x\n", r.Kind, r.Source, r.Output, r.OutputSize, r.Fingerprint)
	}
	return failed
}
