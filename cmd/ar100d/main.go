package main

//go-build: CGO_ENABLED=0

import (
	"context"
	"errors"
	"flag"
	"log"

	"github.com/golang/glog"

	fx "github.com/robotalks/mcu.go/pkg/framework"
	env "github.com/robotalks/mcu.go/pkg/l1/env/mcu"
	"github.com/robotalks/mcu.go/pkg/mcu/board"
)

var restartOnHalt bool

func init() {
	env.SetupFlags()
	board.SetupFlags()
	flag.BoolVar(&restartOnHalt, "restart", restartOnHalt, "Cold start again after a shutdown")
}

func main() {
	flag.Parse()
	defer glog.Flush()

	boardConf := board.NewConfig()
	envConf := env.NewConfig()
	envConf.Info.Ref.Type = boardConf.Name
	envConf.Info.Meta.Version = boardConf.Version
	e := envConf.MustNewEnv()
	defer e.Close()

	observers := board.Observers{board.ObserverFunc(func(ev board.Event) {
		glog.Infof("%s: %s entry=%#x boots=%d %s", ev.MCU, ev.Kind, ev.Entry, ev.Boots, ev.Reason)
	})}
	if e.Observer != nil {
		observers = append(observers, e.Observer)
	}

	runner := fx.NewRunner().HandleSignals()
	runner.Go(e.Runners...)
	runner.Go(fx.NamedRun("firmware", fx.RunFunc(func(ctx context.Context) error {
		for {
			m := boardConf.NewMachine(e.Port)
			m.Observer = observers
			err := m.Run(ctx)
			var halt *board.HaltError
			if !restartOnHalt || !errors.As(err, &halt) {
				return err
			}
			glog.Warningf("%v, cold start", err)
		}
	})))
	if err := runner.Wait(); err != nil {
		log.Fatalln(err)
	}
}
