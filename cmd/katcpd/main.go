package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/nasa-jpl/katcp/config"
	"github.com/nasa-jpl/katcp/sensor"
	"github.com/nasa-jpl/katcp/server"
	"github.com/nasa-jpl/katcp/util"
)

const helpBlurb = `
Usage: katcpd [CONFIGPATH]

katcpd starts a KATCP server listening for client connections. When no
configuration path is given, katcpd.yml in the working directory is
read. When the configuration file does not exist, built-in defaults are
used.

Example config:
  listen_addr: ":7147"
  log_level: debug
  sensors:
    - name: voltage
      description: bus voltage
      units: V
      type: float
`

func main() {
	if len(os.Args) > 1 && os.Args[1] == "help" {
		fmt.Println(helpBlurb)
		return
	}

	path := "katcpd.yml"
	if len(os.Args) > 1 {
		path = os.Args[1]
	}

	cfg, err := config.Load(path)
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}

	log := logrus.StandardLogger()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(lvl)
	}

	s := server.New(server.Info{
		LibraryName:    cfg.LibraryName,
		LibraryVersion: cfg.LibraryVersion,
		DeviceVersion:  cfg.DeviceVersion,
		BuildState:     cfg.BuildState,
	}, log)
	s.SetShutdownTimeout(util.SecsToDuration(float64(cfg.ShutdownTimeoutSeconds)))

	for _, spec := range cfg.Sensors {
		zero, err := sensor.ZeroValueForWireType(spec.Type)
		if err != nil {
			log.WithError(err).WithField("sensor", spec.Name).Fatal("unsupported sensor type in configuration")
		}
		sen, err := sensor.NewSensor(spec.Name, spec.Description, spec.Units, zero)
		if err != nil {
			log.WithError(err).WithField("sensor", spec.Name).Fatal("failed to create configured sensor")
		}
		if err := s.Sensors.Add(sen); err != nil {
			log.WithError(err).WithField("sensor", spec.Name).Fatal("failed to register configured sensor")
		}
	}

	if err := s.Listen(cfg.ListenAddr); err != nil {
		log.WithError(err).Fatal("failed to bind listen address")
	}
	log.WithField("addr", s.Addr()).Info("katcpd listening")
	log.Fatal(s.Serve())
}
