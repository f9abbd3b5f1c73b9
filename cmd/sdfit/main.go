package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/term"
)

func main() {
	if err := Execute(); err != nil {
		logrus.Fatal(err)
	}
}

func Execute() error {
	return newRootCmd().Execute()
}

func setupLogging(verbose, quiet bool) {
	tty := term.IsTerminal(int(os.Stderr.Fd()))
	logrus.SetOutput(os.Stderr)
	logrus.SetFormatter(&logrus.TextFormatter{
		ForceColors:   tty,
		DisableColors: !tty,
		FullTimestamp: tty,
	})
	switch {
	case verbose:
		logrus.SetLevel(logrus.DebugLevel)
	case quiet:
		logrus.SetLevel(logrus.WarnLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}
