package main

import (
	"fmt"
	"os"
	"runtime"

	"github.com/WowVeryLogin/vulkan_mirrors/src/app"
	"github.com/WowVeryLogin/vulkan_mirrors/src/config"
	"github.com/WowVeryLogin/vulkan_mirrors/src/logging"
)

func init() {
	runtime.LockOSThread()
}

func run() error {
	cfg, err := config.Load(config.Path())
	if err != nil {
		return err
	}
	logger, err := logging.New(cfg.Log.Level)
	if err != nil {
		return err
	}
	logging.SetLogger(logger)

	app, err := app.New(cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return app.Run()
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
