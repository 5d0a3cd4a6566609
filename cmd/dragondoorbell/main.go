package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/tacusci/logging/v2"
	"github.com/takama/daemon"
	"github.com/tauraamui/dragondoorbell/pkg/config"
	"github.com/tauraamui/dragondoorbell/pkg/configdef"
	"github.com/tauraamui/dragondoorbell/pkg/doorbell"
	"github.com/tauraamui/dragondoorbell/pkg/log"
)

const (
	name        = "dragon_doorbell"
	description = "Dragon doorbell service which captures a still from a camera on each ring"
)

type Service struct {
	daemon.Daemon
}

// Setup writes a default config file if there is not one already
func (service *Service) Setup() (string, error) {
	log.Info("Setting up dragondoorbell service...")

	path, err := config.DefaultCreator().Create()
	if err != nil {
		if !errors.Is(err, configdef.ErrConfigAlreadyExists) {
			return "", err
		}
		log.Error("%s: %s", err.Error(), path)
		return "Setup skipped...", nil
	}

	return fmt.Sprintf("Setup successful, config written to %s...", path), nil
}

func (service *Service) RemoveSetup() (string, error) {
	log.Info("Removing setup for dragondoorbell service...")
	path, err := config.DefaultDestroyer().Destroy()
	if err != nil {
		log.Error("unable to delete config file: %s", err.Error())
	}

	return fmt.Sprintf("Removing setup of %s successful...", path), nil
}

func (service *Service) Manage() (string, error) {
	usage := "Usage: dragondoorbell setup | remove-setup | install | remove | start | stop | status"

	if len(os.Args) > 1 {
		command := os.Args[1]
		switch command {
		case "setup":
			return service.Setup()
		case "remove-setup":
			return service.RemoveSetup()
		case "install":
			return service.Install()
		case "remove":
			return service.Remove()
		case "start":
			return service.Start()
		case "stop":
			return service.Stop()
		case "status":
			return service.Status()
		default:
			return usage, nil
		}
	}

	values, err := config.DefaultResolver().Resolve()
	if err != nil {
		return "", err
	}
	if values.Debug {
		log.SetLevel("debug")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case killSignal := <-interrupt:
			fmt.Print("\r")
			log.Error("Received signal: %s", killSignal)
			cancel()
		case <-ctx.Done():
		}
	}()

	log.Info("Starting dragon doorbell...")
	app := doorbell.New(values, doorbell.Options{
		Interrupt: func() {
			log.Error("Received Ctrl-C from terminal")
			cancel()
		},
	})
	if err := app.OnCreate(ctx); err != nil {
		app.OnDestroy()
		return "", err
	}

	app.Run(ctx)

	log.Info("Shutting down doorbell...")
	app.OnDestroy()

	return "Shutdown successful... BYE! 👋", nil
}

func init() {
	// highgui windows must be driven from the main thread
	runtime.LockOSThread()
	log.SetLevel(os.Getenv("DRAGON_LOGGING_LEVEL"))
}

func main() {
	daemonType := daemon.SystemDaemon
	if runtime.GOOS == "darwin" {
		daemonType = daemon.UserAgent
	}

	srv, err := daemon.New(name, description, daemonType)
	if err != nil {
		logging.Error(err.Error()) //nolint
		os.Exit(1)
	}

	service := &Service{srv}
	status, err := service.Manage()
	if err != nil {
		logging.Error(err.Error()) //nolint
		os.Exit(1)
	}

	logging.Info(status) //nolint
}
