package service

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/quka-ai/synthesis/app/core"
	"github.com/quka-ai/synthesis/app/logic/v1/process"
)

type Options struct {
	ConfigPath string
}

func (o *Options) AddFlags(flagSet *pflag.FlagSet) {
	flagSet.StringVarP(&o.ConfigPath, "config", "c", "", "init service by given config, fallback to env when empty")
}

func loadConfig(path string) core.CoreConfig {
	if path == "" {
		return core.LoadBaseConfigFromENV()
	}
	return core.MustLoadBaseConfig(path)
}

func NewCommand() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "service",
		Short: "synthesis http service with background worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(opts)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func Run(opts *Options) error {
	app := core.MustSetupCore(loadConfig(opts.ConfigPath))
	defer app.Close()

	p := process.NewProcess(app)
	if err := p.Start(); err != nil {
		return err
	}
	defer p.Stop()

	return serve(app)
}

func NewProcessCommand() *cobra.Command {
	opts := &Options{}
	cmd := &cobra.Command{
		Use:   "process",
		Short: "synthesis worker only",
		RunE: func(cmd *cobra.Command, args []string) error {
			return RunProcess(opts)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

func RunProcess(opts *Options) error {
	app := core.MustSetupCore(loadConfig(opts.ConfigPath))
	defer app.Close()

	p := process.NewProcess(app)
	if err := p.Start(); err != nil {
		return err
	}
	slog.Info("process starting...")

	sigs := make(chan os.Signal, 1)
	// 监听 os.Interrupt (Ctrl+C) 和 syscall.SIGTERM (kill)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	// 阻塞等待信号
	<-sigs
	p.Stop()
	return nil
}
