package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/quka-ai/synthesis/app/core"
	v1 "github.com/quka-ai/synthesis/app/logic/v1"
	"github.com/quka-ai/synthesis/pkg/extract"
	"github.com/quka-ai/synthesis/pkg/types"
)

type SynthesizeOptions struct {
	Options
	Inputs      []string
	OptionsPath string
	Template    string
	JobID       string
}

func (o *SynthesizeOptions) AddFlags(flagSet *pflag.FlagSet) {
	o.Options.AddFlags(flagSet)
	flagSet.StringArrayVarP(&o.Inputs, "input", "i", nil, "local file, url or plain text, repeatable")
	flagSet.StringVarP(&o.OptionsPath, "options", "o", "", "podcast options json file")
	flagSet.StringVarP(&o.Template, "template", "t", "", "built-in podcast template name")
	flagSet.StringVar(&o.JobID, "job-id", "", "job id, generated when empty")
}

func NewSynthesizeCommand() *cobra.Command {
	opts := &SynthesizeOptions{}
	cmd := &cobra.Command{
		Use:   "synthesize",
		Short: "run the podcast pipeline once and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return RunSynthesize(ctx, opts)
		},
	}
	opts.AddFlags(cmd.Flags())
	return cmd
}

// BuildSynthesisRequest 本地文件在这里直接提取为文本，其余输入交给流水线处理
func BuildSynthesisRequest(extractor *extract.Extractor, opts *SynthesizeOptions) (*types.SynthesisRequest, error) {
	req := &types.SynthesisRequest{JobID: opts.JobID}
	for _, in := range opts.Inputs {
		if info, err := os.Stat(in); err == nil && info.Mode().IsRegular() {
			doc, err := extractor.ExtractFile(in)
			if err != nil {
				return nil, err
			}
			req.Input = append(req.Input, doc.Text)
			continue
		}
		req.Input = append(req.Input, in)
	}

	out := types.SynthesisOutput{
		Type:     types.OUTPUT_TYPE_PODCAST,
		Template: opts.Template,
	}
	if opts.OptionsPath != "" {
		raw, err := os.ReadFile(opts.OptionsPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read options file: %w", err)
		}
		if !json.Valid(raw) {
			return nil, fmt.Errorf("options file %s is not valid json", opts.OptionsPath)
		}
		out.Options = raw
	}
	req.Output = []types.SynthesisOutput{out}
	return req, nil
}

func RunSynthesize(ctx context.Context, opts *SynthesizeOptions) error {
	app := core.MustSetupCore(loadConfig(opts.ConfigPath))
	defer app.Close()

	req, err := BuildSynthesisRequest(app.Extractor(), opts)
	if err != nil {
		return err
	}

	res, err := v1.NewSynthesisLogic(ctx, app).Synthesize(req)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}
