package cli

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"genvid/internal/adapters/ark"
	"genvid/internal/service"
)

var generateFlags struct {
	image       string
	endFrame    string
	prompt      string
	model       string
	resolution  string
	duration    string
	cameraFixed bool
	seed        int64
}

func init() {
	generateCmd.Flags().StringVarP(&generateFlags.image, "image", "i", "", "first-frame image (required)")
	generateCmd.Flags().StringVar(&generateFlags.endFrame, "end-frame", "", "optional last-frame image")
	generateCmd.Flags().StringVarP(&generateFlags.prompt, "prompt", "p", "", "text prompt")
	generateCmd.Flags().StringVarP(&generateFlags.model, "model", "m", "", "model id (default from config)")
	generateCmd.Flags().StringVar(&generateFlags.resolution, "resolution", "1080p", "output resolution: 480p, 720p or 1080p")
	generateCmd.Flags().StringVar(&generateFlags.duration, "duration", "5s", "clip length: 5s or 10s")
	generateCmd.Flags().BoolVar(&generateFlags.cameraFixed, "camera-fixed", false, "lock the camera position")
	generateCmd.Flags().Int64Var(&generateFlags.seed, "seed", -1, "generation seed (-1 lets the service choose)")

	rootCmd.AddCommand(generateCmd)
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a video from an image and a prompt",
	Long:  `Generate an image-to-video clip. The image is published through the asset relay, the job is polled to completion, and the video lands under the data directory.`,
	RunE:  runGenerate,
}

func runGenerate(cmd *cobra.Command, args []string) error {
	if err := requireFile(generateFlags.image, "image"); err != nil {
		return err
	}
	if generateFlags.endFrame != "" {
		if err := requireFile(generateFlags.endFrame, "end-frame"); err != nil {
			return err
		}
	}

	e, err := newEnv()
	if err != nil {
		return err
	}
	defer e.close()

	if err := e.creds.RequireArk(); err != nil {
		return err
	}

	model := generateFlags.model
	if model == "" {
		model = e.cfg.Ark.Model
	}

	arkClient := ark.New(e.cfg.Ark.Endpoint, e.creds.ArkAPIKey, e.log)
	orch := service.NewOrchestrator(arkClient, nil, e.uploader(), e.dl, e.storage, e.poller, e.history, e.log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := orch.Generate(ctx, service.GenerateRequest{
		ImagePath:    generateFlags.image,
		EndFramePath: generateFlags.endFrame,
		Prompt:       generateFlags.prompt,
		Model:        model,
		Resolution:   generateFlags.resolution,
		Duration:     generateFlags.duration,
		CameraFixed:  generateFlags.cameraFixed,
		Seed:         generateFlags.seed,
	})
	if err != nil {
		return err
	}
	return printSummary(res)
}
